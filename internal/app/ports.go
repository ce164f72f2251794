package app

import (
	"io"
	"io/fs"
)

// FileSystem is the slice of the host filesystem the engines need.
type FileSystem interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
	Stat(path string) (fs.FileInfo, error)
	Exists(path string) (bool, error)
	MkdirAll(path string, perm fs.FileMode) error
	Open(path string) (io.ReadCloser, error)
	Create(path string, perm fs.FileMode) (io.WriteCloser, error)
	Remove(path string) error
	// CopyFile copies the whole file and its metadata in one step.
	CopyFile(src, dst string) error
	// CopyMetadata applies src's modification time and permission bits to dst.
	CopyMetadata(src, dst string) error
}
