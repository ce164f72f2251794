package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// NoExtension groups files whose name carries no extension.
const NoExtension = "no-extension"

type ExtensionStat struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// ScanStatistics is the inventory produced by one scan of a file or directory tree.
type ScanStatistics struct {
	Root             string                   `json:"root"`
	IsFile           bool                     `json:"is_file"`
	TotalFiles       int                      `json:"total_files"`
	TotalDirectories int                      `json:"total_directories"`
	TotalSize        int64                    `json:"total_size"`
	Extensions       map[string]ExtensionStat `json:"extensions"`
	Files            []string                 `json:"files"`
	Directories      []string                 `json:"directories"`
	ScannedAt        time.Time                `json:"scanned_at"`
}

// ExtensionKey returns the lower-cased extension of name, or NoExtension.
func ExtensionKey(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || ext == "." {
		return NoExtension
	}
	return ext
}
