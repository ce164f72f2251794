package domain

// CopyTask is one source file and the path it is copied to.
type CopyTask struct {
	Index      int
	SourcePath string
	TargetPath string
}

// FailureRecord names a file that could not be copied and why.
type FailureRecord struct {
	Path    string
	Message string
}

// ProgressEvent is a snapshot of one file's transfer. Index is 1-based.
type ProgressEvent struct {
	Index  int
	Total  int
	Path   string
	Size   int64
	Copied int64
}

// Done reports whether the event marks the end of a file.
func (e ProgressEvent) Done() bool {
	return e.Copied >= e.Size
}
