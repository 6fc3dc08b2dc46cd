package imgprep

import (
	"bytes"
	"io"
	"os"
)

// SourceKind tells where the bytes of a Source come from.
type SourceKind int

// Source kinds. Orientation metadata is only read from files and content.
const (
	SourceFile SourceKind = iota
	SourceContent
	SourceStream
)

func (k SourceKind) String() string {
	switch k {
	case SourceFile:
		return "file"
	case SourceContent:
		return "content"
	default:
		return "stream"
	}
}

// Source is a re-openable handle to encoded image bytes.
type Source struct {
	Kind SourceKind
	Name string
	open func() (io.ReadCloser, error)
}

// FileSource returns a Source reading the named file.
func FileSource(path string) Source {
	return Source{SourceFile, path, func() (io.ReadCloser, error) { return os.Open(path) }}
}

// ContentSource returns a Source over data held in memory.
func ContentSource(name string, data []byte) Source {
	return Source{SourceContent, name, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}}
}

// StreamSource returns a Source backed by open. Orientation is never read from
// stream sources.
func StreamSource(name string, open func() (io.ReadCloser, error)) Source {
	return Source{SourceStream, name, open}
}

// Open opens the source for reading.
func (s Source) Open() (io.ReadCloser, error) {
	if s.open == nil {
		return nil, os.ErrInvalid
	}
	return s.open()
}

func (s Source) String() string { return s.Kind.String() + ":" + s.Name }
