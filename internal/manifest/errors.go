package manifest

import "fmt"

// ErrorKind classifies manifest failures.
type ErrorKind int

const (
	// KindNotFound means the manifest file does not exist.
	KindNotFound ErrorKind = iota + 1
	// KindUnreadable means the file exists but could not be opened or read.
	KindUnreadable
	// KindMalformed means the document is not well-formed XML.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindUnreadable:
		return "unreadable"
	case KindMalformed:
		return "malformed"
	}
	return "unknown"
}

// Error is returned by Parse when the manifest cannot be used at all.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("manifest %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("manifest %s %s: %v", e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
