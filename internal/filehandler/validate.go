package filehandler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileErrorKind categorizes a media validation failure.
type FileErrorKind int

const (
	// ErrKindNotFound means the path does not exist.
	ErrKindNotFound FileErrorKind = iota
	// ErrKindAccess means the path exists but cannot be read, or is a directory.
	ErrKindAccess
	// ErrKindTooLarge means the file exceeds the caller's size limit.
	ErrKindTooLarge
	// ErrKindUnsupported means the extension is not a known media type.
	ErrKindUnsupported
)

// FileError is returned by Validate.
type FileError struct {
	Kind FileErrorKind
	Path string
	Err  error
}

func (e *FileError) Error() string {
	switch e.Kind {
	case ErrKindNotFound:
		return fmt.Sprintf("file not found: %s", e.Path)
	case ErrKindTooLarge:
		return fmt.Sprintf("file too large: %s: %v", e.Path, e.Err)
	case ErrKindUnsupported:
		return fmt.Sprintf("unsupported file type: %s", e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("cannot read file %s: %v", e.Path, e.Err)
		}
		return fmt.Sprintf("cannot read file %s", e.Path)
	}
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Validate checks that path names a readable regular file of a supported
// media type no larger than maxBytes (when maxBytes > 0). Nothing beyond the
// first byte is read.
func Validate(path string, maxBytes int64) (*MediaFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, &FileError{Kind: ErrKindNotFound, Path: path}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileError{Kind: ErrKindNotFound, Path: path, Err: err}
		}
		return nil, &FileError{Kind: ErrKindAccess, Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &FileError{Kind: ErrKindAccess, Path: path, Err: errors.New("path is a directory")}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Kind: ErrKindAccess, Path: path, Err: err}
	}
	f.Close()

	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, &FileError{
			Kind: ErrKindTooLarge,
			Path: path,
			Err:  fmt.Errorf("%.1f MB exceeds the %.0f MB limit", float64(info.Size())/(1024*1024), float64(maxBytes)/(1024*1024)),
		}
	}

	mimeType, err := GetMIMEType(filepath.Ext(path))
	if err != nil {
		return nil, &FileError{Kind: ErrKindUnsupported, Path: path, Err: err}
	}

	return &MediaFile{Path: path, MIMEType: mimeType, Size: info.Size()}, nil
}
