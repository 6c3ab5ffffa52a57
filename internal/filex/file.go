// Package filex reads local files that the client uploads to the API.
package filex

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageSize caps course images read from disk.
const MaxImageSize = 5 << 20

var (
	ErrEmptyFile = errors.New("file is empty")
	ErrTooLarge  = errors.New("file is too large")
	ErrNotImage  = errors.New("file is not an image")
)

// Upload is a file loaded into memory, ready to be sent as a multipart part.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadImage loads the image at path. The file must be non-empty, at most
// MaxImageSize bytes, and sniff as image/*.
func ReadImage(path string) (*Upload, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() == 0 {
		return nil, ErrEmptyFile
	}
	if fi.Size() > MaxImageSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, fi.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%s: %w (%s)", path, ErrNotImage, ct)
	}

	return &Upload{Name: filepath.Base(path), ContentType: ct, Data: data}, nil
}
