// Package storage persists uploaded product images as files under a single
// flat asset root. It knows nothing about products or the database: callers
// pair a saved file with an asset row and undo the save when the row insert
// fails.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"

	"shopfront/internal/apperr"
)

// ImageField is the multipart form field carrying the upload.
const ImageField = "image"

// Storage is implemented by the filesystem backend and by MemStorage.
// Implementations must be safe for concurrent use.
type Storage interface {
	// SaveImage finds the image part in mr, checks its declared content type
	// and writes it under a freshly generated name.
	SaveImage(ctx context.Context, mr *multipart.Reader) (SavedImage, error)

	// DeleteImage removes a previously saved file. A missing file is an Io
	// error wrapping fs.ErrNotExist.
	DeleteImage(ctx context.Context, filename string) error

	// Open returns the content of a saved file. The caller closes it.
	Open(ctx context.Context, filename string) (io.ReadCloser, error)

	// List returns the names of all saved files.
	List(ctx context.Context) ([]string, error)
}

// SavedImage describes a file written by SaveImage.
type SavedImage struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"` // blake2b-256, hex
}

// extension maps an accepted declared content type to the stored extension.
func extension(contentType string, acceptPNG bool) (string, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch mt {
	case "image/jpeg":
		return ".jpeg", true
	case "image/png":
		return ".png", acceptPNG
	}
	return "", false
}

// imagePart advances mr to the image field and validates its content type.
// Parts before it are discarded. Nothing is written on failure.
func imagePart(op string, mr *multipart.Reader, acceptPNG bool) (*multipart.Part, string, error) {
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, "", apperr.E(op, apperr.MultipartFieldMissing, nil)
		}
		if err != nil {
			return nil, "", &apperr.Error{Op: op, Kind: apperr.Invalid, Err: err, Message: "Invalid request: malformed multipart body."}
		}
		if p.FormName() != ImageField {
			_ = p.Close()
			continue
		}
		ct := p.Header.Get("Content-Type")
		ext, ok := extension(ct, acceptPNG)
		if !ok {
			_ = p.Close()
			return nil, "", apperr.E(op, apperr.InvalidMimeType, errors.New("declared content type "+quote(ct)))
		}
		return p, ext, nil
	}
}

func quote(s string) string {
	if s == "" {
		return "<none>"
	}
	return `"` + s + `"`
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
