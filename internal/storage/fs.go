package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"shopfront/internal/apperr"
	"shopfront/internal/validate"
)

// FSStorage keeps images as files directly under Root.
type FSStorage struct {
	Root      string
	AcceptPNG bool
}

var _ Storage = (*FSStorage)(nil)

// NewFSStorage creates root if needed.
func NewFSStorage(root string, acceptPNG bool) (*FSStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperr.E("storage.open", apperr.Io, err)
	}
	return &FSStorage{Root: root, AcceptPNG: acceptPNG}, nil
}

func contentType(ext string) string {
	if ext == ".png" {
		return "image/png"
	}
	return "image/jpeg"
}

// SaveImage streams the image part to <uuid>.<ext>. A write that fails part
// way leaves the partial file behind.
func (s *FSStorage) SaveImage(ctx context.Context, mr *multipart.Reader) (SavedImage, error) {
	const op = "storage.save_image"
	part, ext, err := imagePart(op, mr, s.AcceptPNG)
	if err != nil {
		return SavedImage{}, err
	}
	defer part.Close()

	name := uuid.NewString() + ext
	f, err := os.OpenFile(filepath.Join(s.Root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return SavedImage{}, apperr.E(op, apperr.Io, err)
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		_ = f.Close()
		return SavedImage{}, apperr.E(op, apperr.Io, err)
	}
	n, err := io.Copy(io.MultiWriter(f, h), ctxReader{ctx: ctx, r: part})
	if err != nil {
		_ = f.Close()
		return SavedImage{}, apperr.E(op, apperr.Io, err)
	}
	if err := f.Close(); err != nil {
		return SavedImage{}, apperr.E(op, apperr.Io, err)
	}
	return SavedImage{
		Filename:    name,
		ContentType: contentType(ext),
		Size:        n,
		Checksum:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func (s *FSStorage) path(op, filename string) (string, error) {
	if filepath.Base(filename) != filename || filename == "." || filename == ".." {
		return "", apperr.Client(op, apperr.Invalid, "Invalid filename.")
	}
	return filepath.Join(s.Root, filename), nil
}

func (s *FSStorage) DeleteImage(_ context.Context, filename string) error {
	const op = "storage.delete_image"
	p, err := s.path(op, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return apperr.E(op, apperr.Io, err)
	}
	return nil
}

func (s *FSStorage) Open(_ context.Context, filename string) (io.ReadCloser, error) {
	const op = "storage.open_image"
	if _, ok := validate.AssetName(filename); !ok {
		return nil, apperr.E(op, apperr.NotFound, nil)
	}
	f, err := os.Open(filepath.Join(s.Root, filename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.E(op, apperr.NotFound, err)
	}
	if err != nil {
		return nil, apperr.E(op, apperr.Io, err)
	}
	return f, nil
}

// List returns the generated-name files under Root, sorted. Anything else in
// the directory is ignored.
func (s *FSStorage) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, apperr.E("storage.list", apperr.Io, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if _, ok := validate.AssetName(e.Name()); ok {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
