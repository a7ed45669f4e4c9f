package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"io/fs"
	"mime/multipart"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"shopfront/internal/apperr"
)

// MemStorage keeps images in memory. FailSave and FailDelete inject errors.
type MemStorage struct {
	AcceptPNG bool

	mu         sync.Mutex
	files      map[string][]byte
	failSave   error
	failDelete error
	deletes    []string
}

var _ Storage = (*MemStorage)(nil)

func NewMemStorage(acceptPNG bool) *MemStorage {
	return &MemStorage{AcceptPNG: acceptPNG, files: map[string][]byte{}}
}

func (s *MemStorage) FailSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = err
}

func (s *MemStorage) FailDelete(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDelete = err
}

// Deletes lists every filename DeleteImage was called with, in order.
func (s *MemStorage) Deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

// Has reports whether filename is stored.
func (s *MemStorage) Has(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[filename]
	return ok
}

// Put stores content under filename directly, bypassing validation.
func (s *MemStorage) Put(filename string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[filename] = content
}

func (s *MemStorage) SaveImage(ctx context.Context, mr *multipart.Reader) (SavedImage, error) {
	const op = "storage.save_image"
	s.mu.Lock()
	injected := s.failSave
	s.mu.Unlock()
	if injected != nil {
		return SavedImage{}, injected
	}

	part, ext, err := imagePart(op, mr, s.AcceptPNG)
	if err != nil {
		return SavedImage{}, err
	}
	defer part.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, ctxReader{ctx: ctx, r: part}); err != nil {
		return SavedImage{}, apperr.E(op, apperr.Io, err)
	}
	sum := blake2b.Sum256(buf.Bytes())
	name := uuid.NewString() + ext

	s.mu.Lock()
	s.files[name] = buf.Bytes()
	s.mu.Unlock()
	return SavedImage{
		Filename:    name,
		ContentType: contentType(ext),
		Size:        int64(buf.Len()),
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

func (s *MemStorage) DeleteImage(_ context.Context, filename string) error {
	const op = "storage.delete_image"
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, filename)
	if s.failDelete != nil {
		return s.failDelete
	}
	if _, ok := s.files[filename]; !ok {
		return apperr.E(op, apperr.Io, &fs.PathError{Op: "remove", Path: filename, Err: fs.ErrNotExist})
	}
	delete(s.files, filename)
	return nil
}

func (s *MemStorage) Open(_ context.Context, filename string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[filename]
	if !ok {
		return nil, apperr.E("storage.open_image", apperr.NotFound, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *MemStorage) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for name := range s.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
