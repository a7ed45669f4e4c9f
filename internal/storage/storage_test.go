package storage_test

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/apperr"
	"shopfront/internal/storage"
	"shopfront/internal/validate"
)

type part struct {
	field       string
	contentType string
	body        string
}

func form(t *testing.T, parts ...part) *multipart.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="upload.bin"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return multipart.NewReader(&buf, w.Boundary())
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFSStorage_SaveImage(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := storage.NewFSStorage(root, true)
	require.NoError(t, err)

	img, err := s.SaveImage(ctx, form(t,
		part{field: "caption", contentType: "text/plain", body: "ignored"},
		part{field: "image", contentType: "image/jpeg", body: "\xff\xd8\xff fake jpeg"},
	))
	require.NoError(t, err)

	_, ok := validate.AssetName(img.Filename)
	assert.True(t, ok, img.Filename)
	assert.Equal(t, ".jpeg", filepath.Ext(img.Filename))
	assert.Equal(t, "image/jpeg", img.ContentType)
	assert.Equal(t, int64(len("\xff\xd8\xff fake jpeg")), img.Size)
	assert.Len(t, img.Checksum, 64)

	got, err := os.ReadFile(filepath.Join(root, img.Filename))
	require.NoError(t, err)
	assert.Equal(t, "\xff\xd8\xff fake jpeg", string(got))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{img.Filename}, names)
}

func TestFSStorage_PNGOnlyWhenAccepted(t *testing.T) {
	ctx := context.Background()

	on, err := storage.NewFSStorage(t.TempDir(), true)
	require.NoError(t, err)
	img, err := on.SaveImage(ctx, form(t, part{field: "image", contentType: "image/png", body: "png"}))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(img.Filename))

	root := t.TempDir()
	off, err := storage.NewFSStorage(root, false)
	require.NoError(t, err)
	_, err = off.SaveImage(ctx, form(t, part{field: "image", contentType: "image/png", body: "png"}))
	assert.ErrorIs(t, err, apperr.InvalidMimeType)
	assert.Empty(t, dirEntries(t, root))
}

func TestFSStorage_RejectsBadUploadsWithoutWriting(t *testing.T) {
	cases := map[string]struct {
		parts []part
		want  apperr.Kind
	}{
		"text/plain":      {[]part{{field: "image", contentType: "text/plain", body: "hi"}}, apperr.InvalidMimeType},
		"no content type": {[]part{{field: "image", body: "hi"}}, apperr.InvalidMimeType},
		"missing field":   {[]part{{field: "file", contentType: "image/jpeg", body: "x"}}, apperr.MultipartFieldMissing},
		"empty body":      {nil, apperr.MultipartFieldMissing},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			s, err := storage.NewFSStorage(root, true)
			require.NoError(t, err)

			_, err = s.SaveImage(context.Background(), form(t, tc.parts...))
			require.ErrorIs(t, err, tc.want)
			assert.True(t, tc.want.Client())
			assert.Empty(t, dirEntries(t, root))
		})
	}
}

func TestFSStorage_ContentTypeParametersIgnored(t *testing.T) {
	s, err := storage.NewFSStorage(t.TempDir(), false)
	require.NoError(t, err)
	_, err = s.SaveImage(context.Background(), form(t, part{field: "image", contentType: "image/jpeg; q=0.9", body: "x"}))
	assert.NoError(t, err)
}

func TestFSStorage_CanceledContextIsIo(t *testing.T) {
	s, err := storage.NewFSStorage(t.TempDir(), true)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.SaveImage(ctx, form(t, part{field: "image", contentType: "image/jpeg", body: "x"}))
	assert.ErrorIs(t, err, apperr.Io)
}

func TestFSStorage_DeleteImage(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := storage.NewFSStorage(root, true)
	require.NoError(t, err)

	img, err := s.SaveImage(ctx, form(t, part{field: "image", contentType: "image/jpeg", body: "x"}))
	require.NoError(t, err)
	require.NoError(t, s.DeleteImage(ctx, img.Filename))
	assert.Empty(t, dirEntries(t, root))

	err = s.DeleteImage(ctx, img.Filename)
	assert.ErrorIs(t, err, apperr.Io)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	assert.ErrorIs(t, s.DeleteImage(ctx, "../etc/passwd"), apperr.Invalid)
}

func TestFSStorage_Open(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := storage.NewFSStorage(root, true)
	require.NoError(t, err)

	img, err := s.SaveImage(ctx, form(t, part{field: "image", contentType: "image/jpeg", body: "pixels"}))
	require.NoError(t, err)

	rc, err := s.Open(ctx, img.Filename)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "pixels", string(b))

	_, err = s.Open(ctx, "../"+img.Filename)
	assert.ErrorIs(t, err, apperr.NotFound)
	_, err = s.Open(ctx, "00000000-0000-0000-0000-000000000000.jpeg")
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestFSStorage_ListIgnoresForeignFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "00000000-0000-0000-0000-000000000000.png"), 0o755))
	s, err := storage.NewFSStorage(root, true)
	require.NoError(t, err)

	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemStorage(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStorage(false)

	_, err := s.SaveImage(ctx, form(t, part{field: "image", contentType: "image/png", body: "x"}))
	assert.ErrorIs(t, err, apperr.InvalidMimeType)

	img, err := s.SaveImage(ctx, form(t, part{field: "image", contentType: "image/jpeg", body: "x"}))
	require.NoError(t, err)
	assert.True(t, s.Has(img.Filename))

	require.NoError(t, s.DeleteImage(ctx, img.Filename))
	err = s.DeleteImage(ctx, img.Filename)
	assert.ErrorIs(t, err, apperr.Io)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, []string{img.Filename, img.Filename}, s.Deletes())
}
