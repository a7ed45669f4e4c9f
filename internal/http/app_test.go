package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"shopfront/internal/config"
	"shopfront/internal/domain"
	"shopfront/internal/http/handlers"
	"shopfront/internal/repos"
	"shopfront/internal/services"
	"shopfront/internal/storage"
)

func testConfig() config.Config {
	return config.Config{MaxUploadBytes: 1 << 20, UploadsPerMinute: 100, AcceptPNG: true}
}

// newSQLApp wires the real stack: sqlite in memory and a temp asset root.
func newSQLApp(t *testing.T, cfg config.Config) (*fiber.App, string) {
	t.Helper()
	db, err := repos.OpenDB(context.Background(), "sqlite", ":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	root := t.TempDir()
	files, err := storage.NewFSStorage(root, cfg.AcceptPNG)
	require.NoError(t, err)
	return handlers.NewApp(cfg, handlers.NewDeps(db, files)), root
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

type categories []domain.Category

func (c categories) List(context.Context) ([]domain.Category, error) { return c, nil }

type memApp struct {
	app   *fiber.App
	store *repos.MemProductStore
	files *storage.MemStorage
}

// newMemApp wires the in-memory doubles so failures can be injected.
func newMemApp(t *testing.T, ping error) memApp {
	t.Helper()
	store := repos.NewMemProductStore()
	files := storage.NewMemStorage(true)
	deps := &handlers.Deps{
		ProductHandler:  &handlers.ProductHandler{Products: services.NewProductService(store, files)},
		CategoryHandler: &handlers.CategoryHandler{Categories: services.NewCategoryService(categories{{ID: 1, Name: "Clothing"}})},
		AssetHandler:    &handlers.AssetHandler{Files: files},
		HealthHandler:   &handlers.HealthHandler{DB: pinger{ping}},
	}
	return memApp{app: handlers.NewApp(testConfig(), deps), store: store, files: files}
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadReq(t *testing.T, target, field, contentType, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="photo.jpg"`)
	h.Set("Content-Type", contentType)
	pw, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = pw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

type productJSON struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Price  json.Number    `json:"price"`
	Assets []domain.Asset `json:"assets"`
}

type messageJSON struct {
	Message string `json:"message"`
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

type logEntry struct {
	Level  string         `json:"level"`
	ReqID  string         `json:"req_id"`
	Action string         `json:"action"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	oldW, oldFlags := log.Writer(), log.Flags()
	log.SetOutput(buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	buf.mu.Lock()
	defer buf.mu.Unlock()
	var out []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

func findEntry(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
