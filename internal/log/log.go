package log

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

type entry struct {
	TS        string         `json:"ts"`
	Level     string         `json:"level"`
	ReqID     string         `json:"req_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	Action    string         `json:"action,omitempty"`
	Status    int            `json:"status,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

type ctxKey struct{}

type reqInfo struct {
	id     string
	ip     string
	method string
	path   string
}

func emit(e entry, err error) {
	e.TS = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

func write(level string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry{Level: level, Action: action, Fields: fields}
	if c != nil {
		e.IP = c.IP()
		e.Method = c.Method()
		e.Path = c.Path()
		e.Status = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e.ReqID = rid
		}
	}
	emit(e, err)
}

func writeCtx(level string, ctx context.Context, action string, err error, fields map[string]any) {
	e := entry{Level: level, Action: action, Fields: fields}
	if ctx != nil {
		if ri, ok := ctx.Value(ctxKey{}).(reqInfo); ok {
			e.ReqID, e.IP, e.Method, e.Path = ri.id, ri.ip, ri.method, ri.path
		}
	}
	emit(e, err)
}

func Info(c *fiber.Ctx, action string, fields map[string]any) { write("info", c, action, nil, fields) }
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write("audit", c, action, nil, fields)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write("warn", c, action, nil, fields)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("error", c, action, err, fields)
}

// Context variants for code below the HTTP layer.

func InfoCtx(ctx context.Context, action string, fields map[string]any) {
	writeCtx("info", ctx, action, nil, fields)
}
func AuditCtx(ctx context.Context, action string, fields map[string]any) {
	writeCtx("audit", ctx, action, nil, fields)
}
func WarnCtx(ctx context.Context, action string, err error, fields map[string]any) {
	writeCtx("warn", ctx, action, err, fields)
}
func ErrorCtx(ctx context.Context, action string, err error, fields map[string]any) {
	writeCtx("error", ctx, action, err, fields)
}

// Bind copies request identity into the request's user context so services
// logging via the *Ctx functions carry the request id. Install after requestid.
func Bind() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ri := reqInfo{ip: c.IP(), method: c.Method(), path: c.Path()}
		if rid, ok := c.Locals("requestid").(string); ok {
			ri.id = rid
		}
		c.SetUserContext(context.WithValue(c.UserContext(), ctxKey{}, ri))
		return c.Next()
	}
}

// WithRequestID returns ctx tagged with a request id, for callers outside fiber.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqInfo{id: id})
}

// Setup mirrors the standard logger to file when path is set. The returned
// closer must be called on shutdown.
func Setup(path string) (io.Closer, error) {
	if path == "" {
		return io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f, nil
}
