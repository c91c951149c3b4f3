package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/idg10/rxrewrite/config"
	"github.com/idg10/rxrewrite/engine"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/loader"
	"github.com/idg10/rxrewrite/logger"
	"github.com/idg10/rxrewrite/resilience"
)

const averageYAML = `
name: average-evens
input: {type: int}
body:
  op: Average
  args:
    - op: Where
      args:
        - param: xs
        - func: isEven
`

func averageDefinition() *loader.Definition {
	return &loader.Definition{
		Name:  "average-evens",
		Input: loader.Input{Type: "int"},
		Body: loader.NodeDef{Op: "Average", Args: []loader.NodeDef{
			{Op: "Where", Args: []loader.NodeDef{{Param: "xs"}, {Func: "isEven"}}},
		}},
	}
}

func newTestHandler(t *testing.T, opts ...HandlerOption) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "average-evens.yaml"), []byte(averageYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	opts = append([]HandlerOption{WithDefinitions(loader.NewFileLoader(dir))}, opts...)
	h := NewHandler(engine.NewDefault(), opts...)
	cfg := config.ServerConfig{Addr: "127.0.0.1:0"}
	return New(cfg, h, logger.Nop()).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("response is not valid JSON: %v: %s", err, rr.Body.String())
	}
	return v
}

type envelope[T any] struct {
	Data T `json:"data"`
}

func TestHealthAndVersion(t *testing.T) {
	h := newTestHandler(t)

	rr := do(t, h, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
	if got := decode[map[string]string](t, rr); got["status"] != "ok" {
		t.Errorf("healthz = %v", got)
	}

	rr = do(t, h, http.MethodGet, "/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("version status = %d", rr.Code)
	}
	if got := decode[envelope[map[string]any]](t, rr); got.Data["name"] != "rxrewrite" {
		t.Errorf("version = %v", got.Data)
	}
}

func TestRequestID(t *testing.T) {
	h := newTestHandler(t)

	rr := do(t, h, http.MethodGet, "/healthz", nil)
	if rr.Header().Get(HeaderRequestID) == "" {
		t.Error("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	req.Header.Set(HeaderRequestID, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestRun(t *testing.T) {
	h := newTestHandler(t)
	values := []string{"1", "2", "3", "4"}

	tests := []struct {
		name string
		req  PipelineRequest
		mode string
	}{
		{"inline default mode", PipelineRequest{Definition: averageDefinition(), Values: values}, "rewrite"},
		{"inline direct", PipelineRequest{Definition: averageDefinition(), Mode: "direct", Values: values}, "direct"},
		{"by name", PipelineRequest{Name: "average-evens", Values: values}, "rewrite"},
		{"by name direct", PipelineRequest{Name: "average-evens", Mode: "direct", Values: values}, "direct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/v1/pipelines/run", tt.req)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
			}
			got := decode[envelope[RunResponse]](t, rr).Data
			want := RunResponse{Name: "average-evens", Mode: tt.mode, Values: []any{3.0}}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestRepeatedRunsReuseOnePlan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "average-evens.yaml"), []byte(averageYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	e := engine.NewDefault()
	h := New(config.ServerConfig{}, NewHandler(e, WithDefinitions(loader.NewFileLoader(dir))), logger.Nop()).Handler()

	values := []string{"2", "4"}
	for range 20 {
		rr := do(t, h, http.MethodPost, "/v1/pipelines/run", PipelineRequest{Name: "average-evens", Values: values})
		if rr.Code != http.StatusOK {
			t.Fatalf("by name: status = %d: %s", rr.Code, rr.Body.String())
		}
	}
	if n := e.CachedPlans(); n != 1 {
		t.Errorf("cached plans after repeated named runs = %d, want 1", n)
	}

	for range 20 {
		rr := do(t, h, http.MethodPost, "/v1/pipelines/run", PipelineRequest{Definition: averageDefinition(), Values: values})
		if rr.Code != http.StatusOK {
			t.Fatalf("inline: status = %d: %s", rr.Code, rr.Body.String())
		}
	}
	if n := e.CachedPlans(); n != 1 {
		t.Errorf("cached plans after inline runs = %d, want 1", n)
	}
}

func TestRunInlineUntypedCount(t *testing.T) {
	h := newTestHandler(t)
	body := `{"definition": {"name": "first-two", "input": {"type": "int"},
		"body": {"op": "Take", "args": [{"param": "xs"}, {"value": 2}]}},
		"values": ["7", "8", "9"]}`

	rr := do(t, h, http.MethodPost, "/v1/pipelines/run", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	got := decode[envelope[RunResponse]](t, rr).Data
	if diff := cmp.Diff([]any{7.0, 8.0}, got.Values); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestRunEmptyOutput(t *testing.T) {
	h := newTestHandler(t)
	def := &loader.Definition{
		Name:  "evens",
		Input: loader.Input{Type: "int"},
		Body:  loader.NodeDef{Op: "Where", Args: []loader.NodeDef{{Param: "xs"}, {Func: "isEven"}}},
	}

	rr := do(t, h, http.MethodPost, "/v1/pipelines/run", PipelineRequest{Definition: def, Values: []string{"1", "3"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"values":[]`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestInspect(t *testing.T) {
	h := newTestHandler(t)

	rr := do(t, h, http.MethodPost, "/v1/pipelines/inspect", PipelineRequest{Name: "average-evens"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	got := decode[envelope[InspectResponse]](t, rr).Data

	if got.Mode != "rewrite" || got.Input != "int" || got.Output != "float64" {
		t.Errorf("summary = %s %s -> %s", got.Mode, got.Input, got.Output)
	}
	if want := "xs => Average(Where(xs, <func(int) bool>))"; got.Source != want {
		t.Errorf("source = %q, want %q", got.Source, want)
	}
	if got.SourceTree.Name != "Average" || got.SourceTree.Shape != "stream[float64]" {
		t.Errorf("source tree root = %+v", got.SourceTree)
	}
	if got.PreparedTree.Name != "Average" || got.PreparedTree.Shape != "async-stream[float64]" {
		t.Errorf("prepared tree root = %+v", got.PreparedTree)
	}

	rr = do(t, h, http.MethodPost, "/v1/pipelines/inspect", PipelineRequest{Name: "average-evens", Mode: "direct"})
	direct := decode[envelope[InspectResponse]](t, rr).Data
	if direct.PreparedTree.Shape != "stream[float64]" {
		t.Errorf("direct prepared tree root = %+v", direct.PreparedTree)
	}
}

func TestErrors(t *testing.T) {
	h := newTestHandler(t)
	unknownOp := averageDefinition()
	unknownOp.Body.Op = "Median"

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   apperrors.ErrorCode
	}{
		{"bad json", "/v1/pipelines/run", "{", http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"neither name nor definition", "/v1/pipelines/run", PipelineRequest{}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"name and definition", "/v1/pipelines/inspect",
			PipelineRequest{Name: "average-evens", Definition: averageDefinition()}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"unknown name", "/v1/pipelines/inspect", PipelineRequest{Name: "missing"}, http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"bad mode", "/v1/pipelines/inspect",
			PipelineRequest{Name: "average-evens", Mode: "pull"}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"unknown operator", "/v1/pipelines/inspect",
			PipelineRequest{Definition: unknownOp}, http.StatusUnprocessableEntity, apperrors.ErrCodeMalformedExpression},
		{"bad value", "/v1/pipelines/run",
			PipelineRequest{Name: "average-evens", Values: []string{"two"}}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"error notification", "/v1/pipelines/run",
			PipelineRequest{Name: "average-evens", Values: []string{"1"}}, http.StatusUnprocessableEntity, apperrors.ErrCodeNotificationFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
			if got := decode[apperrors.ErrorResponse](t, rr); got.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", got.Error.Code, tt.code)
			}
		})
	}
}

func TestListings(t *testing.T) {
	h := newTestHandler(t)

	rr := do(t, h, http.MethodGet, "/v1/pipelines", nil)
	if diff := cmp.Diff([]string{"average-evens"}, decode[envelope[[]string]](t, rr).Data); diff != "" {
		t.Errorf("pipelines (-want +got):\n%s", diff)
	}

	rr = do(t, h, http.MethodGet, "/v1/operators", nil)
	ops := decode[envelope[map[string][]string]](t, rr).Data
	for _, key := range []string{"push", "async-push", "funcs"} {
		if len(ops[key]) == 0 {
			t.Errorf("no %s entries", key)
		}
	}
}

func TestStream(t *testing.T) {
	h := newTestHandler(t)
	evens := &loader.Definition{
		Name:  "evens",
		Input: loader.Input{Type: "int"},
		Body:  loader.NodeDef{Op: "Where", Args: []loader.NodeDef{{Param: "xs"}, {Func: "isEven"}}},
	}
	want := "event: next\ndata: 2\n\n" +
		"event: next\ndata: 4\n\n" +
		"event: completed\ndata: {}\n\n"

	for _, mode := range []string{"rewrite", "direct"} {
		t.Run(mode, func(t *testing.T) {
			req := PipelineRequest{Definition: evens, Mode: mode, Values: []string{"1", "2", "3", "4"}}
			rr := do(t, h, http.MethodPost, "/v1/pipelines/stream", req)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
				t.Errorf("content type = %q", ct)
			}
			if diff := cmp.Diff(want, rr.Body.String()); diff != "" {
				t.Errorf("events (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStreamErrorEvent(t *testing.T) {
	h := newTestHandler(t)

	rr := do(t, h, http.MethodPost, "/v1/pipelines/stream", PipelineRequest{Name: "average-evens", Values: []string{"1"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "event: error\ndata: {") || !strings.Contains(body, `"code":"NOTIFICATION_FAILURE"`) {
		t.Errorf("body = %q", body)
	}
	if strings.Contains(body, "event: completed") {
		t.Error("no completion may follow an error")
	}

	rr = do(t, h, http.MethodPost, "/v1/pipelines/stream", PipelineRequest{Name: "missing"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("preparation failures are plain errors, got %d", rr.Code)
	}
}

func TestRunsShareBulkhead(t *testing.T) {
	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "pipeline runs", MaxConcurrent: 1})
	h := newTestHandler(t, WithBulkhead(bh))

	release, err := bh.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	req := PipelineRequest{Name: "average-evens", Values: []string{"2"}}
	for _, path := range []string{"/v1/pipelines/run", "/v1/pipelines/stream"} {
		rr := do(t, h, http.MethodPost, path, req)
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, rr.Code)
		}
	}

	release()
	if rr := do(t, h, http.MethodPost, "/v1/pipelines/run", req); rr.Code != http.StatusOK {
		t.Errorf("after release: status = %d", rr.Code)
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(logger.Nop()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decode[apperrors.ErrorResponse](t, rr); got.Error.Code != apperrors.ErrCodeInternal {
		t.Errorf("code = %s", got.Error.Code)
	}
}

func TestRequestLoggerSkipsHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	r := gin.New()
	r.Use(RequestID(), RequestLogger(log))
	r.GET(healthPath, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, healthPath, http.NoBody))
	if buf.Len() != 0 {
		t.Fatalf("health check was logged: %s", buf.String())
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", http.NoBody))
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if id, _ := entry[logger.FieldRequestID].(string); id == "" {
		t.Errorf("no request id in %v", entry)
	}
	if entry["level"] != "warn" || entry["path"] != "/missing" {
		t.Errorf("log entry = %v", entry)
	}
}

func TestServerStartStop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(engine.NewDefault())
	s := New(config.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, h, logger.Nop())

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get("http://" + s.Addr() + healthPath)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}
