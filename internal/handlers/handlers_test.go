package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Rorqualx/smoothscroll-go/internal/config"
	"github.com/Rorqualx/smoothscroll-go/internal/loop"
	"github.com/Rorqualx/smoothscroll-go/internal/middleware"
	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
	"github.com/Rorqualx/smoothscroll-go/internal/session"
	"github.com/Rorqualx/smoothscroll-go/internal/types"
)

// memContainer is only touched from the loop goroutine.
type memContainer struct {
	id     string
	offset [2]float64
	extent [2]float64
}

func (c *memContainer) ID() string { return c.id }
func (c *memContainer) Offset(axis scroll.Axis) float64 { return c.offset[axis] }
func (c *memContainer) SetOffset(axis scroll.Axis, v float64) { c.offset[axis] = v }
func (c *memContainer) ScrollExtent(axis scroll.Axis) float64 { return c.extent[axis] }

type memPage struct {
	mu         sync.Mutex
	url        string
	containers map[string]*memContainer
}

func (p *memPage) Container(selector string) (scroll.Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if selector == "#missing" {
		return nil, types.NewContainerNotFoundError(selector)
	}
	c, ok := p.containers[selector]
	if !ok {
		c = &memContainer{id: selector, extent: [2]float64{500, 2000}}
		p.containers[selector] = c
	}
	return c, nil
}

func (p *memPage) URL() string { return p.url }
func (p *memPage) Close() error { return nil }

// testHandler returns a handler over a running loop and in-memory pages.
func testHandler(t *testing.T) *Handler {
	t.Helper()

	cfg := &config.Config{
		SessionTTL:        time.Minute,
		MaxSessions:       2,
		MaxScrollDuration: 2 * time.Second,
	}

	l := loop.New(2 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)

	opener := session.OpenerFunc(func(_ context.Context, url string) (session.Page, error) {
		return &memPage{url: url, containers: make(map[string]*memContainer)}, nil
	})
	sessions := session.NewManager(cfg, opener, l, scroll.Config{})
	t.Cleanup(func() { sessions.Close() })

	return New(sessions, l, cfg)
}

func post(t *testing.T, h http.Handler, body string) (int, types.Response) {
	t.Helper()

	req := httptest.NewRequest("POST", "/v1", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp types.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response %q: %v", w.Body.String(), err)
	}
	return w.Code, resp
}

func createSession(t *testing.T, h http.Handler, id string) {
	t.Helper()
	code, resp := post(t, h, `{"cmd":"sessions.create","session":"`+id+`","url":"about:blank"}`)
	if code != http.StatusOK || resp.Status != types.StatusOK {
		t.Fatalf("Failed to create session: %d %s", code, resp.Message)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := testHandler(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var resp types.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if resp.Status != types.StatusOK {
		t.Errorf("Expected status 'ok', got %q", resp.Status)
	}
	if resp.Message != "smoothscroll is ready" {
		t.Errorf("Unexpected message: %q", resp.Message)
	}
	if resp.Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestRouting(t *testing.T) {
	h := testHandler(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/v1", http.StatusMethodNotAllowed},
		{"GET", "/unknown", http.StatusNotFound},
		{"POST", "/", http.StatusOK},
		{"POST", "/v1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"cmd":"sessions.list"}`))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
			if w.Header().Get("Content-Type") != "application/json" {
				t.Error("Expected Content-Type application/json")
			}
		})
	}
}

func TestInvalidRequests(t *testing.T) {
	h := testHandler(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{"cmd":`, http.StatusBadRequest},
		{"unknown command", `{"cmd":"request.get"}`, http.StatusBadRequest},
		{"missing url", `{"cmd":"sessions.create"}`, http.StatusBadRequest},
		{"bad scheme", `{"cmd":"sessions.create","url":"file:///etc/passwd"}`, http.StatusBadRequest},
		{"private url", `{"cmd":"sessions.create","url":"http://127.0.0.1:8080/"}`, http.StatusBadRequest},
		{"bad session id", `{"cmd":"sessions.create","session":"../etc","url":"about:blank"}`, http.StatusBadRequest},
		{"destroy without session", `{"cmd":"sessions.destroy"}`, http.StatusBadRequest},
		{"destroy unknown", `{"cmd":"sessions.destroy","session":"nope"}`, http.StatusNotFound},
		{"scroll unknown session", `{"cmd":"scroll.to","session":"nope","y":10}`, http.StatusNotFound},
		{"scroll without session", `{"cmd":"scroll.to","y":10}`, http.StatusBadRequest},
		{"negative duration", `{"cmd":"scroll.to","session":"s","y":10,"duration":-1}`, http.StatusBadRequest},
		{"dx on scroll.to", `{"cmd":"scroll.to","session":"s","dx":10}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := post(t, h, tt.body)
			if code != tt.want {
				t.Errorf("Expected status %d, got %d (%s)", tt.want, code, resp.Message)
			}
			if resp.Status != types.StatusError {
				t.Errorf("Expected status 'error', got %q", resp.Status)
			}
			if resp.Message == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	h := testHandler(t)

	code, resp := post(t, h, `{"cmd":"sessions.create","url":"about:blank"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", code, resp.Message)
	}
	generated := resp.Session
	if len(generated) != 32 {
		t.Errorf("Expected generated 32 character session ID, got %q", generated)
	}

	createSession(t, h, "named")

	code, resp = post(t, h, `{"cmd":"sessions.create","session":"named","url":"about:blank"}`)
	if code != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate session, got %d", code)
	}

	code, resp = post(t, h, `{"cmd":"sessions.create","url":"about:blank"}`)
	if code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 past the session limit, got %d", code)
	}

	_, resp = post(t, h, `{"cmd":"sessions.list"}`)
	if len(resp.Sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %v", resp.Sessions)
	}

	code, resp = post(t, h, `{"cmd":"sessions.destroy","session":"named"}`)
	if code != http.StatusOK {
		t.Errorf("Expected status 200, got %d (%s)", code, resp.Message)
	}

	_, resp = post(t, h, `{"cmd":"sessions.list"}`)
	if len(resp.Sessions) != 1 || resp.Sessions[0] != generated {
		t.Errorf("Expected only %q left, got %v", generated, resp.Sessions)
	}
}

func TestScrollToInstant(t *testing.T) {
	h := testHandler(t)
	createSession(t, h, "s")

	code, resp := post(t, h, `{"cmd":"scroll.to","session":"s","y":300,"duration":0}`)
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", code, resp.Message)
	}
	if resp.Result == nil {
		t.Fatal("Expected an immediate result for a zero duration scroll")
	}
	if resp.Result.InterruptedBy != nil {
		t.Errorf("Expected completed scroll, got interrupted by %q", *resp.Result.InterruptedBy)
	}
	if resp.Result.EndPoint.Y != 300 {
		t.Errorf("Expected end y 300, got %v", resp.Result.EndPoint.Y)
	}
	if resp.Scroll == nil || resp.Scroll.State != "idle" {
		t.Errorf("Expected idle status, got %+v", resp.Scroll)
	}
}

func TestScrollToClampsTarget(t *testing.T) {
	h := testHandler(t)
	createSession(t, h, "s")

	_, resp := post(t, h, `{"cmd":"scroll.to","session":"s","x":-50,"y":99999,"duration":0}`)
	if resp.Result == nil {
		t.Fatalf("Expected result, got %s", resp.Message)
	}
	if resp.Result.EndPoint.X != 0 || resp.Result.EndPoint.Y != 2000 {
		t.Errorf("Expected clamped end (0, 2000), got %+v", resp.Result.EndPoint)
	}
}

func TestScrollByRelative(t *testing.T) {
	h := testHandler(t)
	createSession(t, h, "s")

	post(t, h, `{"cmd":"scroll.to","session":"s","selector":"#list","y":100,"duration":0}`)
	_, resp := post(t, h, `{"cmd":"scroll.by","session":"s","selector":"#list","dy":150,"dx":20,"duration":0}`)
	if resp.Result == nil {
		t.Fatalf("Expected result, got %s", resp.Message)
	}
	if resp.Result.EndPoint.Y != 250 || resp.Result.EndPoint.X != 20 {
		t.Errorf("Expected end (20, 250), got %+v", resp.Result.EndPoint)
	}

	_, resp = post(t, h, `{"cmd":"scroll.status","session":"s"}`)
	if resp.Scroll.Offset.Y != 0 {
		t.Errorf("Expected document container untouched, got %+v", resp.Scroll.Offset)
	}
}

func TestScrollWait(t *testing.T) {
	h := testHandler(t)
	createSession(t, h, "s")

	code, resp := post(t, h, `{"cmd":"scroll.to","session":"s","y":400,"duration":40,"easing":"linear","wait":true}`)
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", code, resp.Message)
	}
	if resp.Message != "Scroll finished" || resp.Result == nil {
		t.Fatalf("Expected finished scroll, got %q", resp.Message)
	}
	if resp.Result.EndPoint.Y != 400 {
		t.Errorf("Expected end y 400, got %v", resp.Result.EndPoint.Y)
	}
	if resp.Result.DurationMs != 40 {
		t.Errorf("Expected duration 40ms, got %v", resp.Result.DurationMs)
	}
	if resp.Scroll.State != "idle" || resp.Scroll.Offset.Y != 400 {
		t.Errorf("Expected idle at 400 after wait, got %+v", resp.Scroll)
	}
}

func TestScrollWaitTimeout(t *testing.T) {
	h := testHandler(t)
	createSession(t, h, "s")

	code, resp := post(t, h, `{"cmd":"scroll.to","session":"s","y":400,"duration":1000,"wait":true,"maxTimeout":20}`)
	if code != http.StatusGatewayTimeout {
		t.Errorf("Expected status 504, got %d (%s)", code, resp.Message)
	}

	// The animation keeps running after the wait gives up.
	_, resp = post(t, h, `{"cmd":"scroll.status","session":"s"}`)
	if resp.Scroll.State != "animating" {
		t.Errorf("Expected animation still running, got %q", resp.Scroll.State)
	}
}

func TestScrollCancel(t *testing.T) {
	h := testHandler(t)
	createSession(t, h, "s")

	_, resp := post(t, h, `{"cmd":"scroll.cancel","session":"s"}`)
	if resp.Message != "No scroll in progress" {
		t.Errorf("Expected no scroll in progress, got %q", resp.Message)
	}

	_, resp = post(t, h, `{"cmd":"scroll.to","session":"s","y":1500,"duration":2000}`)
	if resp.Scroll == nil || resp.Scroll.State != "animating" {
		t.Fatalf("Expected animating status, got %+v", resp.Scroll)
	}
	if resp.Scroll.Target.Y != 1500 || resp.Scroll.DurationMs != 2000 {
		t.Errorf("Unexpected status: %+v", resp.Scroll)
	}

	_, resp = post(t, h, `{"cmd":"scroll.cancel","session":"s"}`)
	if resp.Message != "Scroll canceled" {
		t.Errorf("Expected scroll canceled, got %q", resp.Message)
	}
	if resp.Scroll.State != "idle" {
		t.Errorf("Expected idle after cancel, got %q", resp.Scroll.State)
	}
}

func TestScrollDurationClamped(t *testing.T) {
	h := testHandler(t)
	createSession(t, h, "s")

	_, resp := post(t, h, `{"cmd":"scroll.to","session":"s","y":500,"duration":60000}`)
	if resp.Scroll == nil {
		t.Fatalf("Expected status, got %s", resp.Message)
	}
	if resp.Scroll.DurationMs != 2000 {
		t.Errorf("Expected duration clamped to 2000ms, got %v", resp.Scroll.DurationMs)
	}
}

func TestScrollStatusExtent(t *testing.T) {
	h := testHandler(t)
	createSession(t, h, "s")

	_, resp := post(t, h, `{"cmd":"scroll.status","session":"s","selector":"#list"}`)
	if resp.Scroll == nil {
		t.Fatalf("Expected status, got %s", resp.Message)
	}
	if resp.Scroll.Selector != "#list" {
		t.Errorf("Expected selector #list, got %q", resp.Scroll.Selector)
	}
	if resp.Scroll.Extent.X != 500 || resp.Scroll.Extent.Y != 2000 {
		t.Errorf("Expected extent (500, 2000), got %+v", resp.Scroll.Extent)
	}

	code, _ := post(t, h, `{"cmd":"scroll.status","session":"s","selector":"#missing"}`)
	if code != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing container, got %d", code)
	}
}

func TestScrollEasingErrors(t *testing.T) {
	h := testHandler(t)
	createSession(t, h, "s")

	tests := []struct {
		name   string
		easing string
	}{
		{"unknown keyword", `"bouncy"`},
		{"x out of range", `[1.5, 0, 0.5, 1]`},
		{"wrong arity", `[0.25, 0.1, 0.25]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := post(t, h, `{"cmd":"scroll.to","session":"s","y":100,"easing":`+tt.easing+`}`)
			if code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d (%s)", code, resp.Message)
			}
		})
	}
}

func TestHandlerWithMiddleware(t *testing.T) {
	h := testHandler(t)
	cfg := &config.Config{APIKeyEnabled: true, APIKey: "k"}

	wrapped := middleware.Chain(
		middleware.Recovery,
		middleware.Logging,
		middleware.APIKey(cfg),
	)(h)

	body, _ := json.Marshal(types.Request{Cmd: types.CmdSessionsList})

	req := httptest.NewRequest("POST", "/v1", bytes.NewReader(body))
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/v1", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "k")
	w = httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with key, got %d", w.Code)
	}
}

func TestRequestBodyTooLarge(t *testing.T) {
	h := testHandler(t)

	big := `{"cmd":"sessions.list","url":"` + strings.Repeat("a", maxBodySize) + `"}`
	req := httptest.NewRequest("POST", "/v1", strings.NewReader(big))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}
