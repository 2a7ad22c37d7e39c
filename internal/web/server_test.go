package web

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yogaportal/attendance-kiosk/internal/attendance"
	"github.com/yogaportal/attendance-kiosk/internal/config"
	"github.com/yogaportal/attendance-kiosk/internal/portal"
)

type stubCamera struct {
	mu     sync.Mutex
	active bool
}

func (c *stubCamera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
	return nil
}

func (c *stubCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	return nil
}

func (c *stubCamera) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *stubCamera) Frame(ctx context.Context) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 2, 2)), nil
}

// stubExtractor returns the same descriptor for every frame.
type stubExtractor struct{ d attendance.Descriptor }

func (e *stubExtractor) Load(ctx context.Context, dir string) error { return nil }

func (e *stubExtractor) Extract(ctx context.Context, frame image.Image) (attendance.Descriptor, error) {
	return e.d, nil
}

// setupPortal mimics the yoga-portal attendance endpoints.
func setupPortal(t *testing.T) *httptest.Server {
	t.Helper()

	var mu sync.Mutex
	var students []portal.Student
	marked := map[string]bool{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/attendance/students", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(append([]portal.Student{}, students...))
	})
	mux.HandleFunc("POST /api/attendance/add-student", func(w http.ResponseWriter, r *http.Request) {
		var req portal.AddStudentRequest
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		defer mu.Unlock()
		s := portal.Student{IDNumber: req.IDNumber, Name: req.Name, Gender: req.Gender, FaceDescriptors: [][]float32{req.FaceDescriptor}}
		students = append(students, s)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(s)
	})
	mux.HandleFunc("POST /api/attendance/mark-attendance", func(w http.ResponseWriter, r *http.Request) {
		var req portal.MarkAttendanceRequest
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		defer mu.Unlock()
		if marked[req.IDNumber] {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "Attendance already marked today"})
			return
		}
		marked[req.IDNumber] = true
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func setupKiosk(t *testing.T) (*Server, *stubExtractor) {
	t.Helper()
	portalServer := setupPortal(t)

	client, err := portal.NewClient(portalServer.URL+"/api", portal.NewMemoryTokenStore("test-token"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	extractor := &stubExtractor{}
	session, err := attendance.NewSession(context.Background(), attendance.SessionConfig{
		API:       client,
		Camera:    &stubCamera{},
		Extractor: extractor,
		ModelsDir: "models",
		Matcher:   attendance.DefaultMatcherOptions(),
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	cfg := config.Load()
	return NewServer(cfg, session), extractor
}

func call(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func expectStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, recorder.Code, recorder.Body.String())
	}
}

func TestServer_Health(t *testing.T) {
	s, _ := setupKiosk(t)
	expectStatus(t, call(t, s, http.MethodGet, "/api/v1/health", ""), http.StatusOK)
}

func TestServer_EnrollThenRecognize(t *testing.T) {
	s, extractor := setupKiosk(t)
	face := make(attendance.Descriptor, portal.DescriptorLength)
	face[0] = 0.25
	extractor.d = face

	// Recognition before the first load issues no portal call.
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/mode", `{"mode":"recognize"}`), http.StatusOK)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/attendance", ""), http.StatusServiceUnavailable)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/mode", `{"mode":"menu"}`), http.StatusOK)

	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/reload", ""), http.StatusOK)

	// Enroll.
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/mode", `{"mode":"enroll"}`), http.StatusOK)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/camera/start", ""), http.StatusOK)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/capture", ""), http.StatusOK)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/students",
		`{"name":"Asha","idNumber":"S1","gender":"Female"}`), http.StatusCreated)

	// Recognize and mark twice.
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/mode", `{"mode":"menu"}`), http.StatusOK)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/mode", `{"mode":"recognize"}`), http.StatusOK)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/camera/start", ""), http.StatusOK)

	first := call(t, s, http.MethodPost, "/api/v1/kiosk/attendance", "")
	expectStatus(t, first, http.StatusOK)
	if !strings.Contains(first.Body.String(), `"label":"S1"`) {
		t.Errorf("expected S1 match, got %s", first.Body.String())
	}

	second := call(t, s, http.MethodPost, "/api/v1/kiosk/attendance", "")
	expectStatus(t, second, http.StatusConflict)
	if !strings.Contains(second.Body.String(), "Attendance already marked today") {
		t.Errorf("expected portal message, got %s", second.Body.String())
	}
	if !strings.Contains(second.Body.String(), `"kind":"already-marked"`) {
		t.Errorf("expected already-marked outcome, got %s", second.Body.String())
	}
}

func TestServer_WrongModeTransition(t *testing.T) {
	s, _ := setupKiosk(t)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/reload", ""), http.StatusOK)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/mode", `{"mode":"review"}`), http.StatusOK)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/mode", `{"mode":"enroll"}`), http.StatusConflict)
	expectStatus(t, call(t, s, http.MethodPost, "/api/v1/kiosk/capture", ""), http.StatusConflict)
}
