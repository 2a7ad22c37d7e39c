package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/yogaportal/attendance-kiosk/internal/attendance"
	"github.com/yogaportal/attendance-kiosk/internal/portal"
)

// fakeKiosk records calls and returns canned results.
type fakeKiosk struct {
	status attendance.Status
	err    error

	mode        attendance.Mode
	loads       int
	cameraOn    bool
	descriptor  attendance.Descriptor
	form        attendance.EnrollmentForm
	saved       *portal.Student
	recognition *attendance.Recognition
	entries     []portal.AttendanceEntry
	date        string
}

func (k *fakeKiosk) Status() attendance.Status {
	s := k.status
	s.Mode = k.mode
	s.CameraActive = k.cameraOn
	return s
}

func (k *fakeKiosk) SetMode(m attendance.Mode) error {
	if k.err != nil {
		return k.err
	}
	k.mode = m
	return nil
}

func (k *fakeKiosk) Load(ctx context.Context) error {
	k.loads++
	if k.err != nil {
		return k.err
	}
	k.status.Ready = true
	return nil
}

func (k *fakeKiosk) StartCamera(ctx context.Context) error {
	if k.err != nil {
		return k.err
	}
	k.cameraOn = true
	return nil
}

func (k *fakeKiosk) StopCamera() error {
	k.cameraOn = false
	return nil
}

func (k *fakeKiosk) CaptureEnrollment(ctx context.Context) (attendance.Descriptor, error) {
	return k.descriptor, k.err
}

func (k *fakeKiosk) SaveStudent(ctx context.Context, form attendance.EnrollmentForm) (*portal.Student, error) {
	k.form = form
	return k.saved, k.err
}

func (k *fakeKiosk) MarkAttendance(ctx context.Context) (*attendance.Recognition, error) {
	return k.recognition, k.err
}

func (k *fakeKiosk) ReviewAttendance(ctx context.Context, date string) ([]portal.AttendanceEntry, error) {
	k.date = date
	return k.entries, k.err
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeBody decodes a recorder's JSON body into T
func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(recorder.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", recorder.Body.String(), err)
	}
	return v
}
