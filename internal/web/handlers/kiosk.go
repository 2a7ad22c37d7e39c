package handlers

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yogaportal/attendance-kiosk/internal/attendance"
	"github.com/yogaportal/attendance-kiosk/internal/portal"
)

// Kiosk is the session the HTTP surface drives. *attendance.Session implements it.
type Kiosk interface {
	Status() attendance.Status
	SetMode(m attendance.Mode) error
	Load(ctx context.Context) error
	StartCamera(ctx context.Context) error
	StopCamera() error
	CaptureEnrollment(ctx context.Context) (attendance.Descriptor, error)
	SaveStudent(ctx context.Context, form attendance.EnrollmentForm) (*portal.Student, error)
	MarkAttendance(ctx context.Context) (*attendance.Recognition, error)
	ReviewAttendance(ctx context.Context, date string) ([]portal.AttendanceEntry, error)
}

// KioskHandler exposes a Kiosk over JSON.
type KioskHandler struct {
	kiosk Kiosk
}

// NewKioskHandler creates a new kiosk handler
func NewKioskHandler(k Kiosk) *KioskHandler {
	return &KioskHandler{kiosk: k}
}

type modeRequest struct {
	Mode string `json:"mode"`
}

// MatchResponse is a match result safe for JSON: Distance is omitted when the
// roster had nothing to compare against.
type MatchResponse struct {
	Label    string   `json:"label"`
	Distance *float64 `json:"distance,omitempty"`
}

// RecognitionResponse is the body of POST /attendance.
type RecognitionResponse struct {
	Match   *MatchResponse              `json:"match,omitempty"`
	Student *attendance.EnrolledStudent `json:"student,omitempty"`
	Outcome *attendance.Outcome         `json:"outcome,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

func newMatchResponse(m attendance.MatchResult) *MatchResponse {
	resp := &MatchResponse{Label: m.Label}
	if !math.IsInf(m.Distance, 0) && !math.IsNaN(m.Distance) {
		d := m.Distance
		resp.Distance = &d
	}
	return resp
}

// Status returns the session snapshot.
func (h *KioskHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.kiosk.Status())
}

// SetMode switches between menu and a sub-mode.
func (h *KioskHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	mode, err := attendance.ParseMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.kiosk.SetMode(mode); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.kiosk.Status())
}

// Reload reloads models and roster.
func (h *KioskHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.kiosk.Load(r.Context()); err != nil {
		log.Printf("kiosk reload failed: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.kiosk.Status())
}

// StartCamera acquires the camera.
func (h *KioskHandler) StartCamera(w http.ResponseWriter, r *http.Request) {
	if err := h.kiosk.StartCamera(r.Context()); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"camera_active": true})
}

// StopCamera releases the camera.
func (h *KioskHandler) StopCamera(w http.ResponseWriter, r *http.Request) {
	if err := h.kiosk.StopCamera(); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"camera_active": false})
}

// Capture captures the face of the student being enrolled.
func (h *KioskHandler) Capture(w http.ResponseWriter, r *http.Request) {
	d, err := h.kiosk.CaptureEnrollment(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"captured":    true,
		"descriptors": len(d),
	})
}

// SaveStudent enrolls the captured face under the posted identity.
func (h *KioskHandler) SaveStudent(w http.ResponseWriter, r *http.Request) {
	var form attendance.EnrollmentForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	student, err := h.kiosk.SaveStudent(r.Context(), form)
	if err != nil {
		log.Printf("enrollment of %s failed: %v", sanitizeForLog(form.IDNumber), err)
		if student != nil {
			// Saved remotely; only the roster refresh failed.
			respondJSON(w, http.StatusCreated, map[string]any{"student": student, "error": err.Error()})
			return
		}
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"student": student})
}

// MarkAttendance recognizes the face in front of the camera and marks it.
func (h *KioskHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	rec, err := h.kiosk.MarkAttendance(r.Context())

	var resp RecognitionResponse
	if rec != nil {
		resp.Match = newMatchResponse(rec.Match)
		resp.Student = rec.Student
		resp.Outcome = rec.Outcome
	}
	if err != nil {
		resp.Error = err.Error()
		respondJSON(w, statusFor(err), resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ReviewAttendance lists the attendance of a date.
func (h *KioskHandler) ReviewAttendance(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if date == "" {
		respondError(w, http.StatusBadRequest, "date is required")
		return
	}

	entries, err := h.kiosk.ReviewAttendance(r.Context(), date)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	if entries == nil {
		entries = []portal.AttendanceEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}
