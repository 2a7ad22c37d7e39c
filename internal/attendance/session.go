// Package attendance implements the capture and match flow of the attendance
// kiosk: loading models and the roster, driving the camera, extracting and
// matching face descriptors, and submitting attendance marks to the portal.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yogaportal/attendance-kiosk/internal/portal"
)

// Mode is the operator-facing state of a Session.
type Mode string

const (
	ModeMenu      Mode = "menu"
	ModeEnroll    Mode = "enroll"
	ModeRecognize Mode = "recognize"
	ModeReview    Mode = "review"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeMenu, ModeEnroll, ModeRecognize, ModeReview:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// API is the subset of the portal client the session calls.
type API interface {
	StudentSource
	AttendanceMarker
	AddStudent(ctx context.Context, req portal.AddStudentRequest) (*portal.Student, error)
	AttendanceByDate(ctx context.Context, date string) ([]portal.AttendanceEntry, error)
}

// SessionConfig wires a Session's collaborators.
type SessionConfig struct {
	API       API
	Camera    Camera
	Extractor Extractor
	ModelsDir string
	Matcher   MatcherOptions
	// Progress receives loader steps; may be nil.
	Progress func(step string)
}

// EnrollmentForm is the operator's input for a new student.
type EnrollmentForm struct {
	Name     string `json:"name"`
	IDNumber string `json:"idNumber"`
	Gender   string `json:"gender"`
}

// Recognition is the result of a mark-attendance action.
type Recognition struct {
	Match   MatchResult      `json:"match"`
	Student *EnrolledStudent `json:"student,omitempty"`
	Outcome *Outcome         `json:"outcome,omitempty"`
}

// Status is a snapshot of the session.
type Status struct {
	Mode            Mode       `json:"mode"`
	Ready           bool       `json:"ready"`
	CameraActive    bool       `json:"camera_active"`
	Students        int        `json:"students"`
	Descriptors     int        `json:"descriptors"`
	PendingCapture  bool       `json:"pending_capture"`
	InFlight        []TaskInfo `json:"in_flight"`
	LastLoadSeconds int        `json:"last_load_seconds,omitempty"`
}

// TaskInfo describes an in-flight task.
type TaskInfo struct {
	ID      string    `json:"id"`
	Mode    Mode      `json:"mode"`
	Started time.Time `json:"started"`
}

type task struct {
	id         string
	mode       Mode
	generation uint64
	started    time.Time
	cancel     context.CancelFunc
}

// Session owns the roster cache, the matcher and the camera for one operator.
// Every user action runs as a task bound to the current mode: changing mode
// cancels the mode's in-flight tasks, and a task that completes after its mode
// ended returns ErrDiscarded instead of its result.
type Session struct {
	api       API
	camera    Camera
	extractor Extractor
	loader    *Loader
	recorder  *Recorder

	base   context.Context
	cancel context.CancelFunc

	loadMu sync.Mutex

	mu          sync.Mutex
	mode        Mode
	modeCtx     context.Context
	modeCancel  context.CancelFunc
	generation  uint64
	tasks       map[string]*task
	ready       bool
	roster      *Roster
	matcher     *Matcher
	pending     Descriptor
	lastLoadDur time.Duration
}

// NewSession creates a session in menu mode. Nothing is loaded until Load.
func NewSession(parent context.Context, cfg SessionConfig) (*Session, error) {
	if cfg.API == nil || cfg.Camera == nil || cfg.Extractor == nil {
		return nil, errors.New("session requires an API client, a camera and an extractor")
	}
	if err := cfg.Matcher.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher options: %w", err)
	}

	base, cancel := context.WithCancel(parent)
	modeCtx, modeCancel := context.WithCancel(base)
	return &Session{
		api:        cfg.API,
		camera:     cfg.Camera,
		extractor:  cfg.Extractor,
		loader:     NewLoader(cfg.Extractor, cfg.ModelsDir, cfg.API, cfg.Matcher, cfg.Progress),
		recorder:   NewRecorder(cfg.API),
		base:       base,
		cancel:     cancel,
		mode:       ModeMenu,
		modeCtx:    modeCtx,
		modeCancel: modeCancel,
		tasks:      make(map[string]*task),
		roster:     NewRoster(nil),
	}, nil
}

// Close cancels every task and releases the camera.
func (s *Session) Close() error {
	s.mu.Lock()
	s.modeCancel()
	s.generation++
	s.mu.Unlock()
	s.cancel()
	return s.camera.Stop()
}

// Load loads the models and the roster and swaps in a new matcher. It is bound
// to the session, not to a mode, so switching modes does not interrupt it.
// Loads are serialized; the previous roster stays in use until the new one is built.
func (s *Session) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.base, cancel)
	defer stop()

	started := time.Now()
	roster, matcher, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.roster = roster
	s.matcher = matcher
	s.ready = true
	s.lastLoadDur = time.Since(started)
	s.mu.Unlock()
	return nil
}

// Ready reports whether the first Load has completed.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Roster returns the current roster cache.
func (s *Session) Roster() *Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster
}

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	inFlight := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		inFlight = append(inFlight, TaskInfo{ID: t.id, Mode: t.mode, Started: t.started})
	}
	slices.SortFunc(inFlight, func(a, b TaskInfo) int { return a.Started.Compare(b.Started) })

	return Status{
		Mode:            s.mode,
		Ready:           s.ready,
		CameraActive:    s.camera.Active(),
		Students:        s.roster.Len(),
		Descriptors:     s.roster.DescriptorCount(),
		PendingCapture:  s.pending != nil,
		InFlight:        inFlight,
		LastLoadSeconds: int(s.lastLoadDur.Seconds()),
	}
}

// SetMode moves between menu and a sub-mode. Leaving a mode cancels its
// in-flight tasks, drops the pending enrollment capture and stops the camera.
func (s *Session) SetMode(m Mode) error {
	s.mu.Lock()
	if m == s.mode {
		s.mu.Unlock()
		return nil
	}
	if s.mode != ModeMenu && m != ModeMenu {
		current := s.mode
		s.mu.Unlock()
		return fmt.Errorf("%w: return to %s before entering %s (currently %s)", ErrWrongMode, ModeMenu, m, current)
	}

	s.modeCancel()
	s.generation++
	s.modeCtx, s.modeCancel = context.WithCancel(s.base)
	s.mode = m
	s.pending = nil
	s.mu.Unlock()

	if err := s.camera.Stop(); err != nil {
		return fmt.Errorf("stopping camera: %w", err)
	}
	return nil
}

// begin registers a task for the current mode. The returned context is
// cancelled when the mode ends, the session closes, or ctx is done.
func (s *Session) begin(ctx context.Context, allowed ...Mode) (context.Context, *task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(allowed, s.mode) {
		return nil, nil, fmt.Errorf("%w: %s", ErrWrongMode, s.mode)
	}

	taskCtx, cancel := context.WithCancel(s.modeCtx)
	stop := context.AfterFunc(ctx, cancel)
	t := &task{
		id:         uuid.NewString(),
		mode:       s.mode,
		generation: s.generation,
		started:    time.Now(),
		cancel: func() {
			stop()
			cancel()
		},
	}
	s.tasks[t.id] = t
	return taskCtx, t, nil
}

// end unregisters a task and reports whether its mode is still current.
// Callers must hold no lock.
func (s *Session) end(t *task) bool {
	t.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, t.id)
	return t.generation == s.generation
}

// runTask runs fn as a task of one of the allowed modes and discards its
// result if the mode ended meanwhile.
func runTask[T any](ctx context.Context, s *Session, allowed []Mode, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	taskCtx, t, err := s.begin(ctx, allowed...)
	if err != nil {
		return zero, err
	}

	result, err := fn(taskCtx)
	if !s.end(t) {
		return zero, ErrDiscarded
	}
	return result, err
}

// StartCamera acquires the camera for the enroll or recognize mode.
func (s *Session) StartCamera(ctx context.Context) error {
	_, err := runTask(ctx, s, []Mode{ModeEnroll, ModeRecognize}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.camera.Start(ctx)
	})
	if errors.Is(err, ErrDiscarded) {
		// The mode ended while the device was opening; do not leave it held.
		if stopErr := s.camera.Stop(); stopErr != nil {
			return errors.Join(err, stopErr)
		}
	}
	return err
}

// StopCamera releases the camera. It is a no-op when the camera is not active.
func (s *Session) StopCamera() error {
	return s.camera.Stop()
}

// snapshot returns the matcher and roster, or ErrNotReady.
func (s *Session) snapshot() (*Roster, *Matcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, nil, ErrNotReady
	}
	return s.roster, s.matcher, nil
}

// capture grabs a frame and extracts its descriptor.
func (s *Session) capture(ctx context.Context) (Descriptor, error) {
	if !s.camera.Active() {
		return nil, ErrCameraInactive
	}
	frame, err := s.camera.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	return s.extractor.Extract(ctx, frame)
}

// CaptureEnrollment captures the face for the student being enrolled. A new
// capture replaces the previous one.
func (s *Session) CaptureEnrollment(ctx context.Context) (Descriptor, error) {
	if _, _, err := s.snapshot(); err != nil {
		return nil, err
	}

	return runTask(ctx, s, []Mode{ModeEnroll}, func(ctx context.Context) (Descriptor, error) {
		d, err := s.capture(ctx)
		if err != nil {
			return nil, err
		}

		// SetMode cancels ctx while holding mu, so a capture that lost its
		// mode cannot leak into the next one.
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.pending = d
		return d, nil
	})
}

// SaveStudent enrolls the pending capture under the form's identity and
// rebuilds the roster so the student is recognizable right away.
func (s *Session) SaveStudent(ctx context.Context, form EnrollmentForm) (*portal.Student, error) {
	return runTask(ctx, s, []Mode{ModeEnroll}, func(ctx context.Context) (*portal.Student, error) {
		s.mu.Lock()
		pending := s.pending
		s.mu.Unlock()

		form.Name = strings.TrimSpace(form.Name)
		form.IDNumber = strings.TrimSpace(form.IDNumber)
		form.Gender = strings.TrimSpace(form.Gender)
		if form.Name == "" || form.IDNumber == "" || form.Gender == "" || pending == nil {
			return nil, ErrIncompleteEnrollment
		}

		student, err := s.api.AddStudent(ctx, portal.AddStudentRequest{
			Name:           form.Name,
			IDNumber:       form.IDNumber,
			Gender:         form.Gender,
			FaceDescriptor: pending,
		})
		if errors.Is(err, portal.ErrInvalidPayload) {
			return nil, fmt.Errorf("%w: %w", ErrIncompleteEnrollment, err)
		}
		if err != nil {
			return nil, remoteError(err)
		}

		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()

		// The portal already holds the student, so the rebuild outlives the
		// mode; only this call's result is discarded when the mode ends.
		if err := s.Load(context.WithoutCancel(ctx)); err != nil {
			return student, fmt.Errorf("student saved but roster reload failed: %w", err)
		}
		return student, nil
	})
}

// MarkAttendance captures a face, matches it against the roster and submits
// the match to the portal. Before the first Load completes it fails with
// ErrNotReady without touching the camera or the portal.
func (s *Session) MarkAttendance(ctx context.Context) (*Recognition, error) {
	roster, matcher, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	return runTask(ctx, s, []Mode{ModeRecognize}, func(ctx context.Context) (*Recognition, error) {
		d, err := s.capture(ctx)
		if err != nil {
			return nil, err
		}

		rec := &Recognition{Match: matcher.Match(d)}
		if !rec.Match.Known() {
			return rec, ErrNoMatch
		}

		student, ok := roster.Get(rec.Match.Label)
		if !ok {
			return rec, fmt.Errorf("%w: %s", ErrNotInRoster, rec.Match.Label)
		}
		rec.Student = &student

		rec.Outcome, err = s.recorder.Record(ctx, student)
		return rec, err
	})
}

// ReviewAttendance lists the attendance records of a day (YYYY-MM-DD).
func (s *Session) ReviewAttendance(ctx context.Context, date string) ([]portal.AttendanceEntry, error) {
	return runTask(ctx, s, []Mode{ModeReview}, func(ctx context.Context) ([]portal.AttendanceEntry, error) {
		entries, err := s.api.AttendanceByDate(ctx, date)
		if errors.Is(err, portal.ErrInvalidPayload) {
			return nil, err
		}
		return entries, remoteError(err)
	})
}
