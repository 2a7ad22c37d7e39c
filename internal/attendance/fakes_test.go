package attendance

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"strings"
	"sync"

	"github.com/yogaportal/attendance-kiosk/internal/portal"
)

// vec returns a descriptor of portal.DescriptorLength zeros with the leading values set.
func vec(leading ...float32) Descriptor {
	d := make(Descriptor, portal.DescriptorLength)
	copy(d, leading)
	return d
}

type fakeCamera struct {
	mu     sync.Mutex
	active bool
	starts int
	stops  int
}

func (c *fakeCamera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return nil
	}
	c.active = true
	c.starts++
	return nil
}

func (c *fakeCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil
	}
	c.active = false
	c.stops++
	return nil
}

func (c *fakeCamera) Frame(ctx context.Context) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 4, 4)), nil
}

func (c *fakeCamera) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

type fakeExtractor struct {
	mu      sync.Mutex
	next    Descriptor
	err     error
	loadErr error
	loads   int
	// entered and block make Extract wait until its context is cancelled.
	entered chan struct{}
	block   bool
}

func (e *fakeExtractor) Load(ctx context.Context, modelsDir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads++
	return e.loadErr
}

func (e *fakeExtractor) Extract(ctx context.Context, frame image.Image) (Descriptor, error) {
	e.mu.Lock()
	block, entered := e.block, e.entered
	next, err := e.next, e.err
	e.mu.Unlock()

	if block {
		if entered != nil {
			close(entered)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, ErrNoFace
	}
	return next, nil
}

func (e *fakeExtractor) set(d Descriptor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next = d
}

// fakeAPI mimics the portal: it stores students and deduplicates marks per student.
type fakeAPI struct {
	mu          sync.Mutex
	students    []portal.Student
	marks       map[string]int
	markCalls   int
	listCalls   int
	transportOn bool
	conflicts   bool
	entries     []portal.AttendanceEntry

	// When listGate is set, ListStudents signals listEntered and waits for the gate.
	listGate    chan struct{}
	listEntered chan struct{}
}

func newFakeAPI(students ...portal.Student) *fakeAPI {
	return &fakeAPI{students: students, marks: map[string]int{}}
}

func (a *fakeAPI) ListStudents(ctx context.Context) ([]portal.Student, error) {
	a.mu.Lock()
	gate, entered := a.listGate, a.listEntered
	a.mu.Unlock()
	if gate != nil {
		close(entered)
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.listCalls++
	if a.transportOn {
		return nil, fmt.Errorf("%w: connection refused", portal.ErrTransport)
	}
	return append([]portal.Student(nil), a.students...), nil
}

func (a *fakeAPI) AddStudent(ctx context.Context, req portal.AddStudentRequest) (*portal.Student, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.students {
		if s.IDNumber == req.IDNumber {
			return nil, &portal.APIError{Status: http.StatusBadRequest, Message: "Student already exists"}
		}
	}
	s := portal.Student{
		IDNumber:        req.IDNumber,
		Name:            req.Name,
		Gender:          req.Gender,
		FaceDescriptors: [][]float32{req.FaceDescriptor},
	}
	a.students = append(a.students, s)
	return &s, nil
}

func (a *fakeAPI) MarkAttendance(ctx context.Context, idNumber string) (*portal.MarkAttendanceResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.markCalls++
	if a.transportOn {
		return nil, fmt.Errorf("%w: connection refused", portal.ErrTransport)
	}
	a.marks[idNumber]++
	if a.marks[idNumber] > 1 {
		if a.conflicts {
			return nil, &portal.APIError{Status: http.StatusConflict, Message: "Attendance already marked today"}
		}
		return &portal.MarkAttendanceResponse{Error: "Attendance already marked today"}, nil
	}
	return &portal.MarkAttendanceResponse{OK: true}, nil
}

func (a *fakeAPI) AttendanceByDate(ctx context.Context, date string) ([]portal.AttendanceEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !strings.HasPrefix(date, "20") {
		return nil, &portal.APIError{Status: http.StatusBadRequest, Message: "invalid date"}
	}
	return a.entries, nil
}

func (a *fakeAPI) markCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.markCalls
}
