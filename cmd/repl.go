package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yogaportal/attendance-kiosk/internal/attendance"
	"github.com/yogaportal/attendance-kiosk/internal/portal"
	"github.com/yogaportal/attendance-kiosk/internal/report"
)

// kioskSession is the part of *attendance.Session the terminal kiosk drives.
type kioskSession interface {
	Mode() attendance.Mode
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

var modeHelp = map[attendance.Mode]string{
	attendance.ModeMenu:      "enroll | recognize | review | status | reload | quit",
	attendance.ModeEnroll:    "start | stop | capture | save | back",
	attendance.ModeRecognize: "start | stop | mark | back",
	attendance.ModeReview:    "show [YYYY-MM-DD] | export <YYYY-MM-DD> <file.xlsx> | back",
}

// repl is the interactive terminal kiosk.
type repl struct {
	s     kioskSession
	lines <-chan string
	out   io.Writer
	now   func() time.Time
}

func newRepl(s kioskSession, in io.Reader, out io.Writer) *repl {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return &repl{s: s, lines: lines, out: out, now: time.Now}
}

// next waits for an input line. It returns false at end of input or when ctx is done.
func (r *repl) next(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-r.lines:
		return line, ok
	}
}

func (r *repl) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// ask prints a prompt and reads one trimmed line.
func (r *repl) ask(ctx context.Context, prompt string) (string, bool) {
	r.printf("%s: ", prompt)
	line, ok := r.next(ctx)
	return strings.TrimSpace(line), ok
}

// run reads commands until quit or end of input, or until ctx is done.
func (r *repl) run(ctx context.Context) error {
	r.printf("Commands: %s\n", modeHelp[r.s.Mode()])
	for {
		r.printf("[%s] > ", r.s.Mode())
		line, ok := r.next(ctx)
		if !ok {
			r.printf("\n")
			return nil
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if quit := r.dispatch(ctx, fields[0], fields[1:]); quit {
			return nil
		}
	}
}

// dispatch runs one command and reports whether the kiosk should exit.
func (r *repl) dispatch(ctx context.Context, command string, args []string) bool {
	command = strings.ToLower(command)
	mode := r.s.Mode()

	switch {
	case command == "help" || command == "?":
		r.printf("Commands: %s\n", modeHelp[mode])
	case command == "status":
		r.printStatus()
	case command == "reload":
		r.report(r.s.Load(ctx), "Models and roster reloaded")
	case mode == attendance.ModeMenu && command == "quit":
		return true
	case mode == attendance.ModeMenu && (command == "enroll" || command == "recognize" || command == "review"):
		r.switchMode(attendance.Mode(command))
	case mode != attendance.ModeMenu && command == "back":
		r.switchMode(attendance.ModeMenu)
	case command == "start":
		r.report(r.s.StartCamera(ctx), "Camera started")
	case command == "stop":
		r.report(r.s.StopCamera(), "Camera stopped")
	case mode == attendance.ModeEnroll && command == "capture":
		_, err := r.s.CaptureEnrollment(ctx)
		r.report(err, "Face captured")
	case mode == attendance.ModeEnroll && command == "save":
		r.save(ctx)
	case mode == attendance.ModeRecognize && command == "mark":
		r.mark(ctx)
	case mode == attendance.ModeReview && command == "show":
		r.show(ctx, args)
	case mode == attendance.ModeReview && command == "export":
		r.export(ctx, args)
	default:
		r.printf("Unknown command %q. Commands: %s\n", command, modeHelp[mode])
	}
	return false
}

func (r *repl) switchMode(m attendance.Mode) {
	if err := r.s.SetMode(m); err != nil {
		r.printError(err)
		return
	}
	r.printf("Commands: %s\n", modeHelp[m])
}

func (r *repl) report(err error, success string) {
	if err != nil {
		r.printError(err)
		return
	}
	r.printf("%s\n", success)
}

func (r *repl) printStatus() {
	st := r.s.Status()
	ready := "loading"
	if st.Ready {
		ready = "ready"
	}
	camera := "off"
	if st.CameraActive {
		camera = "on"
	}
	r.printf("Mode: %s, models: %s, camera: %s, students: %d (%d samples)\n",
		st.Mode, ready, camera, st.Students, st.Descriptors)
}

func (r *repl) save(ctx context.Context) {
	var form attendance.EnrollmentForm
	var ok bool
	if form.Name, ok = r.ask(ctx, "Name"); !ok {
		return
	}
	if form.IDNumber, ok = r.ask(ctx, "ID number"); !ok {
		return
	}
	if form.Gender, ok = r.ask(ctx, "Gender (Male/Female)"); !ok {
		return
	}

	student, err := r.s.SaveStudent(ctx, form)
	if err != nil && student == nil {
		r.printError(err)
		return
	}
	r.printf("Student %s (%s) added\n", student.Name, student.IDNumber)
	if err != nil {
		r.printError(err)
	}
}

func (r *repl) mark(ctx context.Context) {
	rec, err := r.s.MarkAttendance(ctx)
	switch {
	case err == nil:
		r.printf("%s (distance %.2f)\n", rec.Outcome.Message, rec.Match.Distance)
	case rec != nil && rec.Outcome != nil && rec.Outcome.Message != "":
		r.printf("%s: %s\n", rec.Student.Name, rec.Outcome.Message)
	default:
		r.printError(err)
	}
}

func (r *repl) entries(ctx context.Context, date string) ([]portal.AttendanceEntry, bool) {
	entries, err := r.s.ReviewAttendance(ctx, date)
	if err != nil {
		r.printError(err)
		return nil, false
	}
	return entries, true
}

func (r *repl) show(ctx context.Context, args []string) {
	date := r.now().Format(portal.DateLayout)
	if len(args) > 0 {
		date = args[0]
	}
	entries, ok := r.entries(ctx, date)
	if !ok {
		return
	}
	if len(entries) == 0 {
		r.printf("No attendance records for %s\n", date)
		return
	}
	if err := report.WriteText(r.out, entries); err != nil {
		r.printError(err)
	}
}

func (r *repl) export(ctx context.Context, args []string) {
	if len(args) != 2 {
		r.printf("Usage: export <YYYY-MM-DD> <file.xlsx>\n")
		return
	}
	entries, ok := r.entries(ctx, args[0])
	if !ok {
		return
	}
	if err := report.WriteXLSX(args[1], args[0], entries); err != nil {
		r.printError(err)
		return
	}
	r.printf("Exported %d records to %s\n", len(entries), args[1])
}

// printError prints an operator-facing message for err.
func (r *repl) printError(err error) {
	switch {
	case errors.Is(err, attendance.ErrNotReady):
		r.printf("Face models are still loading, try again shortly\n")
	case errors.Is(err, attendance.ErrNoFace):
		r.printf("No face detected, please face the camera and try again\n")
	case errors.Is(err, attendance.ErrNoMatch):
		r.printf("User not found\n")
	case errors.Is(err, attendance.ErrCameraInactive):
		r.printf("Camera is off, run 'start' first\n")
	case errors.Is(err, attendance.ErrIncompleteEnrollment):
		r.printf("Please fill all details and capture a face\n")
	case errors.Is(err, attendance.ErrWrongMode):
		r.printf("Not available here. Commands: %s\n", modeHelp[r.s.Mode()])
	case errors.Is(err, attendance.ErrTransport):
		r.printf("Portal unreachable: %v\n", err)
	case errors.Is(err, portal.ErrUnauthorized):
		r.printf("Session expired, run 'kiosk login' again\n")
	default:
		r.printf("Error: %v\n", err)
	}
}
