package attendance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yogaportal/attendance-kiosk/internal/portal"
)

// OutcomeKind classifies the portal's answer to an attendance mark.
type OutcomeKind string

const (
	OutcomeMarked        OutcomeKind = "marked"
	OutcomeAlreadyMarked OutcomeKind = "already-marked"
	OutcomeRejected      OutcomeKind = "rejected"
)

// Outcome is what the operator is told after a mark attempt. Message is the
// portal's own text when it rejected the mark.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	IDNumber string      `json:"id_number"`
	Name     string      `json:"name"`
	Message  string      `json:"message"`
}

// AttendanceMarker submits attendance marks.
type AttendanceMarker interface {
	MarkAttendance(ctx context.Context, idNumber string) (*portal.MarkAttendanceResponse, error)
}

// Recorder submits a matched student's attendance. Deduplication belongs to
// the portal; the recorder never suppresses a submission.
type Recorder struct {
	marker AttendanceMarker
}

func NewRecorder(marker AttendanceMarker) *Recorder {
	return &Recorder{marker: marker}
}

// Record marks the student present for today. A portal rejection returns the
// classified outcome together with an error wrapping ErrRemoteRejected. When
// the portal never answered, the outcome is nil.
func (r *Recorder) Record(ctx context.Context, student EnrolledStudent) (*Outcome, error) {
	outcome := &Outcome{IDNumber: student.IDNumber, Name: student.Name}

	resp, err := r.marker.MarkAttendance(ctx, student.IDNumber)
	if err != nil {
		var apiErr *portal.APIError
		if !errors.As(err, &apiErr) {
			return nil, remoteError(err)
		}
		outcome.Kind = classifyRejection(apiErr.Status, apiErr.Message)
		outcome.Message = apiErr.Message
		return outcome, remoteError(err)
	}

	if resp.Error != "" {
		outcome.Kind = classifyRejection(http.StatusOK, resp.Error)
		outcome.Message = resp.Error
		return outcome, fmt.Errorf("%w: %s", ErrRemoteRejected, resp.Error)
	}

	outcome.Kind = OutcomeMarked
	outcome.Message = "Attendance marked for " + student.Name
	return outcome, nil
}

func classifyRejection(status int, message string) OutcomeKind {
	if status == http.StatusConflict || strings.Contains(strings.ToLower(message), "already") {
		return OutcomeAlreadyMarked
	}
	return OutcomeRejected
}

// remoteError maps portal client errors onto the operator-facing kinds.
// Context errors pass through untouched.
func remoteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, portal.ErrTransport) {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	var apiErr *portal.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ErrRemoteRejected, apiErr.Message)
	}
	return fmt.Errorf("%w: %w", ErrRemoteRejected, err)
}
