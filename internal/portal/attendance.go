package portal

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DateLayout is the date format of GET /attendance/:date.
const DateLayout = "2006-01-02"

// ListStudents retrieves every enrolled student with their face descriptors.
func (c *Client) ListStudents(ctx context.Context) ([]Student, error) {
	result, err := doGetJSON[[]Student](ctx, c, "attendance/students")
	if err != nil {
		return nil, err
	}
	for i := range *result {
		if err := c.validatePayload(&(*result)[i]); err != nil {
			return nil, fmt.Errorf("student %d: %w", i, err)
		}
	}
	return *result, nil
}

// AddStudent enrolls a student with one captured face descriptor.
func (c *Client) AddStudent(ctx context.Context, req AddStudentRequest) (*Student, error) {
	if err := c.validatePayload(req); err != nil {
		return nil, err
	}
	return doPostJSON[Student](ctx, c, "attendance/add-student", req)
}

// MarkAttendance submits an attendance mark for the current day. A duplicate
// mark comes back as a response with Error set (2xx) or as an APIError (4xx);
// callers must handle both.
func (c *Client) MarkAttendance(ctx context.Context, idNumber string) (*MarkAttendanceResponse, error) {
	req := MarkAttendanceRequest{IDNumber: idNumber}
	if err := c.validatePayload(req); err != nil {
		return nil, err
	}
	return doRequestJSON[MarkAttendanceResponse](ctx, c, http.MethodPost, "attendance/mark-attendance", req,
		http.StatusOK, http.StatusCreated)
}

// AttendanceByDate lists attendance records for a day (YYYY-MM-DD).
func (c *Client) AttendanceByDate(ctx context.Context, date string) ([]AttendanceEntry, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD: %w", ErrInvalidPayload, err)
	}
	result, err := doGetJSON[[]AttendanceEntry](ctx, c, "attendance/"+date)
	if err != nil {
		return nil, err
	}
	return *result, nil
}
