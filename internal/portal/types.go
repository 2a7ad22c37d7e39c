package portal

// DescriptorLength is the number of components in a face descriptor produced
// by the recognition network.
const DescriptorLength = 128

// Student is an enrolled student as returned by GET /attendance/students.
type Student struct {
	ID              string      `json:"_id,omitempty"`
	IDNumber        string      `json:"idNumber" validate:"required"`
	Name            string      `json:"name" validate:"required"`
	Gender          string      `json:"gender"`
	FaceDescriptors [][]float32 `json:"faceDescriptors" validate:"dive,len=128"`
}

// AddStudentRequest is the body of POST /attendance/add-student.
type AddStudentRequest struct {
	Name           string    `json:"name" validate:"required"`
	IDNumber       string    `json:"idNumber" validate:"required"`
	Gender         string    `json:"gender" validate:"required,oneof=Male Female"`
	FaceDescriptor []float32 `json:"faceDescriptor" validate:"len=128"`
}

// MarkAttendanceRequest is the body of POST /attendance/mark-attendance.
type MarkAttendanceRequest struct {
	IDNumber string `json:"idNumber" validate:"required"`
}

// MarkAttendanceResponse is either {ok} or {error}. The portal reports a
// duplicate mark as an error message, sometimes with a 2xx status.
type MarkAttendanceResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AttendanceEntry is one row of GET /attendance/:date. Student is nil when
// the referenced student no longer exists.
type AttendanceEntry struct {
	ID      string   `json:"_id,omitempty"`
	Student *Student `json:"student"`
	Status  string   `json:"status"`
	Date    string   `json:"date,omitempty"`
}

// StudentName returns the student's name or "Unknown".
func (e AttendanceEntry) StudentName() string {
	if e.Student == nil || e.Student.Name == "" {
		return "Unknown"
	}
	return e.Student.Name
}

// StudentField returns a student attribute or "-" when the student is missing.
func (e AttendanceEntry) StudentField(get func(*Student) string) string {
	if e.Student == nil {
		return "-"
	}
	if v := get(e.Student); v != "" {
		return v
	}
	return "-"
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"` //nolint:gosec // request field, not a stored secret
}

// User is the authenticated portal account.
type User struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// loginResponse accepts both shapes the portal has used: a flat
// {token, role, name} and a nested {token, user}.
type loginResponse struct {
	Token string `json:"token" validate:"required"`
	Role  string `json:"role"`
	Name  string `json:"name"`
	User  *User  `json:"user"`
}

type currentUserResponse struct {
	User *User `json:"user" validate:"required"`
}
