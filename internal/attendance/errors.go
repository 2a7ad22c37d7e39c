package attendance

import "errors"

// Operator-facing failure kinds. None of them end the session; the operator
// may retry the action.
var (
	// ErrNotReady indicates the models or the roster have not finished loading.
	ErrNotReady = errors.New("face models are still loading")
	// ErrNoFace indicates the extractor found no face in the frame.
	ErrNoFace = errors.New("no face detected")
	// ErrNoMatch indicates the best roster distance was not below the threshold.
	ErrNoMatch = errors.New("user not found")
	// ErrNotInRoster indicates the matched label has no student in the local roster.
	ErrNotInRoster = errors.New("student not found in local roster")
	// ErrRemoteRejected indicates the portal refused the request (e.g. already marked).
	ErrRemoteRejected = errors.New("rejected by portal")
	// ErrTransport indicates the portal could not be reached.
	ErrTransport = errors.New("portal unreachable")

	// ErrWrongMode indicates the action is not available in the current mode.
	ErrWrongMode = errors.New("action not available in this mode")
	// ErrIncompleteEnrollment indicates missing form fields or no captured face.
	ErrIncompleteEnrollment = errors.New("fill all details and capture a face")
	// ErrDiscarded indicates the task's mode ended before it completed; its result was dropped.
	ErrDiscarded = errors.New("result discarded: mode changed")
	// ErrCameraInactive indicates a capture was attempted with the camera stopped.
	ErrCameraInactive = errors.New("camera is not started")
)
