package instagram

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidSession is returned before any request is sent when the configured
// cookies lack a required credential.
var ErrInvalidSession = errors.New("invalid Instagram cookies")

// ErrInvalidCommentText is returned when comment text is empty or too long.
var ErrInvalidCommentText = fmt.Errorf("comment text must be 1 to %d characters", MaxCommentLength)

// RemoteError describes a failed remote action. Status is the remote HTTP status,
// or 0 when the request never produced a response.
type RemoteError struct {
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// HTTPStatus is the status an API caller should see for this error.
func (e *RemoteError) HTTPStatus() int {
	if e.Status < 400 || e.Status > 599 {
		return http.StatusInternalServerError
	}
	return e.Status
}
