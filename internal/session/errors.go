package session

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSession is returned by Attach while another session is
	// live.
	ErrDuplicateSession = errors.New("session: another session is already attached")
	// ErrURLBlocked marks a load refused because the URL keeps failing.
	ErrURLBlocked = errors.New("url blocked")
	// ErrURLFailing marks a load held back until the user confirms.
	ErrURLFailing = errors.New("url failing")
	// ErrDetached is returned by operations on a detached session.
	ErrDetached = errors.New("session: detached")
)

// BlockedError is a hard block of URL within Project.
type BlockedError struct {
	URL     string
	Project string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("URL Blocked: %s in %s", e.URL, e.Project)
}

func (e *BlockedError) Unwrap() error { return ErrURLBlocked }

// FailingError is a soft block of URL within Project.
type FailingError struct {
	URL     string
	Project string
}

func (e *FailingError) Error() string {
	return fmt.Sprintf("URL Failing: %s in %s", e.URL, e.Project)
}

func (e *FailingError) Unwrap() error { return ErrURLFailing }
