package bot

import (
	"errors"
	"fmt"
)

// Fatal conditions: the invocation aborts without publishing.
var (
	ErrAccountUninitialized = errors.New("no post by the bot account")
	ErrUnreadableThread     = errors.New("latest post is not a readable thread")
)

// MoveParseError means no notation could read the candidate text.
type MoveParseError struct {
	Text string
	Err  error
}

func (e *MoveParseError) Error() string {
	return fmt.Sprintf("cannot parse move %q: %v", e.Text, e.Err)
}

func (e *MoveParseError) Unwrap() error { return e.Err }

// IllegalMoveError means the candidate parsed but the rules rejected it.
type IllegalMoveError struct {
	Text string
	Move string
	Err  error
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s from %q: %v", e.Move, e.Text, e.Err)
}

func (e *IllegalMoveError) Unwrap() error { return e.Err }

// IsCandidateError reports whether err only disqualifies one candidate.
func IsCandidateError(err error) bool {
	var pe *MoveParseError
	var ie *IllegalMoveError
	return errors.As(err, &pe) || errors.As(err, &ie)
}
