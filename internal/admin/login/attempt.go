package login

import (
	"context"
	"errors"
	"time"
)

// ErrAbandoned is reported when the caller's context ends before the
// Authentication Service answers. Abandoned attempts are not classified.
var ErrAbandoned = errors.New("login: attempt abandoned")

// Outcome is the result of one attempt. Exactly one of Session, Failure and
// Err is set; Err is only ever ErrAbandoned.
type Outcome struct {
	Session *Session
	Failure *Failure
	Err     error
}

// Succeeded reports whether the attempt produced a session.
func (o Outcome) Succeeded() bool {
	return o.Session != nil
}

// Message returns the failure text, or "" on success.
func (o Outcome) Message() string {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Message
}

// Recorder observes finished attempts.
type Recorder interface {
	RecordAttempt(outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(string, time.Duration) {}

// OutcomeSuccess is the Recorder label for successful attempts.
const OutcomeSuccess = "success"

// Label returns the Recorder label for the outcome.
func (o Outcome) Label() string {
	switch {
	case o.Session != nil:
		return OutcomeSuccess
	case o.Failure != nil:
		return o.Failure.Kind.String()
	default:
		return "abandoned"
	}
}

// Attempt validates creds and, only when they pass, submits them through auth.
func Attempt(ctx context.Context, auth Authenticator, creds Credentials) Outcome {
	creds = creds.Normalised()
	if failure := Validate(creds); failure != nil {
		return Outcome{Failure: failure}
	}
	return submit(ctx, auth, creds)
}

// submit sends already validated credentials and classifies the result.
func submit(ctx context.Context, auth Authenticator, creds Credentials) Outcome {
	if auth == nil {
		return Outcome{Failure: NewFailure(UnknownError, errors.New("login: authenticator is not configured"))}
	}

	sess, err := auth.Login(ctx, creds)
	if err == nil && sess == nil {
		err = ErrMissingToken
	}
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return Outcome{Err: ErrAbandoned}
		case errors.Is(err, context.DeadlineExceeded):
			// A deadline means no response arrived in time.
			return Outcome{Failure: NewFailure(NetworkUnreachable, err)}
		}
		return Outcome{Failure: Classify(err)}
	}
	if !sess.Remember {
		sess.Remember = creds.Remember
	}
	return Outcome{Session: sess}
}
