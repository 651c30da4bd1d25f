package login

import (
	"errors"
	"fmt"
	"net/http"
)

// ResponseError reports a non-2xx answer from the Authentication Service.
// ReadErr is set when the error body could not be read in full; Body then
// holds whatever arrived before the failure.
type ResponseError struct {
	Status  int
	Body    ErrorBody
	ReadErr error
}

func (e *ResponseError) Error() string {
	msg, ok := e.Body.ValidationMessage()
	if !ok {
		msg = http.StatusText(e.Status)
	}
	if e.ReadErr != nil {
		return fmt.Sprintf("auth service responded %d: %s (reading body: %v)", e.Status, msg, e.ReadErr)
	}
	return fmt.Sprintf("auth service responded %d: %s", e.Status, msg)
}

func (e *ResponseError) Unwrap() error {
	return e.ReadErr
}

// TransportError reports that no response was received at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "auth service unreachable: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Classify maps any submission error onto exactly one Failure kind.
//
// Checks run in a fixed order: 429, 403, 401, transport failure, server
// validation payload, then the UnknownError fallback.
func Classify(err error) *Failure {
	var already *Failure
	if errors.As(err, &already) && already != nil {
		return already
	}

	var respErr *ResponseError
	isResponse := errors.As(err, &respErr) && respErr != nil

	if isResponse {
		switch respErr.Status {
		case http.StatusTooManyRequests:
			return NewFailure(RateLimited, err)
		case http.StatusForbidden:
			return NewFailure(AccountDisabled, err)
		case http.StatusUnauthorized:
			return NewFailure(InvalidCredentials, err)
		}
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return NewFailure(NetworkUnreachable, err)
	}

	if isResponse {
		if msg, ok := respErr.Body.ValidationMessage(); ok {
			return &Failure{Kind: ServerValidation, Message: msg, Err: err}
		}
	}

	return NewFailure(UnknownError, err)
}
