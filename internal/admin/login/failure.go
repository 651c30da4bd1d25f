package login

import "errors"

// Kind classifies why a login attempt did not produce a session.
type Kind int

const (
	// KindUnknown is the zero value; it renders like UnknownError.
	KindUnknown Kind = iota
	MissingEmail
	InvalidEmailFormat
	MissingPassword
	PasswordTooShort
	RateLimited
	AccountDisabled
	InvalidCredentials
	NetworkUnreachable
	ServerValidation
	UnknownError
)

var kindLabels = map[Kind]string{
	MissingEmail:       "missing_email",
	InvalidEmailFormat: "invalid_email_format",
	MissingPassword:    "missing_password",
	PasswordTooShort:   "password_too_short",
	RateLimited:        "rate_limited",
	AccountDisabled:    "account_disabled",
	InvalidCredentials: "invalid_credentials",
	NetworkUnreachable: "network_unreachable",
	ServerValidation:   "server_validation",
	UnknownError:       "unknown_error",
}

var kindMessages = map[Kind]string{
	MissingEmail:       "Email is required.",
	InvalidEmailFormat: "Please enter a valid email address.",
	MissingPassword:    "Password is required.",
	PasswordTooShort:   "Password must be at least 6 characters.",
	RateLimited:        "Too many login attempts. Please try again later.",
	AccountDisabled:    "Your account is disabled or does not have admin privileges.",
	InvalidCredentials: "Invalid email or password. Please try again.",
	NetworkUnreachable: "Unable to reach the server. Please check your connection and try again.",
	UnknownError:       "Login failed. Please try again.",
}

// String returns a stable snake_case label for logs and metrics.
func (k Kind) String() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return kindLabels[UnknownError]
}

// Local reports whether the kind is produced by client-side validation.
func (k Kind) Local() bool {
	switch k {
	case MissingEmail, InvalidEmailFormat, MissingPassword, PasswordTooShort:
		return true
	default:
		return false
	}
}

// DefaultMessage returns the user-facing text shown for the kind.
// ServerValidation has no default; its text comes from the server.
func (k Kind) DefaultMessage() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[UnknownError]
}

// Failure is a classified, displayable login failure.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

// NewFailure builds a Failure carrying the default message for kind.
func NewFailure(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Message: kind.DefaultMessage(), Err: err}
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Err == nil {
		return "login: " + f.Kind.String()
	}
	return "login: " + f.Kind.String() + ": " + f.Err.Error()
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the Kind carried by err, or UnknownError when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) && f != nil {
		if f.Kind == KindUnknown {
			return UnknownError
		}
		return f.Kind
	}
	return UnknownError
}
