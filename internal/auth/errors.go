package auth

import "errors"

var (
	// ErrUnauthenticated means no usable identity could be established for
	// the request. Callers respond with 401.
	ErrUnauthenticated = errors.New("unauthorized")

	// ErrForbidden means the identity is known but its role is not allowed.
	// Callers respond with 403.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidToken is returned by TokenService.Verify for any token that
	// is malformed, badly signed or expired.
	ErrInvalidToken = errors.New("invalid token")

	// ErrPasswordTooLong is returned by Hasher.Hash for plaintexts bcrypt
	// would otherwise truncate.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Failure carries the internal reason behind an authentication or
// authorization failure. errors.Is matches it against its class sentinel;
// the reason is for logs only and never reaches the client.
type Failure struct {
	class  error
	reason string
	cause  error
}

func fail(class error, reason string, cause error) *Failure {
	return &Failure{class: class, reason: reason, cause: cause}
}

func (f *Failure) Error() string {
	if f.cause != nil {
		return f.class.Error() + ": " + f.reason + ": " + f.cause.Error()
	}
	return f.class.Error() + ": " + f.reason
}

func (f *Failure) Unwrap() error { return f.class }

// Reason is a short machine-friendly description such as "token_invalid".
func (f *Failure) Reason() string { return f.reason }

// Cause is the underlying error, if any.
func (f *Failure) Cause() error { return f.cause }

// ReasonOf extracts the Failure reason from err, or "" if err is not a Failure.
func ReasonOf(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.reason
	}
	return ""
}
