// Package apperrors defines the sentinel errors services return. The error
// middleware maps them onto HTTP responses; everything else treats them as
// opaque values for errors.Is.
package apperrors

import "errors"

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
)

// Account errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrValidationFailed   = errors.New("validation failed")
)

// Student errors
var (
	ErrStudentNotFound       = errors.New("student not found")
	ErrDuplicateIDNumber     = errors.New("a student with this ID number already exists")
	ErrInvalidIDNumber       = errors.New("invalid ID number format")
	ErrInvalidCycle          = errors.New("invalid cycle year")
	ErrInvalidStatus         = errors.New("invalid student status")
	ErrInvalidGender         = errors.New("invalid gender value")
	ErrStudyingInactiveCycle = errors.New("studying status requires an active cycle")
	ErrGradeOnInactiveCycle  = errors.New("grade must be empty for ended or future cycles")
)

// Import errors
var (
	ErrImportRunNotFound = errors.New("import run not found")
	ErrEmptyRoster       = errors.New("roster contains no rows")
	ErrUnsupportedRoster = errors.New("unsupported roster file format")
)

// Is reports whether err matches target or any entry of errList. It keeps the
// middleware's grouped matches readable.
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
