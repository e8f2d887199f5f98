package service

import (
	"errors"
	"fmt"
)

// Kind groups errors by how the HTTP boundary reports them.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindDuplicate
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindUnsupportedMedia
	KindInternal
)

// Error is the error type every service operation returns for expected
// failures. Code is stable and machine-checkable; Message is for humans.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so a sentinel still matches after WithMessage.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

var (
	ErrValidation        = &Error{Kind: KindValidation, Code: "validation_error", Message: "invalid input"}
	ErrInvalidUserType   = &Error{Kind: KindValidation, Code: "invalid_user_type", Message: "user type must be one of: transporter, user"}
	ErrEmptyCart         = &Error{Kind: KindValidation, Code: "empty_cart", Message: "cannot create order with empty cart"}
	ErrInsufficientStock = &Error{Kind: KindValidation, Code: "insufficient_stock", Message: "product is not available in requested quantity"}
	ErrSelfRating        = &Error{Kind: KindValidation, Code: "self_rating", Message: "you cannot rate yourself"}
	ErrInvalidRating     = &Error{Kind: KindValidation, Code: "invalid_rating", Message: "rating must be an integer between 1 and 5"}
	ErrInvalidTarget     = &Error{Kind: KindValidation, Code: "invalid_target", Message: "only farmers can be rated"}

	ErrDuplicateUsername = &Error{Kind: KindDuplicate, Code: "duplicate_username", Message: "username already exists"}
	ErrDuplicateEmail    = &Error{Kind: KindDuplicate, Code: "duplicate_email", Message: "email already registered"}
	ErrDuplicate         = &Error{Kind: KindDuplicate, Code: "duplicate", Message: "record already exists"}
	ErrAdminExists       = &Error{Kind: KindDuplicate, Code: "admin_exists", Message: "an admin user already exists"}

	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Code: "invalid_credentials", Message: "username or password is incorrect"}
	ErrUnauthenticated    = &Error{Kind: KindAuthentication, Code: "not_authenticated", Message: "please login first"}
	ErrInvalidToken       = &Error{Kind: KindAuthentication, Code: "invalid_token", Message: "invalid session"}

	ErrAccountDisabled  = &Error{Kind: KindAuthorization, Code: "account_disabled", Message: "your account has been disabled"}
	ErrUserTypeMismatch = &Error{Kind: KindAuthorization, Code: "user_type_mismatch", Message: "user type does not match"}
	ErrForbidden        = &Error{Kind: KindAuthorization, Code: "forbidden", Message: "insufficient permissions"}

	ErrNotFound = &Error{Kind: KindNotFound, Code: "not_found", Message: "not found"}

	ErrInvalidTransition          = &Error{Kind: KindConflict, Code: "invalid_transition", Message: "invalid application status transition"}
	ErrApplicationAlreadyPending  = &Error{Kind: KindConflict, Code: "application_pending", Message: "you already have a pending application, please wait for admin review"}
	ErrApplicationAlreadyApproved = &Error{Kind: KindConflict, Code: "application_approved", Message: "your application has already been approved, please login instead"}
	ErrApplicationDenied          = &Error{Kind: KindConflict, Code: "application_denied", Message: "a previous application with this username or email was denied"}

	ErrUnsupportedMediaType = &Error{Kind: KindUnsupportedMedia, Code: "unsupported_media_type", Message: "file type not allowed"}

	ErrInternal = &Error{Kind: KindInternal, Code: "internal_error", Message: "internal error"}
)

func validationf(format string, args ...any) *Error {
	return ErrValidation.WithMessage(format, args...)
}

func notFoundf(format string, args ...any) *Error {
	return ErrNotFound.WithMessage(format, args...)
}

func forbiddenf(format string, args ...any) *Error {
	return ErrForbidden.WithMessage(format, args...)
}

// internal wraps an unexpected failure. The cause stays on Err for logging;
// the boundary only shows Message.
func internal(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: KindInternal, Code: ErrInternal.Code, Message: op + " failed", Err: err}
}

// KindOf returns the Kind of err, KindInternal when err is not a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
