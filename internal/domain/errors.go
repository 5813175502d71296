package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidIP       = errors.New("invalid IP address")
	ErrInvalidDomain   = errors.New("invalid domain")
	ErrInvalidTTL      = errors.New("invalid TTL")
	ErrInvalidType     = errors.New("invalid type")
	ErrInvalidLine     = errors.New("invalid line")
	ErrInvalidProtocol = errors.New("invalid protocol version")
	ErrEmptyValue      = errors.New("empty value")
	ErrRequired        = errors.New("required field missing")

	ErrConfigReadFailed   = errors.New("config read failed")
	ErrConfigParseFailed  = errors.New("config parse failed")
	ErrConfigValidateFail = errors.New("config validation failed")
	ErrConfigNotFound     = errors.New("config not found")

	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrMissingCredential   = errors.New("missing credential")

	ErrRecommendationUnavailable = errors.New("optimization ip unavailable")
	ErrSampleTooLarge            = errors.New("sample larger than candidate pool")

	ErrDNSError          = errors.New("DNS operation failed")
	ErrDNSRecordNotFound = errors.New("DNS record not found")
	ErrRecordIDMismatch  = errors.New("DNS record id mismatch")

	ErrRunLocked = errors.New("another run holds the lock")
)

func RequiredField(field string) error {
	return fmt.Errorf("%w: %s", ErrRequired, field)
}

func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func WrapEntity(entity, name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s[%s]: %w", entity, name, err)
}

type OpError struct {
	Op    string
	Cause error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *OpError) Unwrap() error {
	return e.Cause
}

func NewOpError(op string, cause error) error {
	return &OpError{Op: op, Cause: cause}
}
