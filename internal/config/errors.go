package config

import (
	"errors"
	"fmt"
)

var (
	ErrSettingNotFound = errors.New("setting not found")
	ErrInvalidPath     = errors.New("invalid setting path")
	ErrWrongType       = errors.New("wrong type")
	ErrOutOfRange      = errors.New("out of range")
	ErrUnknownValue    = errors.New("unknown value")
)

// SettingError reports a setting that is missing or cannot be used.
// Reason is one of the sentinel errors of this package.
type SettingError struct {
	Path   string
	Reason error
	Detail string
}

func (e *SettingError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Reason)
	}
	return fmt.Sprintf("%s: %v: %s", e.Path, e.Reason, e.Detail)
}

func (e *SettingError) Unwrap() error { return e.Reason }

func notFound(path string) error {
	return &SettingError{Path: path, Reason: ErrSettingNotFound}
}

func wrongType(path, want string, v any) error {
	return &SettingError{
		Path:   path,
		Reason: ErrWrongType,
		Detail: fmt.Sprintf("want %s, have %s", want, typeName(v)),
	}
}
