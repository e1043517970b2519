// Package sketcherr defines the error categories returned by the sketch
// registry, dispatcher and merge engine.
//
// Every error produced by the core is marked with exactly one of the
// category sentinels below, so callers classify failures with errors.Is
// regardless of how much context has been wrapped around them.
package sketcherr

import "github.com/cockroachdb/errors"

var (
	// ErrConfig marks a bad startup specification or a missing sizing
	// parameter.
	ErrConfig = errors.New("config error")
	// ErrNotFound marks a reference to an unknown sketch name.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks malformed request content.
	ErrValidation = errors.New("validation error")
	// ErrFamilyMismatch marks sketches of different families meeting in one
	// merge.
	ErrFamilyMismatch = errors.New("family mismatch")
	// ErrUnsupported marks an operation invoked against a family that cannot
	// perform it.
	ErrUnsupported = errors.New("unsupported operation")
)

// Configf returns a new error in the config category.
func Configf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfig)
}

// NotFoundf returns a new error in the not-found category.
func NotFoundf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

// Validationf returns a new error in the validation category.
func Validationf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

// FamilyMismatchf returns a new error in the family-mismatch category.
func FamilyMismatchf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrFamilyMismatch)
}

// Unsupportedf returns a new error in the unsupported-operation category.
func Unsupportedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrUnsupported)
}

// AsValidation marks err as a validation error unless it already carries a
// category. A nil err stays nil.
func AsValidation(err error) error {
	if err == nil || Kind(err) != nil {
		return err
	}
	return errors.Mark(err, ErrValidation)
}

var categories = []error{ErrConfig, ErrNotFound, ErrValidation, ErrFamilyMismatch, ErrUnsupported}

// Kind returns the category sentinel carried by err, or nil when err is nil
// or uncategorized.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range categories {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}
