package service

import "errors" // Sentinel errors

// Errors reported by the bin engine
var (
	ErrInvalidLevel       = errors.New("level must be an integer between 0 and 100")
	ErrBinNotFound        = errors.New("bin not found")
	ErrEmptyField         = errors.New("field must not be empty")
	ErrDuplicateBinNumber = errors.New("bin number already in use")
	ErrPersistence        = errors.New("persistence failure")
)

// Config field names used in FieldError
const (
	FieldBinNumber = "bin_number"
	FieldLocation  = "location"
)

// FieldError describes why one configuration field was rejected
type FieldError struct {
	Field string // Which field was rejected
	Value string // Trimmed value that was submitted
	Err   error  // ErrEmptyField or ErrDuplicateBinNumber
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// FieldErrors flattens err (possibly joined) into its field errors
func FieldErrors(err error) []*FieldError {
	var out []*FieldError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if fe, ok := e.(*FieldError); ok {
			out = append(out, fe)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// isDomainError reports whether err is a validation outcome rather than a store failure
func isDomainError(err error) bool {
	return errors.Is(err, ErrBinNotFound) ||
		errors.Is(err, ErrEmptyField) ||
		errors.Is(err, ErrDuplicateBinNumber)
}
