package validation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation = errors.New("validation: entity is invalid")
)

// FieldError is a single violation reported by a Validator.
type FieldError struct {
	Field   string
	Message string
}

func (fe FieldError) String() string {
	if fe.Field == "" {
		return fe.Message
	}
	return fmt.Sprintf("%s %s", fe.Field, fe.Message)
}

// Errors collects every violation found during a validation pass. Entities
// never stop at the first invalid field.
type Errors struct {
	fields []FieldError
}

func (e *Errors) Add(field, message string) {
	e.fields = append(e.fields, FieldError{Field: field, Message: message})
}

func (e *Errors) Addf(field, format string, args ...any) {
	e.Add(field, fmt.Sprintf(format, args...))
}

func (e *Errors) Len() int {
	return len(e.fields)
}

func (e *Errors) Empty() bool {
	return len(e.fields) == 0
}

func (e *Errors) Fields() []FieldError {
	return append([]FieldError(nil), e.fields...)
}

// Returns true if any violation was recorded for the field
func (e *Errors) On(field string) bool {
	for _, fe := range e.fields {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *Errors) FullMessages() []string {
	messages := make([]string, len(e.fields))
	for i, fe := range e.fields {
		messages[i] = fe.String()
	}
	return messages
}

func (e *Errors) Error() string {
	return strings.Join(e.FullMessages(), ", ")
}

func (e *Errors) Reset() {
	e.fields = e.fields[:0]
}

// Validator is implemented by every entity that can be checked before use.
type Validator interface {
	Validate(errs *Errors)
}

// ValidationError is returned at operation boundaries when an entity is not
// valid. It lists every violated field.
type ValidationError struct {
	Errors *Errors
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), ve.Errors.Error())
}

func (ve *ValidationError) Unwrap() error {
	return ErrValidation
}

// ErrorsOf runs a fresh validation pass and returns the collected errors.
func ErrorsOf(v Validator) *Errors {
	errs := &Errors{}
	if v != nil {
		v.Validate(errs)
	}
	return errs
}

func Valid(v Validator) bool {
	return ErrorsOf(v).Empty()
}

// Check returns a *ValidationError describing every violation, or nil.
func Check(v Validator) error {
	errs := ErrorsOf(v)
	if errs.Empty() {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// Nested validates a child entity and records its violations on the
// parent's collector, prefixed with the child's field name.
func Nested(errs *Errors, prefix string, v Validator) {
	if v == nil {
		errs.Add(prefix, "is required")
		return
	}
	child := ErrorsOf(v)
	for _, fe := range child.fields {
		field := prefix
		if fe.Field != "" {
			field = prefix + "." + fe.Field
		}
		errs.Add(field, fe.Message)
	}
}
