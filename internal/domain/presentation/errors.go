package presentation

import (
	"errors"
	"fmt"
)

// ErrTemplate is the kind of every *TemplateError.
var ErrTemplate = errors.New("template error")

// TemplateError reports a template that is not a presentation or does not
// match the slot layout. It is operator-correctable.
type TemplateError struct {
	Part   string // zip part, empty for the whole file
	Reason string
	Err    error
}

func (e *TemplateError) Error() string {
	msg := "template"
	if e.Part != "" {
		msg += " " + e.Part
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TemplateError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTemplate}
	}
	return []error{ErrTemplate, e.Err}
}

func templateErr(part, reason string, err error) error {
	return &TemplateError{Part: part, Reason: reason, Err: err}
}
