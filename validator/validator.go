package validator

import (
	"slices"
	"strings"

	"github.com/batimarket/batimarket/id"
)

// Validator collects field errors.
// It implements error so it can be returned as is from Validate methods.
type Validator struct {
	Errors map[string][]string `json:"errors"`
}

func New() *Validator {
	return &Validator{
		Errors: map[string][]string{},
	}
}

func (v *Validator) AddError(field, message string) {
	if v.Errors == nil {
		v.Errors = make(map[string][]string)
	}
	v.Errors[field] = append(v.Errors[field], message)
}

// Check adds the error message to field only when ok is false.
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// CheckID adds a required or invalid error for an id field.
func (v *Validator) CheckID(s, field, label string) {
	if s == "" {
		v.AddError(field, label+" is required")
		return
	}
	if !id.Valid(s) {
		v.AddError(field, label+" is invalid")
	}
}

func (v *Validator) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *Validator) First(field string) string {
	if messages, exists := v.Errors[field]; exists && len(messages) != 0 {
		return messages[0]
	}
	return ""
}

func (v *Validator) All(field string) []string {
	if messages, exists := v.Errors[field]; exists && len(messages) != 0 {
		return messages
	}
	return nil
}

func (v *Validator) Error() string {
	if !v.HasErrors() {
		return ""
	}

	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	var sb strings.Builder
	for _, field := range fields {
		sb.WriteString(field + ": \n")
		for _, msg := range v.Errors[field] {
			sb.WriteString("\t- " + msg + "\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

func (v *Validator) AsError() error {
	if v.HasErrors() {
		return v
	}
	return nil
}
