package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate checks the owner editable models. Initialized in init() with the
// struct level rules tags cannot express.
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterStructValidation(validateQuestion, Question{})
}

// validateQuestion requires options exactly on choice questions.
func validateQuestion(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	if q.IsChoice() && len(q.Options) == 0 {
		sl.ReportError(q.Options, "Options", "options", "required_for_choice", "")
	}
}

// Validate checks the form's fields and questions.
func (f Form) Validate() error {
	return describe(validate.Struct(f))
}

// Validate checks the restaurant's editable fields.
func (r Restaurant) Validate() error {
	return describe(validate.Struct(r))
}

// Validate checks the table's name.
func (t Table) Validate() error {
	return describe(validate.Struct(t))
}

// describe turns validator errors into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("invalid %s", strings.Join(msgs, ", "))
}
