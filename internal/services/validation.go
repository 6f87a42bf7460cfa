package services

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})
	return v
}

// fieldMessages holds the user-facing message per field and rule.
var fieldMessages = map[string]string{
	"title.min":               "Title must be at least 3 characters long.",
	"description.min":         "Description must be at least 10 characters long.",
	"assignedUserId.required": "Please assign the task to a user.",
	"deadline.required":       "A deadline is required.",
	"name.min":                "Name must be at least 2 characters.",
	"email.required":          "Please enter a valid email.",
	"email.email":             "Please enter a valid email.",
	"password.min":            "Password must be at least 6 characters.",
}

// validateStruct collects every violated struct tag constraint of v into
// verr.
func validateStruct(v interface{}, verr *apierrors.ValidationError) {
	err := validate.Struct(v)
	if err == nil {
		return
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		verr.Add("", err.Error())
		return
	}

	for _, fe := range fieldErrors {
		field := fe.Field()
		message, ok := fieldMessages[field+"."+fe.Tag()]
		if !ok {
			message = "failed " + fe.Tag() + " validation"
		}
		verr.Add(field, message)
	}
}

// parseDeadline accepts RFC 3339 timestamps and plain dates, returning UTC.
func parseDeadline(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
