package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// messages are the candidate-facing texts for tags used by the session
// payloads. {0} is the JSON field name.
var messages = map[string]string{
	"uuid":           "{0} must reference a question by its UUID",
	"violation_kind": "{0} must be either 'left' or 'returned'",
	"option_index":   fmt.Sprintf("{0} must be an option index between 0 and %d", model.MaxOptions-1),
}

// Setup registers the custom tags and English translations on Gin's binding
// engine. Call once during application startup.
func Setup() error {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return errors.New("validator: unexpected binding engine")
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("violation_kind", validViolationKind); err != nil {
		return fmt.Errorf("register violation_kind: %w", err)
	}
	if err := v.RegisterValidation("option_index", validOptionIndex); err != nil {
		return fmt.Errorf("register option_index: %w", err)
	}

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return fmt.Errorf("register translations: %w", err)
	}

	for tag, text := range messages {
		if err := v.RegisterTranslation(tag, trans, registerText(tag, text), translateField); err != nil {
			return fmt.Errorf("register %s translation: %w", tag, err)
		}
	}
	return nil
}

func validViolationKind(fl govalidator.FieldLevel) bool {
	return model.ViolationKind(fl.Field().String()).Valid()
}

// validOptionIndex accepts any signed integer field; pointers are
// dereferenced by the validator before the call.
func validOptionIndex(fl govalidator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := fl.Field().Int()
		return i >= 0 && i < model.MaxOptions
	}
	return false
}

func registerText(tag, text string) govalidator.RegisterTranslationsFunc {
	return func(t ut.Translator) error {
		return t.Add(tag, text, true)
	}
}

func translateField(t ut.Translator, fe govalidator.FieldError) string {
	msg, err := t.T(fe.Tag(), fe.Field())
	if err != nil {
		return fe.Error()
	}
	return msg
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name -> human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
