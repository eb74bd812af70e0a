package auth

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/jrsteele09/go-auth-client/api"
	"github.com/pkg/errors"
)

const notBlankTag = "notblank"

// PayloadValidator checks outgoing payloads before they reach the backend and
// reports field errors keyed by their JSON names
type PayloadValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// FieldErrors maps JSON field names to human-readable problems
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fe[field])
	}
	return strings.Join(msgs, "; ")
}

func NewPayloadValidator() *PayloadValidator {
	validate := validator.New()

	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string { return fe.Field() + " cannot be blank" })

	return &PayloadValidator{validate: validate, translator: translator}
}

// ValidateRegistration returns FieldErrors when req is incomplete
func (v *PayloadValidator) ValidateRegistration(req api.RegisterRequest) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return errors.Wrap(err, "[ValidateRegistration]")
	}
	fieldErrs := make(FieldErrors, len(validationErrs))
	for _, fe := range validationErrs {
		fieldErrs[fe.Field()] = fe.Translate(v.translator)
	}
	return fieldErrs
}

// ValidateLogin rejects blank credentials without a round trip
func (v *PayloadValidator) ValidateLogin(email, password string) error {
	fieldErrs := FieldErrors{}
	if err := v.validate.Var(email, notBlankTag); err != nil {
		fieldErrs["email"] = "email cannot be blank"
	}
	if err := v.validate.Var(password, notBlankTag); err != nil {
		fieldErrs["password"] = "password cannot be blank"
	}
	if len(fieldErrs) > 0 {
		return fieldErrs
	}
	return nil
}
