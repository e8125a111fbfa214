package mhttp

import (
	"reflect"
	"strings"

	"github.com/cgcardona/maestro/pkg/merrors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	entrans "github.com/go-playground/validator/translations/en"
	"gopkg.in/go-playground/validator.v9"
)

// DecodeHandlerFunc receives a struct decoded and validated by WithBody.
type DecodeHandlerFunc[T any] func(payload *T, c *fiber.Ctx) error

// WithBody decodes the request body into a fresh *T, validates it against
// its `validate` struct tags, and only then invokes the wrapped handler.
func WithBody[T any](h DecodeHandlerFunc[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := new(T)

		if err := c.BodyParser(payload); err != nil {
			return WithError(c, merrors.ValidationError{
				Code:    "MALFORMED_BODY",
				Message: "request body could not be parsed: " + err.Error(),
			})
		}

		if err := ValidateStruct(payload); err != nil {
			return WithError(c, err)
		}

		return h(payload, c)
	}
}

var (
	validatorInstance *validator.Validate
	translator        ut.Translator
)

func init() {
	locale := en.New()
	uni := ut.New(locale, locale)
	translator, _ = uni.GetTranslator("en")

	validatorInstance = validator.New()
	_ = entrans.RegisterDefaultTranslations(validatorInstance, translator)

	validatorInstance.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// ValidateStruct validates s against its `validate` struct tags, returning
// a merrors.ValidationError with a field-by-field message on failure.
func ValidateStruct(s any) error {
	k := reflect.ValueOf(s).Kind()
	if k == reflect.Ptr {
		k = reflect.ValueOf(s).Elem().Kind()
	}

	if k != reflect.Struct {
		return nil
	}

	err := validatorInstance.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return merrors.ValidationError{Code: "VALIDATION_FAILED", Message: err.Error()}
	}

	var msgs []string
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(translator))
	}

	return merrors.ValidationError{
		Code:    "VALIDATION_FAILED",
		Message: strings.Join(msgs, "; "),
	}
}

// ParseUUIDPathParam parses the path parameter as a UUID and maps a
// malformed or missing value to a 400 rather than a 500.
func ParseUUIDPathParam(c *fiber.Ctx, name string) (string, error) {
	v := c.Params(name)
	if strings.TrimSpace(v) == "" {
		return "", merrors.ValidationError{
			Code:    "MISSING_PATH_PARAM",
			Message: "missing path parameter: " + name,
		}
	}

	if _, err := uuid.Parse(v); err != nil {
		return "", merrors.ValidationError{
			Code:    "INVALID_PATH_PARAM",
			Message: name + " is not a valid id: " + v,
		}
	}

	return v, nil
}
