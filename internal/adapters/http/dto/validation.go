package dto

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation wraps every request that bound but failed its rules.
	ErrValidation = errors.New("validation failed")

	// ErrBinding wraps JSON and query decoding failures.
	ErrBinding = errors.New("binding failed")
)

// maxTagKeyLength is the longest tag key the error tracking backend indexes.
const maxTagKeyLength = 32

var tagKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

var validatorInstance = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Errors name fields the way clients send them.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name, _, _ := strings.Cut(fld.Tag.Get("json"), ","); name != "-" && name != "" {
			return name
		}
		if name := fld.Tag.Get("form"); name != "" {
			return name
		}
		return ""
	})

	_ = v.RegisterValidation("notempty", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("tagkey", func(fl validator.FieldLevel) bool {
		key := fl.Field().String()
		return len(key) <= maxTagKeyLength && tagKeyPattern.MatchString(key)
	})

	return v
})

// Validator returns the shared validator.
func Validator() *validator.Validate {
	return validatorInstance()
}

// Validatable is implemented by request types with rules struct tags
// cannot express. Validate calls it once the tags pass.
type Validatable interface {
	Validate() error
}

// Validate checks the struct tags of v, then v's own Validate method.
// Failures wrap ErrValidation.
func Validate(v any) error {
	if err := Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if vv, ok := v.(Validatable); ok {
		if err := vv.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and validates it.
func BindAndValidate(c *gin.Context, v any) error {
	return bindAndValidate(c.ShouldBindJSON(v), v)
}

// BindQueryAndValidate decodes the query string into v and validates it.
func BindQueryAndValidate(c *gin.Context, v any) error {
	return bindAndValidate(c.ShouldBindQuery(v), v)
}

func bindAndValidate(bindErr error, v any) error {
	if bindErr != nil {
		return fmt.Errorf("%w: %w", ErrBinding, bindErr)
	}

	return Validate(v)
}

// IsValidationError reports whether err carries validator field errors.
func IsValidationError(err error) bool {
	var fieldErrs validator.ValidationErrors
	return errors.As(err, &fieldErrs)
}

// ValidationErrors maps each failing field to a message for the error
// envelope. It is empty when err carries no field errors.
func ValidationErrors(err error) map[string]string {
	details := make(map[string]string)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fieldMessage(fe)
		}
	}

	return details
}

func fieldMessage(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "notempty":
		return "must not be empty"
	case "tagkey":
		return fmt.Sprintf("must be at most %d characters of letters, digits, '_', '.', ':' or '-'", maxTagKeyLength)
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "oneof":
		return "must be one of: " + param
	case "min":
		return "must be at least " + param + unit(fe.Kind())
	case "max":
		return "must be at most " + param + unit(fe.Kind())
	default:
		return "failed validation: " + fe.Tag()
	}
}

// unit names what a length bound counts for kind.
func unit(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Map:
		return " entries"
	default:
		return ""
	}
}
