package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Body decoding failures.
var (
	ErrBodyRequired = errors.New("Body is required")
	ErrMalformed    = errors.New("Invalid request body")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// FieldTypeError reports a body field whose JSON type did not match.
type FieldTypeError struct {
	Field string
}

func (e *FieldTypeError) Error() string { return "Invalid " + e.Field }

func ValidateRequest(obj any) []ValidationError {
	var validationErrors []ValidationError

	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []ValidationError{{Message: "Invalid value"}}
	}
	for _, err := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: getErrorMsg(err),
			Type:    err.Tag(),
		})
	}

	return validationErrors
}

func getErrorMsg(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	default:
		return "Invalid value"
	}
}

// DecodeBody reads the request body into obj. An empty or null body yields
// ErrBodyRequired; a field of the wrong JSON type yields *FieldTypeError
// naming the innermost field.
func DecodeBody(c *gin.Context, obj any) error {
	raw, err := c.GetRawData()
	if err != nil {
		return ErrMalformed
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ErrBodyRequired
	}
	if err := json.Unmarshal(raw, obj); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			parts := strings.Split(typeErr.Field, ".")
			return &FieldTypeError{Field: parts[len(parts)-1]}
		}
		return ErrMalformed
	}
	return nil
}

func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"message": message,
	})
}
