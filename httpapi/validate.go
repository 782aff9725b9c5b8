package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// fieldError is one entry of a 400 response's details.
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

type validationError struct {
	details []fieldError
}

func (e *validationError) Error() string {
	return "validation failed"
}

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: v}
}

// decode reads a JSON body into dst and validates it. Failures are
// *validationError.
func (v *requestValidator) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		rule := "json"
		if errors.Is(err, io.EOF) {
			rule = "required"
		}
		return &validationError{details: []fieldError{{Field: "body", Rule: rule}}}
	}

	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	details := make([]fieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, fieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return &validationError{details: details}
}
