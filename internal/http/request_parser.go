// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating request data.
// Every failure is reported as a *core.ValidationError so handlers can map it
// to a 422 response in one place.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"fintrack/internal/core"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// TransactionRequest is the body accepted by create and update. Pointer
// fields distinguish a missing key from a zero value.
type TransactionRequest struct {
	Amount      *core.Amount `json:"amount" validate:"required"`
	Category    *string      `json:"category" validate:"required"`
	Description *string      `json:"description" validate:"required"`
	IsIncome    *bool        `json:"is_income" validate:"required"`
	Date        *string      `json:"date" validate:"required"`
}

// Input converts a validated request into the domain input.
func (r TransactionRequest) Input() core.TransactionInput {
	return core.TransactionInput{
		Amount:      *r.Amount,
		Category:    *r.Category,
		Description: *r.Description,
		IsIncome:    *r.IsIncome,
		Date:        *r.Date,
	}
}

// UserRequest is the body accepted by user registration. The email is stored
// as sent; only its presence and type are checked.
type UserRequest struct {
	Email    *string `json:"email" validate:"required"`
	Password *string `json:"password" validate:"required"`
}

func (r UserRequest) Input() core.UserInput {
	return core.UserInput{Email: *r.Email, Password: *r.Password}
}

// DecodeJSON reads a JSON object from the request body into dst and runs the
// struct's validate tags. Unknown keys are ignored.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.NewValidationError(fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		}
		return core.NewValidationError("Could not read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return core.NewValidationError("Request body is required", core.FieldError{
			Field:   "body",
			Message: "Field required",
			Type:    "missing",
		})
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return decodeError(err)
	}
	return ValidateStruct(dst)
}

func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return core.NewValidationError("Malformed JSON body", core.FieldError{
			Field:   "body",
			Message: fmt.Sprintf("JSON decode error at offset %d", syntaxErr.Offset),
			Type:    "json_invalid",
		})
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return core.NewValidationError("Invalid request body", core.FieldError{
			Field:   field,
			Message: "Input should be a valid " + jsonTypeName(typeErr.Type),
			Type:    jsonTypeName(typeErr.Type) + "_type",
		})
	case errors.Is(err, core.ErrAmountOutOfRange):
		return core.NewValidationError("Invalid request body", core.FieldError{
			Field:   "amount",
			Message: "Input should be a finite number within range",
			Type:    "finite_number",
		})
	default:
		// decimal.Decimal reports its own parse failures
		return core.NewValidationError("Invalid request body", core.FieldError{
			Field:   "amount",
			Message: "Input should be a valid number",
			Type:    "decimal_parsing",
		})
	}
}

func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Struct:
		if t == reflect.TypeOf(core.Amount{}) {
			return "number"
		}
		return "object"
	default:
		return "value"
	}
}

// ValidateStruct runs validate tags on v and converts failures to field errors.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	fields := make([]core.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, core.FieldError{
			Field:   fe.Field(),
			Message: fieldErrorMessage(fe),
			Type:    fieldErrorType(fe),
		})
	}
	return core.NewValidationError("Request validation failed", fields...)
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field required"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + fe.Param()
	default:
		return "Invalid value"
	}
}

func fieldErrorType(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing"
	default:
		return fe.Tag()
	}
}

// QueryInt reads an optional integer query parameter, returning def when it
// is absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewValidationError("Invalid query parameter", intParsingError(name))
	}
	return n, nil
}

// RequiredQueryID reads a mandatory integer id from the query string.
func RequiredQueryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, core.NewValidationError("Invalid query parameter", core.FieldError{
			Field:   name,
			Message: "Field required",
			Type:    "missing",
		})
	}
	return parseID(name, raw)
}

// PathID reads an integer id from a path wildcard. A value that is not an
// integer names no stored row, so it reports core.ErrNotFound.
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, raw, core.ErrNotFound)
	}
	return id, nil
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, core.NewValidationError("Invalid query parameter", intParsingError(name))
	}
	return id, nil
}

func intParsingError(name string) core.FieldError {
	return core.FieldError{
		Field:   name,
		Message: "Input should be a valid integer",
		Type:    "int_parsing",
	}
}
