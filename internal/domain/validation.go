package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation limits
const (
	MaxAmountCents       = 1_000_000 // $10,000.00
	MaxAccountNameLength = 100
	MaxReferenceLength   = 256
)

// CreateAccountRequest is the input of account creation.
type CreateAccountRequest struct {
	Name           string `json:"name"           validate:"required,notblank,max=100"`
	InitialBalance int64  `json:"initialBalance" validate:"gte=0,lte=1000000"`
}

// WithdrawRequest is the input of a withdrawal.
type WithdrawRequest struct {
	SourceID       string `json:"sourceId"       validate:"required,max=256"`
	Amount         int64  `json:"amount"         validate:"gt=0,lte=1000000"`
	IdempotencyKey string `json:"idempotencyKey" validate:"required,uuid"`
}

// TransferRequest is the input of a transfer between two accounts.
type TransferRequest struct {
	SourceID       string `json:"sourceId"       validate:"required,max=256"`
	DestinationID  string `json:"destinationId"  validate:"required,max=256"`
	Amount         int64  `json:"amount"         validate:"gt=0,lte=1000000"`
	IdempotencyKey string `json:"idempotencyKey" validate:"required,uuid"`
}

// RefreshBalanceRequest is the input of a cached balance refresh.
type RefreshBalanceRequest struct {
	SourceID string `json:"sourceId" validate:"required,max=256"`
}

// FieldViolation describes one failing field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+" "+v.Message)
	}

	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Fields returns the names of the failing fields in report order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}

	return fields
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

// Validate checks a request struct and returns nil or a *ValidationError
// carrying every violation.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", req, err)
	}

	out := &ValidationError{Violations: make([]FieldViolation, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Violations = append(out.Violations, FieldViolation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: violationMessage(fe),
		})
	}

	return out
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "uuid":
		return "must be a valid UUID"
	default:
		return "is invalid"
	}
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 100
	const DefaultPageSize = 20

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
