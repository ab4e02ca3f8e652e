package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ValidationError is a request the gateway refuses without calling the core.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Validator checks request shape before anything reaches the core.
type Validator struct {
	clock     domain.Clock
	tolerance time.Duration
	structs   *validator.Validate
}

func NewValidator(clock domain.Clock, tolerance time.Duration) *Validator {
	if clock == nil {
		clock = domain.SystemClock{}
	}

	structs := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	structs.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := structs.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}

	return &Validator{clock: clock, tolerance: tolerance, structs: structs}
}

// UserID parses the identity header. Only positive ids are accepted.
func (v *Validator) UserID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid("user id header is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("user id must be a positive integer")
	}
	return id, nil
}

// PathID parses a positive resource id from the path.
func (v *Validator) PathID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("%s must be a positive integer", name)
	}
	return id, nil
}

type bookingBody struct {
	ItemID int64  `json:"itemId" validate:"required,gt=0"`
	Start  string `json:"start" validate:"required"`
	End    string `json:"end" validate:"required"`
}

// Booking checks a booking request: item present, both dates present,
// start not in the past, end in the future.
func (v *Validator) Booking(body []byte) error {
	var b bookingBody
	if err := v.decode(body, &b); err != nil {
		return err
	}

	start, err := models.ParseTimestamp(b.Start)
	if err != nil {
		return invalid("start: %v", err)
	}
	end, err := models.ParseTimestamp(b.End)
	if err != nil {
		return invalid("end: %v", err)
	}

	now := v.clock.Now()
	if start.Before(now.Add(-v.tolerance)) {
		return invalid("start must not be in the past")
	}
	if !end.After(now) {
		return invalid("end must be in the future")
	}
	return nil
}

// Approved parses the approval flag.
func (v *Validator) Approved(raw string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(raw)); err != nil {
		return invalid("approved must be true or false")
	}
	return nil
}

// State accepts an empty selector or one of the known tokens.
func (v *Validator) State(raw string) error {
	if raw == "" {
		return nil
	}
	if !models.BookingState(raw).IsKnown() {
		return invalid("Unknown state: %s", raw)
	}
	return nil
}

type newUserBody struct {
	Name  *string `json:"name" validate:"required,notblank"`
	Email *string `json:"email" validate:"required,email"`
}

type userPatchBody struct {
	Name  *string `json:"name" validate:"omitempty,notblank"`
	Email *string `json:"email" validate:"omitempty,email"`
}

func (v *Validator) NewUser(body []byte) error {
	return v.decode(body, &newUserBody{})
}

func (v *Validator) UserPatch(body []byte) error {
	return v.decode(body, &userPatchBody{})
}

type newItemBody struct {
	Name        *string `json:"name" validate:"required,notblank"`
	Description *string `json:"description" validate:"required,notblank"`
	Available   *bool   `json:"available" validate:"required"`
}

type itemPatchBody struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

func (v *Validator) NewItem(body []byte) error {
	return v.decode(body, &newItemBody{})
}

func (v *Validator) ItemPatch(body []byte) error {
	return v.decode(body, &itemPatchBody{})
}

// decode unmarshals body into dst and runs its validate tags.
func (v *Validator) decode(body []byte, dst interface{}) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return invalid("invalid JSON body")
	}
	if err := v.structs.Struct(dst); err != nil {
		return describe(err)
	}
	return nil
}

func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invalid("invalid request body")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return invalid("%s is required", fe.Field())
	case "gt":
		return invalid("%s must be a positive integer", fe.Field())
	case "notblank":
		return invalid("%s must not be blank", fe.Field())
	case "email":
		return invalid("%s must be a valid address", fe.Field())
	default:
		return invalid("%s is invalid", fe.Field())
	}
}
