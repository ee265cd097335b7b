package policy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tempcover/backend/internal/domain/shared"
	"github.com/tempcover/backend/internal/domain/vehicle"
)

const (
	// DefaultCurrency is used when checkout did not report one
	DefaultCurrency = "GBP"

	// DurationTolerance is how far the quoted duration may drift from the
	// actual cover window
	DurationTolerance = 5 * time.Minute

	// MaxCoverDuration is the longest cover window accepted
	MaxCoverDuration = 366 * 24 * time.Hour
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FinalizeInput is the flat quote, customer and payment record handed over
// by checkout. Timestamps are RFC 3339 strings as carried in payment metadata.
type FinalizeInput struct {
	Registration string `json:"registration" validate:"required"`
	Make         string `json:"make" validate:"max=100"`
	Model        string `json:"model" validate:"max=100"`
	Year         int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`

	StartAt    string `json:"startAt" validate:"required"`
	EndAt      string `json:"endAt" validate:"required"`
	DurationMs int64  `json:"durationMs" validate:"required,gt=0,lte=31622400000"`
	PricePence int64  `json:"pricePence" validate:"required,gt=0"`
	Currency   string `json:"currency" validate:"omitempty,len=3"`

	FirstName    string `json:"firstName" validate:"max=100"`
	LastName     string `json:"lastName" validate:"max=100"`
	DateOfBirth  string `json:"dob" validate:"max=10"`
	Email        string `json:"email" validate:"required,max=320,email"`
	LicenceType  string `json:"licenceType" validate:"max=32"`
	AddressLine1 string `json:"addressLine1" validate:"max=200"`
	AddressLine2 string `json:"addressLine2" validate:"max=200"`
	City         string `json:"city" validate:"max=100"`
	Postcode     string `json:"postcode" validate:"max=10"`

	PaymentProvider PaymentProvider `json:"paymentProvider" validate:"required"`
	PaymentID       string          `json:"paymentId" validate:"required,max=255"`
	PaymentStatus   string          `json:"paymentStatus" validate:"max=32"`
}

// Validate checks presence, numeric sanity, column lengths, window ordering,
// that the quoted duration matches the window and that the email is well
// formed. Anything it accepts fits the policies table.
func (in FinalizeInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return shared.NewValidationError(describeFieldError(verrs[0]))
		}
		return shared.NewValidationError(err.Error())
	}

	if _, err := vehicle.NormalizeRegistration(in.Registration); err != nil {
		return err
	}
	if !in.PaymentProvider.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("unsupported payment provider %q", in.PaymentProvider))
	}

	startAt, err := in.ParsedStartAt()
	if err != nil {
		return shared.NewValidationError("startAt must be an RFC 3339 timestamp")
	}
	endAt, err := in.ParsedEndAt()
	if err != nil {
		return shared.NewValidationError("endAt must be an RFC 3339 timestamp")
	}

	if !endAt.After(startAt) {
		return shared.NewValidationError("endAt must be after startAt")
	}

	window := endAt.Sub(startAt)
	if window > MaxCoverDuration {
		return shared.NewValidationError("cover window is longer than " + MaxCoverDuration.String())
	}

	// Compared in milliseconds so a huge quote cannot wrap around.
	drift := window.Milliseconds() - in.DurationMs
	if drift < 0 {
		drift = -drift
	}
	if drift > DurationTolerance.Milliseconds() {
		return shared.NewValidationError(fmt.Sprintf(
			"duration mismatch: window is %s but quoted duration is %dms", window, in.DurationMs))
	}

	return nil
}

// ParsedStartAt parses StartAt
func (in FinalizeInput) ParsedStartAt() (time.Time, error) {
	return parseTimestamp(in.StartAt)
}

// ParsedEndAt parses EndAt
func (in FinalizeInput) ParsedEndAt() (time.Time, error) {
	return parseTimestamp(in.EndAt)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(s))
}

func describeFieldError(fe validator.FieldError) string {
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte", "lte":
		return field + " is out of range"
	case "len":
		return field + " must be " + fe.Param() + " characters"
	case "max":
		if fe.Kind() == reflect.String {
			return field + " must be at most " + fe.Param() + " characters"
		}
		return field + " is out of range"
	default:
		return field + " is invalid"
	}
}

// jsonFieldName maps a struct field to the key clients send
func jsonFieldName(field string) string {
	switch field {
	case "DateOfBirth":
		return "dob"
	case "PaymentID":
		return "paymentId"
	}
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
