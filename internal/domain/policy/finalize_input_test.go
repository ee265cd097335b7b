package policy

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempcover/backend/internal/domain/shared"
)

func requireValidationError(t *testing.T, err error) *shared.DomainError {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %T", err)
	assert.Equal(t, "VALIDATION_ERROR", de.Code)
	return de
}

func TestFinalizeInput_Validate(t *testing.T) {
	t.Run("accepts a well formed input", func(t *testing.T) {
		assert.NoError(t, validInput().Validate())
	})

	t.Run("requires registration", func(t *testing.T) {
		in := validInput()
		in.Registration = ""
		de := requireValidationError(t, in.Validate())
		assert.Contains(t, de.Message, "registration")
	})

	t.Run("requires email", func(t *testing.T) {
		in := validInput()
		in.Email = ""
		de := requireValidationError(t, in.Validate())
		assert.Contains(t, de.Message, "email")
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		in := validInput()
		in.Email = "not-an-email"
		de := requireValidationError(t, in.Validate())
		assert.Contains(t, de.Message, "valid email")
	})

	t.Run("requires payment id", func(t *testing.T) {
		in := validInput()
		in.PaymentID = ""
		de := requireValidationError(t, in.Validate())
		assert.Contains(t, de.Message, "paymentId")
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		in := validInput()
		in.PaymentProvider = "PAYPAL"
		requireValidationError(t, in.Validate())
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		in := validInput()
		in.PricePence = -5
		de := requireValidationError(t, in.Validate())
		assert.Contains(t, de.Message, "pricePence")
	})

	t.Run("rejects unparseable timestamps", func(t *testing.T) {
		in := validInput()
		in.StartAt = "tomorrow"
		de := requireValidationError(t, in.Validate())
		assert.Contains(t, de.Message, "startAt")
	})

	t.Run("rejects implausible year", func(t *testing.T) {
		in := validInput()
		in.Year = 1066
		requireValidationError(t, in.Validate())
	})
}

func TestFinalizeInput_Validate_Ordering(t *testing.T) {
	cases := []struct {
		name string
		end  time.Time
	}{
		{"end equals start", testStart},
		{"end before start", testStart.Add(-time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			in.EndAt = tc.end.Format(time.RFC3339)
			in.DurationMs = time.Hour.Milliseconds()
			de := requireValidationError(t, in.Validate())
			assert.Contains(t, de.Message, "endAt must be after startAt")
		})
	}
}

func TestFinalizeInput_Validate_DurationTolerance(t *testing.T) {
	window := 3 * time.Hour
	cases := []struct {
		name    string
		quoted  time.Duration
		wantErr bool
	}{
		{"exact", window, false},
		{"five minutes short", window - 5*time.Minute, false},
		{"five minutes over", window + 5*time.Minute, false},
		{"just over five minutes short", window - 5*time.Minute - time.Second, true},
		{"just over five minutes over", window + 5*time.Minute + time.Second, true},
		{"an hour out", window + time.Hour, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			in.EndAt = testStart.Add(window).Format(time.RFC3339)
			in.DurationMs = tc.quoted.Milliseconds()
			err := in.Validate()
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			de := requireValidationError(t, err)
			assert.Contains(t, de.Message, "duration")
		})
	}
}

func TestFinalizeInput_Validate_HugeDurationDoesNotWrap(t *testing.T) {
	// 1<<58 ms wraps a nanosecond time.Duration back onto the 24h window.
	in := validInput()
	in.DurationMs = (24*time.Hour).Milliseconds() + 1<<58

	de := requireValidationError(t, in.Validate())
	assert.Contains(t, de.Message, "durationMs")
}

func TestFinalizeInput_Validate_WindowTooLong(t *testing.T) {
	in := validInput()
	window := MaxCoverDuration + 24*time.Hour
	in.EndAt = testStart.Add(window).Format(time.RFC3339)
	in.DurationMs = MaxCoverDuration.Milliseconds()

	de := requireValidationError(t, in.Validate())
	assert.Contains(t, de.Message, "cover window")
}

func TestFinalizeInput_Validate_FieldLengths(t *testing.T) {
	long := func(n int) string { return strings.Repeat("a", n) }

	tests := []struct {
		name    string
		mutate  func(in *FinalizeInput)
		message string
	}{
		{"registration too long", func(in *FinalizeInput) { in.Registration = long(200) }, "registration"},
		{"registration with punctuation", func(in *FinalizeInput) { in.Registration = "AB-12-CD" }, "registration"},
		{"postcode", func(in *FinalizeInput) { in.Postcode = long(60) }, "postcode must be at most 10 characters"},
		{"first name", func(in *FinalizeInput) { in.FirstName = long(101) }, "firstName must be at most 100 characters"},
		{"address", func(in *FinalizeInput) { in.AddressLine1 = long(201) }, "addressLine1 must be at most 200 characters"},
		{"make", func(in *FinalizeInput) { in.Make = long(101) }, "make must be at most 100 characters"},
		{"licence type", func(in *FinalizeInput) { in.LicenceType = long(33) }, "licenceType must be at most 32 characters"},
		{"date of birth", func(in *FinalizeInput) { in.DateOfBirth = long(11) }, "dob must be at most 10 characters"},
		{"payment id", func(in *FinalizeInput) { in.PaymentID = long(256) }, "paymentId must be at most 255 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			de := requireValidationError(t, in.Validate())
			assert.Contains(t, de.Message, tt.message)
		})
	}

	t.Run("values at the column width pass", func(t *testing.T) {
		in := validInput()
		in.Postcode = long(10)
		in.FirstName = long(100)
		in.AddressLine1 = long(200)
		in.PaymentID = long(255)
		assert.NoError(t, in.Validate())
	})
}
