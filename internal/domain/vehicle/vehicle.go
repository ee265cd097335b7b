// Package vehicle models the vehicle details shown during a quote.
package vehicle

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/tempcover/backend/internal/domain/shared"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var registrationPattern = regexp.MustCompile(`^[A-Z0-9]{2,8}$`)

// capitalisedMakes are marques branded in capitals
var capitalisedMakes = map[string]bool{
	"AC": true, "BMW": true, "BYD": true, "DAF": true, "DS": true,
	"GMC": true, "KTM": true, "LDV": true, "LEVC": true, "MAN": true,
	"MG": true, "MINI": true, "SEAT": true, "TVR": true,
}

// ErrVehicleNotFound is returned when the registry has no record of a registration
var ErrVehicleNotFound = shared.NewDomainError("NOT_FOUND", "Vehicle not found")

// ErrUpstream wraps failures talking to the vehicle registry
var ErrUpstream = errors.New("vehicle registry unavailable")

// Summary is the normalised vehicle shape returned to the quote flow
type Summary struct {
	Registration   string `json:"registration"`
	Make           string `json:"make"`
	Model          string `json:"model,omitempty"`
	Year           int    `json:"year,omitempty"`
	Colour         string `json:"colour,omitempty"`
	FuelType       string `json:"fuelType,omitempty"`
	EngineCapacity int    `json:"engineCapacity,omitempty"`
	TaxStatus      string `json:"taxStatus,omitempty"`
	MotStatus      string `json:"motStatus,omitempty"`
}

// Registry looks vehicles up by registration mark
type Registry interface {
	Lookup(ctx context.Context, registration string) (*Summary, error)
}

// Cache stores summaries between lookups
type Cache interface {
	Get(ctx context.Context, registration string) (*Summary, bool, error)
	Set(ctx context.Context, registration string, summary *Summary) error
}

// NormalizeRegistration upper-cases, strips whitespace and validates a
// UK registration mark
func NormalizeRegistration(raw string) (string, error) {
	reg := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if reg == "" {
		return "", shared.NewValidationError("registration is required")
	}
	if !registrationPattern.MatchString(reg) {
		return "", shared.NewValidationError("registration must be 2 to 8 letters or digits")
	}
	return reg, nil
}

// DisplayMake formats a registry make for people: "FORD" becomes "Ford",
// "LAND ROVER" becomes "Land Rover" and "BMW" stays "BMW".
func DisplayMake(raw string) string {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return ""
	}
	// Casers keep state and cannot be shared between goroutines.
	titler := cases.Title(language.BritishEnglish)
	for i, w := range words {
		upper := strings.ToUpper(w)
		if capitalisedMakes[upper] {
			words[i] = upper
			continue
		}
		words[i] = titler.String(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}
