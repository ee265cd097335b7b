package policy

import "time"

// DocumentData is the field set a PDF template needs. It is the JSON body of
// the internal render endpoints.
type DocumentData struct {
	PolicyNumber string    `json:"policyNumber" binding:"required"`
	IssuedAt     time.Time `json:"issuedAt"`

	Registration string `json:"registration" binding:"required"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`

	StartAt    time.Time `json:"startAt" binding:"required"`
	EndAt      time.Time `json:"endAt" binding:"required"`
	DurationMs int64     `json:"durationMs"`
	PricePence int64     `json:"pricePence"`
	Currency   string    `json:"currency"`

	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	DateOfBirth  string `json:"dob"`
	Email        string `json:"email"`
	LicenceType  string `json:"licenceType"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	Postcode     string `json:"postcode"`
}

// NewDocumentData copies the printable fields of a policy
func NewDocumentData(p *Policy) DocumentData {
	return DocumentData{
		PolicyNumber: p.PolicyNumber,
		IssuedAt:     p.CreatedAt,
		Registration: p.Vehicle.Registration,
		Make:         p.Vehicle.Make,
		Model:        p.Vehicle.Model,
		Year:         p.Vehicle.Year,
		StartAt:      p.StartAt,
		EndAt:        p.EndAt,
		DurationMs:   p.DurationMs,
		PricePence:   p.PricePence,
		Currency:     p.Currency,
		FirstName:    p.Customer.FirstName,
		LastName:     p.Customer.LastName,
		DateOfBirth:  p.Customer.DateOfBirth,
		Email:        p.Customer.Email,
		LicenceType:  p.Customer.LicenceType,
		AddressLine1: p.Customer.AddressLine1,
		AddressLine2: p.Customer.AddressLine2,
		City:         p.Customer.City,
		Postcode:     p.Customer.Postcode,
	}
}
