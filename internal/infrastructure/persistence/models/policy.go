package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tempcover/backend/internal/domain/policy"
	"gorm.io/datatypes"
)

// PolicyModel is the persistence model for the Policy aggregate
type PolicyModel struct {
	BaseModel
	PolicyNumber        string                 `gorm:"type:varchar(32);not null;uniqueIndex:uq_policies_policy_number"`
	VehicleRegistration string                 `gorm:"type:varchar(16);not null"`
	VehicleMake         string                 `gorm:"type:varchar(100)"`
	VehicleModel        string                 `gorm:"type:varchar(100)"`
	VehicleYear         *int                   `gorm:"type:integer"`
	StartAt             time.Time              `gorm:"not null"`
	EndAt               time.Time              `gorm:"not null"`
	DurationMs          int64                  `gorm:"type:bigint;not null"`
	PricePence          int64                  `gorm:"type:bigint;not null"`
	Currency            string                 `gorm:"type:varchar(3);not null;default:'GBP'"`
	FirstName           string                 `gorm:"type:varchar(100)"`
	LastName            string                 `gorm:"type:varchar(100)"`
	DateOfBirth         string                 `gorm:"column:date_of_birth;type:varchar(10)"`
	Email               string                 `gorm:"type:varchar(320);not null"`
	LicenceType         string                 `gorm:"type:varchar(32)"`
	AddressLine1        string                 `gorm:"column:address_line1;type:varchar(200)"`
	AddressLine2        string                 `gorm:"column:address_line2;type:varchar(200)"`
	City                string                 `gorm:"type:varchar(100)"`
	Postcode            string                 `gorm:"type:varchar(10)"`
	PaymentProvider     policy.PaymentProvider `gorm:"type:varchar(16);not null;uniqueIndex:uq_policies_payment,priority:1"`
	PaymentID           string                 `gorm:"type:varchar(255);not null;uniqueIndex:uq_policies_payment,priority:2"`
	PaymentStatus       string                 `gorm:"type:varchar(32)"`
}

// TableName returns the table name for GORM
func (PolicyModel) TableName() string {
	return "policies"
}

// ToDomain converts the persistence model to a domain Policy
func (m *PolicyModel) ToDomain() *policy.Policy {
	year := 0
	if m.VehicleYear != nil {
		year = *m.VehicleYear
	}
	return &policy.Policy{
		BaseEntity:   m.BaseModel.ToDomain(),
		PolicyNumber: m.PolicyNumber,
		Vehicle: policy.Vehicle{
			Registration: m.VehicleRegistration,
			Make:         m.VehicleMake,
			Model:        m.VehicleModel,
			Year:         year,
		},
		StartAt:    m.StartAt.UTC(),
		EndAt:      m.EndAt.UTC(),
		DurationMs: m.DurationMs,
		PricePence: m.PricePence,
		Currency:   m.Currency,
		Customer: policy.Customer{
			FirstName:    m.FirstName,
			LastName:     m.LastName,
			DateOfBirth:  m.DateOfBirth,
			Email:        m.Email,
			LicenceType:  m.LicenceType,
			AddressLine1: m.AddressLine1,
			AddressLine2: m.AddressLine2,
			City:         m.City,
			Postcode:     m.Postcode,
		},
		Payment: policy.Payment{
			Provider: m.PaymentProvider,
			ID:       m.PaymentID,
			Status:   m.PaymentStatus,
		},
	}
}

// PolicyModelFromDomain creates a persistence model from a domain Policy
func PolicyModelFromDomain(p *policy.Policy) *PolicyModel {
	m := &PolicyModel{
		PolicyNumber:        p.PolicyNumber,
		VehicleRegistration: p.Vehicle.Registration,
		VehicleMake:         p.Vehicle.Make,
		VehicleModel:        p.Vehicle.Model,
		StartAt:             p.StartAt,
		EndAt:               p.EndAt,
		DurationMs:          p.DurationMs,
		PricePence:          p.PricePence,
		Currency:            p.Currency,
		FirstName:           p.Customer.FirstName,
		LastName:            p.Customer.LastName,
		DateOfBirth:         p.Customer.DateOfBirth,
		Email:               p.Customer.Email,
		LicenceType:         p.Customer.LicenceType,
		AddressLine1:        p.Customer.AddressLine1,
		AddressLine2:        p.Customer.AddressLine2,
		City:                p.Customer.City,
		Postcode:            p.Customer.Postcode,
		PaymentProvider:     p.Payment.Provider,
		PaymentID:           p.Payment.ID,
		PaymentStatus:       p.Payment.Status,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	if p.Vehicle.Year != 0 {
		year := p.Vehicle.Year
		m.VehicleYear = &year
	}
	return m
}

// PolicyDocumentModel is the persistence model for a generated document
type PolicyDocumentModel struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	PolicyID    uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:uq_policy_documents_kind,priority:1"`
	Kind        policy.DocumentKind `gorm:"type:varchar(16);not null;uniqueIndex:uq_policy_documents_kind,priority:2"`
	StorageKey  string              `gorm:"type:varchar(500);not null"`
	URL         *string             `gorm:"column:url;type:varchar(1000)"`
	ContentType string              `gorm:"type:varchar(100);not null"`
	SizeBytes   int64               `gorm:"type:bigint;not null;default:0"`
	CreatedAt   time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PolicyDocumentModel) TableName() string {
	return "policy_documents"
}

// ToDomain converts the persistence model to a domain PolicyDocument
func (m *PolicyDocumentModel) ToDomain() policy.PolicyDocument {
	url := ""
	if m.URL != nil {
		url = *m.URL
	}
	return policy.PolicyDocument{
		ID:          m.ID,
		PolicyID:    m.PolicyID,
		Kind:        m.Kind,
		StorageKey:  m.StorageKey,
		URL:         url,
		ContentType: m.ContentType,
		SizeBytes:   m.SizeBytes,
		CreatedAt:   m.CreatedAt,
	}
}

// PolicyDocumentModelFromDomain creates a persistence model from a domain PolicyDocument
func PolicyDocumentModelFromDomain(d *policy.PolicyDocument) *PolicyDocumentModel {
	m := &PolicyDocumentModel{
		ID:          d.ID,
		PolicyID:    d.PolicyID,
		Kind:        d.Kind,
		StorageKey:  d.StorageKey,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		CreatedAt:   d.CreatedAt,
	}
	if d.URL != "" {
		url := d.URL
		m.URL = &url
	}
	return m
}

// PolicyEventModel is the persistence model for an audit event
type PolicyEventModel struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	PolicyID  uuid.UUID        `gorm:"type:uuid;not null;index:idx_policy_events_policy_type,priority:1"`
	Type      policy.EventType `gorm:"type:varchar(32);not null;index:idx_policy_events_policy_type,priority:2"`
	Payload   datatypes.JSON   `gorm:"type:jsonb;not null"`
	CreatedAt time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PolicyEventModel) TableName() string {
	return "policy_events"
}

// PolicyEventModelFromDomain creates a persistence model from a domain PolicyEvent
func PolicyEventModelFromDomain(e *policy.PolicyEvent) *PolicyEventModel {
	payload := datatypes.JSON(e.Payload)
	if len(payload) == 0 {
		payload = datatypes.JSON(`{}`)
	}
	return &PolicyEventModel{
		ID:        e.ID,
		PolicyID:  e.PolicyID,
		Type:      e.Type,
		Payload:   payload,
		CreatedAt: e.CreatedAt,
	}
}

// AllModels lists every model in migration order
func AllModels() []any {
	return []any{
		&PolicyModel{},
		&PolicyDocumentModel{},
		&PolicyEventModel{},
	}
}
