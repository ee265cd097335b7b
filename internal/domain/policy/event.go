package policy

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType tags an entry in a policy's audit log
type EventType string

const (
	EventPolicyCreated EventType = "POLICY_CREATED"
	EventDocsGenerated EventType = "DOCS_GENERATED"
	EventEmailSent     EventType = "EMAIL_SENT"
	EventEmailResent   EventType = "EMAIL_RESENT"
)

// PolicyEvent is an append-only audit record. The presence of an event also
// marks its side effect as done.
type PolicyEvent struct {
	ID        uuid.UUID
	PolicyID  uuid.UUID
	Type      EventType
	Payload   json.RawMessage
	CreatedAt time.Time
}

// NewPolicyEvent builds an event, marshalling payload to JSON.
// A nil payload is stored as an empty object.
func NewPolicyEvent(policyID uuid.UUID, eventType EventType, payload any) (*PolicyEvent, error) {
	raw := json.RawMessage(`{}`)
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &PolicyEvent{
		ID:        uuid.New(),
		PolicyID:  policyID,
		Type:      eventType,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}
