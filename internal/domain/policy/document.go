package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tempcover/backend/internal/domain/shared"
)

// DocumentKind is the type of generated policy document
type DocumentKind string

const (
	DocumentKindCertificate DocumentKind = "CERTIFICATE"
	DocumentKindProposal    DocumentKind = "PROPOSAL"
)

// DocumentKinds lists every kind a fulfilled policy carries, in send order
func DocumentKinds() []DocumentKind {
	return []DocumentKind{DocumentKindCertificate, DocumentKindProposal}
}

// IsValid reports whether the kind is known
func (k DocumentKind) IsValid() bool {
	return k == DocumentKindCertificate || k == DocumentKindProposal
}

// Slug is the lower-case name used in paths and file names
func (k DocumentKind) Slug() string {
	return strings.ToLower(string(k))
}

// FileName is the attachment name shown to the customer
func (k DocumentKind) FileName(policyNumber string) string {
	switch k {
	case DocumentKindCertificate:
		return fmt.Sprintf("%s-certificate.pdf", policyNumber)
	case DocumentKindProposal:
		return fmt.Sprintf("%s-statement-of-fact.pdf", policyNumber)
	default:
		return fmt.Sprintf("%s-%s.pdf", policyNumber, k.Slug())
	}
}

// ParseDocumentKind accepts either the enum value or its slug
func ParseDocumentKind(s string) (DocumentKind, error) {
	k := DocumentKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", shared.NewValidationError(fmt.Sprintf("unknown document kind %q", s))
	}
	return k, nil
}

// DocumentStorageKey is the object key for a policy document.
// Keys are derived from the policy number so re-uploads overwrite in place.
func DocumentStorageKey(policyNumber string, kind DocumentKind) string {
	return fmt.Sprintf("policies/%s/%s.pdf", policyNumber, kind.Slug())
}

// PolicyDocument is a generated artifact stored for a policy
type PolicyDocument struct {
	ID          uuid.UUID
	PolicyID    uuid.UUID
	Kind        DocumentKind
	StorageKey  string
	URL         string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

// NewPolicyDocument creates a document row for an uploaded object
func NewPolicyDocument(policyID uuid.UUID, kind DocumentKind, storageKey, url string, size int64) (*PolicyDocument, error) {
	if policyID == uuid.Nil {
		return nil, shared.NewValidationError("policy ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("unknown document kind %q", kind))
	}
	if strings.TrimSpace(storageKey) == "" {
		return nil, shared.NewValidationError("storage key cannot be empty")
	}
	return &PolicyDocument{
		ID:          uuid.New(),
		PolicyID:    policyID,
		Kind:        kind,
		StorageKey:  storageKey,
		URL:         url,
		ContentType: "application/pdf",
		SizeBytes:   size,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// DocumentSet indexes a policy's documents by kind
type DocumentSet map[DocumentKind]*PolicyDocument

// NewDocumentSet indexes docs by kind, keeping the first of each
func NewDocumentSet(docs []PolicyDocument) DocumentSet {
	set := make(DocumentSet, len(docs))
	for i := range docs {
		if _, ok := set[docs[i].Kind]; !ok {
			set[docs[i].Kind] = &docs[i]
		}
	}
	return set
}

// Missing returns the kinds that have no document yet
func (s DocumentSet) Missing() []DocumentKind {
	var missing []DocumentKind
	for _, k := range DocumentKinds() {
		if _, ok := s[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// Complete reports whether every kind is present
func (s DocumentSet) Complete() bool {
	return len(s.Missing()) == 0
}
