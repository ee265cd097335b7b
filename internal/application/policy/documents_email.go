package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/email"
)

// DefaultEmailLinkExpiry is how long emailed document links stay valid
const DefaultEmailLinkExpiry = 7 * 24 * time.Hour

// documentLinks presigns a download URL for every document in set
func documentLinks(ctx context.Context, store DocumentStore, set policy.DocumentSet, expiry time.Duration) (map[policy.DocumentKind]string, error) {
	links := make(map[policy.DocumentKind]string, len(set))
	for _, kind := range policy.DocumentKinds() {
		doc, ok := set[kind]
		if !ok {
			continue
		}
		url, _, err := store.PresignGet(ctx, doc.StorageKey, expiry)
		if err != nil {
			return nil, fmt.Errorf("failed to presign %s: %w", kind.Slug(), err)
		}
		links[kind] = url
	}
	return links, nil
}

// documentsEmail builds the message carrying every linked document
func documentsEmail(p *policy.Policy, links map[policy.DocumentKind]string, expiry time.Duration, resend bool) email.DocumentsEmail {
	msg := email.DocumentsEmail{
		To:           p.Customer.Email,
		Name:         p.Customer.FullName(),
		PolicyNumber: p.PolicyNumber,
		Registration: p.Vehicle.Registration,
		StartAt:      p.StartAt,
		EndAt:        p.EndAt,
		LinkExpiry:   expiry,
		Resend:       resend,
	}
	for _, kind := range policy.DocumentKinds() {
		url, ok := links[kind]
		if !ok {
			continue
		}
		msg.Attachments = append(msg.Attachments, email.RemoteAttachment{
			FileName:    kind.FileName(p.PolicyNumber),
			URL:         url,
			ContentType: "application/pdf",
		})
	}
	return msg
}
