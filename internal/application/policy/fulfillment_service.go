package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/domain/shared"
	"github.com/tempcover/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultFulfillmentLockTTL bounds how long a crashed worker can block others
const DefaultFulfillmentLockTTL = 2 * time.Minute

// FulfillmentResult summarises a fulfillment run
type FulfillmentResult struct {
	PolicyID           uuid.UUID `json:"policyId"`
	PolicyNumber       string    `json:"policyNumber"`
	CertificateURL     string    `json:"certificateUrl"`
	ProposalURL        string    `json:"proposalUrl"`
	DocumentsGenerated bool      `json:"documentsGenerated"`
	EmailSent          bool      `json:"emailSent"`
}

// FulfillmentService renders, stores and emails a policy's documents.
// Every step checks persisted state first, so reruns only do missing work.
type FulfillmentService struct {
	policies        policy.PolicyRepository
	documents       policy.DocumentRepository
	events          policy.EventRepository
	renderer        DocumentRenderer
	store           DocumentStore
	mailer          DocumentMailer
	locks           shared.IdempotencyStore
	lockTTL         time.Duration
	emailLinkExpiry time.Duration
	metrics         *telemetry.PolicyMetrics
	logger          *zap.Logger
}

// FulfillmentServiceConfig contains dependencies for FulfillmentService
type FulfillmentServiceConfig struct {
	Policies        policy.PolicyRepository
	Documents       policy.DocumentRepository
	Events          policy.EventRepository
	Renderer        DocumentRenderer
	Store           DocumentStore
	Mailer          DocumentMailer
	Locks           shared.IdempotencyStore
	LockTTL         time.Duration
	EmailLinkExpiry time.Duration
	Metrics         *telemetry.PolicyMetrics
	Logger          *zap.Logger
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(cfg FulfillmentServiceConfig) *FulfillmentService {
	s := &FulfillmentService{
		policies:        cfg.Policies,
		documents:       cfg.Documents,
		events:          cfg.Events,
		renderer:        cfg.Renderer,
		store:           cfg.Store,
		mailer:          cfg.Mailer,
		locks:           cfg.Locks,
		lockTTL:         cfg.LockTTL,
		emailLinkExpiry: cfg.EmailLinkExpiry,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
	}
	if s.lockTTL <= 0 {
		s.lockTTL = DefaultFulfillmentLockTTL
	}
	if s.emailLinkExpiry <= 0 {
		s.emailLinkExpiry = DefaultEmailLinkExpiry
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func fulfillmentLockKey(policyID uuid.UUID) string {
	return "fulfill:" + policyID.String()
}

// Fulfill makes sure the policy has both documents and that the documents
// email went out once. A concurrent run for the same policy gets
// policy.ErrFulfillmentInProgress.
func (s *FulfillmentService) Fulfill(ctx context.Context, policyID uuid.UUID) (res *FulfillmentResult, err error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "policy.fulfill", attribute.String("policy.id", policyID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	lockKey := fulfillmentLockKey(policyID)
	lockToken, acquired, err := s.locks.Claim(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire fulfillment lock: %w", err)
	}
	if !acquired {
		s.metrics.RecordFulfillment(ctx, telemetry.OutcomeInProgress, time.Since(start))
		return nil, policy.ErrFulfillmentInProgress
	}
	defer func() {
		if rerr := s.locks.Release(context.WithoutCancel(ctx), lockKey, lockToken); rerr != nil {
			s.logger.Warn("Failed to release fulfillment lock",
				zap.String("policy_id", policyID.String()),
				zap.Error(rerr))
		}
		outcome := telemetry.OutcomeCompleted
		if err != nil {
			outcome = telemetry.OutcomeFailed
		}
		s.metrics.RecordFulfillment(ctx, outcome, time.Since(start))
	}()

	p, err := s.policies.FindByID(ctx, policyID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.FindByPolicyID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	set := policy.NewDocumentSet(docs)

	res = &FulfillmentResult{PolicyID: p.ID, PolicyNumber: p.PolicyNumber}

	if missing := set.Missing(); len(missing) > 0 {
		if set, err = s.generateDocuments(ctx, p, missing); err != nil {
			return nil, err
		}
		res.DocumentsGenerated = true
	}

	links, err := documentLinks(ctx, s.store, set, s.emailLinkExpiry)
	if err != nil {
		return nil, err
	}

	sent, err := s.events.Exists(ctx, p.ID, policy.EventEmailSent)
	if err != nil {
		return nil, fmt.Errorf("failed to check email state: %w", err)
	}
	if !sent {
		if err := s.sendDocuments(ctx, p, links); err != nil {
			return nil, err
		}
		res.EmailSent = true
	}

	res.CertificateURL = resultURL(set[policy.DocumentKindCertificate], links[policy.DocumentKindCertificate])
	res.ProposalURL = resultURL(set[policy.DocumentKindProposal], links[policy.DocumentKindProposal])

	s.logger.Info("Policy fulfilled",
		zap.String("policy_number", p.PolicyNumber),
		zap.Bool("documents_generated", res.DocumentsGenerated),
		zap.Bool("email_sent", res.EmailSent),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// generateDocuments renders and stores every missing kind, then reloads the
// document set so rows written by another worker are picked up
func (s *FulfillmentService) generateDocuments(ctx context.Context, p *policy.Policy, missing []policy.DocumentKind) (policy.DocumentSet, error) {
	data := policy.NewDocumentData(p)
	keys := make([]string, 0, len(missing))

	for _, kind := range missing {
		pdf, err := s.renderer.Render(ctx, kind, data)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", kind.Slug(), err)
		}

		key := policy.DocumentStorageKey(p.PolicyNumber, kind)
		if err := s.store.Put(ctx, key, pdf, "application/pdf"); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", kind.Slug(), err)
		}

		doc, err := policy.NewPolicyDocument(p.ID, kind, key, s.store.PublicURL(key), int64(len(pdf)))
		if err != nil {
			return nil, err
		}
		created, err := s.documents.CreateIfAbsent(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("failed to save %s document: %w", kind.Slug(), err)
		}
		if !created {
			s.logger.Info("Document already recorded, keeping existing row",
				zap.String("policy_number", p.PolicyNumber),
				zap.String("kind", string(kind)))
		}
		s.metrics.RecordDocument(ctx, string(kind))
		keys = append(keys, key)
	}

	event, err := policy.NewPolicyEvent(p.ID, policy.EventDocsGenerated, map[string]any{"keys": keys})
	if err != nil {
		return nil, err
	}
	if err := s.events.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record DOCS_GENERATED: %w", err)
	}

	docs, err := s.documents.FindByPolicyID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload documents: %w", err)
	}
	set := policy.NewDocumentSet(docs)
	if !set.Complete() {
		return nil, fmt.Errorf("documents still missing after generation: %v", set.Missing())
	}
	return set, nil
}

func (s *FulfillmentService) sendDocuments(ctx context.Context, p *policy.Policy, links map[policy.DocumentKind]string) error {
	messageID, err := s.mailer.SendDocuments(ctx, documentsEmail(p, links, s.emailLinkExpiry, false))
	if err != nil {
		return fmt.Errorf("failed to send documents email: %w", err)
	}
	s.metrics.RecordEmail(ctx, "initial")

	event, err := policy.NewPolicyEvent(p.ID, policy.EventEmailSent, map[string]any{
		"to":        p.Customer.Email,
		"messageId": messageID,
	})
	if err != nil {
		return err
	}
	if err := s.events.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to record EMAIL_SENT: %w", err)
	}
	return nil
}

// resultURL prefers the stored public URL over a presigned one
func resultURL(doc *policy.PolicyDocument, presigned string) string {
	if doc != nil && doc.URL != "" {
		return doc.URL
	}
	return presigned
}
