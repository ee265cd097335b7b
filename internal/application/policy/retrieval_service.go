package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/domain/shared"
	"github.com/tempcover/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultRetrievalLinkExpiry is the lifetime of a certificate link handed to a browser
const DefaultRetrievalLinkExpiry = 15 * time.Minute

// DefaultResendTimeout bounds one background resend
const DefaultResendTimeout = 2 * time.Minute

// RetrievalResult is a short-lived certificate link
type RetrievalResult struct {
	PolicyNumber   string    `json:"policyNumber"`
	CertificateURL string    `json:"certificateUrl"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// RetrievalService lets a customer fetch or re-send their documents by
// proving they know the policy number and the email it was bought with
type RetrievalService struct {
	policies        policy.PolicyRepository
	documents       policy.DocumentRepository
	events          policy.EventRepository
	store           DocumentStore
	mailer          DocumentMailer
	fulfiller       Fulfiller
	linkExpiry      time.Duration
	emailLinkExpiry time.Duration
	resendTimeout   time.Duration
	metrics         *telemetry.PolicyMetrics
	logger          *zap.Logger

	pending sync.WaitGroup
}

// RetrievalServiceConfig contains dependencies for RetrievalService
type RetrievalServiceConfig struct {
	Policies  policy.PolicyRepository
	Documents policy.DocumentRepository
	Events    policy.EventRepository
	Store     DocumentStore
	Mailer    DocumentMailer
	// Fulfiller completes policies whose documents were never produced
	Fulfiller       Fulfiller
	LinkExpiry      time.Duration
	EmailLinkExpiry time.Duration
	ResendTimeout   time.Duration
	Metrics         *telemetry.PolicyMetrics
	Logger          *zap.Logger
}

// NewRetrievalService creates a new RetrievalService
func NewRetrievalService(cfg RetrievalServiceConfig) *RetrievalService {
	s := &RetrievalService{
		policies:        cfg.Policies,
		documents:       cfg.Documents,
		events:          cfg.Events,
		store:           cfg.Store,
		mailer:          cfg.Mailer,
		fulfiller:       cfg.Fulfiller,
		linkExpiry:      cfg.LinkExpiry,
		emailLinkExpiry: cfg.EmailLinkExpiry,
		resendTimeout:   cfg.ResendTimeout,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
	}
	if s.linkExpiry <= 0 {
		s.linkExpiry = DefaultRetrievalLinkExpiry
	}
	if s.emailLinkExpiry <= 0 {
		s.emailLinkExpiry = DefaultEmailLinkExpiry
	}
	if s.resendTimeout <= 0 {
		s.resendTimeout = DefaultResendTimeout
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// match loads the policy only if number and email both agree.
// Every mismatch collapses into policy.ErrNoMatchingPolicy.
func (s *RetrievalService) match(ctx context.Context, policyNumber, email string) (*policy.Policy, error) {
	number := policy.NormalizePolicyNumber(policyNumber)
	if number == "" {
		return nil, policy.ErrNoMatchingPolicy
	}
	p, err := s.policies.FindByPolicyNumber(ctx, number)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, policy.ErrNoMatchingPolicy
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up policy: %w", err)
	}
	if !p.MatchesEmail(email) {
		return nil, policy.ErrNoMatchingPolicy
	}
	return p, nil
}

// Retrieve returns a presigned certificate URL for a matching policy
func (s *RetrievalService) Retrieve(ctx context.Context, policyNumber, email string) (*RetrievalResult, error) {
	p, err := s.match(ctx, policyNumber, email)
	if err != nil {
		return nil, err
	}

	docs, err := s.documents.FindByPolicyID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	cert, ok := policy.NewDocumentSet(docs)[policy.DocumentKindCertificate]
	if !ok {
		s.logger.Info("Retrieval for policy without certificate", zap.String("policy_number", p.PolicyNumber))
		return nil, policy.ErrNoMatchingPolicy
	}

	url, expiresAt, err := s.store.PresignGet(ctx, cert.StorageKey, s.linkExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign certificate: %w", err)
	}
	return &RetrievalResult{
		PolicyNumber:   p.PolicyNumber,
		CertificateURL: url,
		ExpiresAt:      expiresAt,
	}, nil
}

// Resend emails the documents again for a matching policy. A non-matching
// request returns nil so callers answer every request identically. Delivery
// runs in the background, so a match returns as quickly as a miss.
func (s *RetrievalService) Resend(ctx context.Context, policyNumber, email string) error {
	p, err := s.match(ctx, policyNumber, email)
	if errors.Is(err, policy.ErrNoMatchingPolicy) {
		return nil
	}
	if err != nil {
		return err
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.resendTimeout)
		defer cancel()

		if err := s.deliverResend(bg, p); err != nil {
			s.logger.Error("Resend failed",
				zap.String("policy_number", p.PolicyNumber),
				zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every background resend has finished
func (s *RetrievalService) Wait() {
	s.pending.Wait()
}

func (s *RetrievalService) deliverResend(ctx context.Context, p *policy.Policy) error {
	docs, err := s.documents.FindByPolicyID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	set := policy.NewDocumentSet(docs)

	if !set.Complete() && s.fulfiller != nil {
		res, err := s.fulfiller.Fulfill(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("failed to complete fulfillment: %w", err)
		}
		if res.EmailSent {
			return nil
		}
		if docs, err = s.documents.FindByPolicyID(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to reload documents: %w", err)
		}
		set = policy.NewDocumentSet(docs)
	}
	if len(set) == 0 {
		return fmt.Errorf("policy %s has no documents to send", p.PolicyNumber)
	}

	links, err := documentLinks(ctx, s.store, set, s.emailLinkExpiry)
	if err != nil {
		return err
	}
	messageID, err := s.mailer.SendDocuments(ctx, documentsEmail(p, links, s.emailLinkExpiry, true))
	if err != nil {
		return fmt.Errorf("failed to resend documents email: %w", err)
	}
	s.metrics.RecordEmail(ctx, "resend")

	event, err := policy.NewPolicyEvent(p.ID, policy.EventEmailResent, map[string]any{
		"to":        p.Customer.Email,
		"messageId": messageID,
	})
	if err != nil {
		return err
	}
	if err := s.events.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to record EMAIL_RESENT: %w", err)
	}

	s.logger.Info("Documents resent", zap.String("policy_number", p.PolicyNumber))
	return nil
}
