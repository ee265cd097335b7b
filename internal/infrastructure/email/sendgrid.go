// Package email sends policy documents to customers through SendGrid.
package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/tempcover/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// maxAttachmentBytes caps each downloaded attachment
const maxAttachmentBytes = 10 << 20

// RemoteAttachment is a file the sender downloads and attaches
type RemoteAttachment struct {
	FileName    string
	URL         string
	ContentType string
}

// DocumentsEmail is the policy documents message
type DocumentsEmail struct {
	To           string
	Name         string
	PolicyNumber string
	Registration string
	StartAt      time.Time
	EndAt        time.Time
	// Attachments are also linked from the body
	Attachments []RemoteAttachment
	LinkExpiry  time.Duration
	Resend      bool
}

// mailClient is the part of *sendgrid.Client the sender uses
type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers documents emails
type SendGridSender struct {
	cfg        config.EmailConfig
	client     mailClient
	httpClient *http.Client
	siteURL    string
	logger     *zap.Logger
}

// Option configures a SendGridSender
type Option func(*SendGridSender)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *SendGridSender) {
		s.logger = logger
	}
}

// WithHTTPClient sets the client used to download attachments
func WithHTTPClient(c *http.Client) Option {
	return func(s *SendGridSender) {
		s.httpClient = c
	}
}

// WithSiteURL links the public site's retrieval page from every email
func WithSiteURL(siteURL string) Option {
	return func(s *SendGridSender) {
		s.siteURL = siteURL
	}
}

func withMailClient(c mailClient) Option {
	return func(s *SendGridSender) {
		s.client = c
	}
}

// NewSendGridSender creates a sender. Configuration is checked on each send
// so the service can boot without email credentials.
func NewSendGridSender(cfg config.EmailConfig, opts ...Option) *SendGridSender {
	s := &SendGridSender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     zap.NewNop(),
	}
	if cfg.SendGridAPIKey != "" {
		s.client = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendDocuments sends the documents email and returns SendGrid's message id
func (s *SendGridSender) SendDocuments(ctx context.Context, msg DocumentsEmail) (string, error) {
	if err := s.cfg.Require(); err != nil {
		return "", err
	}
	if s.client == nil {
		return "", fmt.Errorf("email client not initialised")
	}
	if strings.TrimSpace(msg.To) == "" {
		return "", fmt.Errorf("email recipient is required")
	}

	subject, text, html, err := renderDocumentsEmail(msg, s.siteURL)
	if err != nil {
		return "", err
	}

	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromAddress)
	to := mail.NewEmail(msg.Name, msg.To)
	m := mail.NewSingleEmail(from, subject, to, text, html)
	if s.cfg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail(s.cfg.FromName, s.cfg.ReplyTo))
	}
	if s.cfg.SandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		m.MailSettings = ms
	}

	for _, att := range msg.Attachments {
		a, err := s.fetchAttachment(ctx, att)
		if err != nil {
			return "", err
		}
		m.AddAttachment(a)
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return "", fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, truncate(resp.Body, 200))
	}

	messageID := headerValue(resp.Headers, "X-Message-Id")
	s.logger.Info("Documents email accepted",
		zap.String("policy_number", msg.PolicyNumber),
		zap.String("message_id", messageID),
		zap.Bool("resend", msg.Resend),
		zap.Bool("sandbox", s.cfg.SandboxMode))
	return messageID, nil
}

func (s *SendGridSender) fetchAttachment(ctx context.Context, att RemoteAttachment) (*mail.Attachment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("attachment %s: %w", att.FileName, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download attachment %s: %w", att.FileName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download attachment %s: status %d", att.FileName, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment %s: %w", att.FileName, err)
	}
	if len(data) > maxAttachmentBytes {
		return nil, fmt.Errorf("attachment %s exceeds %d bytes", att.FileName, maxAttachmentBytes)
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	a := mail.NewAttachment()
	a.SetContent(base64.StdEncoding.EncodeToString(data))
	a.SetType(contentType)
	a.SetFilename(att.FileName)
	a.SetDisposition("attachment")
	return a, nil
}

func headerValue(headers map[string][]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
