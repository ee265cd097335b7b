package policy

import (
	"context"
	"fmt"

	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/printing"
	"github.com/tempcover/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DocumentRenderService turns DocumentData into a printed PDF. It backs the
// internal render endpoints.
type DocumentRenderService struct {
	templates *printing.TemplateSet
	printer   printing.PDFRenderer
	logger    *zap.Logger
}

// NewDocumentRenderService creates a new DocumentRenderService
func NewDocumentRenderService(templates *printing.TemplateSet, printer printing.PDFRenderer, logger *zap.Logger) *DocumentRenderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentRenderService{
		templates: templates,
		printer:   printer,
		logger:    logger,
	}
}

// Render fills the template for kind and prints it
func (s *DocumentRenderService) Render(ctx context.Context, kind policy.DocumentKind, data policy.DocumentData) (pdf []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, "document.render",
		attribute.String("document.kind", string(kind)),
		attribute.String("policy.number", data.PolicyNumber))
	defer func() { telemetry.EndSpan(span, err) }()

	if !kind.IsValid() {
		return nil, printing.NewRenderError(printing.ErrCodeUnknownKind,
			fmt.Sprintf("unknown document kind %q", kind), nil)
	}

	html, err := s.templates.Render(kind, data)
	if err != nil {
		return nil, err
	}
	telemetry.WithProfilingLabels(ctx, "render_pdf",
		map[string]string{telemetry.ProfilingLabelDocument: string(kind)},
		func(ctx context.Context) {
			pdf, err = s.printer.RenderPDF(ctx, html)
		})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Document rendered",
		zap.String("kind", string(kind)),
		zap.String("policy_number", data.PolicyNumber),
		zap.Int("bytes", len(pdf)))
	return pdf, nil
}
