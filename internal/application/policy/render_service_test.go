package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/printing"
)

// capturePrinter records the HTML it is asked to print
type capturePrinter struct {
	html string
	err  error
}

func (p *capturePrinter) RenderPDF(_ context.Context, html string) ([]byte, error) {
	p.html = html
	if p.err != nil {
		return nil, p.err
	}
	return fakePDF, nil
}

func (p *capturePrinter) Close() error { return nil }

func testDocumentData(t *testing.T) policy.DocumentData {
	t.Helper()
	p, err := policy.NewPolicy(validInput("cs_render"), "TC-RNDR2345")
	require.NoError(t, err)
	return policy.NewDocumentData(p)
}

func TestDocumentRenderService_Render(t *testing.T) {
	printer := &capturePrinter{}
	svc := NewDocumentRenderService(printing.NewTemplateSet(), printer, nil)

	pdf, err := svc.Render(context.Background(), policy.DocumentKindCertificate, testDocumentData(t))
	require.NoError(t, err)

	assert.Equal(t, fakePDF, pdf)
	assert.Contains(t, printer.html, "TC-RNDR2345")
	assert.Contains(t, printer.html, "AB12CDE")
}

func TestDocumentRenderService_UnknownKind(t *testing.T) {
	svc := NewDocumentRenderService(printing.NewTemplateSet(), &capturePrinter{}, nil)

	_, err := svc.Render(context.Background(), policy.DocumentKind("INVOICE"), testDocumentData(t))
	var re *printing.RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, printing.ErrCodeUnknownKind, re.Code)
}

func TestDocumentRenderService_PrinterFailure(t *testing.T) {
	svc := NewDocumentRenderService(printing.NewTemplateSet(), &capturePrinter{err: errors.New("tab crashed")}, nil)

	_, err := svc.Render(context.Background(), policy.DocumentKindProposal, testDocumentData(t))
	assert.EqualError(t, err, "tab crashed")
}
