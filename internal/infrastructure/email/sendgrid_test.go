package email

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempcover/backend/internal/infrastructure/config"
)

type fakeMailClient struct {
	sent   []*mail.SGMailV3
	status int
}

func (f *fakeMailClient) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, m)
	status := f.status
	if status == 0 {
		status = http.StatusAccepted
	}
	return &rest.Response{
		StatusCode: status,
		Body:       "",
		Headers:    map[string][]string{"X-Message-Id": {"msg-123"}},
	}, nil
}

func testEmailConfig() config.EmailConfig {
	return config.EmailConfig{
		SendGridAPIKey: "SG.test",
		FromAddress:    "policies@tempcover.example",
		FromName:       "TempCover",
		SandboxMode:    true,
	}
}

func newPDFServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.pdf") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testMessage(baseURL string) DocumentsEmail {
	return DocumentsEmail{
		To:           "sam@example.com",
		Name:         "Sam Taylor",
		PolicyNumber: "TC-ABCD2345",
		Registration: "AB12CDE",
		StartAt:      time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		EndAt:        time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
		LinkExpiry:   7 * 24 * time.Hour,
		Attachments: []RemoteAttachment{
			{FileName: "TC-ABCD2345-certificate.pdf", URL: baseURL + "/certificate.pdf"},
			{FileName: "TC-ABCD2345-statement-of-fact.pdf", URL: baseURL + "/proposal.pdf"},
		},
	}
}

func TestSendGridSender_SendDocuments(t *testing.T) {
	srv := newPDFServer(t)
	client := &fakeMailClient{}
	sender := NewSendGridSender(testEmailConfig(), withMailClient(client))

	id, err := sender.SendDocuments(context.Background(), testMessage(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)

	require.Len(t, client.sent, 1)
	m := client.sent[0]
	assert.Equal(t, "policies@tempcover.example", m.From.Address)
	assert.Contains(t, m.Subject, "TC-ABCD2345")
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "sam@example.com", m.Personalizations[0].To[0].Address)
	require.NotNil(t, m.MailSettings)
	require.NotNil(t, m.MailSettings.SandboxMode)
	assert.True(t, *m.MailSettings.SandboxMode.Enable)

	require.Len(t, m.Attachments, 2)
	content, err := base64.StdEncoding.DecodeString(m.Attachments[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-/certificate.pdf", string(content))
	assert.Equal(t, "application/pdf", m.Attachments[0].Type)
	assert.Equal(t, "TC-ABCD2345-statement-of-fact.pdf", m.Attachments[1].Filename)
}

func TestSendGridSender_Errors(t *testing.T) {
	srv := newPDFServer(t)

	t.Run("missing api key", func(t *testing.T) {
		cfg := testEmailConfig()
		cfg.SendGridAPIKey = ""
		_, err := NewSendGridSender(cfg).SendDocuments(context.Background(), testMessage(srv.URL))
		require.Error(t, err)
		assert.True(t, config.IsMissingEnv(err))
		assert.Equal(t, "missing env var TEMPCOVER_EMAIL_SENDGRID_API_KEY", err.Error())
	})

	t.Run("attachment download fails", func(t *testing.T) {
		client := &fakeMailClient{}
		sender := NewSendGridSender(testEmailConfig(), withMailClient(client))
		msg := testMessage(srv.URL)
		msg.Attachments[1].URL = srv.URL + "/missing.pdf"

		_, err := sender.SendDocuments(context.Background(), msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
		assert.Empty(t, client.sent)
	})

	t.Run("sendgrid rejects", func(t *testing.T) {
		client := &fakeMailClient{status: http.StatusBadRequest}
		sender := NewSendGridSender(testEmailConfig(), withMailClient(client))

		_, err := sender.SendDocuments(context.Background(), testMessage(srv.URL))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sendgrid returned 400")
	})
}

func TestRenderDocumentsEmail(t *testing.T) {
	msg := testMessage("https://files.test")

	subject, text, html, err := renderDocumentsEmail(msg, "https://tempcover.example/")
	require.NoError(t, err)
	assert.Equal(t, "Your temporary car insurance documents - TC-ABCD2345", subject)
	assert.Contains(t, text, "Hi Sam,")
	assert.Contains(t, text, "09:00 Sat 14 Mar 2026")
	assert.Contains(t, text, "expire in 7 days")
	assert.Contains(t, html, `href="https://files.test/certificate.pdf"`)
	assert.Contains(t, text, "from https://tempcover.example/retrieve")
	assert.Contains(t, html, `href="https://tempcover.example/retrieve"`)

	msg.Resend = true
	msg.Name = ""
	subject, text, _, err = renderDocumentsEmail(msg, "")
	require.NoError(t, err)
	assert.NotContains(t, text, "get your documents again")
	assert.Contains(t, subject, "resent")
	assert.Contains(t, text, "Hello,")
	assert.Contains(t, text, "here are your policy documents again")
}
