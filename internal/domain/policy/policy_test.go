package policy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	t.Run("normalises fields from input", func(t *testing.T) {
		p, err := NewPolicy(validInput(), "TC-ABCDEFGH")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, p.ID)
		assert.Equal(t, "TC-ABCDEFGH", p.PolicyNumber)
		assert.Equal(t, "AB12CDE", p.Vehicle.Registration)
		assert.Equal(t, "GBP", p.Currency)
		assert.Equal(t, "LS1 1AA", p.Customer.Postcode)
		assert.Equal(t, testStart, p.StartAt)
		assert.Equal(t, 24*time.Hour, p.Duration())
		assert.Equal(t, PaymentProviderStripe, p.Payment.Provider)
		assert.Equal(t, "Sam Taylor", p.Customer.FullName())
	})

	t.Run("defaults currency", func(t *testing.T) {
		in := validInput()
		in.Currency = ""
		p, err := NewPolicy(in, "TC-ABCDEFGH")
		require.NoError(t, err)
		assert.Equal(t, DefaultCurrency, p.Currency)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		in := validInput()
		in.Email = ""
		_, err := NewPolicy(in, "TC-ABCDEFGH")
		assert.Error(t, err)
	})

	t.Run("rejects empty policy number", func(t *testing.T) {
		_, err := NewPolicy(validInput(), " ")
		assert.Error(t, err)
	})
}

func TestPolicy_MatchesEmail(t *testing.T) {
	p, err := NewPolicy(validInput(), "TC-ABCDEFGH")
	require.NoError(t, err)

	assert.True(t, p.MatchesEmail("sam.taylor@example.com"))
	assert.True(t, p.MatchesEmail("  SAM.TAYLOR@EXAMPLE.COM "))
	assert.False(t, p.MatchesEmail("someone@example.com"))
	assert.False(t, p.MatchesEmail(""))
}

func TestPolicy_WithPolicyNumber(t *testing.T) {
	p, err := NewPolicy(validInput(), "TC-ABCDEFGH")
	require.NoError(t, err)

	q := p.WithPolicyNumber("TC-HGFEDCBA")
	assert.Equal(t, "TC-HGFEDCBA", q.PolicyNumber)
	assert.Equal(t, "TC-ABCDEFGH", p.PolicyNumber)
	assert.Equal(t, p.ID, q.ID)
}

func TestDocumentSet(t *testing.T) {
	policyID := uuid.New()

	t.Run("empty set misses both kinds", func(t *testing.T) {
		set := NewDocumentSet(nil)
		assert.Equal(t, DocumentKinds(), set.Missing())
		assert.False(t, set.Complete())
	})

	t.Run("complete when both kinds exist", func(t *testing.T) {
		set := NewDocumentSet([]PolicyDocument{
			{PolicyID: policyID, Kind: DocumentKindCertificate},
			{PolicyID: policyID, Kind: DocumentKindProposal},
		})
		assert.Empty(t, set.Missing())
		assert.True(t, set.Complete())
	})

	t.Run("reports the missing proposal", func(t *testing.T) {
		set := NewDocumentSet([]PolicyDocument{{PolicyID: policyID, Kind: DocumentKindCertificate}})
		assert.Equal(t, []DocumentKind{DocumentKindProposal}, set.Missing())
	})
}

func TestDocumentStorageKey(t *testing.T) {
	assert.Equal(t, "policies/TC-ABCDEFGH/certificate.pdf", DocumentStorageKey("TC-ABCDEFGH", DocumentKindCertificate))
	assert.Equal(t, "policies/TC-ABCDEFGH/proposal.pdf", DocumentStorageKey("TC-ABCDEFGH", DocumentKindProposal))
}

func TestParseDocumentKind(t *testing.T) {
	k, err := ParseDocumentKind("certificate")
	require.NoError(t, err)
	assert.Equal(t, DocumentKindCertificate, k)

	_, err = ParseDocumentKind("invoice")
	assert.Error(t, err)
}

func TestNewPolicyEvent(t *testing.T) {
	id := uuid.New()

	ev, err := NewPolicyEvent(id, EventEmailSent, map[string]string{"to": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, id, ev.PolicyID)
	assert.JSONEq(t, `{"to":"a@b.com"}`, string(ev.Payload))

	ev, err = NewPolicyEvent(id, EventDocsGenerated, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(ev.Payload))
}
