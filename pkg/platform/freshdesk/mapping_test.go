package freshdesk

import (
	"testing"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
	"github.com/stretchr/testify/assert"
)

func TestTicketToRecord_NormalizesEnums(t *testing.T) {
	raw := map[string]interface{}{
		"id":               float64(42),
		"priority":         float64(3),
		"status":           float64(4),
		"description_text": "cluster is on fire",
		"created_at":       "2026-01-01T00:00:00Z",
		"updated_at":       "2026-01-02T00:00:00Z",
	}

	record := ticketToRecord(raw)

	assert.Equal(t, "42", record.OriginalID)
	assert.Equal(t, platform.ObjectTypeTicket, record.ObjectType)
	assert.Equal(t, "high", record.Metadata["priority"])
	assert.Equal(t, "resolved", record.Metadata["status"])
	assert.Equal(t, "cluster is on fire", record.Content)
}

func TestArticleToRecord_NormalizesStatus(t *testing.T) {
	raw := map[string]interface{}{
		"id":     float64(7),
		"status": float64(2),
		"title":  "How to reset your password",
	}

	record := articleToRecord(raw, "10", "20")

	assert.Equal(t, platform.ObjectTypeArticle, record.ObjectType)
	assert.Equal(t, "published", record.Metadata["status"])
	assert.Equal(t, "10", record.Metadata["category_id"])
	assert.Equal(t, "20", record.Metadata["folder_id"])
}

func TestAttachmentsFromPayload_TracksConversationOrigin(t *testing.T) {
	payload := map[string]interface{}{
		"attachments": []interface{}{
			map[string]interface{}{"id": float64(1), "name": "log.txt", "size": float64(100)},
		},
	}

	fromTicket := attachmentsFromPayload(payload, platform.ObjectTypeTicket, "42", "")
	assert.Len(t, fromTicket, 1)
	assert.Empty(t, fromTicket[0].ConversationID)

	fromConversation := attachmentsFromPayload(payload, platform.ObjectTypeTicket, "42", "99")
	assert.Equal(t, "99", fromConversation[0].ConversationID)
}

func TestCompanyIDFromDomain(t *testing.T) {
	tests := map[string]string{
		"acme":                       "acme",
		"acme.freshdesk.com":         "acme",
		"https://acme.freshdesk.com": "acme",
	}
	for input, want := range tests {
		got, err := companyIDFromDomain(input)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := companyIDFromDomain("")
	assert.Error(t, err)
}
