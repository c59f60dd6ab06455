package freshdesk

import (
	"fmt"
	"strconv"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
)

// priorityNames maps Freshdesk's integer priority to spec.md §4.1's
// neutral strings.
var priorityNames = map[int]platform.TicketPriority{
	1: platform.PriorityLow,
	2: platform.PriorityMedium,
	3: platform.PriorityHigh,
	4: platform.PriorityUrgent,
}

// statusNames maps Freshdesk's integer ticket status to spec.md §4.1's
// neutral strings.
var statusNames = map[int]platform.TicketStatus{
	2: platform.StatusOpen,
	3: platform.StatusPending,
	4: platform.StatusResolved,
	5: platform.StatusClosed,
}

// articleStatusNames maps Freshdesk's integer KB article status.
var articleStatusNames = map[int]platform.ArticleStatus{
	1: platform.ArticleDraft,
	2: platform.ArticlePublished,
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func timeField(m map[string]interface{}, key string) time.Time {
	s := stringField(m, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func ticketToRecord(raw map[string]interface{}) platform.Record {
	priority := priorityNames[intField(raw, "priority")]
	status := statusNames[intField(raw, "status")]

	return platform.Record{
		OriginalID:   stringField(raw, "id"),
		ObjectType:   platform.ObjectTypeTicket,
		Content:      stringField(raw, "description_text"),
		OriginalData: raw,
		Metadata: map[string]interface{}{
			"subject":       stringField(raw, "subject"),
			"priority":      string(priority),
			"status":        string(status),
			"requester_id":  stringField(raw, "requester_id"),
			"group_id":      stringField(raw, "group_id"),
			"responder_id":  stringField(raw, "responder_id"),
			"attachments":   len(sliceField(raw, "attachments")),
		},
		CreatedAt: timeField(raw, "created_at"),
		UpdatedAt: timeField(raw, "updated_at"),
	}
}

func conversationToRecord(ticketOriginalID string, raw map[string]interface{}) platform.Record {
	return platform.Record{
		OriginalID:   stringField(raw, "id"),
		ObjectType:   platform.ObjectTypeConversation,
		Content:      stringField(raw, "body_text"),
		OriginalData: raw,
		Metadata: map[string]interface{}{
			"parent_type": string(platform.ObjectTypeTicket),
			"parent_id":   ticketOriginalID,
			"private":     raw["private"],
			"incoming":    raw["incoming"],
		},
		CreatedAt: timeField(raw, "created_at"),
		UpdatedAt: timeField(raw, "updated_at"),
	}
}

func articleToRecord(raw map[string]interface{}, categoryID, folderID string) platform.Record {
	status := articleStatusNames[intField(raw, "status")]

	return platform.Record{
		OriginalID:   stringField(raw, "id"),
		ObjectType:   platform.ObjectTypeArticle,
		Content:      stringField(raw, "description_text"),
		OriginalData: raw,
		Metadata: map[string]interface{}{
			"title":       stringField(raw, "title"),
			"status":      string(status),
			"category_id": categoryID,
			"folder_id":   folderID,
		},
		CreatedAt: timeField(raw, "created_at"),
		UpdatedAt: timeField(raw, "updated_at"),
	}
}

func sliceField(m map[string]interface{}, key string) []interface{} {
	if v, ok := m[key].([]interface{}); ok {
		return v
	}
	return nil
}

// attachmentsFromPayload extracts the "attachments" array from a ticket or
// conversation JSON payload into neutral Attachment records, recording
// whether the attachment hangs off the ticket directly or one of its
// conversations, per spec.md §4.2's parent-matching contract for
// get_attachments_for_ticket.
func attachmentsFromPayload(payload map[string]interface{}, parentType platform.ObjectType, parentID, conversationID string) []platform.Attachment {
	raw := sliceField(payload, "attachments")
	if raw == nil {
		return nil
	}

	attachments := make([]platform.Attachment, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		attachments = append(attachments, platform.Attachment{
			OriginalID:     stringField(m, "id"),
			Name:           stringField(m, "name"),
			ContentType:    stringField(m, "content_type"),
			Size:           int64(intField(m, "size")),
			URL:            stringField(m, "attachment_url"),
			ParentType:     parentType,
			ParentID:       parentID,
			ConversationID: conversationID,
			CreatedAt:      timeField(m, "created_at"),
			UpdatedAt:      timeField(m, "updated_at"),
		})
	}
	return attachments
}
