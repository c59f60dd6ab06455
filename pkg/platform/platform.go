// Package platform defines the neutral contract every upstream help-desk
// integration implements. The Platform Adapter is the only component that
// talks to an upstream API; everything downstream consumes its neutral
// output, so priority/status/KB-status enums and attachment/conversation
// shapes are collapsed into the types below at the adapter boundary.
package platform

import (
	"context"
	"time"
)

// ObjectType mirrors the ent integratedobject.ObjectType enum, duplicated
// here so this package has no dependency on generated Ent code.
type ObjectType string

const (
	ObjectTypeTicket       ObjectType = "ticket"
	ObjectTypeConversation ObjectType = "conversation"
	ObjectTypeArticle      ObjectType = "article"
	ObjectTypeAttachment   ObjectType = "attachment"
)

// TicketPriority is the neutral rendering of Freshdesk's integer priority.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// TicketStatus is the neutral rendering of Freshdesk's integer status.
type TicketStatus string

const (
	StatusOpen     TicketStatus = "open"
	StatusPending  TicketStatus = "pending"
	StatusResolved TicketStatus = "resolved"
	StatusClosed   TicketStatus = "closed"
)

// ArticleStatus is the neutral rendering of Freshdesk's KB article status.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
)

// Record is the neutral shape every adapter method returns: identity,
// normalized searchable content, and the original upstream payload
// preserved for replay/debugging.
type Record struct {
	OriginalID   string
	ObjectType   ObjectType
	Content      string
	OriginalData map[string]interface{}
	Metadata     map[string]interface{}
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Attachment is the neutral shape for a ticket/article attachment.
type Attachment struct {
	OriginalID     string
	Name           string
	ContentType    string
	Size           int64
	URL            string
	ParentType     ObjectType // ticket or article
	ParentID       string
	ConversationID string // set when the attachment hangs off a conversation, not the ticket itself
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Capability is the full set of operations a platform adapter must
// implement. A single concrete type (freshdesk.Adapter) satisfies it
// today; the interface exists so the Ingestion Engine and Job Manager
// never import a platform-specific package directly.
type Capability interface {
	// ListTicketsByUpdatedSince pages through tickets updated at or after
	// since (nil fetches everything), optionally bounded by until, and
	// sends each page to yield. yield returning an error stops pagination
	// and propagates the error.
	ListTicketsByUpdatedSince(ctx context.Context, since *time.Time, until *time.Time, yield func([]Record) error) error

	// GetTicket fetches a single ticket by its upstream id. Returns
	// (Record{}, false, nil) if the upstream reports 404.
	GetTicket(ctx context.Context, originalID string) (Record, bool, error)

	// ListConversations returns every conversation entry for a ticket.
	ListConversations(ctx context.Context, ticketOriginalID string) ([]Record, error)

	// ListAttachments returns every attachment for a ticket, across both
	// the ticket itself and its conversations.
	ListAttachments(ctx context.Context, ticketOriginalID string) ([]Attachment, error)

	// ListKB pages through every published knowledge-base article,
	// category/folder traversal included, sending each page to yield.
	ListKB(ctx context.Context, yield func([]Record) error) error
}
