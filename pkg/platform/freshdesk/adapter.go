// Package freshdesk implements platform.Capability for the Freshdesk
// help-desk API, grounded on the original project's
// backend/freshdesk/fetcher.py and backend/core/legacy/freshdesk_adapter.py.
package freshdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
)

// Adapter talks to one tenant's Freshdesk account. It is the only type in
// this module that issues HTTP requests to an upstream help-desk.
type Adapter struct {
	cfg        Config
	httpClient *http.Client
	tenantID   string

	// baseURLOverride replaces cfg.baseURL()'s result when set. Test-only.
	baseURLOverride string
}

// OverrideHTTPClientForTest replaces the adapter's HTTP client. For testing only.
func (a *Adapter) OverrideHTTPClientForTest(client *http.Client) {
	a.httpClient = client
}

// OverrideBaseURLForTest points the adapter at an arbitrary base URL
// instead of the real *.freshdesk.com host. For testing only.
func (a *Adapter) OverrideBaseURLForTest(baseURL string) {
	a.baseURLOverride = baseURL
}

// New builds an Adapter for tenantID using cfg. tenantID only labels
// metrics and logs; it plays no role in upstream authentication.
func New(tenantID string, cfg Config) *Adapter {
	base := http.DefaultTransport.(*http.Transport).Clone()
	return &Adapter{
		cfg:      cfg,
		tenantID: tenantID,
		httpClient: &http.Client{
			Transport: newPacingTransport(base, tenantID, cfg.MinRequestInterval),
			Timeout:   60 * time.Second,
		},
	}
}

var _ platform.Capability = (*Adapter)(nil)

func (a *Adapter) get(ctx context.Context, path string, query url.Values) (json.RawMessage, http.Header, error) {
	base := a.baseURLOverride
	if base == "" {
		var err error
		base, err = a.cfg.baseURL()
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.KindConfiguration, "freshdesk", "invalid domain", err)
		}
	}

	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.KindInternal, "freshdesk", "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.cfg.APIKey, "X")

	resp, err := retryingDo(ctx, a.httpClient, req, a.cfg.MaxRetries)
	if err != nil {
		if status, ok := StatusCode(err); ok && status == http.StatusNotFound {
			return nil, nil, apperrors.Wrap(apperrors.KindNotFound, "freshdesk", path, err)
		}
		return nil, nil, apperrors.Wrap(apperrors.KindExternalService, "freshdesk", "request failed after retries", err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.KindExternalService, "freshdesk", "invalid response body", err)
	}
	return raw, resp.Header, nil
}

// ListTicketsByUpdatedSince pages through /tickets in ascending updated_at
// order and yields each page of ticket records. Conversations and
// attachments are not fetched here; ListConversations and ListAttachments
// return them.
func (a *Adapter) ListTicketsByUpdatedSince(ctx context.Context, since, until *time.Time, yield func([]platform.Record) error) error {
	page := 1
	pageSize := a.cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	sinceValue := "2015-01-01T00:00:00Z"
	if since != nil {
		sinceValue = since.UTC().Format(time.RFC3339)
	}

	for {
		query := url.Values{
			"page":          {strconv.Itoa(page)},
			"per_page":      {strconv.Itoa(pageSize)},
			"order_type":    {"asc"},
			"order_by":      {"updated_at"},
			"updated_since": {sinceValue},
			"include":       {"description"},
		}

		raw, _, err := a.get(ctx, "/tickets", query)
		if err != nil {
			return err
		}

		var rawTickets []map[string]interface{}
		if err := json.Unmarshal(raw, &rawTickets); err != nil {
			return apperrors.Wrap(apperrors.KindExternalService, "freshdesk", "malformed tickets page", err)
		}
		if len(rawTickets) == 0 {
			return nil
		}

		records := make([]platform.Record, 0, len(rawTickets))
		for _, t := range rawTickets {
			record := ticketToRecord(t)
			if until != nil && record.UpdatedAt.After(*until) {
				continue
			}
			records = append(records, record)
		}

		if len(records) > 0 {
			if err := yield(records); err != nil {
				return err
			}
		}

		if len(rawTickets) < pageSize {
			return nil
		}
		page++
	}
}

// GetTicket fetches a single ticket, returning (zero, false, nil) on 404.
func (a *Adapter) GetTicket(ctx context.Context, originalID string) (platform.Record, bool, error) {
	raw, _, err := a.get(ctx, "/tickets/"+originalID, nil)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return platform.Record{}, false, nil
		}
		return platform.Record{}, false, err
	}

	var rawTicket map[string]interface{}
	if err := json.Unmarshal(raw, &rawTicket); err != nil {
		return platform.Record{}, false, apperrors.Wrap(apperrors.KindExternalService, "freshdesk", "malformed ticket", err)
	}
	return ticketToRecord(rawTicket), true, nil
}

// ListConversations returns every conversation entry for a ticket.
func (a *Adapter) ListConversations(ctx context.Context, ticketOriginalID string) ([]platform.Record, error) {
	raw, _, err := a.get(ctx, fmt.Sprintf("/tickets/%s/conversations", ticketOriginalID), nil)
	if err != nil {
		return nil, err
	}

	var rawConvs []map[string]interface{}
	if err := json.Unmarshal(raw, &rawConvs); err != nil {
		return nil, apperrors.Wrap(apperrors.KindExternalService, "freshdesk", "malformed conversations", err)
	}

	records := make([]platform.Record, 0, len(rawConvs))
	for _, c := range rawConvs {
		records = append(records, conversationToRecord(ticketOriginalID, c))
	}
	return records, nil
}

// ListAttachments returns every attachment for a ticket, across the ticket
// itself and each of its conversations, matching fetch_ticket_attachments's
// union behavior in the original fetcher.py.
func (a *Adapter) ListAttachments(ctx context.Context, ticketOriginalID string) ([]platform.Attachment, error) {
	raw, _, err := a.get(ctx, "/tickets/"+ticketOriginalID, nil)
	if err != nil {
		return nil, err
	}
	var ticket map[string]interface{}
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return nil, apperrors.Wrap(apperrors.KindExternalService, "freshdesk", "malformed ticket", err)
	}

	var attachments []platform.Attachment
	attachments = append(attachments, attachmentsFromPayload(ticket, platform.ObjectTypeTicket, ticketOriginalID, "")...)

	conversations, err := a.ListConversations(ctx, ticketOriginalID)
	if err != nil {
		return nil, err
	}
	for _, conv := range conversations {
		attachments = append(attachments, attachmentsFromPayload(conv.OriginalData, platform.ObjectTypeTicket, ticketOriginalID, conv.OriginalID)...)
	}

	return attachments, nil
}

// ListKB walks categories -> folders -> articles, yielding each folder's
// page of articles, mirroring fetch_kb_articles's traversal order in the
// original fetcher.py.
func (a *Adapter) ListKB(ctx context.Context, yield func([]platform.Record) error) error {
	raw, _, err := a.get(ctx, "/solutions/categories", nil)
	if err != nil {
		return err
	}
	var categories []map[string]interface{}
	if err := json.Unmarshal(raw, &categories); err != nil {
		return apperrors.Wrap(apperrors.KindExternalService, "freshdesk", "malformed categories", err)
	}

	for _, cat := range categories {
		catID := fmt.Sprintf("%v", cat["id"])

		rawFolders, _, err := a.get(ctx, fmt.Sprintf("/solutions/categories/%s/folders", catID), nil)
		if err != nil {
			return err
		}
		var folders []map[string]interface{}
		if err := json.Unmarshal(rawFolders, &folders); err != nil {
			return apperrors.Wrap(apperrors.KindExternalService, "freshdesk", "malformed folders", err)
		}

		for _, folder := range folders {
			folderID := fmt.Sprintf("%v", folder["id"])
			page := 1
			for {
				query := url.Values{"page": {strconv.Itoa(page)}, "per_page": {strconv.Itoa(a.cfg.PageSize)}}
				rawArticles, _, err := a.get(ctx, fmt.Sprintf("/solutions/folders/%s/articles", folderID), query)
				if err != nil {
					return err
				}
				var articles []map[string]interface{}
				if err := json.Unmarshal(rawArticles, &articles); err != nil {
					return apperrors.Wrap(apperrors.KindExternalService, "freshdesk", "malformed articles", err)
				}
				if len(articles) == 0 {
					break
				}

				records := make([]platform.Record, 0, len(articles))
				for _, art := range articles {
					if articleStatusNames[intField(art, "status")] != platform.ArticlePublished {
						continue
					}
					records = append(records, articleToRecord(art, catID, folderID))
				}
				if err := yield(records); err != nil {
					return err
				}

				if len(articles) < a.cfg.PageSize {
					break
				}
				page++
			}
		}
	}
	return nil
}
