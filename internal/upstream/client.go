package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spec-kit/dialog-console/internal/config"
	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/pkg/errorutil"
)

// Client handles communication with the upstream ticket server. It owns no
// state beyond the connection; reconciliation lives in the session layer.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an upstream client.
func New(cfg config.UpstreamConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
	}
}

// DialogSummary holds the aggregate counters the list endpoint returns next
// to the dialogs.
type DialogSummary struct {
	Total    int `json:"total"`
	Unread   int `json:"unread"`
	Waiting  int `json:"waiting"`
	Resolved int `json:"resolved"`
}

// DialogList is the raw list response.
type DialogList struct {
	Dialogs []DialogPayload `json:"dialogs"`
	Summary DialogSummary   `json:"summary"`
}

// DialogPayload is one dialog on the wire. Timestamps arrive as strings and
// may be absent or unparseable; conversion tolerates both.
type DialogPayload struct {
	ID            string   `json:"id"`
	RequestNumber string   `json:"request_number"`
	ClientID      string   `json:"client_id"`
	ChannelID     string   `json:"channel_id"`
	BusinessTags  []string `json:"business_tags"`
	Problem       string   `json:"problem"`
	Location      string   `json:"location"`
	Categories    []string `json:"categories"`
	Status        string   `json:"status"`
	Responsible   *string  `json:"responsible"`
	CreatedAt     string   `json:"created_at"`
	LastMessageAt string   `json:"last_message_at"`
	UnreadCount   int      `json:"unread_count"`
	Rating        *int     `json:"rating"`
}

// Ticket converts the wire payload into the domain mirror. Duplicate
// categories are dropped; a missing or malformed creation timestamp yields a
// nil CreatedAt, which the classifier buckets as unknown.
func (p DialogPayload) Ticket() domain.Ticket {
	t := domain.Ticket{
		ID:            p.ID,
		RequestNumber: p.RequestNumber,
		ClientID:      p.ClientID,
		ChannelID:     p.ChannelID,
		BusinessTags:  p.BusinessTags,
		Problem:       p.Problem,
		Location:      p.Location,
		Categories:    dedupe(p.Categories),
		Status:        domain.TicketStatus(p.Status),
		Responsible:   p.Responsible,
		UnreadCount:   p.UnreadCount,
		Rating:        p.Rating,
	}
	if p.UnreadCount < 0 {
		t.UnreadCount = 0
	}
	if created, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		t.CreatedAt = &created
	}
	if last, err := time.Parse(time.RFC3339, p.LastMessageAt); err == nil {
		t.LastMessageAt = last
	}
	return t
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// TicketDetail is the legacy per-ticket detail response.
type TicketDetail struct {
	Dialog   DialogPayload    `json:"dialog"`
	Messages []DetailMessage  `json:"messages"`
	Client   map[string]any   `json:"client"`
	History  []map[string]any `json:"history"`
}

// DetailMessage is one history entry on the legacy path.
type DetailMessage struct {
	ID        string  `json:"id"`
	Author    string  `json:"author"`
	Body      string  `json:"body"`
	CreatedAt string  `json:"created_at"`
	ReplyTo   *string `json:"reply_to"`
}

// ListDialogs fetches the full dialog list.
func (c *Client) ListDialogs(ctx context.Context) (*DialogList, error) {
	var out DialogList
	if err := c.getJSON(ctx, "/api/dialogs", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TicketDetail fetches the legacy detail view for one dialog.
func (c *Client) TicketDetail(ctx context.Context, ticketID string) (*TicketDetail, error) {
	var out TicketDetail
	if err := c.getJSON(ctx, "/api/dialogs/"+url.PathEscape(ticketID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WorkspaceContract fetches the versioned enhanced payload. The caller
// validates version and shape; this only decodes and maps transport failures.
func (c *Client) WorkspaceContract(ctx context.Context, ticketID, channelID string) (*domain.WorkspaceContract, error) {
	path := "/api/workspace/" + url.PathEscape(ticketID)
	if channelID != "" {
		path += "?channel=" + url.QueryEscape(channelID)
	}
	var out domain.WorkspaceContract
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Take assigns the dialog to the calling operator.
func (c *Client) Take(ctx context.Context, ticketID string) error {
	return c.postJSON(ctx, "/api/dialogs/"+url.PathEscape(ticketID)+"/take", nil, nil)
}

// Snooze suppresses the dialog server-side for the given minutes.
func (c *Client) Snooze(ctx context.Context, ticketID string, minutes int) error {
	body := map[string]int{"minutes": minutes}
	return c.postJSON(ctx, "/api/dialogs/"+url.PathEscape(ticketID)+"/snooze", body, nil)
}

// Close resolves the dialog with the chosen categories.
func (c *Client) Close(ctx context.Context, ticketID string, categories []string) error {
	body := map[string]any{"categories": categories}
	return c.postJSON(ctx, "/api/dialogs/"+url.PathEscape(ticketID)+"/close", body, nil)
}

// Reopen reverts a resolved dialog to an active state.
func (c *Client) Reopen(ctx context.Context, ticketID string) error {
	return c.postJSON(ctx, "/api/dialogs/"+url.PathEscape(ticketID)+"/reopen", nil, nil)
}

// Reply posts an operator message, optionally targeting a prior message.
func (c *Client) Reply(ctx context.Context, ticketID, message string, replyTo *string) error {
	body := map[string]any{"message": message}
	if replyTo != nil {
		body["reply_to"] = *replyTo
	}
	return c.postJSON(ctx, "/api/dialogs/"+url.PathEscape(ticketID)+"/reply", body, nil)
}

// EditMessage rewrites a previously sent message.
func (c *Client) EditMessage(ctx context.Context, ticketID, messageID, body string) error {
	payload := map[string]string{"message_id": messageID, "body": body}
	return c.postJSON(ctx, "/api/dialogs/"+url.PathEscape(ticketID)+"/messages/edit", payload, nil)
}

// DeleteMessage removes a previously sent message.
func (c *Client) DeleteMessage(ctx context.Context, ticketID, messageID string) error {
	payload := map[string]string{"message_id": messageID}
	return c.postJSON(ctx, "/api/dialogs/"+url.PathEscape(ticketID)+"/messages/delete", payload, nil)
}

// UploadMedia streams an attachment to the dialog.
func (c *Client) UploadMedia(ctx context.Context, ticketID, fileName string, r io.Reader) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", fileName)
	if err != nil {
		return errorutil.NewInternalError(err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return errorutil.NewInternalError(err)
	}
	if err := writer.Close(); err != nil {
		return errorutil.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/dialogs/"+url.PathEscape(ticketID)+"/media", &buf)
	if err != nil {
		return errorutil.NewInternalError(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errorutil.NewTransport("network", err)
	}
	defer resp.Body.Close()
	return statusError(resp)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errorutil.NewInternalError(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errorutil.NewTransport("network", err)
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errorutil.NewInvalidPayload("body")
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errorutil.NewInternalError(err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return errorutil.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errorutil.NewTransport("network", err)
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errorutil.NewInvalidPayload("body")
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	reason := "http_" + strconv.Itoa(resp.StatusCode)
	return errorutil.NewTransport(reason, fmt.Errorf("upstream returned %s", resp.Status))
}
