package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"order-recon-go/internal/errs"
	"order-recon-go/internal/extractor"
)

// pageSize is the fixed search page size, kept at the provider's limit.
const pageSize = 500

// MessageMeta is the metadata-mode view of a message: just enough to decide
// whether the full body is worth fetching.
type MessageMeta struct {
	ID           string
	Subject      string
	InternalDate time.Time
}

// Client wraps the provider's message API for a single mailbox, authorized
// by the bearer token it was built with.
type Client struct {
	service *gmail.Service
	user    string
}

// NewClient builds a mailbox client for the "me" mailbox using the given
// bearer token. The token must already be valid; refresh is the
// TokenGuard's job.
func NewClient(ctx context.Context, accessToken string, opts ...option.ClientOption) (*Client, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	all := append([]option.ClientOption{option.WithTokenSource(source)}, opts...)
	service, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{service: service, user: "me"}, nil
}

// ListMessageIDs pages through the message-search endpoint and collects every
// matching message id. Cancellation is honored at page boundaries.
func (c *Client) ListMessageIDs(ctx context.Context, query string) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		call := c.service.Users.Messages.List(c.user).Q(query).MaxResults(pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		response, err := call.Context(ctx).Do()
		if err != nil {
			return nil, wrapProviderErr("list messages", err)
		}
		for _, msg := range response.Messages {
			if msg.Id != "" {
				ids = append(ids, msg.Id)
			}
		}
		if response.NextPageToken == "" {
			return ids, nil
		}
		pageToken = response.NextPageToken
	}
}

// GetMetadata fetches only the subject header and provider-internal timestamp.
func (c *Client) GetMetadata(ctx context.Context, messageID string) (*MessageMeta, error) {
	msg, err := c.service.Users.Messages.Get(c.user, messageID).
		Format("metadata").
		MetadataHeaders("Subject", "Date").
		Context(ctx).Do()
	if err != nil {
		return nil, wrapProviderErr("get message metadata", err)
	}

	meta := &MessageMeta{
		ID:           msg.Id,
		InternalDate: time.UnixMilli(msg.InternalDate).UTC(),
	}
	if msg.Payload != nil {
		meta.Subject = headerValue(msg.Payload.Headers, "Subject")
	}
	return meta, nil
}

// GetFull fetches the complete nested body-part tree of a message.
func (c *Client) GetFull(ctx context.Context, messageID string) (*extractor.Part, error) {
	msg, err := c.service.Users.Messages.Get(c.user, messageID).
		Format("full").
		Context(ctx).Do()
	if err != nil {
		return nil, wrapProviderErr("get full message", err)
	}
	return convertPart(msg.Payload), nil
}

// FetchAttachment returns the transfer-encoded bytes of a body held behind an
// attachment id. Implements extractor.AttachmentFetcher.
func (c *Client) FetchAttachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	att, err := c.service.Users.Messages.Attachments.Get(c.user, messageID, attachmentID).
		Context(ctx).Do()
	if err != nil {
		return "", wrapProviderErr("get attachment", err)
	}
	return att.Data, nil
}

func convertPart(part *gmail.MessagePart) *extractor.Part {
	if part == nil {
		return nil
	}
	converted := &extractor.Part{
		MimeType: part.MimeType,
	}
	if part.Body != nil {
		converted.Data = part.Body.Data
		converted.AttachmentID = part.Body.AttachmentId
	}
	for _, child := range part.Parts {
		if sub := convertPart(child); sub != nil {
			converted.Parts = append(converted.Parts, sub)
		}
	}
	return converted
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header != nil && strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func wrapProviderErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Body
		if body == "" {
			body = gerr.Message
		}
		return &errs.ProviderError{Status: gerr.Code, Body: body}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
