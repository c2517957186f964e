// Package extractor locates a renderable body inside a message's nested
// part tree and pulls shipment facts out of it with regex heuristics.
package extractor

import (
	"context"
	"encoding/base64"
	"strings"
)

// maxPartDepth caps the recursive part-tree descent to guard against
// pathological nesting.
const maxPartDepth = 32

// Part is a value-type view of one node in a message's MIME-like part tree.
// The raw body is either inline in Data (base64url, possibly unpadded) or
// held behind AttachmentID.
type Part struct {
	MimeType     string
	Data         string
	AttachmentID string
	Parts        []*Part
}

// AttachmentFetcher retrieves the transfer-encoded bytes of a body stored as
// a separate attachment.
type AttachmentFetcher interface {
	FetchAttachment(ctx context.Context, messageID, attachmentID string) (string, error)
}

// Body returns the first renderable body of the message: the first HTML
// part, else the first plain-text part, else whatever the root part itself
// carries. A decode failure or empty result falls through to the next
// candidate; when everything comes up empty the body is "" and downstream
// extraction yields zero fields, which is not an error.
func Body(ctx context.Context, fetcher AttachmentFetcher, messageID string, root *Part) (string, error) {
	if htmlPart := findFirstByMimeType(root, "text/html", 0); htmlPart != nil {
		body, err := partBody(ctx, fetcher, messageID, htmlPart)
		if err != nil {
			return "", err
		}
		if body != "" {
			return body, nil
		}
	}

	if textPart := findFirstByMimeType(root, "text/plain", 0); textPart != nil {
		body, err := partBody(ctx, fetcher, messageID, textPart)
		if err != nil {
			return "", err
		}
		if body != "" {
			return body, nil
		}
	}

	return partBody(ctx, fetcher, messageID, root)
}

func findFirstByMimeType(part *Part, mimeType string, depth int) *Part {
	if part == nil || depth > maxPartDepth {
		return nil
	}
	if strings.EqualFold(part.MimeType, mimeType) {
		return part
	}
	for _, child := range part.Parts {
		if found := findFirstByMimeType(child, mimeType, depth+1); found != nil {
			return found
		}
	}
	return nil
}

// partBody resolves one part's raw body: inline data first, attachment fetch
// second. Only attachment-fetch transport failures propagate; undecodable
// content yields "".
func partBody(ctx context.Context, fetcher AttachmentFetcher, messageID string, part *Part) (string, error) {
	if part == nil {
		return "", nil
	}

	if part.Data != "" {
		if decoded := decodeBodyData(part.Data); decoded != "" {
			return decoded, nil
		}
	}

	if part.AttachmentID != "" && fetcher != nil {
		data, err := fetcher.FetchAttachment(ctx, messageID, part.AttachmentID)
		if err != nil {
			return "", err
		}
		if decoded := decodeBodyData(data); decoded != "" {
			return decoded, nil
		}
	}

	return "", nil
}

// decodeBodyData decodes URL-safe base64, restoring stripped padding first.
func decodeBodyData(data string) string {
	if data == "" {
		return ""
	}
	padded := data + strings.Repeat("=", (4-len(data)%4)%4)
	decoded, err := base64.URLEncoding.DecodeString(padded)
	if err != nil {
		return ""
	}
	return string(decoded)
}
