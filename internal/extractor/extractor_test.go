package extractor

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

// fakeFetcher serves attachment bodies from a map
type fakeFetcher struct {
	attachments map[string]string
	err         error
	calls       int
}

func (f *fakeFetcher) FetchAttachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.attachments[attachmentID], nil
}

func TestBodyPrefersHTMLPart(t *testing.T) {
	root := &Part{
		MimeType: "multipart/alternative",
		Parts: []*Part{
			{MimeType: "text/plain", Data: encode("plain body")},
			{MimeType: "text/html", Data: encode("<p>html body</p>")},
		},
	}

	body, err := Body(context.Background(), nil, "m1", root)
	require.NoError(t, err)
	assert.Equal(t, "<p>html body</p>", body)
}

func TestBodyFallsBackToPlainText(t *testing.T) {
	root := &Part{
		MimeType: "multipart/alternative",
		Parts: []*Part{
			{MimeType: "text/plain", Data: encode("plain body")},
		},
	}

	body, err := Body(context.Background(), nil, "m1", root)
	require.NoError(t, err)
	assert.Equal(t, "plain body", body)
}

func TestBodyFallsBackToRoot(t *testing.T) {
	root := &Part{MimeType: "text/x-custom", Data: encode("root body")}

	body, err := Body(context.Background(), nil, "m1", root)
	require.NoError(t, err)
	assert.Equal(t, "root body", body)
}

func TestBodyFetchesAttachment(t *testing.T) {
	fetcher := &fakeFetcher{attachments: map[string]string{
		"att-1": encode("<p>attached html</p>"),
	}}
	root := &Part{
		MimeType: "multipart/mixed",
		Parts: []*Part{
			{MimeType: "text/html", AttachmentID: "att-1"},
		},
	}

	body, err := Body(context.Background(), fetcher, "m1", root)
	require.NoError(t, err)
	assert.Equal(t, "<p>attached html</p>", body)
	assert.Equal(t, 1, fetcher.calls)
}

func TestBodyAttachmentFetchErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	root := &Part{
		MimeType: "multipart/mixed",
		Parts: []*Part{
			{MimeType: "text/html", AttachmentID: "att-1"},
		},
	}

	_, err := Body(context.Background(), fetcher, "m1", root)
	assert.Error(t, err)
}

func TestBodyEmptyTreeYieldsEmptyString(t *testing.T) {
	body, err := Body(context.Background(), nil, "m1", &Part{MimeType: "multipart/mixed"})
	require.NoError(t, err)
	assert.Equal(t, "", body)
}

func TestDecodeBodyDataRestoresPadding(t *testing.T) {
	raw := "<p>unpadded</p>"
	stripped := strings.TrimRight(encode(raw), "=")
	require.NotEqual(t, encode(raw), stripped)

	assert.Equal(t, raw, decodeBodyData(stripped))
}

func TestDecodeBodyDataInvalidInput(t *testing.T) {
	assert.Equal(t, "", decodeBodyData("!!! not base64 !!!"))
	assert.Equal(t, "", decodeBodyData(""))
}

func TestFindFirstByMimeTypeDepthCap(t *testing.T) {
	// Bury the html part below the depth cap; it must not be found
	leaf := &Part{MimeType: "text/html", Data: encode("deep")}
	node := leaf
	for i := 0; i < maxPartDepth+2; i++ {
		node = &Part{MimeType: "multipart/mixed", Parts: []*Part{node}}
	}

	assert.Nil(t, findFirstByMimeType(node, "text/html", 0))
}
