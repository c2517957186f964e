package harvester

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-recon-go/internal/errs"
	"order-recon-go/internal/extractor"
	"order-recon-go/internal/mailbox"
	"order-recon-go/internal/model"
)

type fakeMessage struct {
	subject      string
	internalDate time.Time
	body         string
}

// fakeMailClient replays canned messages and records the search query
type fakeMailClient struct {
	messages map[string]fakeMessage
	order    []string
	query    string
	metaErr  error
}

func (f *fakeMailClient) ListMessageIDs(ctx context.Context, query string) ([]string, error) {
	f.query = query
	return f.order, nil
}

func (f *fakeMailClient) GetMetadata(ctx context.Context, messageID string) (*mailbox.MessageMeta, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("unknown message %s", messageID)
	}
	return &mailbox.MessageMeta{ID: messageID, Subject: msg.subject, InternalDate: msg.internalDate}, nil
}

func (f *fakeMailClient) GetFull(ctx context.Context, messageID string) (*extractor.Part, error) {
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("unknown message %s", messageID)
	}
	data := base64.URLEncoding.EncodeToString([]byte(msg.body))
	return &extractor.Part{MimeType: "text/html", Data: data}, nil
}

func (f *fakeMailClient) FetchAttachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	return "", nil
}

// fakeStore keeps shipments in memory keyed by message id
type fakeStore struct {
	records map[string]model.ShipmentRecord
	latest  *time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]model.ShipmentRecord)}
}

func (s *fakeStore) SelectExistingMessageIDs(userID uint, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}

func (s *fakeStore) UpsertShipments(rows []model.ShipmentRecord) (int, error) {
	inserted := 0
	for _, row := range rows {
		if _, ok := s.records[row.EmailID]; ok {
			continue
		}
		s.records[row.EmailID] = row
		inserted++
	}
	return inserted, nil
}

func (s *fakeStore) LatestShipmentTimestamp(userID uint) (*time.Time, error) {
	return s.latest, nil
}

func testHarvester(client *fakeMailClient, store *fakeStore) *Harvester {
	guard := mailbox.NewTokenGuard("id", "secret", "http://invalid.test/token")
	factory := func(ctx context.Context, accessToken string) (MailClient, error) {
		return client, nil
	}
	return New(guard, store, factory, "from:store@email.meta.com")
}

func validCred() mailbox.Credential {
	return mailbox.Credential{
		AccessToken:  "token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func testWindow() Window {
	return Window{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestHarvestExtractsShipments(t *testing.T) {
	client := &fakeMailClient{
		order: []string{"m1", "m2"},
		messages: map[string]fakeMessage{
			"m1": {
				subject:      "Your order #123 is on the way",
				internalDate: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
				body:         `trackNums=TRK001 <div>Quantity: 2</div><div>Quantity: 1</div>`,
			},
			"m2": {
				subject:      "Your order #124 is on the way",
				internalDate: time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
				body:         `trackNums=TRK002 Quantity: 4`,
			},
		},
	}
	store := newFakeStore()

	summary, err := testHarvester(client, store).Harvest(context.Background(), 1, validCred(), testWindow(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalCandidates)
	assert.Equal(t, 2, summary.ProcessedCount)
	assert.Equal(t, 2, summary.InsertedCount)
	assert.False(t, summary.Refreshed)
	assert.Empty(t, summary.AccessToken)

	rec := store.records["m1"]
	assert.Equal(t, "TRK001", rec.TrackingNumber)
	assert.Equal(t, 3, rec.Quantity)
	assert.Equal(t, uint(1), rec.UserID)

	rec = store.records["m2"]
	assert.Equal(t, "TRK002", rec.TrackingNumber)
	assert.Equal(t, 4, rec.Quantity)
}

func TestHarvestSecondRunIsIdempotent(t *testing.T) {
	client := &fakeMailClient{
		order: []string{"m1"},
		messages: map[string]fakeMessage{
			"m1": {
				subject:      "Your order #123 is on the way",
				internalDate: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
				body:         "trackNums=TRK001 Quantity: 2",
			},
		},
	}
	store := newFakeStore()
	h := testHarvester(client, store)

	first, err := h.Harvest(context.Background(), 1, validCred(), testWindow(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.InsertedCount)

	second, err := h.Harvest(context.Background(), 1, validCred(), testWindow(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalCandidates)
	assert.Equal(t, 0, second.ProcessedCount)
	assert.Equal(t, 0, second.InsertedCount)
}

func TestHarvestDiscardsOffPatternAndOutOfWindow(t *testing.T) {
	client := &fakeMailClient{
		order: []string{"wrong-subject", "too-late", "kept"},
		messages: map[string]fakeMessage{
			"wrong-subject": {
				subject:      "Your refund for order #123",
				internalDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
				body:         "trackNums=SKIP1 Quantity: 1",
			},
			"too-late": {
				// Exactly at the window end, which is exclusive
				subject:      "Your order #125 is on the way",
				internalDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
				body:         "trackNums=SKIP2 Quantity: 1",
			},
			"kept": {
				subject:      "Your order #126 is on the way",
				internalDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
				body:         "trackNums=TRK003 Quantity: 7",
			},
		},
	}
	store := newFakeStore()

	summary, err := testHarvester(client, store).Harvest(context.Background(), 1, validCred(), testWindow(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalCandidates)
	assert.Equal(t, 1, summary.ProcessedCount)
	assert.Equal(t, 1, summary.InsertedCount)
	_, kept := store.records["kept"]
	assert.True(t, kept)
}

func TestHarvestUsesStoredCursorInQuery(t *testing.T) {
	client := &fakeMailClient{order: nil}
	store := newFakeStore()
	latest := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	store.latest = &latest

	_, err := testHarvester(client, store).Harvest(context.Background(), 1, validCred(), testWindow(), Options{})
	require.NoError(t, err)
	assert.Contains(t, client.query, "after:2024/03/20")
}

func TestHarvestRejectsInvertedWindow(t *testing.T) {
	window := Window{
		Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	_, err := testHarvester(&fakeMailClient{}, newFakeStore()).Harvest(context.Background(), 1, validCred(), window, Options{})
	var validationErr *errs.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestHarvestAbortsOnMetadataError(t *testing.T) {
	client := &fakeMailClient{
		order:   []string{"m1"},
		metaErr: &errs.ProviderError{Status: 500, Body: "backend error"},
	}
	store := newFakeStore()

	_, err := testHarvester(client, store).Harvest(context.Background(), 1, validCred(), testWindow(), Options{})
	var providerErr *errs.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Empty(t, store.records)
}

func TestHarvestCancelledContext(t *testing.T) {
	client := &fakeMailClient{
		order: []string{"m1"},
		messages: map[string]fakeMessage{
			"m1": {
				subject:      "Your order #123 is on the way",
				internalDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
				body:         "trackNums=TRK001 Quantity: 2",
			},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testHarvester(client, newFakeStore()).Harvest(ctx, 1, validCred(), testWindow(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubjectPattern(t *testing.T) {
	assert.True(t, targetSubjectRe.MatchString("Your order #4521 is on the way"))
	assert.False(t, targetSubjectRe.MatchString("Re: Your order #4521 is on the way"))
	assert.False(t, targetSubjectRe.MatchString("Your order #4521 is on the way!"))
	assert.False(t, targetSubjectRe.MatchString("your order #4521 is on the way"))
}
