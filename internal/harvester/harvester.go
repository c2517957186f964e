// Package harvester implements the incremental mailbox harvest: find
// order-confirmation messages, extract shipment facts, and commit them
// idempotently.
package harvester

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"order-recon-go/internal/errs"
	"order-recon-go/internal/extractor"
	"order-recon-go/internal/mailbox"
	"order-recon-go/internal/model"
)

// targetSubjectRe is the exact pattern an order-confirmation subject must
// match after trimming. Case-sensitive on purpose.
var targetSubjectRe = regexp.MustCompile(`^Your order #\d+ is on the way$`)

// MailClient is the provider surface the harvester consumes.
type MailClient interface {
	ListMessageIDs(ctx context.Context, query string) ([]string, error)
	GetMetadata(ctx context.Context, messageID string) (*mailbox.MessageMeta, error)
	GetFull(ctx context.Context, messageID string) (*extractor.Part, error)
	FetchAttachment(ctx context.Context, messageID, attachmentID string) (string, error)
}

// Store is the slice of the persistence layer the harvester needs.
type Store interface {
	SelectExistingMessageIDs(userID uint, ids []string) (map[string]struct{}, error)
	UpsertShipments(rows []model.ShipmentRecord) (int, error)
	LatestShipmentTimestamp(userID uint) (*time.Time, error)
}

// ClientFactory builds a provider client for one harvest run from a valid
// bearer token.
type ClientFactory func(ctx context.Context, accessToken string) (MailClient, error)

// Window bounds a harvest: timestamps in [Start, End) are ingested.
type Window struct {
	Start time.Time
	End   time.Time
}

// Options carries the optional knobs of one harvest invocation.
type Options struct {
	// FromFilter overrides the configured sender predicate when non-empty.
	FromFilter string
	// IncrementalAfter overrides the store-derived incremental cursor.
	IncrementalAfter *time.Time
}

// Summary reports what one harvest run did, including a refreshed credential
// the caller must persist when Refreshed is true.
type Summary struct {
	Query           string    `json:"query"`
	TotalCandidates int       `json:"message_count"`
	ProcessedCount  int       `json:"processed_count"`
	InsertedCount   int       `json:"inserted_count"`
	Refreshed       bool      `json:"refreshed"`
	AccessToken     string    `json:"access_token,omitempty"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
}

// Harvester pages the provider's search API and commits shipment records.
type Harvester struct {
	guard      *mailbox.TokenGuard
	store      Store
	newClient  ClientFactory
	fromFilter string
}

// New creates a harvester. fromFilter is the default sender predicate used
// when an invocation does not supply one.
func New(guard *mailbox.TokenGuard, store Store, newClient ClientFactory, fromFilter string) *Harvester {
	return &Harvester{
		guard:      guard,
		store:      store,
		newClient:  newClient,
		fromFilter: fromFilter,
	}
}

// Harvest runs one harvest for the user. Partial progress stays committed on
// failure; re-running the same window is the designed recovery path because
// already-seen message ids are never re-fetched.
func (h *Harvester) Harvest(ctx context.Context, userID uint, cred mailbox.Credential, window Window, opts Options) (*Summary, error) {
	if !window.End.After(window.Start) {
		return nil, errs.Validation("harvest window start must be before end")
	}

	cred, refreshed, err := h.guard.Ensure(ctx, cred)
	if err != nil {
		return nil, err
	}

	incrementalAfter, err := h.resolveIncrementalAfter(userID, opts)
	if err != nil {
		return nil, err
	}

	fromFilter := opts.FromFilter
	if fromFilter == "" {
		fromFilter = h.fromFilter
	}
	query := mailbox.BuildQuery(fromFilter, window.Start, window.End, incrementalAfter)
	logrus.Infof("Harvesting mailbox for user %d with query: %s", userID, query)

	client, err := h.newClient(ctx, cred.AccessToken)
	if err != nil {
		return nil, err
	}

	ids, err := client.ListMessageIDs(ctx, query)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Found %d candidate messages", len(ids))

	existing, err := h.store.SelectExistingMessageIDs(userID, ids)
	if err != nil {
		return nil, err
	}

	var rows []model.ShipmentRecord
	for _, messageID := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, seen := existing[messageID]; seen {
			continue
		}

		record, keep, err := h.processMessage(ctx, client, userID, messageID, window)
		if err != nil {
			return nil, err
		}
		if keep {
			rows = append(rows, record)
		}
	}

	inserted, err := h.store.UpsertShipments(rows)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Query:           query,
		TotalCandidates: len(ids),
		ProcessedCount:  len(rows),
		InsertedCount:   inserted,
		Refreshed:       refreshed,
	}
	if refreshed {
		summary.AccessToken = cred.AccessToken
		summary.ExpiresAt = cred.ExpiresAt
	}
	logrus.Infof("Harvest complete for user %d: %d candidates, %d processed, %d inserted",
		userID, summary.TotalCandidates, summary.ProcessedCount, summary.InsertedCount)
	return summary, nil
}

// processMessage does the metadata-then-full fetch for one unseen message.
// The metadata pass discards off-pattern and out-of-window messages without
// paying for their bodies.
func (h *Harvester) processMessage(ctx context.Context, client MailClient, userID uint, messageID string, window Window) (model.ShipmentRecord, bool, error) {
	meta, err := client.GetMetadata(ctx, messageID)
	if err != nil {
		return model.ShipmentRecord{}, false, err
	}

	if !targetSubjectRe.MatchString(strings.TrimSpace(meta.Subject)) {
		return model.ShipmentRecord{}, false, nil
	}
	if meta.InternalDate.Before(window.Start) || !meta.InternalDate.Before(window.End) {
		return model.ShipmentRecord{}, false, nil
	}

	payload, err := client.GetFull(ctx, messageID)
	if err != nil {
		return model.ShipmentRecord{}, false, err
	}

	body, err := extractor.Body(ctx, client, messageID, payload)
	if err != nil {
		return model.ShipmentRecord{}, false, err
	}

	record := model.ShipmentRecord{
		UserID:         userID,
		EmailID:        messageID,
		EmailDate:      meta.InternalDate,
		TrackingNumber: extractor.TrackingNumber(body),
		Quantity:       extractor.TotalQuantity(body),
	}
	return record, true, nil
}

// resolveIncrementalAfter picks the caller-supplied cursor when present,
// otherwise recomputes it from the latest persisted record.
func (h *Harvester) resolveIncrementalAfter(userID uint, opts Options) (time.Time, error) {
	if opts.IncrementalAfter != nil {
		return *opts.IncrementalAfter, nil
	}
	latest, err := h.store.LatestShipmentTimestamp(userID)
	if err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}
