package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"order-recon-go/internal/errs"
	"order-recon-go/internal/harvester"
	"order-recon-go/internal/mailbox"
)

// SyncRequest carries the caller-owned credential triple plus optional
// window overrides. The caller must persist the refreshed token from the
// response when refreshed is true.
type SyncRequest struct {
	UserID       uint   `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
	EmailStart   string `json:"email_start,omitempty"`
	EmailEnd     string `json:"email_end,omitempty"`
	From         string `json:"from,omitempty"`
}

// SyncGmail runs one incremental mailbox harvest for the user
func (h *Handlers) SyncGmail(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	userID := req.UserID
	if userID == 0 {
		userID = h.cfg.Harvest.UserID
	}

	window, err := h.resolveWindow(req.EmailStart, req.EmailEnd)
	if err != nil {
		respondError(c, err)
		return
	}

	cred := mailbox.Credential{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}
	if req.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(req.ExpiresAt, 0)
	}

	h.metrics.HarvestRuns.Inc()
	started := time.Now()
	summary, err := h.harvester.Harvest(c.Request.Context(), userID, cred, window, harvester.Options{
		FromFilter: req.From,
	})
	if err != nil {
		h.metrics.HarvestFailures.Inc()
		logrus.Errorf("Harvest failed for user %d: %v", userID, err)
		respondError(c, err)
		return
	}
	h.metrics.HarvestDuration.Observe(time.Since(started).Seconds())
	h.metrics.MessagesProcessed.Add(float64(summary.ProcessedCount))
	h.metrics.ShipmentsInserted.Add(float64(summary.InsertedCount))
	h.metrics.LastHarvestTime.SetToCurrentTime()

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"query":         summary.Query,
		"message_count": summary.TotalCandidates,
		"processed":     summary.ProcessedCount,
		"inserted":      summary.InsertedCount,
		"refreshed":     summary.Refreshed,
		"access_token":  summary.AccessToken,
		"expires_at":    expiresUnix(summary.ExpiresAt),
	})
}

// SyncStatus returns the latest ingested email timestamp for the user
func (h *Handlers) SyncStatus(c *gin.Context) {
	userID := h.cfg.Harvest.UserID
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "Invalid user_id",
				Code:    http.StatusBadRequest,
			})
			return
		}
		userID = uint(parsed)
	}

	latest, err := h.repo.LatestShipmentTimestamp(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	var lastUpdated interface{}
	if latest != nil {
		lastUpdated = latest.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "last_updated": lastUpdated})
}

// resolveWindow applies the configured defaults: harvest from the configured
// start date through tomorrow unless the request narrows it.
func (h *Handlers) resolveWindow(startRaw, endRaw string) (harvester.Window, error) {
	window := harvester.Window{
		End: time.Now().UTC().Add(24 * time.Hour),
	}

	start, err := time.ParseInLocation("2006-01-02", h.cfg.Harvest.StartDate, time.UTC)
	if err != nil {
		return harvester.Window{}, err
	}
	window.Start = start

	if startRaw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", startRaw, time.UTC)
		if err != nil {
			return harvester.Window{}, errs.Validation("email_start must be YYYY-MM-DD")
		}
		window.Start = parsed
	}
	if endRaw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", endRaw, time.UTC)
		if err != nil {
			return harvester.Window{}, errs.Validation("email_end must be YYYY-MM-DD")
		}
		// Inclusive of the named calendar day.
		window.End = parsed.Add(24 * time.Hour)
	}
	return window, nil
}

func expiresUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
