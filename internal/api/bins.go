package api

import (
	"errors"                        // Error inspection
	"fmt"                           // Message formatting
	"net/http"                      // HTTP status codes
	"smart_bin/internal/cache"      // Snapshot cache
	"smart_bin/internal/flash"      // Status messages across redirects
	"smart_bin/internal/metrics"    // Prometheus collectors
	"smart_bin/internal/middleware" // Session lookup
	"smart_bin/internal/service"    // Bin engine
	"strconv"                       // String conversion
	"strings"                       // Query trimming
	"time"                          // Timestamp formatting

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// historyTimeLayout formats history timestamps for the dashboard table
const historyTimeLayout = "2006-01-02 15:04:05"

// UpdateResponse is returned by /update
type UpdateResponse struct {
	Success             bool   `json:"success"`               // Always true on 200
	Level               int    `json:"level"`                 // Level that was stored
	BinNumber           string `json:"bin_number"`            // Bin that received the reading
	LastEmptiedDetected bool   `json:"last_emptied_detected"` // This reading emptied the bin
}

// HistoryEntry is one critical reading in /level
type HistoryEntry struct {
	Timestamp string `json:"timestamp"` // "2006-01-02 15:04:05" in UTC
	Niveau    int    `json:"niveau"`    // Recorded level
}

// LevelResponse is returned by /level
type LevelResponse struct {
	Level         int            `json:"level"`           // Current level of the default bin
	Numero        string         `json:"numero"`          // Bin number
	Adresse       string         `json:"adresse"`         // Bin location
	Historique    []HistoryEntry `json:"historique"`      // Latest critical readings, newest first
	Authenticated bool           `json:"authenticated"`   // Caller holds a session
	LastUpdated   *string        `json:"last_updated"`    // RFC 3339, null if never written
	LastEmptied   *string        `json:"last_emptied"`    // RFC 3339, null if never emptied
	Error         string         `json:"error,omitempty"` // Set when the default bin is missing
}

// UpdateLevelHandler applies a sensor reading to a bin
func UpdateLevelHandler(svc *service.BinService, snapshots *cache.SnapshotCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()                        // Request scoped context
		level := parseLevel(c.Query("level"))             // nil when missing or not an integer
		ref := service.ByNumber(c.Query("bin_number"))    // Empty number targets the default bin
		res, err := svc.ApplyLevelUpdate(ctx, ref, level) // Run the state transition
		switch {
		case errors.Is(err, service.ErrInvalidLevel):
			metrics.RecordLevelUpdate("invalid_level", false, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le niveau doit être un entier entre 0 et 100"})
			return
		case errors.Is(err, service.ErrBinNotFound):
			metrics.RecordLevelUpdate("not_found", false, false)
			c.JSON(http.StatusNotFound, gin.H{"error": binNotFoundMessage(ref)})
			return
		case err != nil:
			metrics.RecordLevelUpdate("error", false, false)
			logrus.WithFields(logrus.Fields{
				"bin_number": ref.Number,  // Requested bin, empty for default
				"error":      err.Error(), // Error message
			}).Error("Level update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour de la base de données"})
			return
		}
		metrics.RecordLevelUpdate("ok", res.EmptyingDetected, res.HistoryRecorded)
		snapshots.Invalidate(ctx) // Dashboard payload is stale now
		c.JSON(http.StatusOK, UpdateResponse{
			Success:             true,
			Level:               res.Bin.CurrentLevel,
			BinNumber:           res.Bin.BinNumber,
			LastEmptiedDetected: res.EmptyingDetected,
		})
	}
}

// LevelHandler returns the default bin state and its recent critical readings
func LevelHandler(svc *service.BinService, snapshots *cache.SnapshotCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()                       // Request scoped context
		_, authenticated := middleware.CurrentSession(c) // Set by OptionalSession
		var resp LevelResponse
		// Try the cache first; the authenticated flag is per caller and set afterwards
		gen, hit := snapshots.Load(ctx, &resp)
		if !hit {
			snap, err := svc.GetBinSnapshot(ctx, service.DefaultBin())
			if errors.Is(err, service.ErrBinNotFound) {
				missing := missingBinResponse()
				missing.Authenticated = authenticated
				c.JSON(http.StatusNotFound, missing)
				return
			}
			if err != nil {
				logrus.WithError(err).Error("Loading default bin failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la lecture de la base de données"})
				return
			}
			resp = newLevelResponse(snap)
			snapshots.Store(ctx, gen, resp) // Cache for the next dashboard poll unless a write landed meanwhile
		}
		resp.Authenticated = authenticated
		c.JSON(http.StatusOK, resp)
	}
}

// ConfigHandler renames and/or relocates the default bin from the dashboard form
func ConfigHandler(svc *service.BinService, snapshots *cache.SnapshotCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var change service.ConfigChange
		// Only submitted fields are considered
		if v, ok := c.GetPostForm("numero"); ok {
			change.BinNumber = &v
		}
		if v, ok := c.GetPostForm("adresse"); ok {
			change.Location = &v
		}
		if change.BinNumber == nil && change.Location == nil {
			flash.Add(c, flash.Warning, "Aucune donnée de configuration fournie.")
			c.Redirect(http.StatusFound, "/")
			return
		}
		outcome, err := svc.UpdateBinConfig(c.Request.Context(), service.DefaultBin(), change)
		switch {
		case err == nil && outcome == service.ConfigUpdated:
			snapshots.Invalidate(c.Request.Context()) // Dashboard payload is stale now
			flash.Add(c, flash.Success, "Configuration de la poubelle mise à jour avec succès.")
		case err == nil:
			flash.Add(c, flash.Info, "Aucune modification détectée dans la configuration.")
		case errors.Is(err, service.ErrBinNotFound):
			flash.Add(c, flash.Danger, "Erreur: Poubelle par défaut non trouvée.")
		case errors.Is(err, service.ErrPersistence):
			logrus.WithError(err).Error("Bin config update failed")
			flash.Add(c, flash.Danger, "Erreur lors de la mise à jour de la configuration.")
		default:
			// One message per rejected field
			for _, fe := range service.FieldErrors(err) {
				flash.Add(c, flash.Danger, fieldErrorMessage(fe))
			}
		}
		c.Redirect(http.StatusFound, "/") // Always back to the dashboard
	}
}

// parseLevel reads the level query parameter; nil means missing or not an integer
func parseLevel(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

// binNotFoundMessage explains which bin could not be resolved
func binNotFoundMessage(ref service.BinRef) string {
	if ref.IsDefault() {
		return "Aucune poubelle par défaut trouvée"
	}
	return fmt.Sprintf("Poubelle %s non trouvée", ref.Number)
}

// fieldErrorMessage is the dashboard text for a rejected config field
func fieldErrorMessage(fe *service.FieldError) string {
	switch {
	case fe.Field == service.FieldBinNumber && errors.Is(fe.Err, service.ErrDuplicateBinNumber):
		return fmt.Sprintf("Le numéro de poubelle '%s' est déjà utilisé.", fe.Value)
	case fe.Field == service.FieldBinNumber:
		return "Le numéro de poubelle ne peut pas être vide."
	default:
		return "L'adresse ne peut pas être vide."
	}
}

// newLevelResponse maps a snapshot to the /level payload
func newLevelResponse(snap *service.Snapshot) LevelResponse {
	history := make([]HistoryEntry, 0, len(snap.History)) // Empty list rather than null
	for _, h := range snap.History {
		history = append(history, HistoryEntry{Timestamp: h.Timestamp.UTC().Format(historyTimeLayout), Niveau: h.Level})
	}
	return LevelResponse{
		Level:       snap.Bin.CurrentLevel,
		Numero:      snap.Bin.BinNumber,
		Adresse:     snap.Bin.Location,
		Historique:  history,
		LastUpdated: isoTime(&snap.Bin.LastUpdated),
		LastEmptied: isoTime(snap.Bin.LastEmptiedAt),
	}
}

// missingBinResponse is the zero payload returned when no default bin exists
func missingBinResponse() LevelResponse {
	return LevelResponse{
		Level:      0,
		Numero:     "N/A",
		Adresse:    "N/A",
		Historique: []HistoryEntry{},
		Error:      "Poubelle par défaut non trouvée",
	}
}

// isoTime formats t as RFC 3339 in UTC, nil for unset times
func isoTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
