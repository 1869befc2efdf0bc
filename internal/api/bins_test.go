package api

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"smart_bin/internal/cache"
	"smart_bin/internal/domain"
	"smart_bin/internal/flash"
	"smart_bin/internal/service"
	"smart_bin/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateEmptyingDetected(t *testing.T) {
	h := newHarness(t)
	bin := testutil.CreateBin(t, h.db, "P-001", 85, true)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.db.Create(&domain.History{BinID: bin.ID, Level: 85, Timestamp: t0.Add(-time.Hour)}).Error)
	}

	rec := h.do(http.MethodGet, "/update?level=15", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp UpdateResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, UpdateResponse{Success: true, Level: 15, BinNumber: "P-001", LastEmptiedDetected: true}, resp)

	stored := testutil.ReloadBin(t, h.db, bin.ID)
	assert.Equal(t, 15, stored.CurrentLevel)
	require.NotNil(t, stored.LastEmptiedAt)
	assert.True(t, stored.LastEmptiedAt.Equal(t0))
	assert.EqualValues(t, 3, testutil.CountHistory(t, h.db, bin.ID))
}

func TestUpdateCriticalReadingAppendsHistory(t *testing.T) {
	h := newHarness(t)
	bin := testutil.CreateBin(t, h.db, "P-001", 50, true)

	rec := h.do(http.MethodGet, "/update?level=90", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp UpdateResponse
	decodeJSON(t, rec, &resp)
	assert.False(t, resp.LastEmptiedDetected)

	var rows []domain.History
	require.NoError(t, h.db.Where("bin_id = ?", bin.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 90, rows[0].Level)
}

func TestUpdateRejectsInvalidLevel(t *testing.T) {
	h := newHarness(t)
	bin := testutil.CreateBin(t, h.db, "P-001", 40, true)

	for _, target := range []string{"/update?level=150", "/update?level=-1", "/update?level=abc", "/update?level=12.5", "/update"} {
		rec := h.do(http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Le niveau doit être un entier entre 0 et 100", target)
	}

	stored := testutil.ReloadBin(t, h.db, bin.ID)
	assert.Equal(t, 40, stored.CurrentLevel)
	assert.True(t, stored.LastUpdated.Equal(bin.LastUpdated))
	assert.Zero(t, testutil.CountHistory(t, h.db, bin.ID))
}

func TestUpdateUnknownBin(t *testing.T) {
	h := newHarness(t)
	bin := testutil.CreateBin(t, h.db, "P-001", 40, true)

	rec := h.do(http.MethodGet, "/update?bin_number=ZZZ&level=10", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Poubelle ZZZ non trouvée")

	stored := testutil.ReloadBin(t, h.db, bin.ID)
	assert.Equal(t, 40, stored.CurrentLevel)
}

func TestUpdateBlankBinNumberIsNotFound(t *testing.T) {
	h := newHarness(t)
	bin := testutil.CreateBin(t, h.db, "P-001", 40, true)

	rec := h.do(http.MethodGet, "/update?bin_number=%20%20&level=50", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 40, testutil.ReloadBin(t, h.db, bin.ID).CurrentLevel)
}

func TestUpdateWithoutDefaultBin(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/update?level=10", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Aucune poubelle par défaut trouvée")
}

func TestUpdateExplicitBin(t *testing.T) {
	h := newHarness(t)
	def := testutil.CreateBin(t, h.db, "P-001", 40, true)
	other := testutil.CreateBin(t, h.db, "P-002", 10, false)

	rec := h.do(http.MethodGet, "/update?bin_number=P-002&level=95", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 95, testutil.ReloadBin(t, h.db, other.ID).CurrentLevel)
	assert.Equal(t, 40, testutil.ReloadBin(t, h.db, def.ID).CurrentLevel)
	assert.EqualValues(t, 1, testutil.CountHistory(t, h.db, other.ID))
}

func TestLevelPayload(t *testing.T) {
	h := newHarness(t)
	bin := testutil.CreateBin(t, h.db, "P-001", 85, true)
	for i := 0; i < 12; i++ {
		require.NoError(t, h.db.Create(&domain.History{BinID: bin.ID, Level: 80 + i, Timestamp: t0.Add(time.Duration(i) * time.Minute)}).Error)
	}

	rec := h.do(http.MethodGet, "/level", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LevelResponse
	decodeJSON(t, rec, &resp)

	assert.Equal(t, 85, resp.Level)
	assert.Equal(t, "P-001", resp.Numero)
	assert.Equal(t, "1 Rue du Test", resp.Adresse)
	assert.False(t, resp.Authenticated)
	assert.Empty(t, resp.Error)
	require.Len(t, resp.Historique, domain.HistoryReadLimit)
	assert.Equal(t, HistoryEntry{Timestamp: "2025-05-10 08:11:00", Niveau: 91}, resp.Historique[0])
	assert.Equal(t, HistoryEntry{Timestamp: "2025-05-10 08:02:00", Niveau: 82}, resp.Historique[9])
	require.NotNil(t, resp.LastUpdated)
	assert.Equal(t, "2024-01-01T00:00:00Z", *resp.LastUpdated)
	assert.Nil(t, resp.LastEmptied)
}

func TestLevelEmptyHistoryIsList(t *testing.T) {
	h := newHarness(t)
	testutil.CreateBin(t, h.db, "P-001", 10, true)

	rec := h.do(http.MethodGet, "/level", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"historique":[]`)
	assert.Contains(t, rec.Body.String(), `"last_emptied":null`)
}

func TestLevelWithoutDefaultBin(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/level", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp LevelResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 0, resp.Level)
	assert.Equal(t, "N/A", resp.Numero)
	assert.Equal(t, "N/A", resp.Adresse)
	assert.Empty(t, resp.Historique)
	assert.NotEmpty(t, resp.Error)
}

func TestLevelReportsAuthentication(t *testing.T) {
	h := newHarness(t)
	testutil.CreateBin(t, h.db, "P-001", 10, true)
	session := h.login()

	// Warm the cache anonymously; the flag must still follow the caller
	h.do(http.MethodGet, "/level", nil)
	rec := h.do(http.MethodGet, "/level", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LevelResponse
	decodeJSON(t, rec, &resp)
	assert.True(t, resp.Authenticated)
}

func TestUpdateInvalidatesLevelCache(t *testing.T) {
	h := newHarness(t)
	testutil.CreateBin(t, h.db, "P-001", 10, true)

	rec := h.do(http.MethodGet, "/level", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, h.mr.Exists(cache.DefaultSnapshotKey))

	h.clock.t = t0.Add(time.Minute)
	rec = h.do(http.MethodGet, "/update?level=55", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, h.mr.Exists(cache.DefaultSnapshotKey))

	rec = h.do(http.MethodGet, "/level", nil)
	var resp LevelResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 55, resp.Level)
	require.NotNil(t, resp.LastUpdated)
	assert.Equal(t, "2025-05-10T08:01:00Z", *resp.LastUpdated)
}

func TestLevelReadRacingUpdateDoesNotCacheStalePayload(t *testing.T) {
	h := newHarness(t)
	testutil.CreateBin(t, h.db, "P-001", 10, true)
	snapshots := cache.NewSnapshotCache(h.rdb, time.Minute)
	ctx := context.Background()

	// A /level reader misses the cache and reads the store
	var cached LevelResponse
	gen, hit := snapshots.Load(ctx, &cached)
	require.False(t, hit)
	snap, err := service.NewBinService(h.db).GetBinSnapshot(ctx, service.DefaultBin())
	require.NoError(t, err)

	// A sensor update commits and invalidates before the reader stores
	rec := h.do(http.MethodGet, "/update?level=90", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, snapshots.Store(ctx, gen, newLevelResponse(snap)))

	rec = h.do(http.MethodGet, "/level", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LevelResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 90, resp.Level)
	require.Len(t, resp.Historique, 1)
	assert.Equal(t, 90, resp.Historique[0].Niveau)
}

func TestConfigRequiresSession(t *testing.T) {
	h := newHarness(t)
	bin := testutil.CreateBin(t, h.db, "P-001", 10, true)

	rec := h.do(http.MethodPost, "/config", url.Values{"numero": {"P-999"}, "adresse": {"Ailleurs"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?next=%2Fconfig", rec.Header().Get("Location"))

	stored := testutil.ReloadBin(t, h.db, bin.ID)
	assert.Equal(t, "P-001", stored.BinNumber)
	assert.Equal(t, "1 Rue du Test", stored.Location)
}

func TestConfigUpdatesDefaultBin(t *testing.T) {
	h := newHarness(t)
	bin := testutil.CreateBin(t, h.db, "P-001", 10, true)
	session := h.login()
	h.do(http.MethodGet, "/level", nil) // Warm the cache

	rec := h.do(http.MethodPost, "/config", url.Values{"numero": {" P-777 "}, "adresse": {"5 Avenue Neuve"}}, session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, []flash.Message{{Category: flash.Success, Text: "Configuration de la poubelle mise à jour avec succès."}}, flashes(t, rec))

	stored := testutil.ReloadBin(t, h.db, bin.ID)
	assert.Equal(t, "P-777", stored.BinNumber)
	assert.Equal(t, "5 Avenue Neuve", stored.Location)
	assert.False(t, h.mr.Exists(cache.DefaultSnapshotKey))
}

func TestConfigRejections(t *testing.T) {
	cases := []struct {
		name string
		form url.Values
		want []flash.Message
	}{
		{
			name: "nothing submitted",
			form: url.Values{},
			want: []flash.Message{{Category: flash.Warning, Text: "Aucune donnée de configuration fournie."}},
		},
		{
			name: "unchanged",
			form: url.Values{"numero": {"P-001"}, "adresse": {"1 Rue du Test"}},
			want: []flash.Message{{Category: flash.Info, Text: "Aucune modification détectée dans la configuration."}},
		},
		{
			name: "duplicate number",
			form: url.Values{"numero": {"P-002"}, "adresse": {"Nouvelle adresse"}},
			want: []flash.Message{{Category: flash.Danger, Text: "Le numéro de poubelle 'P-002' est déjà utilisé."}},
		},
		{
			name: "blank fields",
			form: url.Values{"numero": {"  "}, "adresse": {""}},
			want: []flash.Message{
				{Category: flash.Danger, Text: "Le numéro de poubelle ne peut pas être vide."},
				{Category: flash.Danger, Text: "L'adresse ne peut pas être vide."},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			bin := testutil.CreateBin(t, h.db, "P-001", 10, true)
			testutil.CreateBin(t, h.db, "P-002", 10, false)
			session := h.login()

			rec := h.do(http.MethodPost, "/config", tc.form, session)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
			assert.Equal(t, tc.want, flashes(t, rec))

			stored := testutil.ReloadBin(t, h.db, bin.ID)
			assert.Equal(t, "P-001", stored.BinNumber)
			assert.Equal(t, "1 Rue du Test", stored.Location)
		})
	}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	h.mr.Close()
	rec = h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"unavailable"`)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	testutil.CreateBin(t, h.db, "P-001", 10, true)
	h.do(http.MethodGet, "/update?level=90", nil)

	rec := h.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "smart_bin_level_updates_total")
}
