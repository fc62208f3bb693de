package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refurbtracker/internal/domain"
	"refurbtracker/internal/storage"
	"refurbtracker/internal/tracker"
)

type noopScraper struct{}

func (noopScraper) Scrape(context.Context, []string) ([]domain.RawListing, error) {
	return nil, nil
}
func (noopScraper) Close() error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *tracker.Tracker) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	repo, err := storage.NewBadgerRepository(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	trk := tracker.New(noopScraper{}, repo, nil, nil, log)
	t.Cleanup(trk.Close)

	srv := httptest.NewServer(New(trk, repo, log).Router())
	t.Cleanup(srv.Close)
	return srv, trk
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func TestRuleCRUD(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/users/123/rules"

	// Empty listing.
	res := doJSON(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	var rules []domain.TrackingRule
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rules))
	assert.Empty(t, rules)

	// Create.
	res = doJSON(t, http.MethodPost, base, map[string]any{
		"name":    "16GB Airs",
		"filters": map[string]any{"product_type": "MacBook Air", "min_memory": 16},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created domain.TrackingRule
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Enabled)
	assert.Equal(t, 16, created.Filters.MinMemory)
	assert.False(t, created.UpdatedAt.IsZero())

	// Update: disable it.
	disabled := false
	res = doJSON(t, http.MethodPut, base+"/"+created.ID, map[string]any{"enabled": &disabled})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var updated domain.TrackingRule
	require.NoError(t, json.NewDecoder(res.Body).Decode(&updated))
	assert.False(t, updated.Enabled)
	assert.Equal(t, "16GB Airs", updated.Name, "unset payload fields keep their value")
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "update should advance UpdatedAt")

	// The response body reflects what was persisted, not a pre-save copy.
	res = doJSON(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rules))
	require.Len(t, rules, 1)
	assert.False(t, rules[0].Enabled)
	assert.True(t, rules[0].UpdatedAt.Equal(updated.UpdatedAt))

	// Delete, then the listing is empty again.
	res = doJSON(t, http.MethodDelete, base+"/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res = doJSON(t, http.MethodDelete, base+"/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCreateRuleValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	res := doJSON(t, http.MethodPost, srv.URL+"/users/123/rules", map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, http.MethodPost, srv.URL+"/users/notanumber/rules", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestTrackLifecycleEndpoints(t *testing.T) {
	srv, trk := newTestServer(t)

	res := doJSON(t, http.MethodGet, srv.URL+"/track/status", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var status tracker.Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	assert.False(t, status.Running)

	res = doJSON(t, http.MethodPost, srv.URL+"/track/start", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, trk.Status().Running)

	// Starting twice conflicts instead of arming a second timer.
	res = doJSON(t, http.MethodPost, srv.URL+"/track/start", nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res = doJSON(t, http.MethodPost, srv.URL+"/track/stop", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = doJSON(t, http.MethodPost, srv.URL+"/track/stop", nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	res := doJSON(t, http.MethodPost, srv.URL+"/users/5/rules", map[string]any{"name": "anything"})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res = doJSON(t, http.MethodGet, srv.URL+"/stats", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var stats struct {
		Products int            `json:"products"`
		Rules    int            `json:"rules"`
		Tracker  tracker.Status `json:"tracker"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stats))
	assert.Equal(t, 0, stats.Products)
	assert.Equal(t, 1, stats.Rules)
	assert.False(t, stats.Tracker.Running)
}
