package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurir/internal/activity"
	"kurir/internal/config"
	"kurir/internal/forwarding"
	"kurir/internal/logger"
	"kurir/internal/rules"
)

type stubRuleRepository struct {
	mu    sync.Mutex
	rules map[string]rules.Rule
}

func newStubRuleRepository() *stubRuleRepository {
	return &stubRuleRepository{rules: make(map[string]rules.Rule)}
}

func (r *stubRuleRepository) Upsert(_ context.Context, rule *rules.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.SourcePattern] = *rule
	return nil
}

func (r *stubRuleRepository) Get(_ context.Context, sourcePattern string) (*rules.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[sourcePattern]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (r *stubRuleRepository) List(_ context.Context) ([]rules.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]rules.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out, nil
}

func (r *stubRuleRepository) SetActive(_ context.Context, sourcePattern string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[sourcePattern]
	if !ok {
		return fmt.Errorf("rule not found")
	}
	rule.Active = active
	r.rules[sourcePattern] = rule
	return nil
}

func (r *stubRuleRepository) Delete(_ context.Context, sourcePattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[sourcePattern]; !ok {
		return fmt.Errorf("rule not found")
	}
	delete(r.rules, sourcePattern)
	return nil
}

type stubDeliverer struct {
	mu    sync.Mutex
	calls int
}

func (d *stubDeliverer) Deliver(_ context.Context, _, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return nil
}

func setupRouter(t *testing.T) (*gin.Engine, *rules.Store, *activity.Log, *stubDeliverer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := rules.NewStore(newStubRuleRepository(), config.ReloadConfig{}, logger.NopLogger())
	log := activity.NewLog(100, nil, logger.NopLogger())
	deliverer := &stubDeliverer{}
	dispatcher := forwarding.NewDispatcher(store, log, deliverer, time.Second, logger.NopLogger())

	router := gin.New()
	handler := NewHandler(store, log, dispatcher, logger.NopLogger())
	handler.RegisterRoutes(router)

	return router, store, log, deliverer
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUpsertRuleEndpoint(t *testing.T) {
	router, store, _, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/rules", UpsertRuleRequest{
		SourcePattern:  "Grup Order Masuk",
		FieldPatterns:  map[string]string{"nama": "Nama:"},
		TargetBot:      "bot-keuangan",
		OutputTemplate: "Halo {nama}",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var rule rules.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rule))
	assert.Equal(t, "Grup Order Masuk", rule.SourcePattern)
	assert.True(t, rule.Active)

	_, ok := store.Match("Grup Order Masuk")
	assert.True(t, ok)
}

func TestUpsertRuleEndpointValidation(t *testing.T) {
	router, _, _, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/rules", map[string]interface{}{
		"source_pattern": "Grup A",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRuleEndpointNotFound(t *testing.T) {
	router, _, _, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/rules/"+url.PathEscape("Grup X"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetRuleActiveEndpoint(t *testing.T) {
	router, store, _, _ := setupRouter(t)

	_, err := store.Upsert(context.Background(), rules.Rule{
		SourcePattern:  "Grup A",
		TargetBot:      "bot-ops",
		OutputTemplate: "x",
		Active:         true,
	})
	require.NoError(t, err)

	active := false
	w := doJSON(t, router, http.MethodPatch, "/api/v1/rules/"+url.PathEscape("Grup A")+"/active",
		SetActiveRequest{Active: &active})
	require.Equal(t, http.StatusOK, w.Code)

	_, ok := store.Match("Grup A")
	assert.False(t, ok)
}

func TestDeleteRuleEndpoint(t *testing.T) {
	router, store, _, _ := setupRouter(t)

	_, err := store.Upsert(context.Background(), rules.Rule{
		SourcePattern:  "Grup A",
		TargetBot:      "bot-ops",
		OutputTemplate: "x",
		Active:         true,
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/rules/"+url.PathEscape("Grup A"), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/rules/"+url.PathEscape("Grup A"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestForwardEndpoint(t *testing.T) {
	router, store, log, deliverer := setupRouter(t)

	_, err := store.Upsert(context.Background(), rules.Rule{
		SourcePattern:  "Grup Order Masuk",
		FieldPatterns:  map[string]string{"nama": "Nama:"},
		TargetBot:      "bot-keuangan",
		OutputTemplate: "Halo {nama}",
		Active:         true,
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/api/v1/forward", ForwardRequest{
		Source:  "Grup Order Masuk",
		Message: "Nama: Budi",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var entry activity.LogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, activity.StatusSuccess, entry.Status)
	assert.Equal(t, "Halo Budi", entry.TransformedMessage)
	assert.Equal(t, 1, deliverer.calls)
	assert.Equal(t, 1, log.Len())
}

func TestForwardEndpointNoRule(t *testing.T) {
	router, _, _, deliverer := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/forward", ForwardRequest{
		Source:  "Grup X",
		Message: "halo",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var entry activity.LogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, activity.StatusFailed, entry.Status)
	assert.Equal(t, "no active rule for source", entry.Error)
	assert.Equal(t, 0, deliverer.calls)
}

func TestPreviewEndpoint(t *testing.T) {
	router, _, log, deliverer := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/preview", PreviewRequest{
		Message: "Nama: Budi\nTotal: 5000",
		FieldPatterns: map[string]string{
			"nama":  "Nama:",
			"total": "Total:",
		},
		OutputTemplate: "{nama} bayar {total}",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp PreviewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Budi bayar 5000", resp.Rendered)
	assert.Equal(t, "Budi", resp.Fields["nama"])

	assert.Equal(t, 0, deliverer.calls)
	assert.Equal(t, 0, log.Len())
}

func TestListActivityEndpoint(t *testing.T) {
	router, _, log, _ := setupRouter(t)

	for i := 0; i < 5; i++ {
		log.Append(context.Background(), activity.LogEntry{
			ID:        fmt.Sprintf("entry-%d", i),
			Timestamp: time.Now(),
			Status:    activity.StatusSuccess,
		})
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/activity?limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []activity.LogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "entry-4", entries[0].ID)
}
