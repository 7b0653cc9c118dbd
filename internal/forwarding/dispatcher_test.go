package forwarding

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurir/internal/activity"
	"kurir/internal/config"
	"kurir/internal/logger"
	"kurir/internal/rules"
	"kurir/pkg/models"
)

type fakeRuleRepository struct {
	mu    sync.Mutex
	rules map[string]rules.Rule
}

func newFakeRuleRepository() *fakeRuleRepository {
	return &fakeRuleRepository{rules: make(map[string]rules.Rule)}
}

func (r *fakeRuleRepository) Upsert(_ context.Context, rule *rules.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.SourcePattern] = *rule
	return nil
}

func (r *fakeRuleRepository) Get(_ context.Context, sourcePattern string) (*rules.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[sourcePattern]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (r *fakeRuleRepository) List(_ context.Context) ([]rules.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]rules.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out, nil
}

func (r *fakeRuleRepository) SetActive(_ context.Context, sourcePattern string, active bool) error {
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

func (r *fakeRuleRepository) Delete(_ context.Context, sourcePattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[sourcePattern]; !ok {
		return fmt.Errorf("rule not found")
	}
	delete(r.rules, sourcePattern)
	return nil
}

type fakeDeliverer struct {
	mu      sync.Mutex
	targets []string
	texts   []string
	err     error
	panics  bool
}

func (d *fakeDeliverer) Deliver(_ context.Context, targetBot, text string) error {
	if d.panics {
		panic("deliverer exploded")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets = append(d.targets, targetBot)
	d.texts = append(d.texts, text)
	return d.err
}

func (d *fakeDeliverer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

func newTestStore(t *testing.T, seed ...rules.Rule) *rules.Store {
	t.Helper()

	repo := newFakeRuleRepository()
	store := rules.NewStore(repo, config.ReloadConfig{}, logger.NopLogger())

	for _, rule := range seed {
		_, err := store.Upsert(context.Background(), rule)
		require.NoError(t, err)
	}
	return store
}

func paymentRule() rules.Rule {
	return rules.Rule{
		SourcePattern: "Grup Order Masuk",
		FieldPatterns: map[string]string{
			"nama":   "Nama:",
			"produk": "Produk:",
			"total":  "Total:",
		},
		TargetBot:      "bot-keuangan",
		OutputTemplate: "PEMBAYARAN DITERIMA\nPelanggan: {nama}\nItem: {produk}\nNominal: {total}",
		Active:         true,
	}
}

func TestDispatchForwardsMatchedMessage(t *testing.T) {
	store := newTestStore(t, paymentRule())
	log := activity.NewLog(100, nil, logger.NopLogger())
	deliverer := &fakeDeliverer{}

	d := NewDispatcher(store, log, deliverer, time.Second, logger.NopLogger())

	entry := d.Dispatch(context.Background(), models.InboundMessage{
		ID:        "msg-1",
		Source:    "Grup Order Masuk",
		Message:   "Nama: Ibu Siti\n*Produk:* AUDIO RUQYAH*\nTotal: Rp 250.000",
		Timestamp: time.Now(),
	})

	assert.Equal(t, activity.StatusSuccess, entry.Status)
	assert.Empty(t, entry.Error)
	assert.Equal(t, "Grup Order Masuk", entry.Source)

	want := "PEMBAYARAN DITERIMA\nPelanggan: Ibu Siti\nItem: AUDIO RUQYAH\nNominal: Rp 250.000"
	assert.Equal(t, want, entry.TransformedMessage)

	require.Equal(t, 1, deliverer.calls())
	assert.Equal(t, "bot-keuangan", deliverer.targets[0])
	assert.Equal(t, want, deliverer.texts[0])

	require.Equal(t, 1, log.Len())
	assert.Equal(t, entry.ID, log.List(1)[0].ID)
}

func TestDispatchNoMatchingRule(t *testing.T) {
	store := newTestStore(t, paymentRule())
	log := activity.NewLog(100, nil, logger.NopLogger())
	deliverer := &fakeDeliverer{}

	d := NewDispatcher(store, log, deliverer, time.Second, logger.NopLogger())

	entry := d.Dispatch(context.Background(), models.InboundMessage{
		ID:      "msg-2",
		Source:  "Grup Lain",
		Message: "Nama: Budi",
	})

	assert.Equal(t, activity.StatusFailed, entry.Status)
	assert.Equal(t, "no active rule for source", entry.Error)
	assert.Empty(t, entry.TransformedMessage)
	assert.Equal(t, 0, deliverer.calls())
	assert.Equal(t, 1, log.Len())
}

func TestDispatchInactiveRuleFailsClosed(t *testing.T) {
	rule := paymentRule()
	rule.Active = false

	store := newTestStore(t, rule)
	log := activity.NewLog(100, nil, logger.NopLogger())
	deliverer := &fakeDeliverer{}

	d := NewDispatcher(store, log, deliverer, time.Second, logger.NopLogger())

	entry := d.Dispatch(context.Background(), models.InboundMessage{
		ID:      "msg-3",
		Source:  "Grup Order Masuk",
		Message: "Nama: Budi",
	})

	assert.Equal(t, activity.StatusFailed, entry.Status)
	assert.Equal(t, "no active rule for source", entry.Error)
	assert.Equal(t, 0, deliverer.calls())
}

func TestDispatchDeliveryFailure(t *testing.T) {
	store := newTestStore(t, paymentRule())
	log := activity.NewLog(100, nil, logger.NopLogger())
	deliverer := &fakeDeliverer{err: fmt.Errorf("bot API returned status 503")}

	d := NewDispatcher(store, log, deliverer, time.Second, logger.NopLogger())

	entry := d.Dispatch(context.Background(), models.InboundMessage{
		ID:      "msg-4",
		Source:  "Grup Order Masuk",
		Message: "Nama: Budi\nProduk: Kopi\nTotal: 5000",
	})

	assert.Equal(t, activity.StatusFailed, entry.Status)
	assert.Contains(t, entry.Error, "503")
	assert.Empty(t, entry.TransformedMessage)
	assert.Equal(t, 1, log.Len())
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	store := newTestStore(t, paymentRule())
	log := activity.NewLog(100, nil, logger.NopLogger())
	deliverer := &fakeDeliverer{panics: true}

	d := NewDispatcher(store, log, deliverer, time.Second, logger.NopLogger())

	entry := d.Dispatch(context.Background(), models.InboundMessage{
		ID:      "msg-5",
		Source:  "Grup Order Masuk",
		Message: "Nama: Budi",
	})

	assert.Equal(t, activity.StatusFailed, entry.Status)
	assert.NotEmpty(t, entry.Error)
	assert.Equal(t, 1, log.Len())
}

func TestPreview(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, time.Second, logger.NopLogger())

	fields, rendered := d.Preview("Nama: Budi\nTotal: 5000", rules.Rule{
		FieldPatterns: map[string]string{
			"nama":  "Nama:",
			"total": "Total:",
			"kota":  "Kota:",
		},
		OutputTemplate: "{nama} bayar {total} dari {kota}",
	})

	assert.Equal(t, Fields{"nama": "Budi", "total": "5000"}, fields)
	assert.Equal(t, "Budi bayar 5000 dari {kota}", rendered)
}
