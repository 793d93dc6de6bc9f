package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EtfVolatility/internal/collector"
	"EtfVolatility/internal/model"
	"EtfVolatility/internal/storage"
	"EtfVolatility/internal/updater"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingSender) SendWithRetry(_ context.Context, text string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
	return nil
}

var instruments = []model.Instrument{
	{Code: "510050.SH", Name: "50ETF"},
	{Code: "510300.SH", Name: "300ETF"},
}

func newScheduler(t *testing.T) (*Scheduler, *recordingSender, *storage.MemoryStore) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := collector.GenerateMockPrices(start, 30, 2.5, 0.002)
	f := &collector.MockFetcher{Prices: map[string][]model.PricePoint{
		"510050.SH": prices,
		"510300.SH": prices,
	}}
	store := storage.NewMemoryStore()
	u := updater.New(updater.Options{
		Fetcher: f,
		Store:   store,
		Epoch:   start,
		Now:     func() time.Time { return prices[len(prices)-1].Date },
	})
	sender := &recordingSender{}
	s := NewScheduler(context.Background(), u, store, instruments, sender)
	s.now = func() time.Time { return time.Date(2024, 2, 9, 18, 0, 0, 0, time.UTC) }
	return s, sender, store
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newScheduler(t)
	require.NoError(t, s.RegisterAll("0 0 18 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.RegisterAll("not a cron"))
}

func TestRunNow(t *testing.T) {
	s, _, store := newScheduler(t)

	reports, err := s.RunNow()
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, model.StepUpdated, r.Price)
		assert.Equal(t, model.StepUpdated, r.HV)
		assert.Equal(t, model.StepSkipped, r.VIX)
	}

	hv, err := store.ReadHV("510300.SH")
	require.NoError(t, err)
	assert.Len(t, hv, 30)
}

func TestRunNow_Busy(t *testing.T) {
	s, _, _ := newScheduler(t)
	s.running = true
	_, err := s.RunNow()
	assert.ErrorIs(t, err, ErrBusy)
}

func TestDailyTask_Notifies(t *testing.T) {
	s, sender, _ := newScheduler(t)
	s.dailyTask()

	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "2024-02-09 18:00")
	assert.Contains(t, sender.msgs[0], "510300.SH")
}

func TestDailyTask_NoNotifier(t *testing.T) {
	s, _, _ := newScheduler(t)
	s.Notifier = nil
	assert.NotPanics(t, s.dailyTask)
}

func TestHandleCommand(t *testing.T) {
	s, _, _ := newScheduler(t)

	assert.Contains(t, s.HandleCommand("/stats 510050.sh"), "暂无数据")
	assert.Contains(t, s.HandleCommand("/stats"), "用法")
	assert.Contains(t, s.HandleCommand("/stats 000001.SZ"), "未跟踪")
	assert.Contains(t, s.HandleCommand("/list"), "510300.SH 300ETF")
	assert.Contains(t, s.HandleCommand("hello"), "可用命令")

	_, err := s.RunNow()
	require.NoError(t, err)
	reply := s.HandleCommand("/stats 510050.SH")
	assert.Contains(t, reply, "50ETF")
	assert.Contains(t, reply, "HV20")
}
