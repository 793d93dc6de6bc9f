package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EtfVolatility/internal/model"
	"EtfVolatility/internal/stats"
)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []map[string]string
	failures int
	updates  string
}

func (f *fakeTelegram) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if f.failures > 0 {
				f.failures--
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.sent = append(f.sent, body)
			fmt.Fprint(w, `{"ok":true}`)
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			fmt.Fprint(w, f.updates)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestNotifier(t *testing.T, f *fakeTelegram) *TelegramNotifier {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL
	return n
}

func TestSend(t *testing.T) {
	f := &fakeTelegram{}
	n := newTestNotifier(t, f)

	require.NoError(t, n.Send("<b>hi</b>"))
	require.Len(t, f.sent, 1)
	assert.Equal(t, "42", f.sent[0]["chat_id"])
	assert.Equal(t, "HTML", f.sent[0]["parse_mode"])
}

func TestSend_APIError(t *testing.T) {
	f := &fakeTelegram{failures: 1}
	err := newTestNotifier(t, f).Send("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSendWithRetry_Recovers(t *testing.T) {
	f := &fakeTelegram{failures: 1}
	n := newTestNotifier(t, f)

	require.NoError(t, n.SendWithRetry(context.Background(), "x", 2))
	assert.Len(t, f.sent, 1)
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	f := &fakeTelegram{failures: 5}
	n := newTestNotifier(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.SendWithRetry(ctx, "x", 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoll_DispatchesCommands(t *testing.T) {
	f := &fakeTelegram{updates: `{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /stats 510050.SH "}},
		{"update_id":8},
		{"update_id":9,"message":{"text":"/noop"}}]}`}
	n := newTestNotifier(t, f)

	var got []string
	next, err := n.poll(context.Background(), n.Client, 0, 0, func(cmd string) string {
		got = append(got, cmd)
		if cmd == "/noop" {
			return ""
		}
		return "reply:" + cmd
	})
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/stats 510050.SH", "/noop"}, got)
	require.Len(t, f.sent, 1)
	assert.Equal(t, "reply:/stats 510050.SH", f.sent[0]["text"])
}

func TestPoll_BadResponseKeepsOffset(t *testing.T) {
	f := &fakeTelegram{updates: "not json"}
	n := newTestNotifier(t, f)

	next, err := n.poll(context.Background(), n.Client, 3, 0, func(string) string { return "" })
	assert.Error(t, err)
	assert.Equal(t, 3, next)
}

var reports = []model.StatusReport{
	{Code: "510050.SH", Name: "50ETF", Price: model.StepUpdated, HV: model.StepUpdated, VIX: model.StepSkipped, NewPrices: 3},
	{Code: "159915.SZ", Name: "CYBETF", Price: model.StepFailed, HV: model.StepUpdated, VIX: model.StepNoChange,
		Errors: []string{"price: fetch <timeout>"}},
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTable(&buf, reports))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ETF", "CODE", "PRICE", "HV", "VIX", "NEW"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"50ETF", "510050.SH", "✓", "✓", "-", "3/0"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"CYBETF", "159915.SZ", "×", "✓", "×", "0/0"}, strings.Fields(lines[2]))
}

func TestFormatUpdateReport(t *testing.T) {
	msg := FormatUpdateReport(reports, time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC))
	assert.Contains(t, msg, "2024-03-01 18:00")
	assert.Contains(t, msg, "<pre>")
	assert.Contains(t, msg, "fetch &lt;timeout&gt;")
	assert.Contains(t, msg, "1/2")

	ok := FormatUpdateReport(reports[:1], time.Now())
	assert.Contains(t, ok, "✅")
}

func TestFormatStats(t *testing.T) {
	s := &stats.Summary{
		Code: "510300.SH", Name: "300ETF", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Close: 3.512, HV20: model.Some(14.256), VIX: model.None,
		ClosePct: stats.Percentiles{All: model.Some(80), Year: model.Some(55.5)},
		High52w:  4.0, Low52w: 3.0, RangePos52w: 0.512,
	}
	msg := FormatStats(s)
	assert.Contains(t, msg, "2024-03-01")
	assert.Contains(t, msg, "3.512")
	assert.Contains(t, msg, "80.0%")
	assert.Contains(t, msg, "55.5%")
	assert.Contains(t, msg, "HV20: 14.26")
	assert.Contains(t, msg, "VIX: N/A")
	assert.Contains(t, msg, "3.000 ~ 4.000 (位置 51%)")
}
