package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"EtfVolatility/internal/model"
)

// DefaultYahooURL is the Yahoo Finance chart endpoint.
const DefaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooFetcher implements Fetcher using the Yahoo Finance public chart API.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: DefaultYahooURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooSymbol maps exchange suffixes: Shanghai .SH is .SS on Yahoo.
func yahooSymbol(code string) string {
	if strings.HasSuffix(code, ".SH") {
		return strings.TrimSuffix(code, ".SH") + ".SS"
	}
	return code
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []any `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchPriceHistory requests daily bars for [start, end]. Null bars are skipped.
func (f *YahooFetcher) FetchPriceHistory(ctx context.Context, code string, start, end time.Time) ([]model.PricePoint, error) {
	points, err := f.fetchChart(ctx, code, start, end)
	if err != nil {
		return nil, &FetchError{Source: f.Name(), Code: code, Op: "chart", Err: err}
	}
	return points, nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, code string, start, end time.Time) ([]model.PricePoint, error) {
	u := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d",
		f.BaseURL, url.PathEscape(yahooSymbol(code)), model.Day(start).Unix(), model.Day(end).AddDate(0, 0, 1).Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) {
			break
		}
		c := toFloat(closes[i])
		if c <= 0 {
			continue // null bars (holidays etc.)
		}
		// Exchange-local date; Asia/Shanghai is UTC+8.
		d := model.Day(time.Unix(ts, 0).In(time.FixedZone("CST", 8*3600)))
		points = append(points, model.PricePoint{Date: d, Close: c})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
