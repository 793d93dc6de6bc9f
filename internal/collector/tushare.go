package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"EtfVolatility/internal/model"
)

// DefaultTushareURL is the Tushare Pro HTTP endpoint.
const DefaultTushareURL = "http://api.tushare.pro"

// TushareFetcher implements Fetcher using the Tushare Pro fund APIs.
// The token is supplied at construction; there is no shared session.
type TushareFetcher struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewTushareFetcher creates a fetcher with optional proxy support.
func NewTushareFetcher(baseURL, token, proxyURL string) *TushareFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = DefaultTushareURL
	}
	return &TushareFetcher{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *TushareFetcher) Name() string { return "tushare" }

type tushareRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string `json:"fields"`
		Items  [][]any  `json:"items"`
	} `json:"data"`
}

// FetchPriceHistory calls fund_daily for [start, end].
func (f *TushareFetcher) FetchPriceHistory(ctx context.Context, code string, start, end time.Time) ([]model.PricePoint, error) {
	rows, err := f.query(ctx, "fund_daily", map[string]string{
		"ts_code":    code,
		"start_date": start.Format("20060102"),
		"end_date":   end.Format("20060102"),
	}, "trade_date,close")
	if err != nil {
		return nil, &FetchError{Source: f.Name(), Code: code, Op: "fund_daily", Err: err}
	}

	points := make([]model.PricePoint, 0, len(rows))
	for _, r := range rows {
		d, err := model.ParseDay(toString(r["trade_date"]))
		if err != nil {
			log.Printf("[WARN] tushare %s: skip row with bad trade_date %v", code, r["trade_date"])
			continue
		}
		c := toFloat(r["close"])
		if c <= 0 {
			log.Printf("[WARN] tushare %s: skip %s with non-positive close", code, d.Format(model.DateLayout))
			continue
		}
		points = append(points, model.PricePoint{Date: d, Close: c})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// FetchInceptionDate returns fund_basic.list_date.
func (f *TushareFetcher) FetchInceptionDate(ctx context.Context, code string) (time.Time, error) {
	rows, err := f.query(ctx, "fund_basic", map[string]string{"ts_code": code}, "ts_code,list_date")
	if err != nil {
		return time.Time{}, &FetchError{Source: f.Name(), Code: code, Op: "fund_basic", Err: err}
	}
	if len(rows) == 0 {
		return time.Time{}, &FetchError{Source: f.Name(), Code: code, Op: "fund_basic", Err: errors.New("no fund info")}
	}
	d, err := model.ParseDay(toString(rows[0]["list_date"]))
	if err != nil {
		return time.Time{}, &FetchError{Source: f.Name(), Code: code, Op: "fund_basic", Err: fmt.Errorf("parse list_date: %w", err)}
	}
	return d, nil
}

// query posts one API call and returns its rows keyed by field name.
func (f *TushareFetcher) query(ctx context.Context, api string, params map[string]string, fields string) ([]map[string]any, error) {
	payload, err := json.Marshal(tushareRequest{APIName: api, Token: f.Token, Params: params, Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

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

	var result tushareResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("api error %d: %s", result.Code, result.Msg)
	}
	if result.Data == nil {
		return nil, nil
	}

	rows := make([]map[string]any, 0, len(result.Data.Items))
	for _, item := range result.Data.Items {
		row := make(map[string]any, len(result.Data.Fields))
		for i, name := range result.Data.Fields {
			if i < len(item) {
				row[name] = item[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
