package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"EtfVolatility/internal/model"
	"EtfVolatility/internal/series"
)

// CSVStore keeps each artifact in its own CSV file under a data directory:
//
//	volatility/{code}_full_history.csv  trade_date,close
//	volatility/{code}_with_hv.csv       trade_date,close,HV20,HV60,HV252
//	vix/{code}_vix.csv                  trade_date,VIX
//	multi_etf/{code}_processed.csv      option chain, read only
//
// Files are replaced via a temp file and rename.
type CSVStore struct {
	dir string
}

// NewCSVStore creates the directory layout under dir.
func NewCSVStore(dir string) (*CSVStore, error) {
	for _, sub := range []string{"volatility", "vix", "multi_etf"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &CSVStore{dir: dir}, nil
}

// Path returns the file backing an artifact.
func (s *CSVStore) Path(code string, kind Kind) string {
	switch kind {
	case KindPrice:
		return filepath.Join(s.dir, "volatility", code+"_full_history.csv")
	case KindHV:
		return filepath.Join(s.dir, "volatility", code+"_with_hv.csv")
	case KindVix:
		return filepath.Join(s.dir, "vix", code+"_vix.csv")
	default:
		return filepath.Join(s.dir, "multi_etf", code+"_processed.csv")
	}
}

func (s *CSVStore) ReadPrices(code string) ([]model.PricePoint, error) {
	var out []model.PricePoint
	err := s.readTable(code, KindPrice, []string{"trade_date", "close"}, func(c columns) error {
		d, err := c.date("trade_date")
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(c.get("close"), 64)
		if err != nil {
			return fmt.Errorf("close: %w", err)
		}
		out = append(out, model.PricePoint{Date: d, Close: v})
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Files written by other tools may be unordered.
	return series.Merge(nil, out), nil
}

func (s *CSVStore) WritePrices(code string, rows []model.PricePoint) error {
	if err := series.Validate(rows); err != nil {
		return err
	}
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{r.Date.Format(model.DateLayout), formatFloat(r.Close)}
	}
	return s.writeTable(code, KindPrice, []string{"trade_date", "close"}, records)
}

func (s *CSVStore) ReadHV(code string) ([]model.HVRecord, error) {
	var out []model.HVRecord
	err := s.readTable(code, KindHV, []string{"trade_date", "close", "HV20", "HV60", "HV252"}, func(c columns) error {
		d, err := c.date("trade_date")
		if err != nil {
			return err
		}
		rec := model.HVRecord{Date: d}
		if rec.Close, err = strconv.ParseFloat(c.get("close"), 64); err != nil {
			return fmt.Errorf("close: %w", err)
		}
		if rec.HV20, err = model.ParseFloat(c.get("HV20")); err != nil {
			return fmt.Errorf("HV20: %w", err)
		}
		if rec.HV60, err = model.ParseFloat(c.get("HV60")); err != nil {
			return fmt.Errorf("HV60: %w", err)
		}
		if rec.HV252, err = model.ParseFloat(c.get("HV252")); err != nil {
			return fmt.Errorf("HV252: %w", err)
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (s *CSVStore) WriteHV(code string, rows []model.HVRecord) error {
	if err := series.Validate(rows); err != nil {
		return err
	}
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.Date.Format(model.DateLayout), formatFloat(r.Close),
			r.HV20.String(), r.HV60.String(), r.HV252.String(),
		}
	}
	return s.writeTable(code, KindHV, []string{"trade_date", "close", "HV20", "HV60", "HV252"}, records)
}

func (s *CSVStore) ReadVix(code string) ([]model.VixRecord, error) {
	var out []model.VixRecord
	err := s.readTable(code, KindVix, []string{"trade_date", "VIX"}, func(c columns) error {
		d, err := c.date("trade_date")
		if err != nil {
			return err
		}
		v, err := model.ParseFloat(c.get("VIX"))
		if err != nil {
			return fmt.Errorf("VIX: %w", err)
		}
		out = append(out, model.VixRecord{Date: d, Value: v})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return series.Merge(nil, out), nil
}

func (s *CSVStore) WriteVix(code string, rows []model.VixRecord) error {
	if err := series.Validate(rows); err != nil {
		return err
	}
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{r.Date.Format(model.DateLayout), r.Value.String()}
	}
	return s.writeTable(code, KindVix, []string{"trade_date", "VIX"}, records)
}

// ReadOptionChain reads the upstream processed option chain. Malformed rows
// are skipped with a warning.
func (s *CSVStore) ReadOptionChain(code string) ([]model.OptionQuote, error) {
	f, err := os.Open(s.Path(code, KindOptionChain))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open option chain: %w", err)
	}
	defer f.Close()
	return ReadOptionChainCSV(f)
}

var optionColumns = []string{"trade_date", "exercise_price", "dte", "call_put", "close", "underlying_price"}

// ReadOptionChainCSV parses a processed option chain with the columns
// trade_date, exercise_price, dte, call_put, close, underlying_price.
func ReadOptionChainCSV(r io.Reader) ([]model.OptionQuote, error) {
	var out []model.OptionQuote
	skipped := 0
	err := scanTable(r, optionColumns, func(c columns) error {
		q, err := parseOptionRow(c)
		if err != nil {
			skipped++
			return nil
		}
		out = append(out, q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Printf("[WARN] option chain: skipped %d malformed rows", skipped)
	}
	return out, nil
}

func parseOptionRow(c columns) (model.OptionQuote, error) {
	d, err := c.date("trade_date")
	if err != nil {
		return model.OptionQuote{}, err
	}
	strike, err := strconv.ParseFloat(c.get("exercise_price"), 64)
	if err != nil {
		return model.OptionQuote{}, err
	}
	dte, err := strconv.ParseFloat(c.get("dte"), 64)
	if err != nil || dte < 0 {
		return model.OptionQuote{}, fmt.Errorf("bad dte %q", c.get("dte"))
	}
	price, err := strconv.ParseFloat(c.get("close"), 64)
	if err != nil {
		return model.OptionQuote{}, err
	}
	underlying, err := strconv.ParseFloat(c.get("underlying_price"), 64)
	if err != nil {
		return model.OptionQuote{}, err
	}
	typ := model.OptionType(strings.ToUpper(strings.TrimSpace(c.get("call_put"))))
	if typ != model.Call && typ != model.Put {
		return model.OptionQuote{}, fmt.Errorf("bad call_put %q", typ)
	}
	return model.OptionQuote{
		Date:            d,
		Strike:          strike,
		DaysToExpiry:    int(dte),
		Type:            typ,
		Price:           price,
		UnderlyingPrice: underlying,
	}, nil
}

func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) readTable(code string, kind Kind, required []string, fn func(columns) error) error {
	f, err := os.Open(s.Path(code, kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("open %s: %w", kind, err)
	}
	defer f.Close()
	if err := scanTable(f, required, fn); err != nil {
		return fmt.Errorf("read %s %s: %w", code, kind, err)
	}
	return nil
}

// writeTable writes to a temp file in the target directory and renames it
// over the artifact, so readers see either the old or the new file.
func (s *CSVStore) writeTable(code string, kind Kind, header []string, records [][]string) error {
	path := s.Path(code, kind)
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", kind, err)
	}
	return nil
}

// columns gives by-name access to one CSV record.
type columns struct {
	index  map[string]int
	record []string
}

func (c columns) get(name string) string {
	i, ok := c.index[name]
	if !ok || i >= len(c.record) {
		return ""
	}
	return strings.TrimSpace(c.record[i])
}

func (c columns) date(name string) (time.Time, error) {
	return model.ParseDay(c.get(name))
}

func scanTable(r io.Reader, required []string, fn func(columns) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return fmt.Errorf("missing column %q", name)
		}
	}

	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(columns{index: index, record: record}); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
