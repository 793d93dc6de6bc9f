package storage

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"EtfVolatility/internal/model"
	"EtfVolatility/internal/series"
)

// SQLiteStore persists artifacts to a SQLite database. Each write replaces
// an instrument's artifact inside one transaction.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the dashboard read while an update writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prices (
			code       TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			close      REAL NOT NULL,
			PRIMARY KEY (code, trade_date)
		)`,
		`CREATE TABLE IF NOT EXISTS hv (
			code       TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			close      REAL NOT NULL,
			hv20       REAL,
			hv60       REAL,
			hv252      REAL,
			PRIMARY KEY (code, trade_date)
		)`,
		`CREATE TABLE IF NOT EXISTS vix (
			code       TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			value      REAL,
			PRIMARY KEY (code, trade_date)
		)`,
		`CREATE TABLE IF NOT EXISTS option_quotes (
			code             TEXT NOT NULL,
			seq              INTEGER NOT NULL,
			trade_date       TEXT NOT NULL,
			strike           REAL NOT NULL,
			dte              INTEGER NOT NULL,
			call_put         TEXT NOT NULL,
			price            REAL NOT NULL,
			underlying_price REAL NOT NULL,
			PRIMARY KEY (code, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			code       TEXT NOT NULL,
			kind       TEXT NOT NULL,
			row_count  INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (code, kind)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// exists reports whether an artifact has ever been written.
func (s *SQLiteStore) exists(code string, kind Kind) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM artifacts WHERE code = ? AND kind = ?`, code, string(kind)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", kind, err)
	}
	return n > 0, nil
}

// replace deletes an artifact's rows and inserts new ones in one transaction.
func (s *SQLiteStore) replace(code string, kind Kind, table, insert string, n int, args func(i int) []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE code = ?`, code); err != nil {
		return fmt.Errorf("clear %s: %w", kind, err)
	}
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", kind, err)
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(args(i)...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", kind, i, err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO artifacts (code, kind, row_count, updated_at) VALUES (?,?,?,?)
		ON CONFLICT(code, kind) DO UPDATE SET row_count = excluded.row_count, updated_at = excluded.updated_at`,
		code, string(kind), n, time.Now().Unix()); err != nil {
		return fmt.Errorf("mark %s: %w", kind, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ReadPrices(code string) ([]model.PricePoint, error) {
	if ok, err := s.exists(code, KindPrice); err != nil || !ok {
		return nil, notFound(err)
	}
	rows, err := s.db.Query(`SELECT trade_date, close FROM prices WHERE code = ? ORDER BY trade_date`, code)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var out []model.PricePoint
	for rows.Next() {
		var d string
		var p model.PricePoint
		if err := rows.Scan(&d, &p.Close); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		if p.Date, err = model.ParseDay(d); err != nil {
			return nil, fmt.Errorf("parse price date: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) WritePrices(code string, rows []model.PricePoint) error {
	if err := series.Validate(rows); err != nil {
		return err
	}
	return s.replace(code, KindPrice, "prices",
		`INSERT INTO prices (code, trade_date, close) VALUES (?,?,?)`, len(rows),
		func(i int) []any {
			return []any{code, rows[i].Date.Format(model.DateLayout), rows[i].Close}
		})
}

func (s *SQLiteStore) ReadHV(code string) ([]model.HVRecord, error) {
	if ok, err := s.exists(code, KindHV); err != nil || !ok {
		return nil, notFound(err)
	}
	rows, err := s.db.Query(`SELECT trade_date, close, hv20, hv60, hv252 FROM hv WHERE code = ? ORDER BY trade_date`, code)
	if err != nil {
		return nil, fmt.Errorf("query hv: %w", err)
	}
	defer rows.Close()

	var out []model.HVRecord
	for rows.Next() {
		var d string
		var r model.HVRecord
		var hv20, hv60, hv252 sql.NullFloat64
		if err := rows.Scan(&d, &r.Close, &hv20, &hv60, &hv252); err != nil {
			return nil, fmt.Errorf("scan hv: %w", err)
		}
		if r.Date, err = model.ParseDay(d); err != nil {
			return nil, fmt.Errorf("parse hv date: %w", err)
		}
		r.HV20, r.HV60, r.HV252 = fromNull(hv20), fromNull(hv60), fromNull(hv252)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) WriteHV(code string, rows []model.HVRecord) error {
	if err := series.Validate(rows); err != nil {
		return err
	}
	return s.replace(code, KindHV, "hv",
		`INSERT INTO hv (code, trade_date, close, hv20, hv60, hv252) VALUES (?,?,?,?,?,?)`, len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{code, r.Date.Format(model.DateLayout), r.Close, toNull(r.HV20), toNull(r.HV60), toNull(r.HV252)}
		})
}

func (s *SQLiteStore) ReadVix(code string) ([]model.VixRecord, error) {
	if ok, err := s.exists(code, KindVix); err != nil || !ok {
		return nil, notFound(err)
	}
	rows, err := s.db.Query(`SELECT trade_date, value FROM vix WHERE code = ? ORDER BY trade_date`, code)
	if err != nil {
		return nil, fmt.Errorf("query vix: %w", err)
	}
	defer rows.Close()

	var out []model.VixRecord
	for rows.Next() {
		var d string
		var v sql.NullFloat64
		var r model.VixRecord
		if err := rows.Scan(&d, &v); err != nil {
			return nil, fmt.Errorf("scan vix: %w", err)
		}
		if r.Date, err = model.ParseDay(d); err != nil {
			return nil, fmt.Errorf("parse vix date: %w", err)
		}
		r.Value = fromNull(v)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) WriteVix(code string, rows []model.VixRecord) error {
	if err := series.Validate(rows); err != nil {
		return err
	}
	return s.replace(code, KindVix, "vix",
		`INSERT INTO vix (code, trade_date, value) VALUES (?,?,?)`, len(rows),
		func(i int) []any {
			return []any{code, rows[i].Date.Format(model.DateLayout), toNull(rows[i].Value)}
		})
}

func (s *SQLiteStore) ReadOptionChain(code string) ([]model.OptionQuote, error) {
	if ok, err := s.exists(code, KindOptionChain); err != nil || !ok {
		return nil, notFound(err)
	}
	rows, err := s.db.Query(`SELECT trade_date, strike, dte, call_put, price, underlying_price
		FROM option_quotes WHERE code = ? ORDER BY seq`, code)
	if err != nil {
		return nil, fmt.Errorf("query option quotes: %w", err)
	}
	defer rows.Close()

	var out []model.OptionQuote
	for rows.Next() {
		var d, typ string
		var q model.OptionQuote
		if err := rows.Scan(&d, &q.Strike, &q.DaysToExpiry, &typ, &q.Price, &q.UnderlyingPrice); err != nil {
			return nil, fmt.Errorf("scan option quote: %w", err)
		}
		if q.Date, err = model.ParseDay(d); err != nil {
			return nil, fmt.Errorf("parse option date: %w", err)
		}
		q.Type = model.OptionType(typ)
		out = append(out, q)
	}
	return out, rows.Err()
}

// ImportOptionChain replaces the option chain snapshot for code, keeping
// provider order.
func (s *SQLiteStore) ImportOptionChain(code string, quotes []model.OptionQuote) error {
	return s.replace(code, KindOptionChain, "option_quotes",
		`INSERT INTO option_quotes (code, seq, trade_date, strike, dte, call_put, price, underlying_price)
		VALUES (?,?,?,?,?,?,?,?)`, len(quotes),
		func(i int) []any {
			q := quotes[i]
			return []any{code, i, q.Date.Format(model.DateLayout), q.Strike, q.DaysToExpiry, string(q.Type), q.Price, q.UnderlyingPrice}
		})
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}

func notFound(err error) error {
	if err != nil {
		return err
	}
	return ErrNotFound
}

func toNull(f model.Float) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f.Value, Valid: f.Valid}
}

func fromNull(n sql.NullFloat64) model.Float {
	return model.Float{Value: n.Float64, Valid: n.Valid}
}
