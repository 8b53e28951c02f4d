// Package sqlite is the durable store for market-owned state: sequence
// counters, active listings and the sell and buy logs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/market"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists market changesets. Unsigned 64-bit ids are stored as
// their two's-complement INTEGER bit pattern.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sequence_counters (
			listing_type INTEGER PRIMARY KEY,
			last_id INTEGER NOT NULL
		);`,
		listingTable("item_listings"),
		listingTable("material_listings"),
		`CREATE INDEX IF NOT EXISTS item_listings_owner ON item_listings(owner);`,
		`CREATE INDEX IF NOT EXISTS material_listings_owner ON material_listings(owner);`,
		`CREATE TABLE IF NOT EXISTS sell_logs (
			id TEXT PRIMARY KEY,
			seller TEXT NOT NULL,
			buyer TEXT NOT NULL,
			at TEXT NOT NULL,
			listing_type INTEGER NOT NULL,
			listing_id INTEGER NOT NULL,
			code INTEGER NOT NULL,
			dna INTEGER NOT NULL,
			level INTEGER NOT NULL,
			exp INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			precision INTEGER NOT NULL,
			tax_rate INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS sell_logs_seller ON sell_logs(seller, at);`,
		`CREATE TABLE IF NOT EXISTS buy_logs (
			id TEXT PRIMARY KEY,
			buyer TEXT NOT NULL,
			seller TEXT NOT NULL,
			at TEXT NOT NULL,
			listing_type INTEGER NOT NULL,
			listing_id INTEGER NOT NULL,
			code INTEGER NOT NULL,
			dna INTEGER NOT NULL,
			level INTEGER NOT NULL,
			exp INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			precision INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS buy_logs_buyer ON buy_logs(buyer, at);`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("sqlite: schema: %w", err)
		}
	}
	return nil
}

func listingTable(name string) string {
	return `CREATE TABLE IF NOT EXISTS ` + name + ` (
		id INTEGER PRIMARY KEY,
		owner TEXT NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		precision INTEGER NOT NULL,
		code INTEGER NOT NULL,
		dna INTEGER NOT NULL,
		level INTEGER NOT NULL,
		exp INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);`
}

func tableFor(t domain.ListingType) (string, error) {
	switch t {
	case domain.ListingTypeItem:
		return "item_listings", nil
	case domain.ListingTypeMaterial:
		return "material_listings", nil
	}
	return "", fmt.Errorf("sqlite: unknown listing type %d", t)
}

// Commit writes one changeset in a single transaction.
func (s *Store) Commit(ctx context.Context, cs market.Changeset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for t, last := range cs.Counters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sequence_counters(listing_type, last_id) VALUES(?, ?)
			 ON CONFLICT(listing_type) DO UPDATE SET last_id = excluded.last_id`,
			int64(t), int64(last),
		); err != nil {
			return fmt.Errorf("sqlite: counter %s: %w", t, err)
		}
	}
	for _, l := range cs.Inserted {
		table, err := tableFor(l.Type)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+`(id, owner, amount, currency, precision, code, dna, level, exp, created_at)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(l.ID), l.Owner, l.Price.Amount, l.Price.Symbol.Code, int64(l.Price.Symbol.Precision),
			int64(l.Asset.Code), int64(l.Asset.DNA), int64(l.Asset.Level), int64(l.Asset.Exp),
			l.CreatedAt.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("sqlite: insert %s %d: %w", l.Type, l.ID, err)
		}
	}
	for _, ref := range cs.Removed {
		table, err := tableFor(ref.Type)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, int64(ref.ID))
		if err != nil {
			return fmt.Errorf("sqlite: delete %s %d: %w", ref.Type, ref.ID, err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("sqlite: delete %s %d: %w", ref.Type, ref.ID, domain.ErrListingNotFound)
		}
	}
	for _, e := range cs.Sells {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sell_logs(id, seller, buyer, at, listing_type, listing_id, code, dna, level, exp, amount, currency, precision, tax_rate)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Seller, e.Buyer, e.At.UTC().Format(timeLayout), int64(e.Type), int64(e.ListingID),
			int64(e.Asset.Code), int64(e.Asset.DNA), int64(e.Asset.Level), int64(e.Asset.Exp),
			e.Price.Amount, e.Price.Symbol.Code, int64(e.Price.Symbol.Precision), e.TaxRate,
		); err != nil {
			return fmt.Errorf("sqlite: sell log %s: %w", e.ID, err)
		}
	}
	for _, e := range cs.Buys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO buy_logs(id, buyer, seller, at, listing_type, listing_id, code, dna, level, exp, amount, currency, precision)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Buyer, e.Seller, e.At.UTC().Format(timeLayout), int64(e.Type), int64(e.ListingID),
			int64(e.Asset.Code), int64(e.Asset.DNA), int64(e.Asset.Level), int64(e.Asset.Exp),
			e.Price.Amount, e.Price.Symbol.Code, int64(e.Price.Symbol.Precision),
		); err != nil {
			return fmt.Errorf("sqlite: buy log %s: %w", e.ID, err)
		}
	}

	for _, id := range cs.VoidedSells {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sell_logs WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: void sell log %s: %w", id, err)
		}
	}
	for _, id := range cs.VoidedBuys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM buy_logs WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: void buy log %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Load reads the counters and every active listing.
func (s *Store) Load(ctx context.Context) (market.Snapshot, error) {
	snap := market.Snapshot{Counters: make(map[domain.ListingType]uint64)}

	rows, err := s.db.QueryContext(ctx, `SELECT listing_type, last_id FROM sequence_counters`)
	if err != nil {
		return snap, fmt.Errorf("sqlite: load counters: %w", err)
	}
	for rows.Next() {
		var t, last int64
		if err := rows.Scan(&t, &last); err != nil {
			rows.Close()
			return snap, fmt.Errorf("sqlite: load counters: %w", err)
		}
		snap.Counters[domain.ListingType(t)] = uint64(last)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("sqlite: load counters: %w", err)
	}

	for _, t := range domain.ListingTypes {
		listings, err := s.loadListings(ctx, t)
		if err != nil {
			return snap, err
		}
		snap.Listings = append(snap.Listings, listings...)
	}
	return snap, nil
}

func (s *Store) loadListings(ctx context.Context, t domain.ListingType) ([]domain.Listing, error) {
	table, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, amount, currency, precision, code, dna, level, exp, created_at FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load %s: %w", table, err)
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		var (
			id, precision, code, dna, level, exp int64
			l                                    domain.Listing
			created                              string
		)
		if err := rows.Scan(&id, &l.Owner, &l.Price.Amount, &l.Price.Symbol.Code, &precision,
			&code, &dna, &level, &exp, &created); err != nil {
			return nil, fmt.Errorf("sqlite: load %s: %w", table, err)
		}
		l.ID = uint64(id)
		l.Type = t
		l.Price.Symbol.Precision = uint8(precision)
		l.Asset = domain.Asset{Code: uint16(code), DNA: uint64(dna), Level: uint32(level), Exp: uint32(exp)}
		if l.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("sqlite: listing %d created_at: %w", l.ID, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SellLogs returns the seller's entries in chronological order.
func (s *Store) SellLogs(ctx context.Context, seller string) ([]domain.SellLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seller, buyer, at, listing_type, listing_id, code, dna, level, exp, amount, currency, precision, tax_rate
		 FROM sell_logs WHERE seller = ? ORDER BY at, rowid`, seller)
	if err != nil {
		return nil, fmt.Errorf("sqlite: sell logs: %w", err)
	}
	defer rows.Close()

	out := []domain.SellLog{}
	for rows.Next() {
		var (
			e                                             domain.SellLog
			at                                            string
			typ, listingID, code, dna, level, exp, precis int64
		)
		if err := rows.Scan(&e.ID, &e.Seller, &e.Buyer, &at, &typ, &listingID, &code, &dna, &level, &exp,
			&e.Price.Amount, &e.Price.Symbol.Code, &precis, &e.TaxRate); err != nil {
			return nil, fmt.Errorf("sqlite: sell logs: %w", err)
		}
		if e.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("sqlite: sell log %s: %w", e.ID, err)
		}
		e.Type = domain.ListingType(typ)
		e.ListingID = uint64(listingID)
		e.Asset = domain.Asset{Code: uint16(code), DNA: uint64(dna), Level: uint32(level), Exp: uint32(exp)}
		e.Price.Symbol.Precision = uint8(precis)
		out = append(out, e)
	}
	return out, rows.Err()
}

// BuyLogs returns the buyer's entries in chronological order.
func (s *Store) BuyLogs(ctx context.Context, buyer string) ([]domain.BuyLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, buyer, seller, at, listing_type, listing_id, code, dna, level, exp, amount, currency, precision
		 FROM buy_logs WHERE buyer = ? ORDER BY at, rowid`, buyer)
	if err != nil {
		return nil, fmt.Errorf("sqlite: buy logs: %w", err)
	}
	defer rows.Close()

	out := []domain.BuyLog{}
	for rows.Next() {
		var (
			e                                             domain.BuyLog
			at                                            string
			typ, listingID, code, dna, level, exp, precis int64
		)
		if err := rows.Scan(&e.ID, &e.Buyer, &e.Seller, &at, &typ, &listingID, &code, &dna, &level, &exp,
			&e.Price.Amount, &e.Price.Symbol.Code, &precis); err != nil {
			return nil, fmt.Errorf("sqlite: buy logs: %w", err)
		}
		if e.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("sqlite: buy log %s: %w", e.ID, err)
		}
		e.Type = domain.ListingType(typ)
		e.ListingID = uint64(listingID)
		e.Asset = domain.Asset{Code: uint16(code), DNA: uint64(dna), Level: uint32(level), Exp: uint32(exp)}
		e.Price.Symbol.Precision = uint8(precis)
		out = append(out, e)
	}
	return out, rows.Err()
}
