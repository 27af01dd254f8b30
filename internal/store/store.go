// Package store implements the durable, SQLite-backed index of addresses
// and their locality-sensitive fingerprints. It is the single writer of
// truth the insertion pipeline and collision resolver both operate on.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ehdc-llpg/deduplicator/internal/address"
)

const (
	tableAddresses = "addresses"
	tableHashes    = "_addresses_hashes"
	tableToDelete  = "_to_delete"

	defaultCacheSize = 10_000
)

// Store owns a path to an SQLite database file holding the addresses and
// hashes tables. Every exported method that touches the database opens its
// own connection (via Conn or a pooled *sql.DB), mirroring the
// one-connection-per-operation style the schema was designed around.
type Store struct {
	path      string
	db        *sql.DB
	cacheSize int
}

// Open creates (if needed) the schema at path and returns a Store. A
// cacheSize of 0 or less uses defaultCacheSize (10,000 pages).
func Open(path string, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	s := &Store{path: path, db: db, cacheSize: cacheSize}
	if err := s.applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) applyPragmas(db *sql.DB) error {
	stmts := []string{
		"PRAGMA page_size = 4096;",
		fmt.Sprintf("PRAGMA cache_size = %d;", s.cacheSize),
		"PRAGMA synchronous = OFF;",
		"PRAGMA journal_mode = OFF;",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store: apply pragma %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) createSchema(db *sql.DB) error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			lat      REAL NOT NULL,
			lon      REAL NOT NULL,
			number   TEXT NOT NULL,
			street   TEXT NOT NULL,
			unit     TEXT,
			city     TEXT,
			district TEXT,
			region   TEXT,
			postcode TEXT,
			rank     REAL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS %s_natural_key ON %s (
			number, street, IFNULL(unit, ''), IFNULL(city, ''),
			IFNULL(district, ''), IFNULL(region, ''), IFNULL(postcode, '')
		);

		CREATE TABLE IF NOT EXISTS %s (
			address INTEGER NOT NULL,
			hash    INTEGER NOT NULL,
			PRIMARY KEY (address, hash)
		) WITHOUT ROWID;

		CREATE TABLE IF NOT EXISTS %s (
			address_id INTEGER PRIMARY KEY
		);
	`, tableAddresses, tableAddresses, tableAddresses, tableHashes, tableToDelete)

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// Conn opens a fresh connection to the underlying database file, for
// callers (pipeline workers, resolver partitions) that need a dedicated
// connection of their own.
func (s *Store) Conn() (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("store: open connection: %w", err)
	}
	if err := s.applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the store's primary connection. It does not affect
// connections obtained via Conn.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateHashesIndex indexes the hashes table by fingerprint value. SQLite's
// query planner will typically create this automatically when needed; this
// exists mainly so callers can force it up front and time it separately.
func (s *Store) CreateHashesIndex() error {
	_, err := s.db.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_index ON %s (hash);", tableHashes, tableHashes))
	if err != nil {
		return fmt.Errorf("store: create hashes index: %w", err)
	}
	return nil
}

// CountAddresses returns the number of rows in the addresses table.
func (s *Store) CountAddresses() (int64, error) {
	return s.countTable(tableAddresses)
}

// CountHashes returns the number of rows in the hashes table.
func (s *Store) CountHashes() (int64, error) {
	return s.countTable(tableHashes)
}

// CountToDelete returns the number of addresses marked for deletion.
func (s *Store) CountToDelete() (int64, error) {
	return s.countTable(tableToDelete)
}

func (s *Store) countTable(table string) (int64, error) {
	var n int64
	err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s;", table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count %s: %w", table, err)
	}
	return n, nil
}

// CountCities returns the number of distinct city values in the addresses
// table.
func (s *Store) CountCities() (int64, error) {
	var n int64
	err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(DISTINCT city) FROM %s;", tableAddresses)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count cities: %w", err)
	}
	return n, nil
}

// CountCollisions returns the number of (address, hash) pairs sharing a
// hash value with at least one other pair.
func (s *Store) CountCollisions() (int64, error) {
	var n sql.NullInt64
	query := fmt.Sprintf(`
		SELECT SUM(count)
		FROM (
			SELECT COUNT(*) AS count
			FROM %s
			GROUP BY hash
			HAVING count > 1
		);
	`, tableHashes)
	if err := s.db.QueryRow(query).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count collisions: %w", err)
	}
	return n.Int64, nil
}

// AddressesByStreet returns every stored address with the given house
// number and street name.
func (s *Store) AddressesByStreet(number, street string) ([]StoredAddress, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT %s FROM %s WHERE number = ? AND street = ?;", selectColumns, tableAddresses), number, street)
	if err != nil {
		return nil, fmt.Errorf("store: query addresses by street: %w", err)
	}
	defer rows.Close()

	var out []StoredAddress
	for rows.Next() {
		sa, err := scanStoredAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

// CleanupDatabase drops the hashes table, freeing the bulk of the working
// space the resolver needed. It must be called after ApplyDeletions if the
// caller intends to ship the output database as the final artifact.
func (s *Store) CleanupDatabase() error {
	if _, err := s.db.Exec(fmt.Sprintf("DROP TABLE %s;", tableHashes)); err != nil {
		return fmt.Errorf("store: cleanup database: %w", err)
	}
	return nil
}

// Vacuum rebuilds the database file, reclaiming the space freed by
// ApplyDeletions and CleanupDatabase.
func (s *Store) Vacuum() error {
	if _, err := s.db.Exec("VACUUM;"); err != nil {
		return fmt.Errorf("store: vacuum: %w", err)
	}
	return nil
}

// InsertToDelete marks ids for deletion. Re-marking an already-marked id is
// a no-op, not an error.
func (s *Store) InsertToDelete(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, err := s.db.Prepare(fmt.Sprintf("INSERT OR IGNORE INTO %s (address_id) VALUES (?);", tableToDelete))
	if err != nil {
		return fmt.Errorf("store: prepare insert to delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("store: insert to delete %d: %w", id, err)
		}
	}
	return nil
}

// ApplyDeletions deletes every address marked in the to-delete table, along
// with its hashes, and clears the table.
func (s *Store) ApplyDeletions() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: apply deletions begin: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		fmt.Sprintf("DELETE FROM %s WHERE address IN (SELECT address_id FROM %s);", tableHashes, tableToDelete),
		fmt.Sprintf("DELETE FROM %s WHERE id IN (SELECT address_id FROM %s);", tableAddresses, tableToDelete),
		fmt.Sprintf("DELETE FROM %s;", tableToDelete),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("store: apply deletions: %w", err)
		}
	}
	return tx.Commit()
}

// StoredAddress is an address together with the surrogate id and rank it
// was stored with.
type StoredAddress struct {
	ID   int64
	Rank float64
	address.Address
}

const selectColumns = "id, lat, lon, number, street, unit, city, district, region, postcode, rank"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStoredAddress(row rowScanner) (StoredAddress, error) {
	var (
		sa                                   StoredAddress
		unit, city, district, region, pcode  sql.NullString
		rank                                 sql.NullFloat64
	)
	if err := row.Scan(&sa.ID, &sa.Lat, &sa.Lon, &sa.Number, &sa.Street, &unit, &city, &district, &region, &pcode, &rank); err != nil {
		return StoredAddress{}, fmt.Errorf("store: scan address: %w", err)
	}
	sa.Unit = unit.String
	sa.City = city.String
	sa.District = district.String
	sa.Region = region.String
	sa.Postcode = pcode.String
	sa.Rank = rank.Float64
	return sa, nil
}
