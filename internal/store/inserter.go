package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ehdc-llpg/deduplicator/internal/address"
)

// Inserter wraps a transaction with prepared statements for bulk address
// and hash insertion. It is not safe for concurrent use; callers typically
// confine one Inserter to a single writer goroutine.
type Inserter struct {
	tx                *sql.Tx
	insertAddressStmt *sql.Stmt
	insertHashStmt    *sql.Stmt
}

// NewInserter begins a transaction on db and prepares its insert
// statements.
func NewInserter(db *sql.DB) (*Inserter, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin inserter transaction: %w", err)
	}

	insertAddress, err := tx.Prepare(fmt.Sprintf(
		`INSERT INTO %s (lat, lon, number, street, unit, city, district, region, postcode, rank)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`, tableAddresses))
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("store: prepare insert address: %w", err)
	}

	insertHash, err := tx.Prepare(fmt.Sprintf(
		`INSERT INTO %s (address, hash) VALUES (?, ?);`, tableHashes))
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("store: prepare insert hash: %w", err)
	}

	return &Inserter{tx: tx, insertAddressStmt: insertAddress, insertHashStmt: insertHash}, nil
}

// InsertAddress inserts addr with the given rank and returns its assigned
// id. A constraint violation (the natural key already exists) is reported
// through IsConstraintViolation and is expected, not exceptional.
func (in *Inserter) InsertAddress(addr address.Address, rank float64) (int64, error) {
	res, err := in.insertAddressStmt.Exec(
		addr.Lat, addr.Lon, addr.Number, addr.Street,
		nullable(addr.Unit), nullable(addr.City), nullable(addr.District), nullable(addr.Region), nullable(addr.Postcode),
		rank,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertHash records that addressID carries fingerprint.
func (in *Inserter) InsertHash(addressID, fingerprint int64) error {
	_, err := in.insertHashStmt.Exec(addressID, fingerprint)
	return err
}

// Commit finalizes the transaction, closing the prepared statements first.
func (in *Inserter) Commit() error {
	in.insertAddressStmt.Close()
	in.insertHashStmt.Close()
	return in.tx.Commit()
}

// Rollback aborts the transaction.
func (in *Inserter) Rollback() error {
	in.insertAddressStmt.Close()
	in.insertHashStmt.Close()
	return in.tx.Rollback()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// IsConstraintViolation reports whether err originates from a SQLite
// UNIQUE/PRIMARY KEY constraint failure. Such failures are treated as
// idempotence signals: re-inserting an address or an (address, hash) pair
// that is already present is expected behavior, not a hard error.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite reports constraint violations with a message
	// containing "constraint failed"; the driver does not expose a typed
	// error for this the way lib/pq does for Postgres.
	msg := err.Error()
	return strings.Contains(msg, "constraint failed") || errors.Is(err, errConstraint)
}

var errConstraint = errors.New("constraint failed")
