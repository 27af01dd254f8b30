// Package dedup provides the Deduplicator facade tying together the store,
// insertion pipeline, and collision resolver into the ingest -> compute ->
// apply -> dump workflow.
package dedup

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ehdc-llpg/deduplicator/internal/address"
	"github.com/ehdc-llpg/deduplicator/internal/pipeline"
	"github.com/ehdc-llpg/deduplicator/internal/resolver"
	"github.com/ehdc-llpg/deduplicator/internal/store"
)

// Config controls how a Deduplicator runs.
type Config struct {
	RefreshDelay time.Duration
	NbThreads    int
	// Keep, when true, skips cleanup/vacuum after apply so the caller can
	// inspect the working tables.
	Keep bool
}

// Deduplicator orchestrates a full deduplication run against a single
// output database.
type Deduplicator struct {
	db     *store.Store
	config Config
	log    *zap.Logger
}

// New opens (creating if needed) the SQLite database at path and returns a
// Deduplicator over it.
func New(path string, cacheSize int, config Config, log *zap.Logger) (*Deduplicator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := store.Open(path, cacheSize)
	if err != nil {
		return nil, err
	}
	return &Deduplicator{db: db, config: config, log: log}, nil
}

// Close releases the underlying store.
func (d *Deduplicator) Close() error {
	return d.db.Close()
}

// Inserter returns a pipeline.Inserter wired to this Deduplicator's store,
// using filter to admit/reject records and rank to score them for survivor
// selection.
func (d *Deduplicator) Inserter(filter pipeline.FilterFunc, rank pipeline.RankFunc) (*pipeline.Inserter, error) {
	return pipeline.New(d.db, filter, rank, d.config.NbThreads, d.log)
}

// ComputeDuplicates scans the store for fingerprint collisions and marks
// the addresses that lose out to a higher-ranked duplicate for deletion.
func (d *Deduplicator) ComputeDuplicates() error {
	before, err := d.db.CountAddresses()
	if err != nil {
		return err
	}
	hashes, err := d.db.CountHashes()
	if err != nil {
		return err
	}
	d.log.Info("computing hash collisions", zap.Int64("addresses", before), zap.Int64("hashes", hashes))

	r := resolver.New(d.db, d.config.NbThreads, d.log)
	return r.ComputeDuplicates()
}

// ApplyDeletions removes every address marked for deletion by
// ComputeDuplicates.
func (d *Deduplicator) ApplyDeletions() error {
	toDelete, err := d.db.CountToDelete()
	if err != nil {
		return err
	}
	d.log.Info("deleting addresses", zap.Int64("count", toDelete))

	if err := d.db.ApplyDeletions(); err != nil {
		return err
	}

	remaining, err := d.db.CountAddresses()
	if err != nil {
		return err
	}
	d.log.Info("deletion complete", zap.Int64("remaining", remaining))

	if !d.config.Keep {
		if err := d.db.CleanupDatabase(); err != nil {
			return fmt.Errorf("dedup: cleanup: %w", err)
		}
		if err := d.db.Vacuum(); err != nil {
			return fmt.Errorf("dedup: vacuum: %w", err)
		}
	}
	return nil
}

// DumpAddresses writes every surviving address to stream in CSV form,
// UTF-8, one header row, fixed column order, with absent fields written as
// the empty string.
func (d *Deduplicator) DumpAddresses(stream io.Writer) error {
	conn, err := d.db.Conn()
	if err != nil {
		return err
	}
	defer conn.Close()

	it, err := store.NewAddressesIter(conn, nil)
	if err != nil {
		return err
	}
	defer it.Close()

	w := newCSVWriter(stream)
	if err := w.writeHeader(); err != nil {
		return err
	}

	for {
		sa, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := w.writeRecord(sa.Address); err != nil {
			d.log.Warn("failed to write address", zap.Error(err))
		}
	}

	return w.flush()
}

// AddressesByStreet proxies to the store for ad hoc lookups, matching the
// read interface the original inserter exposed to callers.
func (d *Deduplicator) AddressesByStreet(number, street string) ([]address.Address, error) {
	stored, err := d.db.AddressesByStreet(number, street)
	if err != nil {
		return nil, err
	}
	out := make([]address.Address, len(stored))
	for i, sa := range stored {
		out[i] = sa.Address
	}
	return out, nil
}
