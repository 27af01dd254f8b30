// Package pipeline implements the bounded, multi-producer-to-single-writer
// ingestion stage: addresses are filtered, ranked, and hashed concurrently
// by a worker pool, then written to the store by one dedicated goroutine
// holding the live transaction.
package pipeline

import (
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ehdc-llpg/deduplicator/internal/address"
	"github.com/ehdc-llpg/deduplicator/internal/hasher"
	"github.com/ehdc-llpg/deduplicator/internal/store"
)

// channelSize bounds the buffers between pipeline stages.
const channelSize = 100_000

// FilterFunc decides whether an address should be inserted at all.
type FilterFunc func(address.Address) bool

// RankFunc scores an address for survivor selection during collision
// resolution; higher ranks win.
type RankFunc func(address.Address) float64

type hashedAddress struct {
	addr   address.Address
	rank   float64
	hashes []int64
}

// Inserter streams addresses into a Store through a bounded worker pool and
// a single writer goroutine. Call Close (or Insert in a loop followed by
// Close) to drain and commit.
type Inserter struct {
	db        *store.Store
	filter    FilterFunc
	rank      RankFunc
	nbThreads int
	log       *zap.Logger

	addrCh      chan address.Address
	writerDone  chan struct{}
	writerErr   error
	workerWG    sync.WaitGroup
	mu          sync.Mutex // guards start/stop of the transaction
}

// New starts an Inserter backed by db, using nbThreads to size its worker
// pool (per the nb_workers = max(3, nbThreads) - 2 sizing rule, reserving
// one thread for the caller/producer and one for the writer).
func New(db *store.Store, filter FilterFunc, rank RankFunc, nbThreads int, log *zap.Logger) (*Inserter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	in := &Inserter{db: db, filter: filter, rank: rank, nbThreads: nbThreads, log: log}
	if err := in.startTransaction(); err != nil {
		return nil, err
	}
	return in, nil
}

func nbWorkers(nbThreads int) int {
	n := nbThreads
	if n < 3 {
		n = 3
	}
	return n - 2
}

func (in *Inserter) startTransaction() error {
	in.stopTransaction()

	hashCh := make(chan hashedAddress, channelSize)
	in.addrCh = make(chan address.Address, channelSize)

	workers := nbWorkers(in.nbThreads)
	in.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		go in.hashWorker(in.addrCh, hashCh)
	}
	go func() {
		in.workerWG.Wait()
		close(hashCh)
	}()

	writerConn, err := in.db.Conn()
	if err != nil {
		return fmt.Errorf("pipeline: open writer connection: %w", err)
	}

	in.writerDone = make(chan struct{})
	go in.writeLoop(writerConn, hashCh)

	return nil
}

func (in *Inserter) hashWorker(addrCh <-chan address.Address, hashCh chan<- hashedAddress) {
	defer in.workerWG.Done()
	h := hasher.New()

	for addr := range addrCh {
		if in.filter != nil && !in.filter(addr) {
			continue
		}
		rank := 0.0
		if in.rank != nil {
			rank = in.rank(addr)
		}
		hashes := h.Hash(addr)
		if len(hashes) == 0 {
			in.log.Debug("ignoring address that could not be hashed", zap.Any("address", addr))
			continue
		}
		hashCh <- hashedAddress{addr: addr, rank: rank, hashes: hashes}
	}
}

func (in *Inserter) writeLoop(conn *sql.DB, hashCh <-chan hashedAddress) {
	defer close(in.writerDone)
	defer conn.Close()

	inserter, err := store.NewInserter(conn)
	if err != nil {
		in.writerErr = fmt.Errorf("pipeline: init inserter: %w", err)
		return
	}

	for item := range hashCh {
		addrID, err := inserter.InsertAddress(item.addr, item.rank)
		if err != nil {
			if !store.IsConstraintViolation(err) {
				in.log.Warn("failed inserting address", zap.Error(err))
			}
			continue
		}
		for _, h := range item.hashes {
			if err := inserter.InsertHash(addrID, h); err != nil && !store.IsConstraintViolation(err) {
				in.log.Warn("failed inserting hash", zap.Error(err))
			}
		}
	}

	if err := inserter.Commit(); err != nil {
		in.writerErr = fmt.Errorf("pipeline: commit: %w", err)
	}
}

// stopTransaction closes the producer channel, waits for the writer to
// drain and commit, and records any error it hit.
func (in *Inserter) stopTransaction() {
	if in.addrCh == nil {
		return
	}
	close(in.addrCh)
	<-in.writerDone
	in.addrCh = nil
}

// Insert submits addr for hashing and storage. House numbers equal to the
// sentinel "S/N" value, and empty house numbers, are dropped here rather
// than surfaced as an error, matching the ingest eligibility rule.
func (in *Inserter) Insert(addr address.Address) {
	if !address.Eligible(addr) {
		return
	}
	in.addrCh <- addr
}

// Close stops the transaction, committing everything written so far, and
// releases pipeline resources.
func (in *Inserter) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stopTransaction()
	return in.writerErr
}

// BorrowDB stops the current transaction (closing and committing it),
// invokes action with exclusive read access to db, then restarts a fresh
// transaction. Use this to interleave a read query with an otherwise
// continuous streaming insert.
func (in *Inserter) BorrowDB(action func(*store.Store) error) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.stopTransaction()
	err := action(in.db)
	if startErr := in.startTransaction(); startErr != nil && err == nil {
		err = startErr
	}
	return err
}
