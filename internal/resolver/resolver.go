// Package resolver implements the collision-resolution stage: for each
// distinct fingerprint, it groups the addresses sharing it and decides,
// via the duplicate comparator, which ones to delete.
package resolver

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ehdc-llpg/deduplicator/internal/address"
	"github.com/ehdc-llpg/deduplicator/internal/compare"
	"github.com/ehdc-llpg/deduplicator/internal/store"
)

// channelSize bounds the buffer of deletion ids flowing to the writer.
const channelSize = 100_000

// oversizeLimit caps how many items a single collision group may contain
// before it is treated as a pathological case. Per the adopted resolution
// of the sizing question, an oversize group has every member deleted
// rather than compared pairwise (which would be quadratic in group size).
const oversizeLimit = 5000

// Resolver walks a Store's hash index and marks duplicate addresses for
// deletion.
type Resolver struct {
	db        *store.Store
	nbThreads int
	log       *zap.Logger
	cmp       *compare.Comparator
}

// New returns a Resolver over db.
func New(db *store.Store, nbThreads int, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{db: db, nbThreads: nbThreads, log: log, cmp: compare.New()}
}

func nbWorkers(nbThreads int) int {
	n := nbThreads
	if n < 2 {
		n = 2
	}
	return n - 1
}

// ComputeDuplicates partitions the fingerprint space across a worker pool,
// each worker owning its own connection and a disjoint partition, compares
// addresses within each collision group, and persists the resulting
// deletion set to the store.
func (r *Resolver) ComputeDuplicates() error {
	if err := r.db.CreateHashesIndex(); err != nil {
		return err
	}

	workers := nbWorkers(r.nbThreads)
	delCh := make(chan int64, channelSize)

	var workerWG sync.WaitGroup
	workerWG.Add(workers)

	var firstErr error
	var errMu sync.Mutex
	recordErr := func(err error) {
		if err == nil {
			return
		}
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	for part := 0; part < workers; part++ {
		part := part
		go func() {
			defer workerWG.Done()
			if err := r.resolvePartition(part, workers, delCh); err != nil {
				recordErr(err)
			}
		}()
	}

	go func() {
		workerWG.Wait()
		close(delCh)
	}()

	writerConn, err := r.db.Conn()
	if err != nil {
		return fmt.Errorf("resolver: open writer connection: %w", err)
	}
	defer writerConn.Close()

	seen := make(map[int64]struct{})
	for id := range delCh {
		seen[id] = struct{}{}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	if err := r.db.InsertToDelete(ids); err != nil {
		recordErr(err)
	}

	return firstErr
}

// resolvePartition scans one partition of the fingerprint range on its own
// connection, groups consecutive equal-hash rows (the query already orders
// by hash), and resolves each group.
func (r *Resolver) resolvePartition(part, nbParts int, delCh chan<- int64) error {
	conn, err := r.db.Conn()
	if err != nil {
		return fmt.Errorf("resolver: open partition connection: %w", err)
	}
	defer conn.Close()

	it, err := store.PreparePartitionCollisions(conn, part, nbParts)
	if err != nil {
		return fmt.Errorf("resolver: prepare partition %d: %w", part, err)
	}
	defer it.Close()

	var (
		currentHash int64
		haveCurrent bool
		pack        []store.HashIterItem
	)

	flush := func() {
		if len(pack) < 2 {
			pack = pack[:0]
			return
		}
		r.resolveGroup(pack, delCh)
		pack = pack[:0]
	}

	for {
		item, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("resolver: read partition %d: %w", part, err)
		}
		if !ok {
			break
		}

		if !haveCurrent || item.Hash != currentHash {
			flush()
			currentHash = item.Hash
			haveCurrent = true
		}
		pack = append(pack, item)
	}
	flush()

	return nil
}

// resolveGroup resolves one collision group: a set of (address, hash)
// pairs that all share a fingerprint.
func (r *Resolver) resolveGroup(pack []store.HashIterItem, delCh chan<- int64) {
	if len(pack) > oversizeLimit {
		r.log.Warn("skipping oversize collision group, deleting every member",
			zap.Int("size", len(pack)),
			zap.Int64("first_id", pack[0].Address.ID),
		)
		for i, item := range pack {
			if i >= 10 {
				break
			}
			r.log.Debug("oversize group sample", zap.Int64("id", item.Address.ID), zap.String("street", item.Address.Street))
		}
		for _, item := range pack {
			delCh <- item.Address.ID
		}
		return
	}

	for _, id := range resolveGroupIDs(pack, r.cmp.IsDuplicate) {
		delCh <- id
	}
}

// resolveGroupIDs returns the ids to delete from pack using isDuplicate as
// the pairwise comparator. It is factored out of resolveGroup so the
// survivor-selection logic (sort by rank/id, keep first representative of
// each equivalence class) can be tested without libpostal.
func resolveGroupIDs(pack []store.HashIterItem, isDuplicate func(a, b address.Address) bool) []int64 {
	// Highest rank (then highest id) first, so the earliest-seen
	// representative of each equivalence class is the one we keep.
	sort.SliceStable(pack, func(i, j int) bool {
		if pack[i].Address.Rank != pack[j].Address.Rank {
			return pack[i].Address.Rank > pack[j].Address.Rank
		}
		return pack[i].Address.ID > pack[j].Address.ID
	})

	var toDelete []int64
	kept := pack[:1]
	for _, item := range pack[1:] {
		isDup := false
		for _, k := range kept {
			if isDuplicate(item.Address.Address, k.Address.Address) {
				isDup = true
				break
			}
		}
		if isDup {
			toDelete = append(toDelete, item.Address.ID)
		} else {
			kept = append(kept, item)
		}
	}
	return toDelete
}
