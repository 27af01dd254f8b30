package store

import (
	"database/sql"
	"fmt"
	"math"
)

// AddressesIter streams every stored address that is not present in skip
// (typically the ids already marked for deletion).
type AddressesIter struct {
	rows *sql.Rows
	skip map[int64]struct{}
}

// NewAddressesIter prepares an iterator over every address in db, skipping
// any id present in skip.
func NewAddressesIter(db *sql.DB, skip map[int64]struct{}) (*AddressesIter, error) {
	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM %s;", selectColumns, tableAddresses))
	if err != nil {
		return nil, fmt.Errorf("store: query addresses: %w", err)
	}
	return &AddressesIter{rows: rows, skip: skip}, nil
}

// Next advances the iterator, returning false once exhausted (mirroring
// database/sql.Rows.Next semantics, but with skip filtering baked in).
func (it *AddressesIter) Next() (StoredAddress, bool, error) {
	for it.rows.Next() {
		sa, err := scanStoredAddress(it.rows)
		if err != nil {
			return StoredAddress{}, false, err
		}
		if _, skipped := it.skip[sa.ID]; skipped {
			continue
		}
		return sa, true, nil
	}
	return StoredAddress{}, false, it.rows.Err()
}

// Close releases the iterator's underlying rows.
func (it *AddressesIter) Close() error {
	return it.rows.Close()
}

// HashIterItem is a single (address, fingerprint) pair produced while
// scanning a collision partition.
type HashIterItem struct {
	Address StoredAddress
	Hash    int64
}

// CollisionsIter walks the (address, hash) pairs whose hash falls in one
// partition of the fingerprint space and which collide with at least one
// other pair, ordered by hash so that equal-hash runs are contiguous.
type CollisionsIter struct {
	rows *sql.Rows
}

// PreparePartitionCollisions opens an iterator over partition `part` of
// `nbParts` (0 <= part < nbParts) over db's hash table. The partition
// bounds are computed from MIN(hash)/MAX(hash) up front so the query
// planner can use the existing hash index without rebuilding a temporary
// B-tree to determine them.
func PreparePartitionCollisions(db *sql.DB, part, nbParts int) (*CollisionsIter, error) {
	if part < 0 || part >= nbParts {
		return nil, fmt.Errorf("store: invalid partition %d of %d", part, nbParts)
	}

	minHash, maxHash := queryHashBounds(db)

	lo, hi := Partition(minHash, maxHash, nbParts, part)

	query := fmt.Sprintf(`
		SELECT
			addr.id AS id, addr.lat AS lat, addr.lon AS lon, addr.number AS number,
			addr.street AS street, addr.unit AS unit, addr.city AS city,
			addr.district AS district, addr.region AS region, addr.postcode AS postcode,
			addr.rank AS rank, hash.hash AS hash
		FROM %s AS hash
		JOIN %s AS addr ON hash.address = addr.id
		WHERE (
			hash.hash BETWEEN ? AND ?
			AND EXISTS (
				SELECT * FROM %s WHERE hash = hash.hash AND address <> hash.address
			)
		)
		ORDER BY hash.hash;
	`, tableHashes, tableAddresses, tableHashes)

	rows, err := db.Query(query, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("store: query partition collisions: %w", err)
	}
	return &CollisionsIter{rows: rows}, nil
}

func queryHashBounds(db *sql.DB) (min, max int64) {
	min = minInt64
	max = maxInt64

	var minVal, maxVal sql.NullInt64
	if err := db.QueryRow(fmt.Sprintf("SELECT MIN(hash) FROM %s;", tableHashes)).Scan(&minVal); err == nil && minVal.Valid {
		min = minVal.Int64
	}
	if err := db.QueryRow(fmt.Sprintf("SELECT MAX(hash) FROM %s;", tableHashes)).Scan(&maxVal); err == nil && maxVal.Valid {
		max = maxVal.Int64
	}
	return min, max
}

const (
	minInt64 = -1 << 63
	maxInt64 = 1<<63 - 1
)

// Next advances the iterator.
func (it *CollisionsIter) Next() (HashIterItem, bool, error) {
	if !it.rows.Next() {
		return HashIterItem{}, false, it.rows.Err()
	}

	var (
		item                                 HashIterItem
		unit, city, district, region, pcode  sql.NullString
		rank                                 sql.NullFloat64
	)
	if err := it.rows.Scan(
		&item.Address.ID, &item.Address.Lat, &item.Address.Lon, &item.Address.Number, &item.Address.Street,
		&unit, &city, &district, &region, &pcode, &rank, &item.Hash,
	); err != nil {
		return HashIterItem{}, false, fmt.Errorf("store: scan collision row: %w", err)
	}
	item.Address.Unit = unit.String
	item.Address.City = city.String
	item.Address.District = district.String
	item.Address.Region = region.String
	item.Address.Postcode = pcode.String
	item.Address.Rank = rank.Float64
	return item, true, nil
}

// Close releases the iterator's underlying rows.
func (it *CollisionsIter) Close() error {
	return it.rows.Close()
}

// Partition splits the inclusive range [lo, hi] into nbParts contiguous,
// non-overlapping sub-ranges that together reconstruct [lo, hi] exactly,
// and returns the bounds of the part-th sub-range (0-indexed). Sizes are as
// equal as integer division allows; any remainder is distributed to the
// earliest partitions, one unit each, so no partition differs from another
// by more than one element.
func Partition(lo, hi int64, nbParts, part int) (int64, int64) {
	if nbParts <= 0 {
		return lo, hi
	}

	span := uint64(hi-lo) + 1
	base := span / uint64(nbParts)
	remainder := span % uint64(nbParts)
	if span == 0 {
		// [lo, hi] holds all 2^64 values, which wraps span to 0; split
		// 2^64 = MaxUint64 + 1 across the parts instead.
		base = math.MaxUint64 / uint64(nbParts)
		remainder = math.MaxUint64%uint64(nbParts) + 1
		if remainder == uint64(nbParts) {
			base++
			remainder = 0
		}
	}

	var start uint64
	for i := 0; i < part; i++ {
		sz := base
		if uint64(i) < remainder {
			sz++
		}
		start += sz
	}

	size := base
	if uint64(part) < remainder {
		size++
	}

	partLo := lo + int64(start)
	partHi := partLo + int64(size) - 1
	return partLo, partHi
}
