package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ehdc-llpg/deduplicator/internal/address"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "addresses.db")
	s, err := Open(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	n, err := s.CountAddresses()
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.CountHashes()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestInsertAddressAndHash(t *testing.T) {
	s := openTestStore(t)

	in, err := NewInserter(s.db)
	require.NoError(t, err)

	addr := address.Address{Lat: 48.87, Lon: 2.30, Number: "32", Street: "Champs Elysees"}
	id, err := in.InsertAddress(addr, 1.5)
	require.NoError(t, err)
	require.NotZero(t, id)

	require.NoError(t, in.InsertHash(id, 42))
	require.NoError(t, in.Commit())

	n, err := s.CountAddresses()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = s.CountHashes()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestInsertDuplicateNaturalKeyIsConstraintViolation(t *testing.T) {
	s := openTestStore(t)

	addr := address.Address{Lat: 1, Lon: 1, Number: "10", Street: "rue A"}

	in, err := NewInserter(s.db)
	require.NoError(t, err)
	_, err = in.InsertAddress(addr, 1)
	require.NoError(t, err)
	require.NoError(t, in.Commit())

	in2, err := NewInserter(s.db)
	require.NoError(t, err)
	_, err = in2.InsertAddress(addr, 1)
	require.Error(t, err)
	require.True(t, IsConstraintViolation(err))
	require.NoError(t, in2.Rollback())
}

func TestInsertToDeleteAndApplyDeletions(t *testing.T) {
	s := openTestStore(t)

	in, err := NewInserter(s.db)
	require.NoError(t, err)
	id, err := in.InsertAddress(address.Address{Lat: 1, Lon: 1, Number: "1", Street: "rue A"}, 1)
	require.NoError(t, err)
	require.NoError(t, in.InsertHash(id, 7))
	require.NoError(t, in.Commit())

	require.NoError(t, s.InsertToDelete([]int64{id}))

	n, err := s.CountToDelete()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, s.ApplyDeletions())

	n, err = s.CountAddresses()
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.CountHashes()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestAddressesIterSkipsMarkedIDs(t *testing.T) {
	s := openTestStore(t)

	in, err := NewInserter(s.db)
	require.NoError(t, err)
	id1, err := in.InsertAddress(address.Address{Lat: 1, Lon: 1, Number: "1", Street: "rue A"}, 1)
	require.NoError(t, err)
	id2, err := in.InsertAddress(address.Address{Lat: 2, Lon: 2, Number: "2", Street: "rue B"}, 1)
	require.NoError(t, err)
	require.NoError(t, in.Commit())

	it, err := NewAddressesIter(s.db, map[int64]struct{}{id1: {}})
	require.NoError(t, err)
	defer it.Close()

	var seen []int64
	for {
		sa, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, sa.ID)
	}
	require.Equal(t, []int64{id2}, seen)
}

func TestCollisionsIterOnlyReturnsColliding(t *testing.T) {
	s := openTestStore(t)

	in, err := NewInserter(s.db)
	require.NoError(t, err)
	idA, err := in.InsertAddress(address.Address{Lat: 1, Lon: 1, Number: "1", Street: "rue A"}, 1)
	require.NoError(t, err)
	idB, err := in.InsertAddress(address.Address{Lat: 2, Lon: 2, Number: "2", Street: "rue B"}, 1)
	require.NoError(t, err)
	idC, err := in.InsertAddress(address.Address{Lat: 3, Lon: 3, Number: "3", Street: "rue C"}, 1)
	require.NoError(t, err)

	// A and B collide on hash 100; C is alone on hash 200.
	require.NoError(t, in.InsertHash(idA, 100))
	require.NoError(t, in.InsertHash(idB, 100))
	require.NoError(t, in.InsertHash(idC, 200))
	require.NoError(t, in.Commit())

	it, err := PreparePartitionCollisions(s.db, 0, 1)
	require.NoError(t, err)
	defer it.Close()

	var ids []int64
	for {
		item, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, item.Address.ID)
	}
	require.ElementsMatch(t, []int64{idA, idB}, ids)
}
