package importer

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ehdc-llpg/deduplicator/internal/address"
)

func TestLoadFromSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE addresses (
		id INTEGER PRIMARY KEY,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		number TEXT NOT NULL,
		street TEXT NOT NULL,
		unit TEXT,
		city TEXT,
		district TEXT,
		region TEXT,
		postcode TEXT
	);`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO addresses (lat, lon, number, street, city, postcode) VALUES (48.85, 2.35, '10', 'Rue de Rivoli', 'Paris', '75001');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var got []address.Address
	count, err := LoadFromSQLite(path, func(a address.Address) { got = append(got, a) })
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, got, 1)
	require.Equal(t, "10", got[0].Number)
	require.Equal(t, "Paris", got[0].City)
	require.Empty(t, got[0].Unit)
}
