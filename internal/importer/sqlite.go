// Package importer loads addresses from pre-built source databases into a
// running Deduplicator, the same "source" entry point the original
// implementation's SQLite loaders provided for bano/osm/openaddresses
// dumps.
package importer

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ehdc-llpg/deduplicator/internal/address"
)

// LoadFromSQLite opens the database at path (expected to carry the same
// addresses table schema produced by internal/store), calls insert for each
// row, and returns the number of rows read. Rows are handed over one at a
// time, so the caller stays in control of how many addresses are buffered
// in memory at once.
func LoadFromSQLite(path string, insert func(address.Address)) (int, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, fmt.Errorf("importer: open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT lat, lon, number, street, unit, city, district, region, postcode FROM addresses;`)
	if err != nil {
		return 0, fmt.Errorf("importer: query %s: %w", path, err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			a                                       address.Address
			unit, city, district, region, postcode sql.NullString
		)
		if err := rows.Scan(&a.Lat, &a.Lon, &a.Number, &a.Street, &unit, &city, &district, &region, &postcode); err != nil {
			return count, fmt.Errorf("importer: scan %s: %w", path, err)
		}
		a.Unit = unit.String
		a.City = city.String
		a.District = district.String
		a.Region = region.String
		a.Postcode = postcode.String

		insert(a)
		count++
	}
	return count, rows.Err()
}
