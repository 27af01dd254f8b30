package dedup

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ehdc-llpg/deduplicator/internal/address"
)

var csvHeader = []string{
	"LAT", "LON", "NUMBER", "STREET", "UNIT", "CITY", "DISTRICT", "REGION", "POSTCODE",
}

type csvWriter struct {
	w *csv.Writer
}

func newCSVWriter(stream io.Writer) *csvWriter {
	return &csvWriter{w: csv.NewWriter(stream)}
}

func (c *csvWriter) writeHeader() error {
	return c.w.Write(csvHeader)
}

func (c *csvWriter) writeRecord(a address.Address) error {
	return c.w.Write([]string{
		formatCoordinate(a.Lat),
		formatCoordinate(a.Lon),
		a.Number,
		a.Street,
		a.Unit,
		a.City,
		a.District,
		a.Region,
		a.Postcode,
	})
}

func (c *csvWriter) flush() error {
	c.w.Flush()
	return c.w.Error()
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
