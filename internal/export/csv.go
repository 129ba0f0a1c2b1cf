// Package export renders item lists as CSV and names the downloaded files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/garyjia/stocktake/internal/domain/entity"
)

// Header is the column row written at the top of every export
var Header = []string{"Area", "Description", "Qty"}

// ContentType is the MIME type of exported files
const ContentType = "text/csv; charset=utf-8"

// WriteCSV writes the header and one row per item in slice order
func WriteCSV(w io.Writer, items []entity.Item) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, it := range items {
		row := []string{it.Area, it.Description, strconv.Itoa(it.Quantity)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %q: %w", it.Description, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// CSV renders items to a byte slice
func CSV(items []entity.Item) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AllAreasFileName names a full export generated at t
func AllAreasFileName(t time.Time) string {
	return fmt.Sprintf("stocktake_results_all_areas_%s.csv", t.Format("20060102-150405"))
}

// AreaFileName names a single-area export
func AreaFileName(area string) string {
	return fmt.Sprintf("stocktake_%s_results.csv", Slug(area))
}

// Slug lowercases s and collapses anything that is not a letter or digit into
// single underscores, so area names are safe inside filenames.
func Slug(s string) string {
	var b strings.Builder
	pendingSep := false

	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	if b.Len() == 0 {
		return "area"
	}
	return b.String()
}
