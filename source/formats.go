package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andreiashu/pcodes"
)

// FormatsCSV reads per-country pcode digit widths. The first row is a header;
// following rows hold an ISO3 code then one width per admin level, left to
// right, with empty cells ending the row:
//
//	ISO3,Admin 1,Admin 2,Admin 3
//	YEM,2,2,2
//	AFG,2,2,
//
// A leading "#country+code" hashtag row, as found in HXL exports, is skipped.
func FormatsCSV(r io.Reader) ([]pcodes.FormatRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records []pcodes.FormatRecord
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading formats: %w", err)
		}
		line++
		if line == 1 || len(row) == 0 {
			continue
		}
		iso3 := strings.ToUpper(strings.TrimSpace(row[0]))
		if iso3 == "" || strings.HasPrefix(iso3, "#") {
			continue
		}
		var widths []int
		for _, field := range row[1:] {
			field = strings.TrimSpace(field)
			if field == "" {
				break
			}
			w, err := strconv.Atoi(field)
			if err != nil || w < 1 {
				return nil, fmt.Errorf("formats line %d: invalid width %q for %s", line, field, iso3)
			}
			widths = append(widths, w)
		}
		if len(widths) > 0 {
			records = append(records, pcodes.FormatRecord{ISO3: iso3, Widths: widths})
		}
	}
	return records, nil
}
