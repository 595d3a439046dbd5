// Package source adapts admin boundary datasets into pcodes records.
//
// The engine only understands pcodes.Record; this package knows the
// HXL-tagged CSV layouts published for global pcode lists and turns them
// into records, optionally reading compressed or downloaded files first.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andreiashu/pcodes"
)

// HXL tags of the long layout: one row per admin unit.
const (
	tagCountry    = "#country+code"
	tagLevel      = "#geo+admin_level"
	tagCode       = "#adm+code"
	tagName       = "#adm+name"
	tagParentCode = "#adm+code+parent"
)

// maxAdminLevel is the deepest level looked for in the wide layout
// (#adm1+code, #adm1+name, #adm2+code ...).
const maxAdminLevel = 5

// ErrNoHashtagRow is returned when no row of the dataset carries HXL tags.
var ErrNoHashtagRow = errors.New("source: no HXL hashtag row found")

// HXL reads admin units from a HXL-tagged CSV dataset.
type HXL struct {
	r         io.Reader
	countries map[string]bool
	level     int
}

// HXLOption configures an HXL source.
type HXLOption func(*HXL)

// WithCountries keeps only rows of the given ISO3 codes.
func WithCountries(iso3s ...string) HXLOption {
	return func(h *HXL) {
		if h.countries == nil {
			h.countries = map[string]bool{}
		}
		for _, iso3 := range iso3s {
			h.countries[strings.ToUpper(strings.TrimSpace(iso3))] = true
		}
	}
}

// WithAdminLevel keeps only units of one admin level (1 = first level).
// Parents of kept units are dropped, so records of a single level carry no
// parent unless the parent level is loaded too.
func WithAdminLevel(level int) HXLOption {
	return func(h *HXL) {
		h.level = level
	}
}

// NewHXL returns a RecordSource reading the CSV in r.
func NewHXL(r io.Reader, opts ...HXLOption) *HXL {
	h := &HXL{r: r}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Records parses the dataset. Rows above the hashtag row are headers and
// skipped; rows without a pcode are ignored.
func (h *HXL) Records() ([]pcodes.Record, error) {
	cr := csv.NewReader(h.r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var columns map[string]int
	for columns == nil {
		row, err := cr.Read()
		if err == io.EOF {
			return nil, ErrNoHashtagRow
		}
		if err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		columns = hashtagColumns(row)
	}

	if _, ok := columns[tagCode]; ok {
		return h.readLong(cr, columns)
	}
	return h.readWide(cr, columns)
}

// hashtagColumns maps normalized tags to column indexes, or returns nil when
// row is not a hashtag row.
func hashtagColumns(row []string) map[string]int {
	columns := map[string]int{}
	for i, field := range row {
		tag := normalizeTag(field)
		if !strings.HasPrefix(tag, "#") {
			continue
		}
		if _, dup := columns[tag]; !dup {
			columns[tag] = i
		}
	}
	if len(columns) == 0 {
		return nil
	}
	return columns
}

// normalizeTag lowercases a tag and drops spaces; attribute order in the
// published datasets is stable.
func normalizeTag(field string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(field), " ", ""))
}

func cell(row []string, columns map[string]int, tag string) string {
	i, ok := columns[tag]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (h *HXL) keepCountry(iso3 string) bool {
	return h.countries == nil || h.countries[strings.ToUpper(iso3)]
}

func (h *HXL) readLong(cr *csv.Reader, columns map[string]int) ([]pcodes.Record, error) {
	if _, ok := columns[tagCountry]; !ok {
		return nil, fmt.Errorf("source: dataset has %s but no %s column", tagCode, tagCountry)
	}
	var records []pcodes.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		iso3 := cell(row, columns, tagCountry)
		pcode := cell(row, columns, tagCode)
		if pcode == "" || iso3 == "" || !h.keepCountry(iso3) {
			continue
		}
		parent := cell(row, columns, tagParentCode)
		if h.level > 0 {
			level, err := strconv.Atoi(cell(row, columns, tagLevel))
			if err != nil || level != h.level {
				continue
			}
			parent = ""
		}
		if strings.EqualFold(parent, iso3) {
			parent = ""
		}
		records = append(records, pcodes.Record{
			ISO3:   iso3,
			Pcode:  pcode,
			Name:   cell(row, columns, tagName),
			Parent: parent,
		})
	}
	return records, nil
}

// readWide handles one row per deepest unit with a code and name column per
// level. Units repeated across rows are emitted once.
func (h *HXL) readWide(cr *csv.Reader, columns map[string]int) ([]pcodes.Record, error) {
	var levels []int
	for level := 1; level <= maxAdminLevel; level++ {
		if _, ok := columns[levelTag(level, "code")]; ok {
			levels = append(levels, level)
		}
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("source: dataset has neither %s nor #adm1+code columns", tagCode)
	}
	var records []pcodes.Record
	seen := map[string]bool{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		iso3 := cell(row, columns, tagCountry)
		if iso3 == "" || !h.keepCountry(iso3) {
			continue
		}
		parent := ""
		for _, level := range levels {
			pcode := cell(row, columns, levelTag(level, "code"))
			if pcode == "" {
				break
			}
			if (h.level == 0 || h.level == level) && !seen[pcode] {
				seen[pcode] = true
				rec := pcodes.Record{
					ISO3:  iso3,
					Pcode: pcode,
					Name:  cell(row, columns, levelTag(level, "name")),
				}
				if h.level == 0 {
					rec.Parent = parent
				}
				records = append(records, rec)
			}
			parent = pcode
		}
	}
	return records, nil
}

func levelTag(level int, attr string) string {
	return "#adm" + strconv.Itoa(level) + "+" + attr
}
