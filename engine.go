// Package pcodes resolves free-form administrative area names and codes to
// canonical pcodes.
//
// An Engine is built once from admin unit records and a Config and is
// immutable afterwards:
//
//	e, err := pcodes.New(pcodes.Records{
//		{ISO3: "AFG", Pcode: "AF01", Name: "Kabul"},
//		{ISO3: "AFG", Pcode: "AF0101", Name: "Kabul", Parent: "AF01"},
//	}, pcodes.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	pcode, exact, err := e.GetPcode("AFG", "Kabul", pcodes.LookupOptions{Parent: "AF01"})
//
// Lookups never mutate the engine and are safe for concurrent use.
package pcodes

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Record is one admin unit as supplied by a data source.
type Record struct {
	ISO3   string // country ISO3 code
	Pcode  string
	Name   string
	Parent string // parent pcode, empty for top-level units
}

// RecordSource produces setup records. Dataset adapters implement it so the
// engine never sees the original schema.
type RecordSource interface {
	Records() ([]Record, error)
}

// Records is an in-memory RecordSource.
type Records []Record

// Records returns the slice itself.
func (r Records) Records() ([]Record, error) { return r, nil }

// AdminUnit is the public view of a loaded admin unit.
type AdminUnit struct {
	Pcode       string
	Name        string
	CountryISO3 string
	ParentPcode string
	Depth       int // 1 for top-level units
}

// adminUnit is the memory-compact form held by the engine.
type adminUnit struct {
	pcode    string
	name     string
	key      string // nameKey(name), for exact matching
	normName string // Normalize(name), for fuzzy matching
	parent   string
	country  uint16 // index into Engine.countryCodes
	depth    int
	forms    []phoneticForm
}

// countryTable groups the units of one country.
type countryTable struct {
	iso3     string
	idx      uint16
	units    []*adminUnit
	byName   map[string][]*adminUnit // name key -> units
	children map[string][]*adminUnit // parent pcode -> units, "" for top level
}

// Engine resolves names and codes to pcodes. Build one with New; the zero
// value reports ErrNotInitialized.
type Engine struct {
	units        map[string]*adminUnit
	pcodes       []string
	countries    map[string]*countryTable
	countryCodes *stringInterner[uint16]
	rules        *rules
	parentAdmins map[string]struct{}
	formatRecs   []FormatRecord
	formats      map[string]*countryFormat // ISO3 -> derived format table
	logger       *zap.Logger
	matchLog     *MatchLog
}

// New builds an Engine from the records of src. Setup is all-or-nothing:
// duplicate pcodes, dangling parents or an invalid Config return an error
// and no engine.
func New(src RecordSource, cfg Config, opts ...Option) (*Engine, error) {
	ec := defaultEngineConfig()
	for _, opt := range opts {
		opt(ec)
	}
	if src == nil {
		return nil, errors.New("pcodes: nil record source")
	}
	records, err := src.Records()
	if err != nil {
		return nil, fmt.Errorf("reading admin records: %w", err)
	}

	e := &Engine{
		units:        make(map[string]*adminUnit, len(records)),
		pcodes:       make([]string, 0, len(records)),
		countries:    map[string]*countryTable{},
		countryCodes: newStringInterner[uint16](64),
		parentAdmins: map[string]struct{}{},
		logger:       ec.logger,
		matchLog:     ec.matchLog,
	}
	if err := e.loadRecords(records); err != nil {
		return nil, err
	}
	if e.rules, err = cfg.compile(e.units); err != nil {
		return nil, err
	}
	for _, ct := range e.countries {
		e.indexCountry(ct)
	}
	e.addParentAdmins(ec.parentAdmins)
	e.formatRecs = ec.formats
	e.buildFormats()

	e.logger.Debug("pcode engine ready",
		zap.Int("units", len(e.units)),
		zap.Int("countries", e.countryCodes.count()))
	return e, nil
}

func (e *Engine) loadRecords(records []Record) error {
	for i, rec := range records {
		pcode := canonicalPcode(rec.Pcode)
		iso3 := strings.ToUpper(strings.TrimSpace(rec.ISO3))
		if pcode == "" {
			return fmt.Errorf("pcodes: record %d has no pcode", i)
		}
		if iso3 == "" {
			return fmt.Errorf("pcodes: record %d (%s) has no country", i, pcode)
		}
		if _, dup := e.units[pcode]; dup {
			return &DuplicatePcodeError{Pcode: pcode}
		}
		idx, err := e.countryCodes.intern(iso3)
		if err != nil {
			return fmt.Errorf("pcodes: record %d: %w", i, err)
		}
		u := &adminUnit{
			pcode:   pcode,
			name:    strings.TrimSpace(rec.Name),
			parent:  canonicalPcode(rec.Parent),
			country: idx,
		}
		u.key = nameKey(u.name)
		u.normName = Normalize(u.name)
		e.units[pcode] = u
		e.pcodes = append(e.pcodes, pcode)

		ct, ok := e.countries[iso3]
		if !ok {
			ct = &countryTable{
				iso3:     iso3,
				idx:      idx,
				byName:   map[string][]*adminUnit{},
				children: map[string][]*adminUnit{},
			}
			e.countries[iso3] = ct
		}
		ct.units = append(ct.units, u)
	}

	for _, pcode := range e.pcodes {
		u := e.units[pcode]
		if u.parent != "" {
			if _, ok := e.units[u.parent]; !ok {
				return &DanglingParentError{Pcode: pcode, Parent: u.parent}
			}
		}
	}
	depths := make(map[string]int, len(e.units))
	for _, pcode := range e.pcodes {
		d, err := e.depthOf(pcode, depths, map[string]bool{})
		if err != nil {
			return err
		}
		e.units[pcode].depth = d
	}
	return nil
}

// depthOf walks the parent chain, memoizing depths and rejecting cycles.
func (e *Engine) depthOf(pcode string, depths map[string]int, visiting map[string]bool) (int, error) {
	if d, ok := depths[pcode]; ok {
		return d, nil
	}
	if visiting[pcode] {
		return 0, fmt.Errorf("%w: at %s", ErrParentCycle, pcode)
	}
	visiting[pcode] = true
	u := e.units[pcode]
	d := 1
	if u.parent != "" {
		pd, err := e.depthOf(u.parent, depths, visiting)
		if err != nil {
			return 0, err
		}
		d = pd + 1
	}
	depths[pcode] = d
	return d, nil
}

func (e *Engine) indexCountry(ct *countryTable) {
	for _, u := range ct.units {
		ct.children[u.parent] = append(ct.children[u.parent], u)
		if u.key != "" {
			ct.byName[u.key] = append(ct.byName[u.key], u)
		}
		if u.normName != "" {
			u.forms = phoneticForms(u.normName, e.rules.phoneticKey)
		}
	}
}

func (e *Engine) addParentAdmins(sets [][]string) {
	for _, set := range sets {
		for _, pcode := range set {
			if pcode = canonicalPcode(pcode); pcode != "" {
				e.parentAdmins[pcode] = struct{}{}
			}
		}
	}
}

// Pcodes returns every loaded pcode in record order.
func (e *Engine) Pcodes() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.pcodes))
	copy(out, e.pcodes)
	return out
}

// Countries returns the ISO3 codes with loaded units, sorted.
func (e *Engine) Countries() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.countries))
	for iso3 := range e.countries {
		out = append(out, iso3)
	}
	sort.Strings(out)
	return out
}

// Unit returns the admin unit for a pcode.
func (e *Engine) Unit(pcode string) (AdminUnit, bool) {
	if e == nil || e.units == nil {
		return AdminUnit{}, false
	}
	u, ok := e.units[canonicalPcode(pcode)]
	if !ok {
		return AdminUnit{}, false
	}
	return e.publicUnit(u), true
}

func (e *Engine) publicUnit(u *adminUnit) AdminUnit {
	return AdminUnit{
		Pcode:       u.pcode,
		Name:        u.name,
		CountryISO3: e.countryCodes.get(u.country),
		ParentPcode: u.parent,
		Depth:       u.depth,
	}
}

// PcodeLengths returns the distinct pcode lengths loaded for a country.
func (e *Engine) PcodeLengths(countryISO3 string) []int {
	if e == nil || e.countries == nil {
		return nil
	}
	ct, ok := e.countries[strings.ToUpper(strings.TrimSpace(countryISO3))]
	if !ok {
		return nil
	}
	seen := map[int]bool{}
	var out []int
	for _, u := range ct.units {
		if !seen[len(u.pcode)] {
			seen[len(u.pcode)] = true
			out = append(out, len(u.pcode))
		}
	}
	sort.Ints(out)
	return out
}

// clone returns a shallow copy sharing every immutable table.
func (e *Engine) clone() *Engine {
	c := *e
	return &c
}
