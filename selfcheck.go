package pcodes

import (
	"errors"
	"fmt"
)

// SelfCheck looks up every loaded unit by its own pcode and by its own name
// within its parent and reports each lookup that does not return the unit
// exactly. Name failures usually point at duplicate sibling names in the
// source data.
func (e *Engine) SelfCheck() error {
	if e == nil || e.units == nil {
		return ErrNotInitialized
	}
	var errs []error
	for _, pcode := range e.pcodes {
		u := e.units[pcode]
		iso3 := e.countryCodes.get(u.country)
		opts := LookupOptions{Parent: u.parent, NoFuzzy: true}
		if u.parent == "" {
			opts.Parent = iso3
		}

		got, exact, err := e.GetPcode(iso3, u.pcode, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("pcode %s: %w", pcode, err))
			continue
		}
		if got != pcode || !exact {
			errs = append(errs, fmt.Errorf("pcode %s: lookup by pcode returned %q (exact=%v)", pcode, got, exact))
		}

		if u.key == "" {
			continue // unnamed unit
		}
		got, exact, err = e.GetPcode(iso3, u.name, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("pcode %s: %w", pcode, err))
			continue
		}
		if got != pcode || !exact {
			errs = append(errs, fmt.Errorf("pcode %s: lookup by name %q returned %q (exact=%v)", pcode, u.name, got, exact))
		}
	}
	return errors.Join(errs...)
}
