package pcodes

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by lookups on an Engine that was not built with New.
var ErrNotInitialized = errors.New("pcodes: engine not initialized")

// UnknownScopeError reports a lookup for a country that has no loaded admin units.
type UnknownScopeError struct {
	Country string
}

func (e *UnknownScopeError) Error() string {
	return fmt.Sprintf("pcodes: unknown country %q", e.Country)
}

// DuplicatePcodeError reports a pcode that appears in more than one setup record.
type DuplicatePcodeError struct {
	Pcode string
}

func (e *DuplicatePcodeError) Error() string {
	return fmt.Sprintf("pcodes: duplicate pcode %q", e.Pcode)
}

// DanglingParentError reports a record whose parent pcode is not in the record set.
type DanglingParentError struct {
	Pcode  string
	Parent string
}

func (e *DanglingParentError) Error() string {
	return fmt.Sprintf("pcodes: pcode %q references unknown parent %q", e.Pcode, e.Parent)
}

// ConfigError reports an invalid configuration value found while building an Engine.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pcodes: invalid config %s: %s", e.Field, e.Reason)
}

// ErrParentCycle is returned when parent references loop back on themselves.
var ErrParentCycle = errors.New("pcodes: parent references form a cycle")
