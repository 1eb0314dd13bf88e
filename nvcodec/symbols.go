package nvcodec

import (
	"errors"
	"fmt"
	"slices"
)

var errNotExported = errors.New("not exported")

// export is one admissible spelling of an entry point, valid for negotiated
// versions in [since, until). A zero bound is open.
type export struct {
	name  string
	since Version
	until Version
}

func (e export) admits(v Version) bool {
	if v.Less(e.since) {
		return false
	}
	return e.until.IsZero() || v.Less(e.until)
}

// symbol describes one logical operation of an interface description.
type symbol struct {
	name     string
	exports  []export // newest spelling first; empty means name itself
	since    Version  // first version the operation belongs to
	optional bool
}

func (s symbol) appliesTo(v Version) bool {
	return !v.Less(s.since)
}

// spellings returns the exported names admissible at v, in lookup order.
func (s symbol) spellings(v Version) []string {
	if len(s.exports) == 0 {
		return []string{s.name}
	}
	names := make([]string, 0, len(s.exports))
	for _, e := range s.exports {
		if e.admits(v) {
			names = append(names, e.name)
		}
	}
	return names
}

// lookupFunc resolves an exported name to an address.
type lookupFunc func(name string) (uintptr, error)

func dlsymLookup(a abi, handle uintptr) lookupFunc {
	return func(name string) (uintptr, error) {
		return a.symbol(handle, name)
	}
}

type tableEntry struct {
	addr   uintptr
	export string
}

// functionTable maps logical operation names to resolved addresses. It is
// filled during initialization and read-only once its facade is published.
type functionTable struct {
	entries     map[string]tableEntry
	unavailable map[string]struct{}
}

func newFunctionTable() *functionTable {
	return &functionTable{
		entries:     make(map[string]tableEntry),
		unavailable: make(map[string]struct{}),
	}
}

func (t *functionTable) lookup(name string) (uintptr, bool) {
	entry, ok := t.entries[name]
	if !ok || entry.addr == 0 {
		return 0, false
	}
	return entry.addr, true
}

func (t *functionTable) isUnavailable(name string) bool {
	_, ok := t.unavailable[name]
	return ok
}

func (t *functionTable) names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (t *functionTable) unavailableNames() []string {
	names := make([]string, 0, len(t.unavailable))
	for name := range t.unavailable {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// resolveSymbol tries every spelling of sym admissible at v and returns the
// first address found along with the spelling that produced it.
func resolveSymbol(kind Kind, lookup lookupFunc, sym symbol, v Version) (uintptr, string, error) {
	spellings := sym.spellings(v)
	if len(spellings) == 0 {
		return 0, "", &SymbolNotFoundError{
			Kind: kind,
			Name: sym.name,
			Err:  fmt.Errorf("no exported spelling admissible at API %s", v),
		}
	}

	var causes []error
	for _, name := range spellings {
		addr, err := lookup(name)
		if err == nil && addr != 0 {
			return addr, name, nil
		}
		if err == nil {
			err = errNotExported
		}
		causes = append(causes, fmt.Errorf("%s: %w", name, err))
	}
	return 0, "", &SymbolNotFoundError{Kind: kind, Name: sym.name, Tried: spellings, Err: errors.Join(causes...)}
}

// resolveAll resolves syms at version v into table. A missing required symbol
// aborts with *SymbolNotFoundError. Optional symbols, and symbols newer than
// v, are recorded as unavailable and return the names that were missing.
func resolveAll(kind Kind, lookup lookupFunc, syms []symbol, v Version, table *functionTable) ([]string, error) {
	var missing []string
	for _, sym := range syms {
		if !sym.appliesTo(v) {
			table.unavailable[sym.name] = struct{}{}
			missing = append(missing, sym.name)
			continue
		}
		addr, name, err := resolveSymbol(kind, lookup, sym, v)
		if err != nil {
			if sym.optional {
				table.unavailable[sym.name] = struct{}{}
				missing = append(missing, sym.name)
				continue
			}
			return missing, err
		}
		table.entries[sym.name] = tableEntry{addr: addr, export: name}
	}
	return missing, nil
}
