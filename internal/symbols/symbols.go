// Package symbols implements the Symbol Table: name<->code lookups for the
// kernel event-code space, plus layout-specific aliases harvested from the
// host keyboard layout (xmodmap.json). Pure data — no I/O happens here;
// xmodmap overrides arrive already decoded through LoadXModmap.
package symbols

import (
	"fmt"
	"strings"
)

// DisableName is the reserved output symbol meaning "consume, emit nothing".
const DisableName = "disable"

// DisableCode is the keycode DisableName resolves to.
const DisableCode = -1

// Table is a name<->code lookup for EV_KEY/EV_REL/EV_ABS code numbers.
// It is built once at daemon startup and handed to every Context by
// reference; nothing mutates it after Populate/LoadXModmap return.
type Table struct {
	byName       map[string]int
	byNameLower  map[string]string // lowercase -> canonical name, for correctCase
	byCode       map[int][]string  // a code may have multiple aliases; first inserted wins as canonical
	canonical    map[int]string
}

// New returns an empty Table. Call Populate to fill it with the builtin
// kernel code names, then optionally LoadXModmap to layer host aliases on
// top.
func New() *Table {
	return &Table{
		byName:      make(map[string]int),
		byNameLower: make(map[string]string),
		byCode:      make(map[int][]string),
		canonical:   make(map[int]string),
	}
}

// Populate seeds the table with the builtin KEY_*/BTN_*/REL_*/ABS_* name
// tables and the disable pseudo-symbol. Safe to call multiple times; later
// calls only add missing names.
func (t *Table) Populate() {
	for name, code := range keyNames {
		t.set(name, code)
	}
	for name, code := range relNames {
		t.set(name, code)
	}
	for name, code := range absNames {
		t.set(name, code)
	}
	t.set(DisableName, DisableCode)
}

// LoadXModmap layers host-keyboard-layout aliases on top of the builtin
// table. overrides maps alias name -> numeric code, the shape persisted at
// <config_dir>/xmodmap.json (see internal/presetstore).
func (t *Table) LoadXModmap(overrides map[string]int) {
	for name, code := range overrides {
		t.set(name, code)
	}
}

func (t *Table) set(name string, code int) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if _, exists := t.byName[name]; !exists {
		t.byName[name] = code
		t.byNameLower[strings.ToLower(name)] = name
	} else {
		t.byName[name] = code
	}
	if _, ok := t.canonical[code]; !ok {
		t.canonical[code] = name
	}
	t.byCode[code] = append(t.byCode[code], name)
}

// Get resolves a symbol name to its numeric code. ok is false for unknown
// symbols.
func (t *Table) Get(name string) (int, bool) {
	if code, ok := t.byName[name]; ok {
		return code, true
	}
	if canon, ok := t.byNameLower[strings.ToLower(name)]; ok {
		return t.byName[canon], true
	}
	return 0, false
}

// MustGet resolves a symbol or panics. Intended for table-construction code
// and tests where the name is a compile-time constant known to be valid.
func (t *Table) MustGet(name string) int {
	code, ok := t.Get(name)
	if !ok {
		panic(fmt.Sprintf("symbols: unknown name %q", name))
	}
	return code
}

// Name returns the canonical name for a code, or "" if none is known.
func (t *Table) Name(code int) string {
	return t.canonical[code]
}

// CorrectCase returns symbol with its canonical casing if a case-insensitive
// match exists, else returns symbol unchanged.
func (t *Table) CorrectCase(symbol string) string {
	if _, ok := t.byName[symbol]; ok {
		return symbol
	}
	if canon, ok := t.byNameLower[strings.ToLower(symbol)]; ok {
		return canon
	}
	return symbol
}

// Names lists every known symbol name, optionally filtered to a set of
// codes.
func (t *Table) Names(codes ...int) []string {
	if len(codes) == 0 {
		out := make([]string, 0, len(t.byName))
		for name := range t.byName {
			out = append(out, name)
		}
		return out
	}
	wanted := make(map[int]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	var out []string
	for name, code := range t.byName {
		if wanted[code] {
			out = append(out, name)
		}
	}
	return out
}
