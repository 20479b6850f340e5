package macro

import (
	"fmt"
	"strconv"
	"strings"

	"inputinject/internal/injcontext"
)

// argKind discriminates the literal forms a parsed argument can take.
// Variable references (`$name`) are resolved against the Shared Variable
// Store at the point of use, per spec §4.5's late-binding rule.
type argKind int

const (
	argInt argKind = iota
	argFloat
	argString
	argVar
)

// Arg is one resolved-or-deferred macro argument.
type Arg struct {
	kind argKind
	i    int64
	f    float64
	s    string
}

func intArg(i int64) Arg      { return Arg{kind: argInt, i: i} }
func floatArg(f float64) Arg  { return Arg{kind: argFloat, f: f} }
func stringArg(s string) Arg  { return Arg{kind: argString, s: s} }
func varArg(name string) Arg  { return Arg{kind: argVar, s: name} }

// resolveString returns sym/text form: symbols, set() names, and string
// literals all end up here.
func (a Arg) resolveString(t *Task) (string, error) {
	switch a.kind {
	case argString:
		return a.s, nil
	case argInt:
		return strconv.FormatInt(a.i, 10), nil
	case argFloat:
		return strconv.FormatFloat(a.f, 'g', -1, 64), nil
	case argVar:
		v, ok := t.ctx.Vars.Get(a.s)
		if !ok {
			return "", fmt.Errorf("undefined variable $%s", a.s)
		}
		return v.String(), nil
	default:
		return "", fmt.Errorf("unresolvable argument")
	}
}

// resolveInt coerces to an integer, following the source project's
// permissive numeric coercion (a variable holding "3" or 3 both work).
func (a Arg) resolveInt(t *Task) (int64, error) {
	switch a.kind {
	case argInt:
		return a.i, nil
	case argFloat:
		return int64(a.f), nil
	case argVar:
		v, ok := t.ctx.Vars.Get(a.s)
		if !ok {
			return 0, fmt.Errorf("undefined variable $%s", a.s)
		}
		if n, isInt := v.Int(); isInt {
			return n, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("variable $%s is not an integer: %w", a.s, err)
		}
		return n, nil
	case argString:
		n, err := strconv.ParseInt(strings.TrimSpace(a.s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", a.s)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unresolvable argument")
	}
}

func (a Arg) resolveFloat(t *Task) (float64, error) {
	switch a.kind {
	case argFloat:
		return a.f, nil
	case argInt:
		return float64(a.i), nil
	case argVar:
		v, ok := t.ctx.Vars.Get(a.s)
		if !ok {
			return 0, fmt.Errorf("undefined variable $%s", a.s)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		if err != nil {
			return 0, fmt.Errorf("variable $%s is not a number: %w", a.s, err)
		}
		return f, nil
	case argString:
		f, err := strconv.ParseFloat(strings.TrimSpace(a.s), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", a.s)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unresolvable argument")
	}
}

// resolveValue produces the injcontext.Value form used by set()/add(),
// preserving the int-vs-string distinction the Shared Variable Store cares
// about instead of collapsing everything to a string.
func (a Arg) resolveValue(t *Task) (injcontext.Value, error) {
	switch a.kind {
	case argInt:
		return injcontext.IntValue(a.i), nil
	case argFloat:
		return injcontext.IntValue(int64(a.f)), nil
	case argString:
		return injcontext.StringValue(a.s), nil
	case argVar:
		v, ok := t.ctx.Vars.Get(a.s)
		if !ok {
			return injcontext.Value{}, fmt.Errorf("undefined variable $%s", a.s)
		}
		return v, nil
	default:
		return injcontext.Value{}, fmt.Errorf("unresolvable argument")
	}
}

// equalValue implements if_eq's comparison: numeric if both sides parse as
// numbers, string equality otherwise.
func equalValue(t *Task, a, b Arg) (bool, error) {
	af, aerr := a.resolveFloat(t)
	bf, berr := b.resolveFloat(t)
	if aerr == nil && berr == nil {
		return af == bf, nil
	}
	as, err := a.resolveString(t)
	if err != nil {
		return false, err
	}
	bs, err := b.resolveString(t)
	if err != nil {
		return false, err
	}
	return as == bs, nil
}
