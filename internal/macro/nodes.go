package macro

import (
	"fmt"
	"strings"
)

// buildNode dispatches a parsed call name and its raw arguments to the
// matching Node constructor. Legacy one-letter aliases (m/r/k/e/w/h) are
// kept for the same backwards-compatibility reason the source project
// keeps them: old presets already spell macros that way.
func buildNode(name string, rawArgs []string) (Node, error) {
	a := bindArgs(rawArgs)

	switch name {
	case "key", "k":
		return buildKey(a)
	case "key_down":
		return buildKeyDown(a)
	case "key_up":
		return buildKeyUp(a)
	case "wait", "w":
		return buildWait(a)
	case "repeat", "r":
		return buildRepeat(a)
	case "modify", "m":
		return buildModify(a)
	case "hold", "h":
		return buildHold(a)
	case "hold_keys":
		return buildHoldKeys(a)
	case "mod_tap":
		return buildModTap(a)
	case "mouse":
		return buildMouse(a)
	case "mouse_xy":
		return buildMouseXY(a)
	case "wheel":
		return buildWheel(a)
	case "event", "e":
		return buildEvent(a)
	case "set":
		return buildSet(a)
	case "add":
		return buildAdd(a)
	case "if_eq", "ifeq":
		return buildIfEq(a)
	case "if_tap":
		return buildIfTap(a)
	case "if_single":
		return buildIfSingle(a)
	case "if_capslock":
		then, els, err := thenElse(a)
		if err != nil {
			return nil, err
		}
		return IfCapslock{Then: then, Else: els}, nil
	case "if_numlock":
		then, els, err := thenElse(a)
		if err != nil {
			return nil, err
		}
		return IfNumlock{Then: then, Else: els}, nil
	default:
		return nil, fmt.Errorf("unknown macro function %q", name)
	}
}

func requiredScalar(a args, pos int, names ...string) (Arg, error) {
	v, ok, err := a.scalar(pos, names...)
	if err != nil {
		return Arg{}, err
	}
	if !ok {
		return Arg{}, fmt.Errorf("missing required argument %v", names)
	}
	return v, nil
}

func buildKey(a args) (Node, error) {
	sym, err := requiredScalar(a, 0, "symbol")
	if err != nil {
		return nil, err
	}
	return Key{Sym: sym}, nil
}

func buildKeyDown(a args) (Node, error) {
	sym, err := requiredScalar(a, 0, "symbol")
	if err != nil {
		return nil, err
	}
	return KeyDown{Sym: sym}, nil
}

func buildKeyUp(a args) (Node, error) {
	sym, err := requiredScalar(a, 0, "symbol")
	if err != nil {
		return nil, err
	}
	return KeyUp{Sym: sym}, nil
}

func buildWait(a args) (Node, error) {
	min, err := requiredScalar(a, 0, "t")
	if err != nil {
		return nil, err
	}
	max, hasMax, err := a.scalar(1, "max")
	if err != nil {
		return nil, err
	}
	return Wait{Min: min, Max: max, HasMax: hasMax}, nil
}

func buildRepeat(a args) (Node, error) {
	n, err := requiredScalar(a, 0, "repeats")
	if err != nil {
		return nil, err
	}
	body, ok, err := a.macro(1, "macro")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("repeat requires a macro body")
	}
	return Repeat{N: n, Body: body}, nil
}

func buildModify(a args) (Node, error) {
	mod, err := requiredScalar(a, 0, "modifier")
	if err != nil {
		return nil, err
	}
	body, ok, err := a.macro(1, "macro")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("modify requires a macro body")
	}
	return Modify{Mod: mod, Body: body}, nil
}

func buildHold(a args) (Node, error) {
	body, ok, err := a.macro(0, "macro")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("hold requires a macro body")
	}
	return Hold{Body: body}, nil
}

func buildHoldKeys(a args) (Node, error) {
	if len(a.positional) == 0 {
		return nil, fmt.Errorf("hold_keys requires at least one symbol")
	}
	syms := make([]Arg, 0, len(a.positional))
	for _, raw := range a.positional {
		v, err := parseValue(raw)
		if err != nil {
			return nil, err
		}
		if v.prog != nil {
			return nil, fmt.Errorf("hold_keys arguments must be symbols, not macros")
		}
		syms = append(syms, v.arg)
	}
	return HoldKeys{Syms: syms}, nil
}

func buildModTap(a args) (Node, error) {
	def, err := requiredScalar(a, 0, "default")
	if err != nil {
		return nil, err
	}
	mod, err := requiredScalar(a, 1, "mod")
	if err != nil {
		return nil, err
	}
	term, hasTerm, err := a.scalar(2, "term")
	if err != nil {
		return nil, err
	}
	return ModTap{Default: def, Mod: mod, TermMs: term, HasTerm: hasTerm}, nil
}

func dirFromArg(a Arg) (MouseDir, error) {
	s, ok := a.s, a.kind == argString
	if !ok {
		return 0, fmt.Errorf("direction must be a string")
	}
	switch strings.ToLower(s) {
	case "up":
		return DirUp, nil
	case "down":
		return DirDown, nil
	case "left":
		return DirLeft, nil
	case "right":
		return DirRight, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

func buildMouse(a args) (Node, error) {
	dirArg, err := requiredScalar(a, 0, "direction")
	if err != nil {
		return nil, err
	}
	dir, err := dirFromArg(dirArg)
	if err != nil {
		return nil, err
	}
	speed, err := requiredScalar(a, 1, "speed")
	if err != nil {
		return nil, err
	}
	accel, hasAccel, err := a.scalar(2, "accel")
	if err != nil {
		return nil, err
	}
	return Mouse{Dir: dir, Speed: speed, Accel: accel, HasAccel: hasAccel}, nil
}

func buildMouseXY(a args) (Node, error) {
	x, err := requiredScalar(a, 0, "x")
	if err != nil {
		return nil, err
	}
	y, err := requiredScalar(a, 1, "y")
	if err != nil {
		return nil, err
	}
	accel, hasAccel, err := a.scalar(2, "accel")
	if err != nil {
		return nil, err
	}
	return MouseXY{X: x, Y: y, Accel: accel, HasAccel: hasAccel}, nil
}

func buildWheel(a args) (Node, error) {
	dirArg, err := requiredScalar(a, 0, "direction")
	if err != nil {
		return nil, err
	}
	dir, err := dirFromArg(dirArg)
	if err != nil {
		return nil, err
	}
	speed, err := requiredScalar(a, 1, "speed")
	if err != nil {
		return nil, err
	}
	return Wheel{Dir: dir, Speed: speed}, nil
}

func buildEvent(a args) (Node, error) {
	t, err := requiredScalar(a, 0, "type")
	if err != nil {
		return nil, err
	}
	code, err := requiredScalar(a, 1, "code")
	if err != nil {
		return nil, err
	}
	value, err := requiredScalar(a, 2, "value")
	if err != nil {
		return nil, err
	}
	return Event{Type: t, Code: code, Value: value}, nil
}

func buildSet(a args) (Node, error) {
	name, err := requiredScalar(a, 0, "variable")
	if err != nil {
		return nil, err
	}
	value, err := requiredScalar(a, 1, "value")
	if err != nil {
		return nil, err
	}
	return Set{Name: name, Value: value}, nil
}

func buildAdd(a args) (Node, error) {
	name, err := requiredScalar(a, 0, "variable")
	if err != nil {
		return nil, err
	}
	value, err := requiredScalar(a, 1, "value")
	if err != nil {
		return nil, err
	}
	return Add{Name: name, Value: value}, nil
}

func buildIfEq(a args) (Node, error) {
	v1, err := requiredScalar(a, 0, "value_1")
	if err != nil {
		return nil, err
	}
	v2, err := requiredScalar(a, 1, "value_2")
	if err != nil {
		return nil, err
	}
	then, _, err := a.macro(2, "then")
	if err != nil {
		return nil, err
	}
	els, _, err := a.macro(3, "else")
	if err != nil {
		return nil, err
	}
	return IfEq{A: v1, B: v2, Then: then, Else: els}, nil
}

func buildIfTap(a args) (Node, error) {
	then, _, err := a.macro(0, "then")
	if err != nil {
		return nil, err
	}
	els, _, err := a.macro(1, "else")
	if err != nil {
		return nil, err
	}
	timeout, ok, err := a.scalar(2, "timeout")
	if err != nil {
		return nil, err
	}
	if !ok {
		timeout = intArg(300)
	}
	return IfTap{Then: then, Else: els, TimeoutMs: timeout}, nil
}

func buildIfSingle(a args) (Node, error) {
	then, _, err := a.macro(0, "then")
	if err != nil {
		return nil, err
	}
	els, _, err := a.macro(1, "else")
	if err != nil {
		return nil, err
	}
	timeout, hasTimeout, err := a.scalar(2, "timeout")
	if err != nil {
		return nil, err
	}
	return IfSingle{Then: then, Else: els, TimeoutMs: timeout, HasTimeout: hasTimeout}, nil
}

func thenElse(a args) (*Program, *Program, error) {
	then, _, err := a.macro(0, "then")
	if err != nil {
		return nil, nil, err
	}
	els, _, err := a.macro(1, "else")
	if err != nil {
		return nil, nil, err
	}
	return then, els, nil
}
