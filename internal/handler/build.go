package handler

import (
	"log/slog"

	"inputinject/internal/combination"
	"inputinject/internal/device"
	"inputinject/internal/evcode"
	"inputinject/internal/injcontext"
	"inputinject/internal/model"
)

// AxisRangeProvider reports the [min, max] a named virtual output
// advertises for an ABS axis, so axis handlers know where to saturate.
// internal/uinputdev.Registry implements this.
type AxisRangeProvider interface {
	AxisRange(uinputName string, code uint16) (min, max int32, ok bool)
}

const defaultAbsMin, defaultAbsMax = -32767, 32767

// sourceAbsRange looks up the declared ABS range for cfg's code on the
// sub-device cfg.OriginHash names, or the first sub-device in the group
// advertising that code when OriginHash is empty ("any sub-device").
// Falls back to a signed 16-bit range if nothing in the group declares it.
func sourceAbsRange(grp *device.Group, cfg model.InputConfig) (int32, int32) {
	if grp != nil {
		for _, sd := range grp.SubDevices {
			if cfg.OriginHash != "" && sd.OriginHash() != cfg.OriginHash {
				continue
			}
			if info, ok := sd.AbsInfo[cfg.Code]; ok {
				return info.Minimum, info.Maximum
			}
		}
	}
	return defaultAbsMin, defaultAbsMax
}

// BuildGraph wires one injection's validated Preset into a live Handler
// Graph (spec §4.3): a shared CombinationHandler for every Key/Macro
// mapping driven by a key combination, a ThresholdKeyHandler for each
// single-axis analog_threshold mapping, and one dedicated handler per
// analog-axis mapping, all
// registered into the entry routing table under the (type, code) of
// every InputConfig that can trigger them.
func BuildGraph(preset *model.Preset, grp *device.Group, ctx *injcontext.Context, ranges AxisRangeProvider, log *slog.Logger) *Graph {
	forwarder := NewForwarder(ctx)
	graph := NewGraph(forwarder, ctx)
	excl := NewExclusivityArbiter()

	var comboMappings []*model.Mapping

	for i := range preset.Mappings {
		m := &preset.Mappings[i]

		switch m.Output {
		case model.OutputAnalogAxis:
			buildAxisHandler(graph, m, grp, ctx, ranges, excl, log)
		case model.OutputKey, model.OutputMacro:
			if isThresholdMapping(m) {
				buildThresholdHandler(graph, m, grp, ctx)
			} else {
				comboMappings = append(comboMappings, m)
			}
		}
	}

	if len(comboMappings) > 0 {
		reg := combination.NewRegistry(comboMappings)
		resolver := combination.NewResolver(reg)
		keys := NewKeyHandler(ctx)
		macros := NewMacroHandler(ctx, log)
		combo := NewCombinationHandler(resolver, keys, macros, forwarder)

		seen := make(map[routeKey]bool)
		for _, m := range comboMappings {
			for _, cfg := range m.InputCombination {
				k := routeKey{cfg.Type, cfg.Code}
				if seen[k] {
					continue
				}
				seen[k] = true
				graph.Register(cfg.Type, cfg.Code, combo)
			}
		}
	}

	return graph
}

// isThresholdMapping reports whether m is a RelToKey/AbsToKey mapping: a
// Key/Macro output driven by a single continuous-axis InputConfig with
// analog_threshold set, rather than a discrete key combination.
func isThresholdMapping(m *model.Mapping) bool {
	if len(m.InputCombination) != 1 {
		return false
	}
	cfg := m.InputCombination[0]
	return cfg.HasThreshold && (cfg.Type == evcode.EV_ABS || cfg.Type == evcode.EV_REL)
}

func buildThresholdHandler(graph *Graph, m *model.Mapping, grp *device.Group, ctx *injcontext.Context) {
	cfg := m.InputCombination[0]
	var h Handler
	if cfg.Type == evcode.EV_ABS {
		min, max := sourceAbsRange(grp, cfg)
		h = NewAbsToKeyHandler(m, cfg, ctx, min, max)
	} else {
		h = NewRelToKeyHandler(m, cfg, ctx)
	}
	graph.Register(cfg.Type, cfg.Code, h)
}

func buildAxisHandler(graph *Graph, m *model.Mapping, grp *device.Group, ctx *injcontext.Context, ranges AxisRangeProvider, excl *ExclusivityArbiter, log *slog.Logger) {
	analog := m.InputCombination.AnalogConfigs()
	if len(analog) != 1 {
		log.Warn("analog-axis mapping has no single analog config, skipping", "target", m.TargetUinput)
		return
	}
	cfg := analog[0]

	dstMin, dstMax, ok := ranges.AxisRange(m.TargetUinput, m.OutputCode)
	if !ok {
		dstMin, dstMax = defaultAbsMin, defaultAbsMax
	}

	var h Handler
	switch {
	case cfg.Type == evcode.EV_ABS && m.OutputType == evcode.EV_ABS:
		min, max := sourceAbsRange(grp, cfg)
		h = NewAbsToAbsHandler(m, ctx, min, max, dstMin, dstMax, excl)
	case cfg.Type == evcode.EV_ABS && m.OutputType == evcode.EV_REL:
		min, max := sourceAbsRange(grp, cfg)
		h = NewAbsToRelHandler(m, ctx, min, max, excl)
	case cfg.Type == evcode.EV_REL && m.OutputType == evcode.EV_ABS:
		h = NewRelToAbsHandler(m, ctx, dstMin, dstMax)
	default:
		// REL->REL axis mappings are not a transformation spec §4.3 names
		// (gain-only passthrough would invent undocumented semantics);
		// skip and log rather than guess.
		log.Warn("unsupported axis mapping source/output combination",
			"srcType", cfg.Type, "dstType", m.OutputType, "target", m.TargetUinput)
		return
	}
	graph.Register(cfg.Type, cfg.Code, h)
}
