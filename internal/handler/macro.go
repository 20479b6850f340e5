package handler

import (
	"log/slog"

	"inputinject/internal/injcontext"
	"inputinject/internal/macro"
	"inputinject/internal/model"
)

// MacroHandler spawns and cancels macro tasks on behalf of a
// CombinationHandler or a raw single-key mapping whose output is a
// macro (spec §4.3: "On press, spawns a macro task in the Runtime keyed
// by (mapping_id, press_instance). On release, signals that task's
// 'held' flag to false").
type MacroHandler struct {
	ctx *injcontext.Context
	log *slog.Logger
}

// NewMacroHandler binds a MacroHandler to one injection's Context.
func NewMacroHandler(ctx *injcontext.Context, log *slog.Logger) *MacroHandler {
	return &MacroHandler{ctx: ctx, log: log}
}

// Spawn starts m's macro program as a new Task and runs it in its own
// goroutine, logging (but not propagating) a MacroRuntime failure since
// there is no caller left to report it to once the task detaches.
func (h *MacroHandler) Spawn(m *model.Mapping) *macro.Task {
	prog, _ := m.MacroProgram.(*macro.Program)
	if prog == nil {
		h.log.Warn("macro mapping fired with no compiled program", "target", m.TargetUinput)
		return nil
	}

	task := macro.NewTask(h.ctx, m.TargetUinput, m.MacroKeySleepMs, m.Shaping.RelRate)
	h.ctx.EnterHandler()
	go func() {
		defer h.ctx.LeaveHandler()
		if err := task.Run(prog); err != nil {
			h.log.Warn("macro task ended with error", "error", err)
		}
	}()
	return task
}

// Stop signals task's triggering key has been released.
func (h *MacroHandler) Stop(task *macro.Task) {
	if task != nil {
		task.Release()
	}
}
