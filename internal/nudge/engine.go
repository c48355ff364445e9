package nudge

import (
	"strings"

	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/intent"
)

// AvoidedRecorder is told when a warned input was cleared.
// It must return without waiting on storage.
type AvoidedRecorder interface {
	RecordAvoided()
}

// Engine is the Idle/Warning state machine for one editable surface.
// It is driven from a single goroutine.
type Engine struct {
	settings  *config.Live
	presenter intent.Presenter
	avoided   AvoidedRecorder

	warning bool
}

// NewEngine creates an Engine in the Idle state.
func NewEngine(settings *config.Live, p intent.Presenter, rec AvoidedRecorder) *Engine {
	if p == nil {
		p = intent.Discard
	}
	return &Engine{settings: settings, presenter: p, avoided: rec}
}

// Warning reports whether a warning is currently shown.
func (e *Engine) Warning() bool { return e.warning }

// HandleInput evaluates the current text of the editable at anchor.
// A verdict shows (or updates) the warning. Losing the verdict while warned
// hides it, and counts one avoided submission when the text was cleared.
func (e *Engine) HandleInput(anchor, text string) (Verdict, bool) {
	if e.settings != nil && !e.settings.NudgeEnabled() {
		if e.warning {
			e.warning = false
			e.presenter.Present(intent.Intent{Kind: intent.HideWarning, Anchor: anchor})
		}
		return Verdict{}, false
	}

	v, ok := Analyze(text)
	if ok {
		e.warning = true
		e.presenter.Present(intent.Intent{Kind: intent.ShowWarning, Anchor: anchor, Message: v.Message})
		return v, true
	}
	if !e.warning {
		return Verdict{}, false
	}

	e.warning = false
	e.presenter.Present(intent.Intent{Kind: intent.HideWarning, Anchor: anchor})
	if strings.TrimSpace(text) == "" && e.avoided != nil {
		e.avoided.RecordAvoided()
	}
	return Verdict{}, false
}
