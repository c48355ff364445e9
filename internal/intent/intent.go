// Package intent defines the presentation intents emitted by the core.
// Rendering them (banners, alerts, input rewrites) is left to whoever consumes them.
package intent

// Kind identifies what the presentation layer is asked to do.
type Kind string

const (
	ShowWarning Kind = "show_warning" // show or update the nudge banner near Anchor
	HideWarning Kind = "hide_warning"
	BudgetAlert Kind = "budget_alert" // Percent of LimitGrams used today
	SetInput    Kind = "set_input"    // replace the editable at Anchor with Text
)

// Intent is a single presentation request.
type Intent struct {
	Kind       Kind    `json:"type"`
	Anchor     string  `json:"anchor,omitempty"`
	Message    string  `json:"message,omitempty"`
	Text       string  `json:"text,omitempty"`
	Zone       string  `json:"zone,omitempty"`
	Percent    float64 `json:"percent,omitempty"`
	LimitGrams float64 `json:"limit_grams,omitempty"`
}

// Presenter receives intents. Implementations must not block the caller.
type Presenter interface {
	Present(Intent)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Intent)

// Present calls f(in).
func (f PresenterFunc) Present(in Intent) { f(in) }

// Discard drops every intent.
var Discard Presenter = PresenterFunc(func(Intent) {})

// Multi fans an intent out to several presenters; nil entries are skipped.
func Multi(ps ...Presenter) Presenter {
	return PresenterFunc(func(in Intent) {
		for _, p := range ps {
			if p != nil {
				p.Present(in)
			}
		}
	})
}
