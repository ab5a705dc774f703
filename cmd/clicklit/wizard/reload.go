package wizard

import (
	tea "github.com/charmbracelet/bubbletea"

	"clicklit/cmd/clicklit/ui"
	"clicklit/internal/session"
)

// ConfigReloadedMsg applies a live config change to a running wizard.
// Sent from outside the program by the config file watcher.
type ConfigReloadedMsg struct {
	ChoicePolicy session.ChoicePolicy
	StylePolicy  session.StylePolicy
	Styles       ui.Styles
}

// applyReload swaps the policies and styles on the root and every screen.
// In-flight screen state is untouched; the new policies apply from the
// next confirmed action on.
func (m *Model) applyReload(msg ConfigReloadedMsg) {
	update := func(d *Deps) {
		if msg.ChoicePolicy != nil {
			d.ChoicePolicy = msg.ChoicePolicy
		}
		if msg.StylePolicy != nil {
			d.StylePolicy = msg.StylePolicy
		}
		d.Styles = msg.Styles
	}
	update(&m.deps)
	update(&m.target.deps)
	update(&m.product.deps)
	update(&m.prediction.deps)
	update(&m.image.deps)
}

var _ tea.Msg = ConfigReloadedMsg{}
