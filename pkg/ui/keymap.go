package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/go-go-golems/invochat/pkg/settings"
)

type KeyMap struct {
	SubmitMessage key.Binding
	ScrollUp      key.Binding
	ScrollDown    key.Binding

	// QuickActions are bound to F1, F2, ... in configuration order.
	QuickActions []key.Binding

	Help key.Binding
	Quit key.Binding
}

var quickActionKeys = []string{"f1", "f2", "f3", "f4", "f5", "f6"}

var DefaultKeyMap = KeyMap{
	SubmitMessage: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	ScrollUp:      key.NewBinding(key.WithKeys("pgup", "shift+up"), key.WithHelp("pgup", "scroll up")),
	ScrollDown:    key.NewBinding(key.WithKeys("pgdown", "shift+down"), key.WithHelp("pgdown", "scroll down")),
	Help:          key.NewBinding(key.WithKeys("alt+h"), key.WithHelp("alt+h", "help")),
	Quit:          key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

// WithQuickActions returns a copy of the keymap with one function key per
// quick action. Actions beyond the available keys are not bound.
func (k KeyMap) WithQuickActions(qas []settings.QuickAction) KeyMap {
	k.QuickActions = nil
	for i, qa := range qas {
		if i >= len(quickActionKeys) {
			break
		}
		label := qa.Label
		if label == "" {
			label = qa.Name
		}
		k.QuickActions = append(k.QuickActions, key.NewBinding(
			key.WithKeys(quickActionKeys[i]),
			key.WithHelp(quickActionKeys[i], label),
		))
	}
	return k
}

func (k KeyMap) ShortHelp() []key.Binding {
	ret := append([]key.Binding{}, k.QuickActions...)
	return append(ret, k.Help, k.Quit)
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.QuickActions,
		{k.SubmitMessage, k.ScrollUp, k.ScrollDown},
		{k.Help, k.Quit},
	}
}
