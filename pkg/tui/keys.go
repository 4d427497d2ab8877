package tui

import "github.com/charmbracelet/bubbles/key"

func binding(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

type keyMap struct {
	Note      key.Binding
	Display   key.Binding
	Randomize key.Binding
	Detail    key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	Open      key.Binding
	Save      key.Binding
	Help      key.Binding
	Quit      key.Binding

	Up           key.Binding
	Down         key.Binding
	TargetDown   key.Binding
	TargetUp     key.Binding
	DurationDown key.Binding
	DurationUp   key.Binding
	Add          key.Binding
	Remove       key.Binding
	Sustain      key.Binding
	MaxSustain   key.Binding
	Back         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Note:      binding("note on/off", " ", "space"),
		Display:   binding("envelope/sliders", "tab"),
		Randomize: binding("randomize", "r"),
		Detail:    binding("stage list", "e"),
		ZoomIn:    binding("zoom in", "+", "="),
		ZoomOut:   binding("zoom out", "-"),
		Open:      binding("open", "o"),
		Save:      binding("save", "s"),
		Help:      binding("help", "?"),
		Quit:      binding("quit", "q", "ctrl+c"),

		Up:           binding("previous stage", "up", "k"),
		Down:         binding("next stage", "down", "j"),
		TargetDown:   binding("target -", "left", "h"),
		TargetUp:     binding("target +", "right", "l"),
		DurationDown: binding("duration -", "["),
		DurationUp:   binding("duration +", "]"),
		Add:          binding("add stage", "a"),
		Remove:       binding("remove stage", "x", "delete"),
		Sustain:      binding("toggle sustain", "u"),
		MaxSustain:   binding("cycle max sustain", "m"),
		Back:         binding("back", "esc"),
	}
}

// editorKeys is the help.KeyMap shown on the curve view
type editorKeys struct{ keyMap }

func (k editorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Note, k.Display, k.Randomize, k.Detail, k.Help, k.Quit}
}

func (k editorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Note, k.Display, k.Randomize, k.Detail},
		{k.ZoomIn, k.ZoomOut, k.Open, k.Save},
		{k.Help, k.Quit},
	}
}

// detailKeys is the help.KeyMap shown on the stage list
type detailKeys struct{ keyMap }

func (k detailKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.TargetUp, k.DurationUp, k.Add, k.Remove, k.Back}
}

func (k detailKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.TargetDown, k.TargetUp},
		{k.DurationDown, k.DurationUp, k.Add, k.Remove},
		{k.Sustain, k.MaxSustain, k.Note, k.Back},
	}
}
