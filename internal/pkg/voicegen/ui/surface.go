package ui

import (
	"fmt"
	"strings"
)

type Action string

const (
	ActionGenerate Action = "generate"
	ActionPlay     Action = "play"
	ActionPause    Action = "pause"
	ActionStop     Action = "stop"
	ActionSave     Action = "save"
)

var Actions = []Action{ActionGenerate, ActionPlay, ActionPause, ActionStop, ActionSave}

// Surface is what the pipeline and the player are allowed to change on screen.
// Implementations are only called on the loop goroutine.
type Surface interface {
	SetStatus(msg string)
	SetProgress(percent float64)
	SetEnabled(action Action, enabled bool)
}

// State is an in-memory Surface. The console renders it; tests inspect it.
type State struct {
	Status   string
	Progress float64
	History  []string

	enabled  map[Action]bool
	onChange func()
}

func NewState() *State {
	s := &State{enabled: make(map[Action]bool, len(Actions))}
	s.enabled[ActionGenerate] = true
	return s
}

// OnChange registers a callback invoked after every mutation.
func (s *State) OnChange(fn func()) {
	s.onChange = fn
}

func (s *State) SetStatus(msg string) {
	s.Status = msg
	s.History = append(s.History, msg)
	s.changed()
}

func (s *State) SetProgress(percent float64) {
	s.Progress = percent
	s.changed()
}

func (s *State) SetEnabled(action Action, enabled bool) {
	s.enabled[action] = enabled
	s.changed()
}

func (s *State) Enabled(action Action) bool {
	return s.enabled[action]
}

// EnabledActions lists the enabled actions in display order.
func (s *State) EnabledActions() []Action {
	var out []Action
	for _, a := range Actions {
		if s.enabled[a] {
			out = append(out, a)
		}
	}
	return out
}

// ProgressBar renders the progress as a fixed width bar.
func (s *State) ProgressBar(width int) string {
	filled := int(s.Progress / 100 * float64(width))
	filled = max(0, min(filled, width))
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("#", filled), strings.Repeat(".", width-filled), s.Progress)
}

func (s *State) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
