package config

import "sync"

// StageFlags holds the runtime on/off switches for each reminder stage.
// Operators can flip a stage through the bot without restarting; the
// scheduler consults the flag at fire time, not at registration time.
type StageFlags struct {
	mu       sync.Mutex
	disabled map[string]bool
}

// NewStageFlags returns flags with every stage enabled.
func NewStageFlags() *StageFlags {
	return &StageFlags{disabled: make(map[string]bool)}
}

// StageEnabled reports whether reminders for the named stage should be sent.
// Unknown stage names are considered enabled.
func (f *StageFlags) StageEnabled(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disabled[name]
}

// SetStage enables or disables a stage.
func (f *StageFlags) SetStage(name string, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if enabled {
		delete(f.disabled, name)
	} else {
		f.disabled[name] = true
	}
}

// Toggle flips a stage and returns its new state.
func (f *StageFlags) Toggle(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled[name] = !f.disabled[name]
	return !f.disabled[name]
}
