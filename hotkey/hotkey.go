package hotkey

// Hotkey reports presses of the global Ctrl+Shift+M combination.
type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Combo is the human-readable name of the registered combination.
const Combo = "Ctrl+Shift+M"
