package input

import (
	"sync"

	"github.com/plyview/plyview/common"
)

// Keys is a bitfield of the navigation keys currently held down.
type Keys uint8

const (
	// KeyUp is set while the pitch-up key (W) is held.
	KeyUp Keys = 1 << iota
	// KeyDown is set while the pitch-down key (S) is held.
	KeyDown
	// KeyLeft is set while the yaw-left key (A) is held.
	KeyLeft
	// KeyRight is set while the yaw-right key (D) is held.
	KeyRight
)

// Has reports whether all bits of k2 are set in k.
//
// Parameters:
//   - k2: the bits to test
//
// Returns:
//   - bool: true if every bit of k2 is held
func (k Keys) Has(k2 Keys) bool {
	return k&k2 == k2
}

// PitchSign returns the pitch direction encoded by the held keys: +1 for up,
// -1 for down, 0 when neither or both are held.
//
// Returns:
//   - float32: the pitch direction
func (k Keys) PitchSign() float32 {
	var s float32
	if k.Has(KeyUp) {
		s++
	}
	if k.Has(KeyDown) {
		s--
	}
	return s
}

// YawSign returns the yaw direction encoded by the held keys: +1 for right,
// -1 for left, 0 when neither or both are held.
//
// Returns:
//   - float32: the yaw direction
func (k Keys) YawSign() float32 {
	var s float32
	if k.Has(KeyRight) {
		s++
	}
	if k.Has(KeyLeft) {
		s--
	}
	return s
}

// state is the implementation of the State interface.
type state struct {
	mu   sync.Mutex
	held Keys
}

// State defines the interface for tracking held navigation keys. Press and
// Release are driven by window key events; Held is sampled once per frame.
// All methods are safe for concurrent use.
type State interface {
	// Press records a key-down event for the given platform key code.
	// Unmapped key codes are ignored.
	//
	// Parameters:
	//   - keyCode: the platform key code
	Press(keyCode uint32)

	// Release records a key-up event for the given platform key code.
	// Unmapped key codes are ignored.
	//
	// Parameters:
	//   - keyCode: the platform key code
	Release(keyCode uint32)

	// Held retrieves the set of navigation keys currently held down.
	//
	// Returns:
	//   - Keys: the held key bits
	Held() Keys
}

var _ State = &state{}

// NewState creates an empty key state tracker.
//
// Returns:
//   - State: the key state tracker
func NewState() State {
	return &state{}
}

func (s *state) Press(keyCode uint32) {
	if k, ok := mapKey(keyCode); ok {
		s.mu.Lock()
		s.held |= k
		s.mu.Unlock()
	}
}

func (s *state) Release(keyCode uint32) {
	if k, ok := mapKey(keyCode); ok {
		s.mu.Lock()
		s.held &^= k
		s.mu.Unlock()
	}
}

func (s *state) Held() Keys {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held
}

// mapKey translates a platform key code to its navigation bit.
func mapKey(keyCode uint32) (Keys, bool) {
	switch keyCode {
	case common.KeyW:
		return KeyUp, true
	case common.KeyS:
		return KeyDown, true
	case common.KeyA:
		return KeyLeft, true
	case common.KeyD:
		return KeyRight, true
	default:
		return 0, false
	}
}
