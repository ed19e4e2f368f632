// Package boot is the boot-manager interface consumed by the update stack.
// The manager performs the actual image swap on the next restart.
package boot

import (
	"github.com/pkg/errors"
)

// ErrNoCandidate is returned by RequestUpgrade when no valid image is staged.
var ErrNoCandidate = errors.New("boot: no candidate image staged")

// Manager stages and confirms firmware images.
type Manager interface {
	// RequestUpgrade marks the staged image for activation on next restart.
	RequestUpgrade() error

	// ConfirmCurrent marks the running image good, cancelling a rollback.
	// Applications call it once after a successful start.
	ConfirmCurrent() error
}
