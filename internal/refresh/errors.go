package refresh

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// RecoverableRefreshError wraps a concurrent refresh failure that is handled
// by retrying the view with the blocking form.
type RecoverableRefreshError struct {
	View core.ViewID
	Err  error
}

func (e *RecoverableRefreshError) Error() string {
	return fmt.Sprintf("concurrent refresh of %s not possible: %v", e.View, e.Err)
}

func (e *RecoverableRefreshError) Unwrap() error { return e.Err }

// FatalRefreshError is any refresh failure that halts the run, including a
// failed fallback attempt.
type FatalRefreshError struct {
	View core.ViewID
	Mode core.RefreshMode
	Err  error
}

func (e *FatalRefreshError) Error() string {
	return fmt.Sprintf("%s refresh of %s failed: %v", e.Mode, e.View, e.Err)
}

func (e *FatalRefreshError) Unwrap() error { return e.Err }

// IsConcurrentUnsupported reports whether err signals that the concurrent
// form is unavailable for the view.
func IsConcurrentUnsupported(err error) bool {
	return errors.Is(err, core.ErrConcurrentUnsupported)
}
