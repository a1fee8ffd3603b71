package core

import "errors"

// RefreshMode selects the form of the REFRESH statement.
type RefreshMode int

const (
	// RefreshConcurrently refreshes without locking out concurrent readers.
	// Requires a unique index on the view.
	RefreshConcurrently RefreshMode = iota
	// RefreshBlocking is the plain, exclusive-lock refresh.
	RefreshBlocking
)

func (m RefreshMode) String() string {
	if m == RefreshConcurrently {
		return "concurrent"
	}
	return "non-concurrent"
}

// ErrConcurrentUnsupported is reported by a Refresher when the concurrent
// form cannot be used for a view. Callers match it with errors.Is.
var ErrConcurrentUnsupported = errors.New("concurrent refresh not supported for view")

// Statement is a single refresh of one view in one mode.
type Statement struct {
	View ViewID
	Mode RefreshMode
}

// String renders the statement in the form it is reported to the operator:
//
//	REFRESH MATERIALIZED VIEW [CONCURRENTLY] <schema>.<view>
func (s Statement) String() string {
	if s.Mode == RefreshConcurrently {
		return "REFRESH MATERIALIZED VIEW CONCURRENTLY " + s.View.String()
	}
	return "REFRESH MATERIALIZED VIEW " + s.View.String()
}
