package auth

import "github.com/holtech/isbridge/pkg/hooks"

// LifecycleKind names a token lifecycle transition.
type LifecycleKind string

const (
	KindExchanged        LifecycleKind = "exchanged"
	KindExchangeSkipped  LifecycleKind = "exchange_skipped"
	KindExchangeRejected LifecycleKind = "exchange_rejected"
	KindRefreshed        LifecycleKind = "refreshed"
	KindRefreshFailed    LifecycleKind = "refresh_failed"
	KindLoggedOut        LifecycleKind = "logged_out"
)

// LifecycleEvent describes one transition.
type LifecycleEvent struct {
	Kind       LifecycleKind
	Authorized bool
	Err        error
}

// Lifecycle is emitted by a Manager after every token transition.
var Lifecycle = hooks.NewAction[LifecycleEvent]("isbridge_token_lifecycle")
