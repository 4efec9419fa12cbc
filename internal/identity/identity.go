// Package identity resolves and persists the visitor's identity: the
// email established by an external interactive sign-in. The email is
// both the visitor's name and their room key.
package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// State is the resolver's authentication state.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// Provider performs the external interactive sign-in and returns the
// authenticated email. The flow's internals (popup, OAuth, whatever the
// deployment uses) are the provider's business.
type Provider interface {
	SignIn(ctx context.Context) (string, error)
}

// Store persists the identity between runs. Absent value means the
// visitor is anonymous.
type Store interface {
	Load() (string, error)
	Save(email string) error
	Clear() error
}

// Hook is invoked with the new email whenever the identity transitions,
// including the restore of a persisted identity at bind time. The
// messaging client registers its Join here: the join of the visitor's
// own room is a direct effect of the identity transition.
type Hook func(email string)

// Resolver owns the current identity and the anonymous→authenticated
// transition. There is no reverse transition; the persisted value is
// only ever cleared out of band.
type Resolver struct {
	provider Provider
	store    Store

	mu    sync.Mutex
	email string
	hook  Hook
}

// NewResolver restores any persisted identity from the store. A store
// read failure is logged and treated as anonymous.
func NewResolver(provider Provider, store Store) *Resolver {
	r := &Resolver{provider: provider, store: store}
	email, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("[identity] restore failed, starting anonymous")
		return r
	}
	r.email = email
	return r
}

// State reports the current authentication state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.email == "" {
		return StateAnonymous
	}
	return StateAuthenticated
}

// Current returns the resolved identity, if any.
func (r *Resolver) Current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.email, r.email != ""
}

// Bind registers the identity hook. If an identity was restored from
// the store it fires immediately, so a returning visitor rejoins their
// room without signing in again.
func (r *Resolver) Bind(hook Hook) {
	r.mu.Lock()
	r.hook = hook
	email := r.email
	r.mu.Unlock()

	if email != "" && hook != nil {
		hook(email)
	}
}

// SignIn runs the external sign-in flow. On success the identity is
// persisted, the hook fires exactly once with the new email, and the
// email is returned. On failure the state is left untouched: no retry,
// the caller stays anonymous.
func (r *Resolver) SignIn(ctx context.Context) (string, error) {
	email, err := r.provider.SignIn(ctx)
	if err != nil {
		log.Error().Err(err).Msg("[identity] sign-in failed")
		return "", fmt.Errorf("sign in: %w", err)
	}

	r.mu.Lock()
	r.email = email
	hook := r.hook
	r.mu.Unlock()

	if err := r.store.Save(email); err != nil {
		// Persistence failure doesn't undo the sign-in; the identity
		// just won't survive a restart.
		log.Warn().Err(err).Msg("[identity] persist failed")
	}

	if hook != nil {
		hook(email)
	}
	return email, nil
}
