// Package workspace maps a browser session to its owner id and keeps one
// chart builder and one viewport tracker per owner.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/leapstack-labs/leapviz/internal/layout"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

const (
	sessionName = "leapviz"
	ownerKey    = "owner"
)

// Registry limits used unless overridden with WithLimits.
const (
	DefaultMaxWorkspaces = 1024
	DefaultIdleTTL       = 2 * time.Hour
)

// OwnerID returns the owner id stored in the session cookie, creating and
// saving a new one on first visit.
func OwnerID(w http.ResponseWriter, r *http.Request, store sessions.Store) (string, error) {
	sess, err := store.Get(r, sessionName)
	if err != nil {
		// an undecodable cookie (rotated secret) starts a fresh session
		sess, err = store.New(r, sessionName)
		if sess == nil {
			return "", fmt.Errorf("failed to create session: %w", err)
		}
	}
	if id, ok := sess.Values[ownerKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.New().String()
	sess.Values[ownerKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}

// PreferenceStore loads persisted display preferences.
// *state.Store implements it.
type PreferenceStore interface {
	LookupPreferences(ctx context.Context, owner string) (core.DisplayPreferences, bool, error)
}

// Workspace is the live state of one owner.
type Workspace struct {
	Owner   string
	Builder *builder.Builder
	Tracker *layout.Tracker
}

// Registry creates workspaces on demand and drops the least recently used
// ones once it holds too many or they sit idle too long.
type Registry struct {
	newBuilder func() *builder.Builder
	prefs      PreferenceStore
	defaults   core.DisplayPreferences
	logger     *slog.Logger

	mu    sync.Mutex
	items *expirable.LRU[string, *Workspace]
}

type registryLimits struct {
	size int
	idle time.Duration
}

// Option configures a Registry.
type Option func(*registryLimits)

// WithLimits bounds the number of live workspaces and how long an unused
// one is kept. Zero disables the respective limit.
func WithLimits(size int, idle time.Duration) Option {
	return func(l *registryLimits) {
		l.size = size
		l.idle = idle
	}
}

// NewRegistry creates a registry. newBuilder is called once per owner.
// Preferences are loaded from prefs (when non-nil) the first time an owner
// is seen; defaults apply otherwise.
func NewRegistry(newBuilder func() *builder.Builder, prefs PreferenceStore, defaults core.DisplayPreferences, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if defaults.Theme == "" {
		defaults.Theme = core.ThemeLight
	}
	limits := registryLimits{size: DefaultMaxWorkspaces, idle: DefaultIdleTTL}
	for _, opt := range opts {
		opt(&limits)
	}

	evicted := func(owner string, _ *Workspace) {
		logger.Debug("workspace evicted", slog.String("owner", owner))
	}
	return &Registry{
		newBuilder: newBuilder,
		prefs:      prefs,
		defaults:   defaults,
		logger:     logger,
		items:      expirable.NewLRU(limits.size, evicted, limits.idle),
	}
}

// Get returns the owner's workspace, creating it on first use. Every call
// restarts the workspace's idle timer.
func (r *Registry) Get(ctx context.Context, owner string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.items.Get(owner); ok {
		r.items.Add(owner, ws)
		return ws
	}

	prefs := r.defaults
	if r.prefs != nil {
		stored, found, err := r.prefs.LookupPreferences(ctx, owner)
		switch {
		case err != nil:
			r.logger.Warn("failed to load preferences, using defaults", slog.String("owner", owner), slog.String("error", err.Error()))
		case found:
			prefs = stored
		}
	}

	ws := &Workspace{
		Owner:   owner,
		Builder: r.newBuilder(),
		Tracker: layout.NewTracker(prefs),
	}
	r.items.Add(owner, ws)
	return ws
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	return r.items.Len()
}
