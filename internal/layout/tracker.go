package layout

import (
	"sync"

	"github.com/leapstack-labs/leapviz/internal/notifier"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

// Tracker keeps the live viewport of one client and pings subscribers when
// the derived viewport or the resolved theme changes, so rendered charts can
// be re-merged at the new size.
type Tracker struct {
	mu          sync.RWMutex
	width       int
	prefs       core.DisplayPreferences
	prefersDark bool

	listeners *notifier.Notifier
}

// NewTracker creates a tracker at DefaultWidth with the given preferences.
func NewTracker(prefs core.DisplayPreferences) *Tracker {
	return &Tracker{
		width:     DefaultWidth,
		prefs:     prefs,
		listeners: notifier.New(),
	}
}

// Viewport returns the current derived viewport.
func (t *Tracker) Viewport() Viewport {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Derive(t.width, t.prefs)
}

// Theme returns the active theme with "auto" resolved.
func (t *Tracker) Theme() core.Theme {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.prefs.Theme.Resolve(t.prefersDark)
}

// Preferences returns the display preferences the tracker derives from.
func (t *Tracker) Preferences() core.DisplayPreferences {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.prefs
}

// Resize records a new client width. It reports whether the derived
// viewport class or plot height changed; subscribers are pinged if so.
func (t *Tracker) Resize(width int) bool {
	return t.update(func() { t.width = width })
}

// SetPreferences replaces the display preferences.
func (t *Tracker) SetPreferences(prefs core.DisplayPreferences) bool {
	return t.update(func() { t.prefs = prefs })
}

// SetPrefersDark records the client's color scheme preference, used when
// the theme preference is "auto".
func (t *Tracker) SetPrefersDark(dark bool) bool {
	return t.update(func() { t.prefersDark = dark })
}

func (t *Tracker) update(fn func()) bool {
	t.mu.Lock()
	before, beforeTheme := Derive(t.width, t.prefs), t.prefs.Theme.Resolve(t.prefersDark)
	fn()
	after, afterTheme := Derive(t.width, t.prefs), t.prefs.Theme.Resolve(t.prefersDark)
	t.mu.Unlock()

	changed := before.Class != after.Class || before.PlotHeight != after.PlotHeight || beforeTheme != afterTheme
	if changed {
		t.listeners.NotifyAll()
	}
	return changed
}

// Subscribe returns a channel pinged on every viewport change.
// The caller must call Unsubscribe when done.
func (t *Tracker) Subscribe() chan struct{} {
	return t.listeners.Subscribe(notifier.All)
}

// Unsubscribe removes and closes a subscription channel.
func (t *Tracker) Unsubscribe(ch chan struct{}) {
	t.listeners.Unsubscribe(ch)
}
