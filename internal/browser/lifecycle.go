package browser

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

// Lifecycle event names emitted by Chrome.
const (
	eventDOMContentLoaded = "DOMContentLoaded"
	eventNetworkIdle      = "networkIdle"
)

type lifecycleKey struct {
	loader cdp.LoaderID
	name   string
}

// lifecycle records page lifecycle events per loader so waiters can block on
// a specific navigation even if the event fired before they started waiting.
type lifecycle struct {
	mu      sync.Mutex
	seen    map[lifecycleKey]struct{}
	changed chan struct{}
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		seen:    make(map[lifecycleKey]struct{}),
		changed: make(chan struct{}),
	}
}

// handle is registered with chromedp.ListenTarget.
func (l *lifecycle) handle(ev any) {
	if e, ok := ev.(*page.EventLifecycleEvent); ok {
		l.record(e.LoaderID, e.Name)
	}
}

func (l *lifecycle) record(loader cdp.LoaderID, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := lifecycleKey{loader: loader, name: name}
	if _, ok := l.seen[key]; ok {
		return
	}
	l.seen[key] = struct{}{}
	close(l.changed)
	l.changed = make(chan struct{})
}

// wait blocks until name has fired for loader or ctx is done.
func (l *lifecycle) wait(ctx context.Context, loader cdp.LoaderID, name string) error {
	key := lifecycleKey{loader: loader, name: name}
	for {
		l.mu.Lock()
		_, ok := l.seen[key]
		changed := l.changed
		l.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}
