package wallpaper

import (
	"sync"

	"github.com/google/uuid"

	"github.com/HxprLee/manpaper/util"
	"github.com/HxprLee/manpaper/util/log"
)

// Status is the download/lifecycle state carried by a StatusEvent.
type Status string

const (
	// StatusQueued means the item is waiting for a download worker.
	StatusQueued Status = "queued"
	// StatusDownloading means a worker is fetching the item.
	StatusDownloading Status = "downloading"
	// StatusDownloaded means the full file is on disk.
	StatusDownloaded Status = "downloaded"
	// StatusFailed means the download gave up.
	StatusFailed Status = "failed"
	// StatusRemoved means the local file was deleted.
	StatusRemoved Status = "removed"
	// StatusApplied means the item is the current wallpaper.
	StatusApplied Status = "applied"
)

// StatusEvent announces a change in an item's download or apply state.
type StatusEvent struct {
	ItemID string
	Status Status
	Err    error // non-nil only for StatusFailed
}

// Hub is a typed publish/subscribe channel for StatusEvents. Events are
// dispatched from a single goroutine, so subscribers observe them in
// publish order and never concurrently.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]func(StatusEvent)

	events chan StatusEvent
	done   chan struct{}

	closed    *util.SafeFlag
	closeOnce sync.Once
}

// NewHub creates a Hub and starts its dispatch goroutine.
func NewHub() *Hub {
	h := &Hub{
		subs:   make(map[string]func(StatusEvent)),
		events: make(chan StatusEvent, 64),
		done:   make(chan struct{}),
		closed: util.NewSafeFlag(),
	}
	go h.dispatch()
	return h
}

func (h *Hub) dispatch() {
	for ev := range h.events {
		h.mu.RLock()
		fns := make([]func(StatusEvent), 0, len(h.subs))
		for _, fn := range h.subs {
			fns = append(fns, fn)
		}
		h.mu.RUnlock()

		for _, fn := range fns {
			fn(ev)
		}
	}
	close(h.done)
}

// Subscribe registers fn for all future events and returns a token for
// Unsubscribe. fn runs on the dispatch goroutine and must not block.
func (h *Hub) Subscribe(fn func(StatusEvent)) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.subs[id] = fn
	h.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription. Unknown tokens are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Publish queues an event for delivery. Publishing to a closed Hub is a
// no-op.
func (h *Hub) Publish(ev StatusEvent) {
	if h.closed.Value() {
		log.Debugf("event dropped after hub close: %s %s", ev.ItemID, ev.Status)
		return
	}
	// The flag check races with Close; catch the losing side.
	defer func() {
		if recover() != nil {
			log.Debugf("event dropped after hub close: %s %s", ev.ItemID, ev.Status)
		}
	}()
	h.events <- ev
}

// Close stops the dispatch goroutine after draining queued events.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.closed.Set(true)
		close(h.events)
	})
	<-h.done
}
