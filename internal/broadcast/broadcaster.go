// Package broadcast fans progress events out to per-client subscriber
// groups over jrpc2 push notifications. Delivery is best-effort: a slow
// or dead subscriber never blocks a transfer, and a subscriber that
// connects after an event was published never sees it.
package broadcast

import (
	"context"
	"log"
	"runtime/debug"
	"sync"

	"github.com/creachadair/jrpc2"

	"github.com/variantdl/variantdl/common"
	"github.com/variantdl/variantdl/pkg/variantlib"
)

// defQueueDepth bounds the publish queue. Events beyond it are dropped,
// not queued: progress is a notification side-channel, never backlog.
const defQueueDepth = 256

type envelope struct {
	clientID string
	event    variantlib.Event
}

// Broadcaster maintains per-client groups of connected jrpc2 servers
// and pushes progress events to them from a single dispatcher
// goroutine. Publish never blocks the caller.
type Broadcaster struct {
	mu     sync.RWMutex
	groups map[string]map[*jrpc2.Server]struct{}
	queue  chan envelope
	log    *log.Logger
}

var _ variantlib.EventSink = (*Broadcaster)(nil)

// New creates a Broadcaster and starts its dispatcher. The dispatcher
// exits when ctx is canceled.
func New(ctx context.Context, l *log.Logger) *Broadcaster {
	b := &Broadcaster{
		groups: make(map[string]map[*jrpc2.Server]struct{}),
		queue:  make(chan envelope, defQueueDepth),
		log:    l,
	}
	go b.dispatch(ctx)
	return b
}

// Subscribe registers a server under the client's channel. A client may
// hold any number of open subscriptions.
func (b *Broadcaster) Subscribe(clientID string, srv *jrpc2.Server) {
	b.mu.Lock()
	defer b.mu.Unlock()
	group, ok := b.groups[clientID]
	if !ok {
		group = make(map[*jrpc2.Server]struct{})
		b.groups[clientID] = group
	}
	group[srv] = struct{}{}
}

// Unsubscribe removes a server from the client's channel.
func (b *Broadcaster) Unsubscribe(clientID string, srv *jrpc2.Server) {
	b.mu.Lock()
	defer b.mu.Unlock()
	group, ok := b.groups[clientID]
	if !ok {
		return
	}
	delete(group, srv)
	if len(group) == 0 {
		delete(b.groups, clientID)
	}
}

// SubscriberCount returns the number of open subscriptions for a client.
func (b *Broadcaster) SubscriberCount(clientID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.groups[clientID])
}

// Publish queues an event for fan-out to the client's subscribers.
// When the queue is full the event is dropped; loss of an event only
// affects observability, never job state.
func (b *Broadcaster) Publish(clientID string, ev variantlib.Event) {
	select {
	case b.queue <- envelope{clientID: clientID, event: ev}:
	default:
		if b.log != nil {
			b.log.Printf("broadcast queue full, dropping event for %s", clientID)
		}
	}
}

func (b *Broadcaster) dispatch(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Printf("PANIC [broadcast dispatcher]: %v\n%s", r, debug.Stack())
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-b.queue:
			b.deliver(ctx, env)
		}
	}
}

// deliver pushes one event to every subscriber in the client's group.
// Servers that fail to receive (e.g. disconnected) are unregistered.
func (b *Broadcaster) deliver(ctx context.Context, env envelope) {
	b.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(b.groups[env.clientID]))
	for srv := range b.groups[env.clientID] {
		servers = append(servers, srv)
	}
	b.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		if err := srv.Notify(ctx, common.NotifyProgress, env.event); err != nil {
			if b.log != nil {
				b.log.Printf("progress push failed for %s: %v", env.clientID, err)
			}
			failed = append(failed, srv)
		}
	}
	if len(failed) > 0 {
		b.mu.Lock()
		for _, srv := range failed {
			if group, ok := b.groups[env.clientID]; ok {
				delete(group, srv)
				if len(group) == 0 {
					delete(b.groups, env.clientID)
				}
			}
		}
		b.mu.Unlock()
	}
}
