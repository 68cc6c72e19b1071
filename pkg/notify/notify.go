// Package notify implements the volume store's change notifier (§4.7):
// two process-local, best-effort publish-subscribe sinks — one for local
// commits, one for remote commits — each keyed by volume id.
//
// Grounded on the teacher's pkg/events.Broker: a map of subscriber
// channels, buffered so a slow subscriber doesn't block the publisher,
// and a non-blocking send that silently drops the notification if the
// subscriber's buffer is full. spec.md §9 adopts the later, split
// revision of the original source (separate local/remote changesets
// instead of one combined commit notifier), so this package runs two
// independent broker instances instead of the teacher's single global
// one, and keys subscriptions by volume id since the teacher's broker
// has no such concept (Warren's events are cluster-wide, not
// per-resource).
package notify

import (
	"sync"

	"github.com/graft-kv/graft/pkg/graft"
)

// subscriberBuffer is the per-subscriber channel capacity. Notifications
// beyond this are dropped; subscribers are expected to coalesce and
// re-read state rather than rely on seeing every notification (§4.7,
// §9).
const subscriberBuffer = 16

// broker is a single best-effort publish-subscribe sink keyed by volume
// id.
type broker struct {
	mu   sync.RWMutex
	subs map[graft.VolumeId]map[chan graft.VolumeId]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[graft.VolumeId]map[chan graft.VolumeId]struct{})}
}

// Subscribe returns a channel that receives vid every time Publish(vid)
// is called, until Unsubscribe is called with the same channel.
func (b *broker) Subscribe(vid graft.VolumeId) <-chan graft.VolumeId {
	ch := make(chan graft.VolumeId, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[vid]
	if !ok {
		set = make(map[chan graft.VolumeId]struct{})
		b.subs[vid] = set
	}
	set[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a subscription previously returned by
// Subscribe.
func (b *broker) Unsubscribe(vid graft.VolumeId, ch <-chan graft.VolumeId) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[vid]
	if !ok {
		return
	}
	for c := range set {
		if c == ch {
			delete(set, c)
			close(c)
			break
		}
	}
	if len(set) == 0 {
		delete(b.subs, vid)
	}
}

// Publish notifies every current subscriber of vid. Slow subscribers
// (full buffer) are skipped rather than blocking the caller — no
// back-pressure is ever applied onto writers (§4.7, §9).
func (b *broker) Publish(vid graft.VolumeId) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[vid] {
		select {
		case ch <- vid:
		default:
		}
	}
}

// Notifier is the volume store's change notifier: two independent
// broadcast sinks, one for locally-committed changes and one for
// remotely-applied changes.
type Notifier struct {
	local  *broker
	remote *broker
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{local: newBroker(), remote: newBroker()}
}

// SubscribeLocal subscribes to local-commit notifications for vid.
func (n *Notifier) SubscribeLocal(vid graft.VolumeId) <-chan graft.VolumeId {
	return n.local.Subscribe(vid)
}

// SubscribeRemote subscribes to remote-commit notifications for vid.
func (n *Notifier) SubscribeRemote(vid graft.VolumeId) <-chan graft.VolumeId {
	return n.remote.Subscribe(vid)
}

// UnsubscribeLocal removes a local-commit subscription.
func (n *Notifier) UnsubscribeLocal(vid graft.VolumeId, ch <-chan graft.VolumeId) {
	n.local.Unsubscribe(vid, ch)
}

// UnsubscribeRemote removes a remote-commit subscription.
func (n *Notifier) UnsubscribeRemote(vid graft.VolumeId, ch <-chan graft.VolumeId) {
	n.remote.Unsubscribe(vid, ch)
}

// PublishLocal announces that vid committed locally.
func (n *Notifier) PublishLocal(vid graft.VolumeId) {
	n.local.Publish(vid)
}

// PublishRemote announces that vid received a remote commit.
func (n *Notifier) PublishRemote(vid graft.VolumeId) {
	n.remote.Publish(vid)
}
