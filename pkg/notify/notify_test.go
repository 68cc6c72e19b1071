package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-kv/graft/pkg/graft"
)

func TestLocalAndRemoteAreIndependent(t *testing.T) {
	n := New()
	vid := graft.NewVolumeId()

	localCh := n.SubscribeLocal(vid)
	remoteCh := n.SubscribeRemote(vid)

	n.PublishLocal(vid)

	select {
	case got := <-localCh:
		assert.Equal(t, vid, got)
	case <-time.After(time.Second):
		t.Fatal("expected a local notification")
	}

	select {
	case <-remoteCh:
		t.Fatal("remote subscriber should not see a local-only publish")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishIsScopedToVolumeId(t *testing.T) {
	n := New()
	vidA := graft.NewVolumeId()
	vidB := graft.NewVolumeId()

	chA := n.SubscribeLocal(vidA)
	chB := n.SubscribeLocal(vidB)

	n.PublishLocal(vidA)

	select {
	case got := <-chA:
		assert.Equal(t, vidA, got)
	case <-time.After(time.Second):
		t.Fatal("expected vidA to be notified")
	}

	select {
	case <-chB:
		t.Fatal("vidB should not be notified by a vidA publish")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	n := New()
	vid := graft.NewVolumeId()

	ch := n.SubscribeLocal(vid)
	n.UnsubscribeLocal(vid, ch)
	n.PublishLocal(vid) // must not panic or block despite no subscribers

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")
}

func TestPublishDoesNotBlockOnFullSubscriberBuffer(t *testing.T) {
	n := New()
	vid := graft.NewVolumeId()
	ch := n.SubscribeLocal(vid)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			n.PublishLocal(vid)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish must never block the caller, even with a full buffer")
	}

	require.NotNil(t, ch)
}
