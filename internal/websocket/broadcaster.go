package websocket

import (
	"log/slog"
	"sync/atomic"
)

// Broadcaster delivers one frame to every current member of a channel.
// Delivery is fire-and-forget per recipient: the frame is enqueued on each
// member's outbound queue and a failure for one member never aborts the
// rest. Order across recipients is unspecified; order per recipient
// follows submission order.
type Broadcaster struct {
	registry   *Registry
	membership *Membership

	delivered atomic.Int64
	dropped   atomic.Int64
}

func NewBroadcaster(registry *Registry, membership *Membership) *Broadcaster {
	return &Broadcaster{registry: registry, membership: membership}
}

// Broadcast fans a frame out to the channel's membership snapshot taken at
// call time. Returns the number of recipients the frame was enqueued for.
func (b *Broadcaster) Broadcast(ch Channel, frame []byte) int {
	delivered := 0
	for _, connID := range b.membership.Members(ch) {
		conn, ok := b.registry.Lookup(connID)
		if !ok {
			// Disconnected between snapshot and delivery. Benign race.
			continue
		}
		if err := conn.enqueue(frame); err != nil {
			b.dropped.Add(1)
			slog.Warn("Dropped frame for recipient", "connID", connID, "channel", ch, "error", err)
			continue
		}
		delivered++
	}
	b.delivered.Add(int64(delivered))
	return delivered
}

// Delivered returns the total number of frames enqueued for recipients.
func (b *Broadcaster) Delivered() int64 {
	return b.delivered.Load()
}

// Dropped returns the total number of per-recipient delivery drops.
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}
