package websocket

import (
	"testing"
	"time"
)

func TestChannelKinds(t *testing.T) {
	cases := []struct {
		ch    Channel
		kind  string
		owner uint
		isOwn bool
	}{
		{UserChannel(42), ChannelKindUser, 42, true},
		{ProjectChannel(100), ChannelKindProject, 0, false},
		{Channel("user:abc"), ChannelKindUser, 0, false},
		{Channel("bogus"), "", 0, false},
	}

	for _, c := range cases {
		if got := c.ch.Kind(); got != c.kind {
			t.Errorf("%s: Kind() = %q, want %q", c.ch, got, c.kind)
		}
		owner, ok := c.ch.OwnerID()
		if ok != c.isOwn || owner != c.owner {
			t.Errorf("%s: OwnerID() = (%d, %v), want (%d, %v)", c.ch, owner, ok, c.owner, c.isOwn)
		}
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	now := time.Now()

	if !rl.allow(now) || !rl.allow(now) {
		t.Fatal("First two events should pass")
	}
	if rl.allow(now) {
		t.Fatal("Third event inside the window should be rejected")
	}
	if !rl.allow(now.Add(2 * time.Minute)) {
		t.Fatal("Event after the window slides should pass")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := newRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !rl.allow(time.Now()) {
			t.Fatal("Disabled limiter must always allow")
		}
	}
}
