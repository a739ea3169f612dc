package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

func snap(data string) ports.Snapshot {
	return ports.Snapshot{SessionID: "s1", Exists: true, Data: []byte(data)}
}

func TestFeed_DeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx)
	for _, d := range []string{"1", "2", "3"} {
		f.Publish(snap(d))
		select {
		case got := <-f.Snapshots():
			assert.Equal(t, d, string(got.Data))
		case <-time.After(time.Second):
			t.Fatalf("snapshot %s not delivered", d)
		}
	}
}

func TestFeed_SlowReaderGetsLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx)
	for i := 0; i < 100; i++ {
		f.Publish(snap(string(rune('a' + i%26))))
	}
	f.Publish(snap("last"))

	var last string
	timeout := time.After(2 * time.Second)
	for last != "last" {
		select {
		case got := <-f.Snapshots():
			last = string(got.Data)
		case <-timeout:
			t.Fatalf("latest snapshot never delivered, last seen %q", last)
		}
	}

	select {
	case got := <-f.Snapshots():
		t.Fatalf("unexpected snapshot after latest: %q", got.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFeed_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := New(ctx)
	cancel()

	select {
	case _, ok := <-f.Snapshots():
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("feed did not close")
	}
}
