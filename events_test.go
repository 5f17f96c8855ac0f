package discussions

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rbaliyan/discussions/store"
	"github.com/rbaliyan/discussions/store/memory"
	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/channel"
	"github.com/redis/go-redis/v9"
)

func TestEvents_PerServiceInstances(t *testing.T) {
	ctx := context.Background()

	svc1 := setupTestService(t)
	defer svc1.Close(ctx)
	svc2 := setupTestService(t)
	defer svc2.Close(ctx)

	if svc1.Events() == nil || svc2.Events() == nil {
		t.Fatal("expected events available after Connect")
	}
	if svc1.Events() == svc2.Events() {
		t.Error("expected each service to own its event instances")
	}
}

func TestEvents_NotAvailableBeforeConnect(t *testing.T) {
	svc, err := NewService(WithStore(memory.New()))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if svc.Events() != nil {
		t.Error("expected nil events before Connect")
	}
}

func TestEvents_RedisTransport(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc, err := NewService(
		WithStore(memory.New()),
		WithRedisClient(client),
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ctx := context.Background()
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect with redis transport failed: %v", err)
	}
	defer svc.Close(ctx)

	// Publishing over the redis transport must not fail the compose
	thread := mustCompose(t, svc.Client("oleiade"), "Body", "thoas")
	if thread.Discussion.ID == "" {
		t.Error("expected composed discussion")
	}
}

// microsecondStore truncates ReadAt to microsecond precision, the way a
// SQL timestamp column does on a round-trip.
type microsecondStore struct {
	store.Store
}

func (s microsecondStore) MarkRead(ctx context.Context, userID, discussionID string, at time.Time) (*store.Recipient, bool, error) {
	r, transitioned, err := s.Store.MarkRead(ctx, userID, discussionID, at)
	if r != nil && r.ReadAt != nil {
		t := r.ReadAt.Truncate(time.Microsecond)
		r.ReadAt = &t
	}
	return r, transitioned, err
}

func TestEvents_ReadPublishedOncePerTransition(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t,
		WithStore(microsecondStore{Store: memory.New()}),
		WithEventTransport(channel.New()),
	)
	defer svc.Close(ctx)

	var reads atomic.Int32
	err := svc.Events().DiscussionRead.Subscribe(ctx,
		func(_ context.Context, _ event.Event[DiscussionReadEvent], _ DiscussionReadEvent) error {
			reads.Add(1)
			return nil
		})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	thread := mustCompose(t, svc.Client("oleiade"), "Body", "thoas")
	recipient := svc.Client("thoas")

	// The store reports ReadAt with lost precision; the event must
	// still publish on the first read.
	if _, err := recipient.MarkRead(ctx, thread.Discussion.ID); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := reads.Load(); got != 1 {
		t.Fatalf("expected 1 read event after first read, got %d", got)
	}

	// A repeat read is a no-op and publishes nothing.
	if _, err := recipient.MarkRead(ctx, thread.Discussion.ID); err != nil {
		t.Fatalf("second mark read failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := reads.Load(); got != 1 {
		t.Errorf("expected no event for repeat read, got %d", got)
	}
}

func TestEvents_DeletePublishedOncePerTransition(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, WithEventTransport(channel.New()))
	defer svc.Close(ctx)

	var deletes atomic.Int32
	err := svc.Events().DiscussionDeleted.Subscribe(ctx,
		func(_ context.Context, _ event.Event[DiscussionDeletedEvent], _ DiscussionDeletedEvent) error {
			deletes.Add(1)
			return nil
		})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	thread := mustCompose(t, svc.Client("oleiade"), "Body", "thoas")

	t.Run("recipient repeat delete", func(t *testing.T) {
		recipient := svc.Client("thoas")
		if err := recipient.Delete(ctx, thread.Discussion.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := recipient.Delete(ctx, thread.Discussion.ID); err != nil {
			t.Fatalf("repeat delete failed: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
		if got := deletes.Load(); got != 1 {
			t.Errorf("expected 1 delete event, got %d", got)
		}
	})

	t.Run("sender repeat delete", func(t *testing.T) {
		sender := svc.Client("oleiade")
		if err := sender.Delete(ctx, thread.Discussion.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := sender.Delete(ctx, thread.Discussion.ID); err != nil {
			t.Fatalf("repeat delete failed: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
		if got := deletes.Load(); got != 2 {
			t.Errorf("expected 2 delete events total, got %d", got)
		}
	})
}

func TestSafeEventPublishFailure_RecoversPanic(t *testing.T) {
	o := newOptions(
		WithStore(memory.New()),
		WithEventPublishFailureHandler(func(eventName string, err error) {
			panic("broken handler")
		}),
	)

	// Must not propagate the panic
	o.safeEventPublishFailure("DiscussionStarted", context.DeadlineExceeded)
}
