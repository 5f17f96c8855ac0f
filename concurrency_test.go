package discussions

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rbaliyan/discussions/store/memory"
)

func TestConcurrency_MultipleSenders(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	const numSenders = 10
	const discussionsPerSender = 5

	var wg sync.WaitGroup
	errs := make(chan error, numSenders*discussionsPerSender)

	// Multiple users composing concurrently
	for i := 0; i < numSenders; i++ {
		wg.Add(1)
		go func(senderNum int) {
			defer wg.Done()
			client := svc.Client(fmt.Sprintf("sender%d", senderNum))

			for j := 0; j < discussionsPerSender; j++ {
				_, err := client.Compose(ctx, ComposeRequest{
					Subject:      "Concurrent test discussion",
					Body:         "Test body",
					RecipientIDs: []string{"recipient1", "recipient2"},
				})
				if err != nil {
					errs <- err
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("compose error: %v", err)
	}

	entries, err := svc.Client("recipient1").Inbox(ctx, ListOptions{Limit: 100})
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	if len(entries) != numSenders*discussionsPerSender {
		t.Errorf("expected %d inbox entries, got %d", numSenders*discussionsPerSender, len(entries))
	}
}

func TestConcurrency_SamePairSingleContact(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// Alternate direction to exercise pair canonicalization
			from, to := "oleiade", "thoas"
			if n%2 == 1 {
				from, to = to, from
			}
			_, err := svc.Client(from).Compose(ctx, ComposeRequest{
				Body:         "Test body",
				RecipientIDs: []string{to},
			})
			if err != nil {
				t.Errorf("compose error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	contacts, err := svc.Client("oleiade").Contacts(ctx, ListOptions{Limit: 100})
	if err != nil {
		t.Fatalf("contacts failed: %v", err)
	}
	if len(contacts) != 1 {
		t.Errorf("expected 1 contact record for the pair, got %d", len(contacts))
	}
}

func TestConcurrency_MarkReadSameDiscussion(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	thread := mustCompose(t, svc.Client("oleiade"), "Body", "thoas")
	recipient := svc.Client("thoas")

	const workers = 10

	var wg sync.WaitGroup
	results := make(chan *Recipient, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := recipient.MarkRead(ctx, thread.Discussion.ID)
			if err != nil {
				t.Errorf("mark read error: %v", err)
				return
			}
			results <- r
		}()
	}
	wg.Wait()
	close(results)

	// Every caller observes the same winning ReadAt
	var first *Recipient
	for r := range results {
		if first == nil {
			first = r
			continue
		}
		if !r.ReadAt.Equal(*first.ReadAt) {
			t.Errorf("expected one winning ReadAt, got %v and %v", first.ReadAt, r.ReadAt)
		}
	}
}

func TestGracefulShutdown(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(WithStore(memory.New()), WithMaxConcurrentComposes(2))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	client := svc.Client("oleiade")
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Compose(ctx, ComposeRequest{
				Body:         "Test body",
				RecipientIDs: []string{"thoas"},
			})
		}()
	}
	wg.Wait()

	if err := svc.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// New operations are rejected after shutdown
	_, err = client.Compose(ctx, ComposeRequest{
		Body:         "Test body",
		RecipientIDs: []string{"thoas"},
	})
	if err == nil {
		t.Error("expected error composing after close")
	}
}
