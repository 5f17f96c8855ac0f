package discussions

import (
	"context"
	"errors"
	"testing"

	"github.com/rbaliyan/discussions/store"
	"github.com/rbaliyan/discussions/store/memory"
)

func setupTestService(t *testing.T, opts ...Option) Service {
	t.Helper()

	svc, err := NewService(append([]Option{WithStore(memory.New())}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ctx := context.Background()
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	return svc
}

func mustCompose(t *testing.T, c Client, body string, recipients ...string) *Thread {
	t.Helper()
	thread, err := c.Compose(context.Background(), ComposeRequest{
		Subject:      "subject",
		Body:         body,
		RecipientIDs: recipients,
	})
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	return thread
}

func TestNewService(t *testing.T) {
	t.Run("requires store", func(t *testing.T) {
		_, err := NewService()
		if !errors.Is(err, ErrStoreRequired) {
			t.Errorf("expected ErrStoreRequired, got %v", err)
		}
	})

	t.Run("creates service with store", func(t *testing.T) {
		svc, err := NewService(WithStore(memory.New()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc == nil {
			t.Fatal("expected non-nil service")
		}
	})
}

func TestServiceLifecycle(t *testing.T) {
	t.Run("connect and close", func(t *testing.T) {
		svc, err := NewService(WithStore(memory.New()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx := context.Background()

		if err := svc.Connect(ctx); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		if !svc.IsConnected() {
			t.Error("expected IsConnected true after Connect")
		}

		// Double connect should fail
		if err := svc.Connect(ctx); !errors.Is(err, ErrAlreadyConnected) {
			t.Errorf("expected ErrAlreadyConnected, got %v", err)
		}

		if err := svc.Close(ctx); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if svc.IsConnected() {
			t.Error("expected IsConnected false after Close")
		}

		// Double close should be safe
		if err := svc.Close(ctx); err != nil {
			t.Errorf("second close should not error, got %v", err)
		}
	})
}

func TestUserClient(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	t.Run("UserID returns correct ID", func(t *testing.T) {
		c := svc.Client("user123")
		if c.UserID() != "user123" {
			t.Errorf("expected UserID 'user123', got %q", c.UserID())
		}
	})

	t.Run("operations fail when not connected", func(t *testing.T) {
		disconnectedSvc, _ := NewService(WithStore(memory.New()))
		c := disconnectedSvc.Client("user123")

		_, err := c.Compose(ctx, ComposeRequest{Body: "hi", RecipientIDs: []string{"user456"}})
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
		_, err = c.Inbox(ctx, ListOptions{})
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})

	t.Run("operations fail for invalid user ID", func(t *testing.T) {
		c := svc.Client("bad user id")
		_, err := c.Inbox(ctx, ListOptions{})
		if !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("expected ErrInvalidUserID, got %v", err)
		}
	})
}

func TestCompose(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	sender := svc.Client("oleiade")

	t.Run("creates discussion with recipients", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas", "ampelmann")

		if thread.Discussion.SenderID != "oleiade" {
			t.Errorf("expected sender oleiade, got %q", thread.Discussion.SenderID)
		}
		if thread.Discussion.Subject != "subject" {
			t.Errorf("expected subject %q, got %q", "subject", thread.Discussion.Subject)
		}
		if len(thread.Messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(thread.Messages))
		}
		if thread.Messages[0].Body != "Body" {
			t.Errorf("expected body %q, got %q", "Body", thread.Messages[0].Body)
		}
		if len(thread.Recipients) != 2 {
			t.Fatalf("expected 2 recipients, got %d", len(thread.Recipients))
		}
		for _, r := range thread.Recipients {
			if r.Status != store.StatusUnread {
				t.Errorf("recipient %s: expected unread, got %q", r.UserID, r.Status)
			}
			if r.ReadAt != nil || r.DeletedAt != nil {
				t.Errorf("recipient %s: expected empty markers", r.UserID)
			}
		}
	})

	t.Run("duplicate recipients collapse to one row", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas", "thoas", "thoas")
		if len(thread.Recipients) != 1 {
			t.Fatalf("expected 1 recipient, got %d", len(thread.Recipients))
		}
	})

	t.Run("delivers to each recipient inbox", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas", "ampelmann")

		for _, userID := range []string{"thoas", "ampelmann"} {
			entries, err := svc.Client(userID).Inbox(ctx, ListOptions{})
			if err != nil {
				t.Fatalf("inbox for %s: %v", userID, err)
			}
			var found bool
			for _, e := range entries {
				if e.Discussion.ID == thread.Discussion.ID {
					found = true
				}
			}
			if !found {
				t.Errorf("discussion missing from %s inbox", userID)
			}
		}
	})

	t.Run("creates contact per pair", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		contact, err := sender.ContactWith(ctx, "thoas")
		if err != nil {
			t.Fatalf("contact lookup failed: %v", err)
		}
		if contact.LatestDiscussionID != thread.Discussion.ID {
			t.Errorf("expected latest discussion %s, got %s",
				thread.Discussion.ID, contact.LatestDiscussionID)
		}
	})

	t.Run("rejects empty body", func(t *testing.T) {
		_, err := sender.Compose(ctx, ComposeRequest{
			Body:         "   ",
			RecipientIDs: []string{"thoas"},
		})
		if !errors.Is(err, ErrEmptyBody) {
			t.Errorf("expected ErrEmptyBody, got %v", err)
		}
	})

	t.Run("rejects empty recipients", func(t *testing.T) {
		_, err := sender.Compose(ctx, ComposeRequest{Body: "Body"})
		if !errors.Is(err, ErrEmptyRecipients) {
			t.Errorf("expected ErrEmptyRecipients, got %v", err)
		}
	})

	t.Run("rejects invalid recipient ID", func(t *testing.T) {
		_, err := sender.Compose(ctx, ComposeRequest{
			Body:         "Body",
			RecipientIDs: []string{"th|oas"},
		})
		if !errors.Is(err, ErrInvalidRecipient) {
			t.Errorf("expected ErrInvalidRecipient, got %v", err)
		}
	})

	t.Run("validation failure persists nothing", func(t *testing.T) {
		lonely := svc.Client("lonely")
		_, err := lonely.Compose(ctx, ComposeRequest{Body: ""})
		if err == nil {
			t.Fatal("expected validation error")
		}
		sent, err := lonely.Sent(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("sent failed: %v", err)
		}
		if len(sent) != 0 {
			t.Errorf("expected no sent discussions, got %d", len(sent))
		}
	})
}

func TestReply(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	sender := svc.Client("oleiade")
	recipient := svc.Client("thoas")

	t.Run("appends message to thread", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		msg, err := recipient.Reply(ctx, thread.Discussion.ID, "Body2")
		if err != nil {
			t.Fatalf("reply failed: %v", err)
		}
		if msg.SenderID != "thoas" {
			t.Errorf("expected sender thoas, got %q", msg.SenderID)
		}

		updated, err := sender.Thread(ctx, thread.Discussion.ID)
		if err != nil {
			t.Fatalf("get thread failed: %v", err)
		}
		if len(updated.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(updated.Messages))
		}
		// Newest first
		if updated.Messages[0].Body != "Body2" {
			t.Errorf("expected newest message first, got %q", updated.Messages[0].Body)
		}
	})

	t.Run("does not reset read state by default", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		rcpt, err := recipient.MarkRead(ctx, thread.Discussion.ID)
		if err != nil {
			t.Fatalf("mark read failed: %v", err)
		}
		if !rcpt.HasRead() {
			t.Fatal("expected recipient to be read")
		}

		if _, err := sender.Reply(ctx, thread.Discussion.ID, "Body2"); err != nil {
			t.Fatalf("reply failed: %v", err)
		}

		updated, err := recipient.Thread(ctx, thread.Discussion.ID)
		if err != nil {
			t.Fatalf("get thread failed: %v", err)
		}
		if r := updated.Recipient("thoas"); r == nil || !r.HasRead() {
			t.Error("expected read state preserved after reply")
		}
	})

	t.Run("non-participant cannot reply", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		_, err := svc.Client("intruder").Reply(ctx, thread.Discussion.ID, "Body2")
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects blank body", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		_, err := sender.Reply(ctx, thread.Discussion.ID, " ")
		if !errors.Is(err, ErrEmptyBody) {
			t.Errorf("expected ErrEmptyBody, got %v", err)
		}
	})

	t.Run("unknown discussion", func(t *testing.T) {
		_, err := sender.Reply(ctx, "3fa5ecf4-0000-0000-0000-000000000000", "Body2")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected not-found error, got %v", err)
		}
	})
}

func TestReplyResetsReadOption(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, WithReplyResetsRead(true))
	defer svc.Close(ctx)

	sender := svc.Client("oleiade")
	recipient := svc.Client("thoas")

	thread := mustCompose(t, sender, "Body", "thoas")

	if _, err := recipient.MarkRead(ctx, thread.Discussion.ID); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if _, err := sender.Reply(ctx, thread.Discussion.ID, "Body2"); err != nil {
		t.Fatalf("reply failed: %v", err)
	}

	updated, err := recipient.Thread(ctx, thread.Discussion.ID)
	if err != nil {
		t.Fatalf("get thread failed: %v", err)
	}
	r := updated.Recipient("thoas")
	if r == nil {
		t.Fatal("missing recipient row")
	}
	if r.Status != store.StatusUnread {
		t.Errorf("expected unread after reply, got %q", r.Status)
	}
	if r.ReadAt != nil {
		t.Error("expected ReadAt cleared after reply")
	}
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	sender := svc.Client("oleiade")
	recipient := svc.Client("thoas")

	t.Run("records read state", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		rcpt, err := recipient.MarkRead(ctx, thread.Discussion.ID)
		if err != nil {
			t.Fatalf("mark read failed: %v", err)
		}
		if rcpt.Status != store.StatusRead {
			t.Errorf("expected status read, got %q", rcpt.Status)
		}
		if rcpt.ReadAt == nil {
			t.Error("expected ReadAt set")
		}
	})

	t.Run("idempotent, first read wins", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		first, err := recipient.MarkRead(ctx, thread.Discussion.ID)
		if err != nil {
			t.Fatalf("mark read failed: %v", err)
		}
		second, err := recipient.MarkRead(ctx, thread.Discussion.ID)
		if err != nil {
			t.Fatalf("second mark read failed: %v", err)
		}
		if !second.ReadAt.Equal(*first.ReadAt) {
			t.Errorf("expected ReadAt unchanged, got %v then %v", first.ReadAt, second.ReadAt)
		}
	})

	t.Run("deleted discussion stays deleted", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		if err := recipient.Delete(ctx, thread.Discussion.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		rcpt, err := recipient.MarkRead(ctx, thread.Discussion.ID)
		if err != nil {
			t.Fatalf("mark read after delete failed: %v", err)
		}
		if rcpt.Status != store.StatusDeleted {
			t.Errorf("expected status deleted, got %q", rcpt.Status)
		}
	})

	t.Run("unknown discussion", func(t *testing.T) {
		_, err := recipient.MarkRead(ctx, "3fa5ecf4-0000-0000-0000-000000000000")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected not-found error, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	sender := svc.Client("oleiade")
	recipient := svc.Client("thoas")

	t.Run("recipient delete hides from inbox only", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas", "ampelmann")

		if err := recipient.Delete(ctx, thread.Discussion.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		entries, err := recipient.Inbox(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("inbox failed: %v", err)
		}
		for _, e := range entries {
			if e.Discussion.ID == thread.Discussion.ID {
				t.Error("deleted discussion still in inbox")
			}
		}

		// Other recipient unaffected
		entries, err = svc.Client("ampelmann").Inbox(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("inbox failed: %v", err)
		}
		var found bool
		for _, e := range entries {
			if e.Discussion.ID == thread.Discussion.ID {
				found = true
			}
		}
		if !found {
			t.Error("expected discussion still visible to other recipient")
		}
	})

	t.Run("sender delete hides from sent only", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		if err := sender.Delete(ctx, thread.Discussion.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		sent, err := sender.Sent(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("sent failed: %v", err)
		}
		for _, d := range sent {
			if d.ID == thread.Discussion.ID {
				t.Error("deleted discussion still in sent view")
			}
		}

		// Recipient keeps their copy
		entries, err := recipient.Inbox(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("inbox failed: %v", err)
		}
		var found bool
		for _, e := range entries {
			if e.Discussion.ID == thread.Discussion.ID {
				found = true
			}
		}
		if !found {
			t.Error("expected discussion still in recipient inbox")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		if err := recipient.Delete(ctx, thread.Discussion.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := recipient.Delete(ctx, thread.Discussion.ID); err != nil {
			t.Errorf("second delete should not error, got %v", err)
		}
	})

	t.Run("non-participant cannot delete", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		err := svc.Client("intruder").Delete(ctx, thread.Discussion.ID)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestDeleteMessage(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	sender := svc.Client("oleiade")
	recipient := svc.Client("thoas")

	thread := mustCompose(t, sender, "Body", "thoas")
	msg, err := recipient.Reply(ctx, thread.Discussion.ID, "Body2")
	if err != nil {
		t.Fatalf("reply failed: %v", err)
	}

	t.Run("author can delete own message", func(t *testing.T) {
		if err := recipient.DeleteMessage(ctx, thread.Discussion.ID, msg.ID); err != nil {
			t.Fatalf("delete message failed: %v", err)
		}
	})

	t.Run("only author may delete", func(t *testing.T) {
		err := recipient.DeleteMessage(ctx, thread.Discussion.ID, thread.Messages[0].ID)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("unknown message", func(t *testing.T) {
		err := sender.DeleteMessage(ctx, thread.Discussion.ID, "3fa5ecf4-0000-0000-0000-000000000000")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestThread(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	sender := svc.Client("oleiade")

	t.Run("participant can view", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		got, err := svc.Client("thoas").Thread(ctx, thread.Discussion.ID)
		if err != nil {
			t.Fatalf("thread failed: %v", err)
		}
		if got.Discussion.ID != thread.Discussion.ID {
			t.Errorf("wrong discussion returned")
		}
	})

	t.Run("non-participant denied", func(t *testing.T) {
		thread := mustCompose(t, sender, "Body", "thoas")

		_, err := svc.Client("intruder").Thread(ctx, thread.Discussion.ID)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestInboxOrdering(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	sender := svc.Client("oleiade")
	first := mustCompose(t, sender, "Body", "thoas")
	second := mustCompose(t, sender, "Body", "thoas")

	entries, err := svc.Client("thoas").Inbox(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first by default
	if entries[0].Discussion.ID != second.Discussion.ID {
		t.Errorf("expected newest discussion first")
	}
	if entries[1].Discussion.ID != first.Discussion.ID {
		t.Errorf("expected oldest discussion last")
	}

	t.Run("ascending order", func(t *testing.T) {
		entries, err := svc.Client("thoas").Inbox(ctx, ListOptions{SortOrder: SortAsc})
		if err != nil {
			t.Fatalf("inbox failed: %v", err)
		}
		if entries[0].Discussion.ID != first.Discussion.ID {
			t.Errorf("expected oldest discussion first")
		}
	})

	t.Run("pagination", func(t *testing.T) {
		entries, err := svc.Client("thoas").Inbox(ctx, ListOptions{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("inbox failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Discussion.ID != first.Discussion.ID {
			t.Errorf("expected second page to hold the older discussion")
		}
	})
}

func TestContacts(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	sender := svc.Client("oleiade")

	t.Run("repeat discussions update not duplicate", func(t *testing.T) {
		mustCompose(t, sender, "Body", "thoas")
		latest := mustCompose(t, sender, "Body", "thoas")

		contacts, err := sender.Contacts(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("contacts failed: %v", err)
		}
		var matching int
		for _, c := range contacts {
			if c.OppositeUser("oleiade") == "thoas" {
				matching++
				if c.LatestDiscussionID != latest.Discussion.ID {
					t.Errorf("expected contact to point at latest discussion")
				}
			}
		}
		if matching != 1 {
			t.Errorf("expected 1 contact for pair, got %d", matching)
		}
	})

	t.Run("direction insensitive", func(t *testing.T) {
		mustCompose(t, sender, "Body", "ampelmann")
		reply := mustCompose(t, svc.Client("ampelmann"), "Body", "oleiade")

		fromSender, err := sender.ContactWith(ctx, "ampelmann")
		if err != nil {
			t.Fatalf("contact lookup failed: %v", err)
		}
		fromOther, err := svc.Client("ampelmann").ContactWith(ctx, "oleiade")
		if err != nil {
			t.Fatalf("contact lookup failed: %v", err)
		}
		if fromSender.ID != fromOther.ID {
			t.Error("expected same contact record from both directions")
		}
		if fromSender.LatestDiscussionID != reply.Discussion.ID {
			t.Error("expected contact updated by reverse-direction compose")
		}
	})

	t.Run("unknown pair", func(t *testing.T) {
		_, err := sender.ContactWith(ctx, "stranger")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected not-found error, got %v", err)
		}
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	sender := svc.Client("oleiade")
	recipient := svc.Client("thoas")

	d1 := mustCompose(t, sender, "Body", "thoas")
	d2 := mustCompose(t, sender, "Body", "thoas")
	mustCompose(t, sender, "Body", "thoas")

	if _, err := recipient.MarkRead(ctx, d1.Discussion.ID); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if err := recipient.Delete(ctx, d2.Discussion.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	stats, err := recipient.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.InboxTotal != 2 {
		t.Errorf("expected inbox total 2, got %d", stats.InboxTotal)
	}
	if stats.UnreadCount != 1 {
		t.Errorf("expected unread 1, got %d", stats.UnreadCount)
	}
	if stats.DeletedCount != 1 {
		t.Errorf("expected deleted 1, got %d", stats.DeletedCount)
	}

	senderStats, err := sender.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if senderStats.SentTotal != 3 {
		t.Errorf("expected sent total 3, got %d", senderStats.SentTotal)
	}

	unread, err := recipient.UnreadCount(ctx)
	if err != nil {
		t.Fatalf("unread count failed: %v", err)
	}
	if unread != 1 {
		t.Errorf("expected unread count 1, got %d", unread)
	}
}
