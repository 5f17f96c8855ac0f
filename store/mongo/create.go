package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rbaliyan/discussions/retry"
	"github.com/rbaliyan/discussions/store"
)

// CreateDiscussion writes the discussion, first message, recipient
// rows, and contact upserts in a transaction. Standalone deployments
// without transaction support fall back to sequential writes; the
// unique indexes still prevent duplicate recipient and contact rows.
func (s *Store) CreateDiscussion(ctx context.Context, data store.ComposeData) (*store.Thread, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(data.Body) == "" {
		return nil, store.ErrEmptyBody
	}
	recipientIDs := store.DedupeRecipients(data.RecipientIDs)
	if len(recipientIDs) == 0 {
		return nil, store.ErrEmptyRecipients
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	now := time.Now().UTC()

	dDoc := &discussionDoc{
		ID:        uuid.New().String(),
		SenderID:  data.SenderID,
		Subject:   data.Subject,
		CreatedAt: now,
	}
	mDoc := &messageDoc{
		ID:           uuid.New().String(),
		DiscussionID: dDoc.ID,
		SenderID:     data.SenderID,
		Body:         data.Body,
		SentAt:       now,
	}
	rDocs := make([]*recipientDoc, 0, len(recipientIDs))
	for _, userID := range recipientIDs {
		rDocs = append(rDocs, &recipientDoc{
			ID:           uuid.New().String(),
			UserID:       userID,
			DiscussionID: dDoc.ID,
			Status:       string(store.StatusUnread),
		})
	}

	write := func(ctx context.Context) error {
		if _, err := s.discussions.InsertOne(ctx, dDoc); err != nil {
			return fmt.Errorf("insert discussion: %w", err)
		}
		if _, err := s.messages.InsertOne(ctx, mDoc); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		for _, rDoc := range rDocs {
			if _, err := s.recipients.InsertOne(ctx, rDoc); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return store.ErrDuplicateEntry
				}
				return fmt.Errorf("insert recipient: %w", err)
			}
			if err := s.upsertContactDoc(ctx, data.SenderID, rDoc.UserID, dDoc.ID, now); err != nil {
				return fmt.Errorf("upsert contact: %w", err)
			}
		}
		return nil
	}

	session, err := s.client.StartSession()
	if err != nil {
		// Standalone MongoDB doesn't support sessions.
		if err := write(ctx); err != nil {
			return nil, err
		}
	} else {
		defer session.EndSession(ctx)
		_, txErr := session.WithTransaction(ctx, func(sessCtx context.Context) (any, error) {
			return nil, write(sessCtx)
		})
		if txErr != nil {
			if !isTransactionNotSupported(txErr) {
				return nil, txErr
			}
			if err := write(ctx); err != nil {
				return nil, err
			}
		}
	}

	thread := &store.Thread{
		Discussion: docToDiscussion(dDoc),
		Messages:   []store.Message{docToMessage(mDoc)},
	}
	for _, rDoc := range rDocs {
		thread.Recipients = append(thread.Recipients, docToRecipient(rDoc))
	}
	return thread, nil
}

// AddMessage appends a message to an existing discussion. When
// resetRead is true, read recipients other than the sender flip back
// to unread.
func (s *Store) AddMessage(ctx context.Context, discussionID, senderID, body string, resetRead bool) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return nil, store.ErrInvalidID
	}
	if strings.TrimSpace(body) == "" {
		return nil, store.ErrEmptyBody
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var dDoc discussionDoc
	if err := s.discussions.FindOne(ctx, bson.M{"_id": discussionID}).Decode(&dDoc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get discussion: %w", err)
	}

	if senderID == "" {
		senderID = dDoc.SenderID
	}

	mDoc := &messageDoc{
		ID:           uuid.New().String(),
		DiscussionID: discussionID,
		SenderID:     senderID,
		Body:         body,
		SentAt:       time.Now().UTC(),
	}

	if _, err := s.messages.InsertOne(ctx, mDoc); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if resetRead {
		filter := bson.M{
			"discussion_id": discussionID,
			"user_id":       bson.M{"$ne": senderID},
			"status":        string(store.StatusRead),
		}
		update := bson.M{"$set": bson.M{
			"status":  string(store.StatusUnread),
			"read_at": nil,
		}}
		if _, err := s.recipients.UpdateMany(ctx, filter, update); err != nil {
			return nil, fmt.Errorf("reset read: %w", err)
		}
	}

	msg := docToMessage(mDoc)
	return &msg, nil
}

// upsertContactDoc atomically inserts or repoints a contact record.
// An update with upsert against the unique pair_key index makes
// concurrent first contacts converge on one document. Two racing
// upserts can still both take the insert path; the loser gets a
// duplicate key error and is retried, now matching the winner's
// document and degrading to a plain update.
func (s *Store) upsertContactDoc(ctx context.Context, fromUserID, toUserID, discussionID string, now time.Time) error {
	filter := bson.M{"pair_key": store.PairKey(fromUserID, toUserID)}
	update := bson.M{
		"$set": bson.M{
			"latest_discussion_id": discussionID,
			"updated_at":           now,
		},
		"$setOnInsert": bson.M{
			"_id":          uuid.New().String(),
			"from_user_id": fromUserID,
			"to_user_id":   toUserID,
			"pair_key":     store.PairKey(fromUserID, toUserID),
		},
	}

	cfg := retry.Config{
		MaxRetries:     2,
		InitialBackoff: 5 * time.Millisecond,
		IsRetryable:    mongo.IsDuplicateKeyError,
	}
	return retry.Do(ctx, cfg, func(ctx context.Context) error {
		_, err := s.contacts.UpdateOne(ctx, filter, update,
			mongoopts.UpdateOne().SetUpsert(true))
		return err
	})
}
