package memory

import (
	"sort"
	"time"

	"github.com/rbaliyan/discussions/store"
)

// Clones keep callers from mutating stored rows through returned pointers.

func cloneDiscussion(d *store.Discussion) *store.Discussion {
	c := *d
	c.SenderDeletedAt = cloneTime(d.SenderDeletedAt)
	return &c
}

func cloneMessage(m *store.Message) *store.Message {
	c := *m
	c.SenderDeletedAt = cloneTime(m.SenderDeletedAt)
	return &c
}

func cloneRecipient(r *store.Recipient) *store.Recipient {
	c := *r
	c.ReadAt = cloneTime(r.ReadAt)
	c.DeletedAt = cloneTime(r.DeletedAt)
	return &c
}

func cloneContact(c *store.Contact) *store.Contact {
	cc := *c
	return &cc
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// sortEntries orders inbox entries by discussion CreatedAt, tie-broken
// by discussion ID for deterministic paging.
func sortEntries(entries []store.InboxEntry, order store.SortOrder) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Discussion, entries[j].Discussion
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == store.SortAsc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func sortDiscussions(ds []store.Discussion, order store.SortOrder) {
	sort.Slice(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == store.SortAsc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func paginateEntries(entries []store.InboxEntry, opts store.ListOptions) []store.InboxEntry {
	start, end := pageBounds(len(entries), opts)
	return entries[start:end]
}

func paginateDiscussions(ds []store.Discussion, opts store.ListOptions) []store.Discussion {
	start, end := pageBounds(len(ds), opts)
	return ds[start:end]
}

func paginateContacts(cs []store.Contact, opts store.ListOptions) []store.Contact {
	start, end := pageBounds(len(cs), opts)
	return cs[start:end]
}

func pageBounds(n int, opts store.ListOptions) (int, int) {
	start := opts.Offset
	if start > n {
		start = n
	}
	end := start + opts.Limit
	if end > n {
		end = n
	}
	return start, end
}
