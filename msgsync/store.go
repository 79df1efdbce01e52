// Package msgsync keeps the message list of the open conversation in sync.
// A Store merges messages from the initial fetch, the realtime channel and
// the polling fallback into one ordered, de-duplicated list; a Poller feeds
// it on a fixed cadence as a backstop for missed realtime delivery.
package msgsync

import (
	"sort"
	"sync"
	"time"

	"chat-client/models"
)

type Store struct {
	mu             sync.RWMutex
	conversationID int64
	msgs           []models.Message
	index          map[int64]int // message ID -> position in msgs
	dropped        int
	changes        chan struct{}
}

func NewStore() *Store {
	return &Store{
		index:   make(map[int64]int),
		changes: make(chan struct{}, 1),
	}
}

// Merge applies a batch of messages for the given conversation. Switching
// conversations resets the store first, so lists never bleed across
// conversations. For known IDs only the mutable fields are replaced, with
// two monotonic guards: an edit timestamp never moves backwards (a stale
// poll snapshot cannot undo an edit already applied from a realtime event)
// and a soft-deletion is never cleared. Entries without an ID, or tagged
// with a different conversation, are dropped and counted.
func (s *Store) Merge(conversationID int64, incoming []models.Message) {
	s.mu.Lock()
	if conversationID != s.conversationID {
		s.conversationID = conversationID
		s.msgs = nil
		s.index = make(map[int64]int)
	}

	changed := false
	for _, in := range incoming {
		if in.ID == 0 || (in.ConversationID != 0 && in.ConversationID != conversationID) {
			s.dropped++
			continue
		}
		i, ok := s.index[in.ID]
		if !ok {
			s.index[in.ID] = len(s.msgs)
			s.msgs = append(s.msgs, in)
			changed = true
			continue
		}
		if s.apply(&s.msgs[i], in) {
			changed = true
		}
	}

	if changed {
		sort.SliceStable(s.msgs, func(i, j int) bool {
			if !s.msgs[i].CreatedAt.Equal(s.msgs[j].CreatedAt) {
				return s.msgs[i].CreatedAt.Before(s.msgs[j].CreatedAt)
			}
			return s.msgs[i].ID < s.msgs[j].ID
		})
		for i := range s.msgs {
			s.index[s.msgs[i].ID] = i
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// apply folds an incoming copy of a message into the stored one and reports
// whether anything changed. Server state wins except where the monotonic
// guards say the stored entry is newer.
func (s *Store) apply(cur *models.Message, in models.Message) bool {
	changed := false

	takeEdit := false
	switch {
	case in.EditedAt != nil && cur.EditedAt == nil:
		takeEdit = true
	case in.EditedAt != nil && cur.EditedAt != nil:
		takeEdit = !in.EditedAt.Before(*cur.EditedAt)
	case in.EditedAt == nil && cur.EditedAt == nil:
		// neither side edited: plain content replacement, server wins
		takeEdit = cur.Content != in.Content
	}
	if takeEdit && (cur.Content != in.Content || !equalTime(cur.EditedAt, in.EditedAt)) {
		cur.Content = in.Content
		cur.EditedAt = in.EditedAt
		changed = true
	}

	if in.DeletedAt != nil {
		if cur.DeletedAt == nil || in.DeletedAt.After(*cur.DeletedAt) {
			cur.DeletedAt = in.DeletedAt
			changed = true
		}
	}

	if in.ReplyToID != nil && cur.ReplyToID == nil {
		cur.ReplyToID = in.ReplyToID
		changed = true
	}
	return changed
}

// Messages returns a snapshot of the ordered list. Callers may hold on to
// the slice; the store never mutates it afterwards.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// ConversationID returns the conversation currently tracked, 0 if none.
func (s *Store) ConversationID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// Dropped returns how many malformed or misrouted entries were discarded.
func (s *Store) Dropped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// Changes signals after any merge that modified the list. Notifications
// coalesce: a slow reader sees at least one signal, not one per merge.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
