package memory

import (
	"context"
	"sort"

	domainchat "tumbi/internal/domain/chat"
	domainlistings "tumbi/internal/domain/listings"
	domainsaved "tumbi/internal/domain/saved"
	domainuser "tumbi/internal/domain/user"
)

type SavedRepository struct {
	s *Store
}

func (r *SavedRepository) Add(ctx context.Context, entry domainsaved.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.listings[entry.ListingID]; !ok {
		return domainsaved.ErrListingNotFound
	}
	entries := r.s.saved[entry.UserID]
	if entries == nil {
		entries = make(map[domainlistings.ListingID]domainsaved.Entry)
		r.s.saved[entry.UserID] = entries
	}
	if _, ok := entries[entry.ListingID]; !ok {
		entries[entry.ListingID] = entry
	}
	return nil
}

func (r *SavedRepository) Remove(ctx context.Context, userID domainuser.ID, listingID domainlistings.ListingID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.saved[userID], listingID)
	return nil
}

func (r *SavedRepository) IsSaved(ctx context.Context, userID domainuser.ID, listingID domainlistings.ListingID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.saved[userID][listingID]
	return ok, nil
}

func (r *SavedRepository) ListIDs(ctx context.Context, userID domainuser.ID) ([]domainlistings.ListingID, error) {
	entries := r.sortedEntries(userID)
	out := make([]domainlistings.ListingID, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ListingID)
	}
	return out, nil
}

func (r *SavedRepository) ListListings(ctx context.Context, userID domainuser.ID) ([]*domainlistings.Listing, error) {
	entries := r.sortedEntries(userID)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0, len(entries))
	for _, e := range entries {
		if listing, ok := r.s.listings[e.ListingID]; ok {
			out = append(out, cloneListing(listing))
		}
	}
	return out, nil
}

// sortedEntries returns entries newest first, ties by listing id.
func (r *SavedRepository) sortedEntries(userID domainuser.ID) []domainsaved.Entry {
	r.s.mu.RLock()
	entries := make([]domainsaved.Entry, 0, len(r.s.saved[userID]))
	for _, e := range r.s.saved[userID] {
		entries = append(entries, e)
	}
	r.s.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ListingID < entries[j].ListingID
	})
	return entries
}

type ChatRepository struct {
	s *Store
}

func (r *ChatRepository) GetOrCreate(ctx context.Context, conv *domainchat.Conversation) (*domainchat.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.conversations {
		if existing.ListingID == conv.ListingID && existing.BuyerID == conv.BuyerID {
			copyConv := *existing
			return &copyConv, nil
		}
	}
	if _, ok := r.s.listings[conv.ListingID]; !ok {
		return nil, domainlistings.ErrNotFound
	}
	stored := *conv
	r.s.conversations[conv.ID] = &stored
	out := stored
	return &out, nil
}

func (r *ChatRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	conv, ok := r.s.conversations[id]
	if !ok {
		return nil, domainchat.ErrNotFound
	}
	copyConv := *conv
	return &copyConv, nil
}

func (r *ChatRepository) ListForUser(ctx context.Context, userID domainuser.ID) ([]domainchat.Summary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domainchat.Summary, 0)
	for _, conv := range r.s.conversations {
		if !conv.IsParticipant(userID) {
			continue
		}
		summary := domainchat.Summary{Conversation: *conv}
		if listing, ok := r.s.listings[conv.ListingID]; ok {
			summary.ListingTitle = listing.Title
			if len(listing.ImageURLs) > 0 {
				summary.ListingImage = listing.ImageURLs[0]
			}
		}
		if msgs := domainchat.SortTranscript(r.s.messages[conv.ID]); len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			summary.LastMessage = &last
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ChatRepository) Messages(ctx context.Context, id domainchat.ConversationID) ([]domainchat.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if _, ok := r.s.conversations[id]; !ok {
		return nil, domainchat.ErrNotFound
	}
	return domainchat.SortTranscript(r.s.messages[id]), nil
}

// AppendMessage stores msg and bumps the conversation's activity time.
func (r *ChatRepository) AppendMessage(ctx context.Context, msg *domainchat.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	conv, ok := r.s.conversations[msg.ConversationID]
	if !ok {
		return domainchat.ErrNotFound
	}
	r.s.messages[msg.ConversationID] = append(r.s.messages[msg.ConversationID], *msg)
	if msg.CreatedAt.After(conv.LastMessageAt) {
		conv.LastMessageAt = msg.CreatedAt
	}
	return nil
}

var (
	_ domainsaved.Repository = (*SavedRepository)(nil)
	_ domainchat.Repository  = (*ChatRepository)(nil)
)
