package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainchat "tumbi/internal/domain/chat"
	domainlistings "tumbi/internal/domain/listings"
	domainsaved "tumbi/internal/domain/saved"
	domainuser "tumbi/internal/domain/user"
)

// Store holds every table behind one lock so cascading deletes stay
// consistent across repositories. Not suitable for production.
type Store struct {
	mu            sync.RWMutex
	users         map[domainuser.ID]*domainuser.User
	listings      map[domainlistings.ListingID]*domainlistings.Listing
	saved         map[domainuser.ID]map[domainlistings.ListingID]domainsaved.Entry
	conversations map[domainchat.ConversationID]*domainchat.Conversation
	messages      map[domainchat.ConversationID][]domainchat.Message
	outbox        *Outbox
	idempotency   *IdempotencyStore
}

func NewStore() *Store {
	return &Store{
		users:         make(map[domainuser.ID]*domainuser.User),
		listings:      make(map[domainlistings.ListingID]*domainlistings.Listing),
		saved:         make(map[domainuser.ID]map[domainlistings.ListingID]domainsaved.Entry),
		conversations: make(map[domainchat.ConversationID]*domainchat.Conversation),
		messages:      make(map[domainchat.ConversationID][]domainchat.Message),
		outbox:        NewOutbox(),
		idempotency:   NewIdempotencyStore(),
	}
}

func (s *Store) Listings() *ListingRepository   { return &ListingRepository{s: s} }
func (s *Store) Users() *UserRepository         { return &UserRepository{s: s} }
func (s *Store) Saved() *SavedRepository        { return &SavedRepository{s: s} }
func (s *Store) Chat() *ChatRepository          { return &ChatRepository{s: s} }
func (s *Store) Outbox() *Outbox                { return s.outbox }
func (s *Store) Idempotency() *IdempotencyStore { return s.idempotency }

// ListingRepository is the in-memory listings table.
type ListingRepository struct {
	s *Store
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	listing, ok := r.s.listings[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return cloneListing(listing), nil
}

func (r *ListingRepository) BySlug(ctx context.Context, slug string) (*domainlistings.Listing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, listing := range r.s.listings {
		if listing.Slug == slug {
			return cloneListing(listing), nil
		}
	}
	return nil, domainlistings.ErrNotFound
}

func (r *ListingRepository) Create(ctx context.Context, listing *domainlistings.Listing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.listings[listing.ID]; ok {
		return domainlistings.ErrSlugTaken
	}
	for _, existing := range r.s.listings {
		if existing.Slug == listing.Slug {
			return domainlistings.ErrSlugTaken
		}
	}
	r.s.listings[listing.ID] = cloneListing(listing)
	return nil
}

func (r *ListingRepository) Update(ctx context.Context, listing *domainlistings.Listing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.listings[listing.ID]
	if !ok {
		return domainlistings.ErrNotFound
	}
	next := cloneListing(listing)
	next.Views = current.Views
	r.s.listings[listing.ID] = next
	return nil
}

// Delete removes the listing with its saved entries and conversations.
func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.listings[id]; !ok {
		return domainlistings.ErrNotFound
	}
	delete(r.s.listings, id)
	for _, entries := range r.s.saved {
		delete(entries, id)
	}
	for convID, conv := range r.s.conversations {
		if conv.ListingID == id {
			delete(r.s.conversations, convID)
			delete(r.s.messages, convID)
		}
	}
	return nil
}

func (r *ListingRepository) IncrementViews(ctx context.Context, id domainlistings.ListingID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	listing, ok := r.s.listings[id]
	if !ok {
		return domainlistings.ErrNotFound
	}
	listing.Views++
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) ([]*domainlistings.Listing, error) {
	params = params.Normalized()
	r.s.mu.RLock()
	matched := make([]*domainlistings.Listing, 0, len(r.s.listings))
	for _, listing := range r.s.listings {
		if params.Matches(listing) {
			matched = append(matched, cloneListing(listing))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return params.Sort.Less(matched[i], matched[j]) })
	if params.Offset >= len(matched) {
		return []*domainlistings.Listing{}, nil
	}
	end := params.Offset + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[params.Offset:end], nil
}

// UserRepository is the in-memory users table; email and phone are unique.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if user, ok := r.s.users[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	email = domainuser.NormalizeEmail(email)
	return r.find(func(u *domainuser.User) bool { return email != "" && u.Email == email })
}

func (r *UserRepository) ByPhone(ctx context.Context, phone string) (*domainuser.User, error) {
	phone = domainuser.NormalizePhone(phone)
	return r.find(func(u *domainuser.User) bool { return phone != "" && u.Phone == phone })
}

func (r *UserRepository) find(match func(*domainuser.User) bool) (*domainuser.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if match(user) {
			return cloneUser(user), nil
		}
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) Create(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkUnique(user); err != nil {
		return err
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) Update(ctx context.Context, user *domainuser.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return domainuser.ErrNotFound
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) checkUnique(user *domainuser.User) error {
	for id, existing := range r.s.users {
		if id == user.ID {
			continue
		}
		if user.Email != "" && existing.Email == user.Email {
			return domainuser.ErrEmailAlreadyUsed
		}
		if user.Phone != "" && existing.Phone == user.Phone {
			return domainuser.ErrPhoneAlreadyUsed
		}
	}
	return nil
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	if l == nil {
		return nil
	}
	out := &domainlistings.Listing{
		ID:           l.ID,
		Slug:         l.Slug,
		Seller:       l.Seller,
		Title:        l.Title,
		Price:        l.Price,
		Unit:         l.Unit,
		Location:     l.Location,
		MainCategory: l.MainCategory,
		SubCategory:  l.SubCategory,
		Description:  l.Description,
		ImageURLs:    append([]string(nil), l.ImageURLs...),
		Verified:     l.Verified,
		Views:        l.Views,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
	return out
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	copyUser := *u
	return &copyUser
}

var (
	_ domainlistings.Repository = (*ListingRepository)(nil)
	_ domainuser.Repository     = (*UserRepository)(nil)
)
