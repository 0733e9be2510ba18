// Package view is the client's screen state machine.
package view

import (
	"fmt"
	"sync"
)

type Name string

const (
	Home          Name = "home"
	Sell          Name = "sell"
	Edit          Name = "edit"
	Details       Name = "details"
	Saved         Name = "saved"
	Messages      Name = "messages"
	Conversation  Name = "conversation"
	Profile       Name = "profile"
	VendorProfile Name = "vendor-profile"
	Login         Name = "login"
)

// State is a screen plus the ID it is showing. Home, Sell, Saved, Messages,
// Profile and Login carry no ID.
type State struct {
	Name           Name
	ListingID      string
	ConversationID string
	VendorID       string
}

func (s State) String() string {
	switch {
	case s.ListingID != "":
		return fmt.Sprintf("%s(%s)", s.Name, s.ListingID)
	case s.ConversationID != "":
		return fmt.Sprintf("%s(%s)", s.Name, s.ConversationID)
	case s.VendorID != "":
		return fmt.Sprintf("%s(%s)", s.Name, s.VendorID)
	}
	return string(s.Name)
}

// Top-level screens reachable from anywhere through the navigation bar.
var topLevel = []Name{Home, Sell, Saved, Messages, Profile, Login}

var transitions = map[Name][]Name{
	Home:          {Details},
	Sell:          {},
	Edit:          {},
	Details:       {Conversation, VendorProfile, Edit},
	Saved:         {Details},
	Messages:      {Conversation},
	Conversation:  {Details, VendorProfile},
	Profile:       {Edit, Details},
	VendorProfile: {Details, Conversation},
	Login:         {},
}

type TransitionError struct {
	From, To Name
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("view: cannot go from %s to %s", e.From, e.To)
}

// Router is safe for concurrent use.
type Router struct {
	mu      sync.Mutex
	current State
	// origin of the current VendorProfile visit, so Back can return to it
	vendorFrom State
}

func NewRouter() *Router {
	return &Router{current: State{Name: Home}}
}

func (r *Router) Current() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func Allowed(from, to Name) bool {
	if from == to {
		return true
	}
	for _, n := range topLevel {
		if n == to {
			return true
		}
	}
	for _, n := range transitions[from] {
		if n == to {
			return true
		}
	}
	return false
}

func (r *Router) Go(next State) error {
	if err := validate(next); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !Allowed(r.current.Name, next.Name) {
		return &TransitionError{From: r.current.Name, To: next.Name}
	}
	if next.Name == VendorProfile && r.current.Name != VendorProfile {
		r.vendorFrom = r.current
	}
	r.current = next
	return nil
}

// Reset jumps to next without checking the table; used for session changes.
func (r *Router) Reset(next State) {
	r.mu.Lock()
	r.current = next
	r.vendorFrom = State{}
	r.mu.Unlock()
}

// Back follows the fixed back edge of the current screen and returns the new state.
func (r *Router) Back() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.current.Name {
	case Conversation:
		r.current = State{Name: Messages}
	case Edit:
		r.current = State{Name: Profile}
	case VendorProfile:
		if r.vendorFrom.Name == Details {
			r.current = r.vendorFrom
		} else {
			r.current = State{Name: Home}
		}
		r.vendorFrom = State{}
	default:
		r.current = State{Name: Home}
	}
	return r.current
}

func validate(s State) error {
	switch s.Name {
	case Details, Edit:
		if s.ListingID == "" {
			return fmt.Errorf("view: %s needs a listing id", s.Name)
		}
	case Conversation:
		if s.ConversationID == "" {
			return fmt.Errorf("view: %s needs a conversation id", s.Name)
		}
	case VendorProfile:
		if s.VendorID == "" {
			return fmt.Errorf("view: %s needs a vendor id", s.Name)
		}
	case Home, Sell, Saved, Messages, Profile, Login:
	default:
		return fmt.Errorf("view: unknown state %q", s.Name)
	}
	return nil
}
