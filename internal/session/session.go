// Package session holds per-user wizard state. State lives for the process
// lifetime only: a restart drops every in-flight wizard, and flows that
// find their context missing must tell the user to start over rather than
// guess.
package session

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Step tags the input the bot is currently waiting for from a user.
type Step int

const (
	StepNone Step = iota

	// Request creation wizard.
	StepRequestPrivateTitle
	StepRequestItemTitle
	StepRequestDescription
	StepRequestPhoto

	// Offer submission wizard.
	StepOfferPrice
	StepOfferDays
	StepOfferCondition
	StepOfferPhoto

	// Profile contact capture.
	StepDeliveryContact
	StepPayoutContact

	// Moderation: waiting for a rejection reason.
	StepRejectReason
)

// Draft accumulates wizard input before anything is persisted.
type Draft struct {
	PrivateTitle string
	ItemTitle    string
	Description  string
	PhotoFileID  string

	OfferPrice     *decimal.Decimal
	OfferDays      *int
	OfferCondition *int
}

// State is one user's wizard position plus workflow context.
type State struct {
	Step  Step
	Draft Draft

	// EditRequestID, when non-zero, short-circuits the creation steps
	// into single-field edit mode against an existing request.
	EditRequestID int64

	// OfferRequestID is the deep-linked target of the offer wizard.
	OfferRequestID int64

	// Reject context: which request is being rejected and which
	// moderation-card message to clean up afterwards.
	RejectRequestID int64
	RejectChatID    int64
	RejectMessageID int
}

// Store keeps one State per user. All methods are safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	states map[int64]*State
}

func NewStore() *Store {
	return &Store{states: map[int64]*State{}}
}

// Get returns a copy of the user's state. A user with no active wizard
// reads as the zero State and false, never an error.
func (s *Store) Get(userID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[userID]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// SetStep moves the user to a step, creating state if absent and keeping
// the draft and context intact.
func (s *Store) SetStep(userID int64, step Step) {
	s.Update(userID, func(st *State) { st.Step = step })
}

// Update applies a mutation to the user's state atomically, creating the
// state if absent.
func (s *Store) Update(userID int64, fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[userID]
	if !ok {
		st = &State{}
		s.states[userID] = st
	}
	fn(st)
}

// UpdateDraft merges into the user's draft without touching the step.
func (s *Store) UpdateDraft(userID int64, fn func(*Draft)) {
	s.Update(userID, func(st *State) { fn(&st.Draft) })
}

// Clear drops the user's state entirely.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}
