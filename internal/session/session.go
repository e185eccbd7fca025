// package session keeps per-owner dialogue state between requests
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/aura/internal/models"
	"golang.org/x/time/rate"
)

// DefaultHistorySize is the number of distinct history entries kept per owner.
const DefaultHistorySize = 10

// Pending is an operation waiting for a yes/no answer from the owner.
type Pending struct {
	Action     string      `json:"action"`
	Kind       models.Kind `json:"kind,omitempty"`
	List       string      `json:"list,omitempty"`
	Title      string      `json:"title,omitempty"`
	SimilarTo  string      `json:"similarTo,omitempty"`
	Similarity float64     `json:"similarity,omitempty"`
	Remaining  []string    `json:"remaining,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// State is the dialogue context of one owner.
type State struct {
	LastList   string   `json:"lastList,omitempty"`
	LastAction string   `json:"lastAction,omitempty"`
	History    []string `json:"history"`
	Pending    *Pending `json:"pending,omitempty"`
}

func (s State) clone() State {
	s.History = slices.Clone(s.History)
	if s.Pending != nil {
		p := *s.Pending
		p.Remaining = slices.Clone(p.Remaining)
		s.Pending = &p
	}
	return s
}

// Store holds [State] and a request limiter per owner. It is safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	states      map[string]*State
	limiters    map[string]*rate.Limiter
	historySize int
	limit       rate.Limit
	burst       int
	now         func() time.Time
}

// Option configures a [Store].
type Option func(*Store)

// WithHistorySize sets how many distinct history entries are kept.
func WithHistorySize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithRateLimit allows rps requests per second per owner with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Store) {
		if rps <= 0 {
			s.limit = rate.Inf
			return
		}
		s.limit = rate.Limit(rps)
		s.burst = max(burst, 1)
	}
}

// WithClock sets the time source used to stamp pending confirmations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty [Store].
func NewStore(opts ...Option) *Store {
	s := &Store{
		states:      make(map[string]*State),
		limiters:    make(map[string]*rate.Limiter),
		historySize: DefaultHistorySize,
		limit:       rate.Inf,
		burst:       1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the owner's state.
func (s *Store) Get(owner string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[owner]; ok {
		return st.clone()
	}
	return State{}
}

// Update applies fn to the owner's state under the store lock.
func (s *Store) Update(owner string, fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state(owner))
}

// Touch records a completed action and, when list is non-empty, the list it ran against.
func (s *Store) Touch(owner, action, list string) {
	s.Update(owner, func(st *State) {
		st.LastAction = action
		if list != "" {
			st.LastList = list
		}
	})
}

// ForgetList clears LastList when it names list.
func (s *Store) ForgetList(owner, list string) {
	s.Update(owner, func(st *State) {
		if st.LastList == list {
			st.LastList = ""
		}
	})
}

// Remember appends entry to the owner's history.
//
// An entry already in the history moves to the end, and the oldest entries are dropped
// beyond the configured size.
func (s *Store) Remember(owner, entry string) {
	if entry == "" {
		return
	}
	s.Update(owner, func(st *State) {
		st.History = slices.DeleteFunc(st.History, func(h string) bool { return h == entry })
		st.History = append(st.History, entry)
		if over := len(st.History) - s.historySize; over > 0 {
			st.History = slices.Delete(st.History, 0, over)
		}
	})
}

// Park stores p as the owner's pending confirmation, replacing any earlier one.
func (s *Store) Park(owner string, p Pending) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.Update(owner, func(st *State) { st.Pending = &p })
}

// TakePending removes and returns the owner's pending confirmation, or nil.
func (s *Store) TakePending(owner string) *Pending {
	var p *Pending
	s.Update(owner, func(st *State) {
		p, st.Pending = st.Pending, nil
	})
	return p
}

// Reset drops all state for owner.
func (s *Store) Reset(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, owner)
	delete(s.limiters, owner)
}

// Allow reports whether owner may make a request now, consuming one token if so.
func (s *Store) Allow(owner string) bool {
	s.mu.Lock()
	l, ok := s.limiters[owner]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[owner] = l
	}
	s.mu.Unlock()
	return l.Allow()
}

func (s *Store) state(owner string) *State {
	st, ok := s.states[owner]
	if !ok {
		st = &State{}
		s.states[owner] = st
	}
	return st
}
