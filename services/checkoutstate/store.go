package checkoutstate

import (
	"context"
	"sync"

	"github.com/MarcGrol/compositecheckout/lib/mylog"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
)

type Phase string

const (
	PhaseNotStarted      Phase = "not-started"
	PhasePending         Phase = "pending"
	PhaseSubmitting      Phase = "submitting"
	PhaseRedirectPending Phase = "redirect-pending"
	PhaseSuccess         Phase = "success"
	PhaseFailed          Phase = "failed"
)

// State is the single transaction state of one checkout session.
type State struct {
	Phase          Phase
	Cart           checkoutapi.Cart
	SelectedMethod checkoutapi.PaymentMethodID
	Attempt        int
	RedirectURL    string
	OrderID        string
	ReceiptData    map[string]string
	Err            error
}

// Store is the single source of truth for a checkout session. All mutation
// goes through Dispatch; Dispatch runs the full reducer before returning, so
// a GetState immediately after always observes the transition. Illegal
// transitions (impatient double-clicks) are absorbed as logged no-ops and
// never corrupt state or panic past the caller.
type Store struct {
	mutex     sync.Mutex
	basketUID string
	state     State
	listeners []listenerEntry
	nextID    int
	logger    mylog.Logger
}

type listenerEntry struct {
	id int
	fn func(State)
}

func New(basketUID string, cart checkoutapi.Cart, logger mylog.Logger) *Store {
	return &Store{
		basketUID: basketUID,
		state: State{
			Phase: PhaseNotStarted,
			Cart:  cart,
		},
		logger: logger,
	}
}

func (s *Store) GetState() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.state
}

// Subscribe registers a listener that is invoked synchronously after every
// applied transition, in subscription order. The returned function
// unsubscribes; continuations must unsubscribe on teardown so late async
// completions stop observing the session.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		for i, entry := range s.listeners {
			if entry.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Dispatch applies the action synchronously. Dispatches are serialized by the
// store; callers are expected to dispatch from the request goroutine owning
// the session.
func (s *Store) Dispatch(c context.Context, action Action) {
	s.mutex.Lock()

	next, legal := reduce(s.state, action)
	if !legal {
		phase := s.state.Phase
		s.mutex.Unlock()
		// programming error or double-click: report loudly, never throw
		s.logger.Log(c, s.basketUID, mylog.SeverityError,
			"Illegal transition: action '%s' in phase '%s' ignored", action.actionName(), phase)
		return
	}

	s.state = next
	listeners := make([]listenerEntry, len(s.listeners))
	copy(listeners, s.listeners)
	s.mutex.Unlock()

	for _, entry := range listeners {
		entry.fn(next)
	}
}

func reduce(current State, action Action) (State, bool) {
	switch a := action.(type) {

	case SelectMethod:
		if current.Phase != PhaseNotStarted && current.Phase != PhasePending && current.Phase != PhaseFailed {
			return current, false
		}
		next := current
		next.Phase = PhasePending
		next.SelectedMethod = a.ID
		next.Err = nil
		return next, true

	case ReplaceCart:
		if current.Phase != PhaseNotStarted && current.Phase != PhasePending && current.Phase != PhaseFailed {
			return current, false
		}
		next := current
		next.Cart = a.Cart
		return next, true

	case BeginSubmit:
		if current.Phase != PhasePending && current.Phase != PhaseFailed {
			return current, false
		}
		if current.SelectedMethod == "" {
			return current, false
		}
		next := current
		next.Phase = PhaseSubmitting
		next.Attempt++
		next.Err = nil
		return next, true

	case SubmitRedirect:
		if current.Phase != PhaseSubmitting {
			return current, false
		}
		next := current
		next.Phase = PhaseRedirectPending
		next.RedirectURL = a.URL
		return next, true

	case SubmitSuccess:
		if current.Phase != PhaseSubmitting && current.Phase != PhaseRedirectPending {
			return current, false
		}
		next := current
		next.Phase = PhaseSuccess
		next.OrderID = a.OrderID
		next.ReceiptData = a.ReceiptData
		next.RedirectURL = ""
		next.Err = nil
		return next, true

	case SubmitFailure:
		if current.Phase != PhasePending && current.Phase != PhaseSubmitting && current.Phase != PhaseRedirectPending {
			return current, false
		}
		next := current
		next.Phase = PhaseFailed
		next.Err = a.Err
		next.RedirectURL = ""
		return next, true

	case Reset:
		// Attempt is deliberately kept: it stays monotonic within the
		// session so stale continuations from before the reset remain
		// detectable.
		return State{
			Phase:   PhaseNotStarted,
			Cart:    current.Cart,
			Attempt: current.Attempt,
		}, true

	default:
		return current, false
	}
}
