package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/MarcGrol/compositecheckout/lib/myerrors"
	"github.com/MarcGrol/compositecheckout/lib/mylog"
	"github.com/MarcGrol/compositecheckout/lib/mypublisher"
	"github.com/MarcGrol/compositecheckout/lib/myqueue"
	"github.com/MarcGrol/compositecheckout/lib/mystore"
	"github.com/MarcGrol/compositecheckout/lib/mytime"
	"github.com/MarcGrol/compositecheckout/services/cart"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
	"github.com/MarcGrol/compositecheckout/services/checkoutevents"
	"github.com/MarcGrol/compositecheckout/services/checkoutstate"
	"github.com/MarcGrol/compositecheckout/services/paymentmethods"
)

type service struct {
	registry      *paymentmethods.Registry
	billingAPI    cart.BillingAPI
	checkoutStore mystore.Store[checkoutapi.CheckoutContext]
	publisher     mypublisher.Publisher
	queuer        myqueue.TaskQueuer
	nower         mytime.Nower
	logger        mylog.Logger

	mutex    sync.Mutex
	sessions map[string]*checkoutstate.Store

	// one lock per session so a redirect return and a reconcile task never
	// resolve the same outcome twice
	resolveLocks map[string]*sync.Mutex
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(registry *paymentmethods.Registry, billingAPI cart.BillingAPI,
	checkoutStore mystore.Store[checkoutapi.CheckoutContext], publisher mypublisher.Publisher,
	queuer myqueue.TaskQueuer, nower mytime.Nower, logger mylog.Logger) *service {
	return &service{
		registry:      registry,
		billingAPI:    billingAPI,
		checkoutStore: checkoutStore,
		publisher:     publisher,
		queuer:        queuer,
		nower:         nower,
		logger:        logger,
		sessions:      map[string]*checkoutstate.Store{},
		resolveLocks:  map[string]*sync.Mutex{},
	}
}

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}
	return nil
}

// startCheckout fetches the basket from the billing backend, translates it
// into the canonical cart and opens a fresh session for it.
func (s *service) startCheckout(c context.Context, basketUID string, returnURL string) (checkoutstate.State, []paymentmethods.Descriptor, error) {
	s.logger.Log(c, basketUID, mylog.SeverityInfo, "Start checkout for basket %s", basketUID)

	serverCart, err := s.billingAPI.FetchCart(c, basketUID)
	if err != nil {
		return checkoutstate.State{}, nil, err
	}

	if dropped := cart.DroppedPaymentMethodClasses(serverCart); len(dropped) > 0 {
		// likely version skew between this service and the billing backend
		s.logger.Log(c, basketUID, mylog.SeverityWarn, "Dropping unknown payment method classes %s for basket %s",
			strings.Join(dropped, ","), basketUID)
	}

	translatedCart := cart.TranslateCart(serverCart)
	session := checkoutstate.New(basketUID, translatedCart, s.logger)

	s.mutex.Lock()
	s.sessions[basketUID] = session
	s.mutex.Unlock()

	methods := s.registry.ListFor(translatedCart)
	now := s.nower.Now()

	err = s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.checkoutStore.Put(c, basketUID, checkoutapi.CheckoutContext{
			BasketUID:         basketUID,
			CreatedAt:         now,
			Phase:             string(checkoutstate.PhaseNotStarted),
			OriginalReturnURL: returnURL,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing checkout: %s", err))
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			BasketUID:     basketUID,
			AmountInCents: translatedCart.Total.Value,
			Currency:      translatedCart.Total.Currency,
			MethodCount:   len(methods),
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return checkoutstate.State{}, nil, err
	}

	return session.GetState(), methods, nil
}

func (s *service) selectMethod(c context.Context, basketUID string, methodID checkoutapi.PaymentMethodID) (checkoutstate.State, error) {
	session, err := s.session(basketUID)
	if err != nil {
		return checkoutstate.State{}, err
	}

	if !session.GetState().Cart.Allows(methodID) {
		return checkoutstate.State{}, myerrors.NewInvalidInputError(fmt.Errorf("method '%s' not allowed for basket %s", methodID, basketUID))
	}

	session.Dispatch(c, checkoutstate.SelectMethod{ID: methodID})

	state := session.GetState()
	err = s.persist(c, basketUID, state, "")
	if err != nil {
		return checkoutstate.State{}, err
	}

	return state, nil
}

// refreshCart re-fetches the basket and swaps the cart wholesale. A no-op
// while a submit is in flight.
func (s *service) refreshCart(c context.Context, basketUID string) (checkoutstate.State, error) {
	session, err := s.session(basketUID)
	if err != nil {
		return checkoutstate.State{}, err
	}

	serverCart, err := s.billingAPI.FetchCart(c, basketUID)
	if err != nil {
		return checkoutstate.State{}, err
	}

	session.Dispatch(c, checkoutstate.ReplaceCart{Cart: cart.TranslateCart(serverCart)})

	return session.GetState(), nil
}

// submit runs one payment attempt end to end: method lookup, provider
// submission and either order creation or a redirect hand-off.
func (s *service) submit(c context.Context, basketUID string, form checkoutapi.Submit, redirectReturnURL string) (checkoutstate.State, error) {
	session, err := s.session(basketUID)
	if err != nil {
		return checkoutstate.State{}, err
	}

	state := session.GetState()
	methodID := state.SelectedMethod

	descriptor, err := s.registry.Get(methodID)
	if err != nil {
		// a method id that was never registered: fail the transaction
		// without ever entering the submitting phase
		session.Dispatch(c, checkoutstate.SubmitFailure{Err: err})
		s.reportFailure(c, basketUID, string(methodID), session.GetState(), err)
		return session.GetState(), err
	}

	session.Dispatch(c, checkoutstate.BeginSubmit{})
	state = session.GetState()
	if state.Phase != checkoutstate.PhaseSubmitting {
		// duplicate submit or wrong phase was absorbed as a no-op
		return state, nil
	}
	attempt := state.Attempt

	result, err := descriptor.Submitter.Submit(c, paymentmethods.SubmitRequest{
		BasketUID: basketUID,
		Attempt:   attempt,
		Cart:      state.Cart,
		Billing:   form.Billing,
		Card:      form.Card,
		ReturnURL: redirectReturnURL,
	})

	state = session.GetState()
	if state.Attempt != attempt || state.Phase != checkoutstate.PhaseSubmitting {
		// a reset or a competing completion moved the session on while the
		// provider call was in flight; the attempt alone does not tell,
		// Reset keeps the counter
		s.logger.Log(c, basketUID, mylog.SeverityWarn, "Discarding completion of stale attempt %d for basket %s", attempt, basketUID)
		return state, nil
	}

	if err != nil {
		session.Dispatch(c, checkoutstate.SubmitFailure{Err: err})
		s.reportFailure(c, basketUID, string(methodID), session.GetState(), err)
		return session.GetState(), err
	}

	if result.RedirectURL != "" {
		return s.handOffToRedirect(c, session, basketUID, attempt, form.Billing, result)
	}

	return s.completeWithToken(c, session, basketUID, attempt, form, result.PaymentToken)
}

func (s *service) handOffToRedirect(c context.Context, session *checkoutstate.Store, basketUID string, attempt int, billing checkoutapi.BillingContact, result paymentmethods.SubmitResult) (checkoutstate.State, error) {
	session.Dispatch(c, checkoutstate.SubmitRedirect{URL: result.RedirectURL})

	state := session.GetState()
	err := s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		return s.putContext(c, basketUID, state, result.ProviderReference, &billing)
	})
	if err != nil {
		return checkoutstate.State{}, err
	}

	// schedule a reconcile in case the shopper never returns; the task uid
	// makes scheduling idempotent per attempt
	payload, _ := json.Marshal(reconcileTask{BasketUID: basketUID, Attempt: attempt})
	err = s.queuer.Enqueue(c, myqueue.Task{
		UID:            fmt.Sprintf("%s-%d", basketUID, attempt),
		WebhookURLPath: fmt.Sprintf("/checkout/%s/reconcile/%d", basketUID, attempt),
		Payload:        payload,
	})
	if err != nil {
		return checkoutstate.State{}, myerrors.NewInternalError(fmt.Errorf("error enqueuing reconcile task: %s", err))
	}

	return state, nil
}

// completeWithToken turns a provider token into an order. CreateOrder is a
// suspension point: the expected attempt and phase are verified on both sides
// of it, so a session that was reset or resolved elsewhere in the meantime is
// left untouched.
func (s *service) completeWithToken(c context.Context, session *checkoutstate.Store, basketUID string, attempt int, form checkoutapi.Submit, paymentToken string) (checkoutstate.State, error) {
	state := session.GetState()
	if movedOn(state, attempt) {
		s.logger.Log(c, basketUID, mylog.SeverityWarn, "Discarding completion of stale attempt %d for basket %s", attempt, basketUID)
		return state, nil
	}

	orderResp, err := s.billingAPI.CreateOrder(c, cart.OrderRequest{
		BasketUID:       basketUID,
		PaymentMethodID: string(state.SelectedMethod),
		PaymentToken:    paymentToken,
		BillingName:     form.Billing.Name,
		BillingEmail:    form.Billing.Email,
		BillingCountry:  form.Billing.Country,
	})
	if err != nil {
		if movedOn(session.GetState(), attempt) {
			s.logger.Log(c, basketUID, mylog.SeverityWarn, "Discarding failure of stale attempt %d for basket %s", attempt, basketUID)
			return session.GetState(), nil
		}
		session.Dispatch(c, checkoutstate.SubmitFailure{Err: err})
		s.reportFailure(c, basketUID, string(state.SelectedMethod), session.GetState(), err)
		return session.GetState(), err
	}

	if movedOn(session.GetState(), attempt) {
		// the order exists but the session no longer wants it; surface loudly
		// so the ledger discrepancy gets investigated
		s.logger.Log(c, basketUID, mylog.SeverityError, "Order %s was created for stale attempt %d of basket %s", orderResp.OrderID, attempt, basketUID)
		return session.GetState(), nil
	}

	session.Dispatch(c, checkoutstate.SubmitSuccess{
		OrderID:     orderResp.OrderID,
		ReceiptData: orderResp.ReceiptData,
	})

	state = session.GetState()
	err = s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.putContext(c, basketUID, state, "", nil)
		if err != nil {
			return err
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.PaymentCompleted{
			BasketUID:     basketUID,
			MethodID:      string(state.SelectedMethod),
			OrderID:       orderResp.OrderID,
			AmountInCents: state.Cart.Total.Value,
			Currency:      state.Cart.Total.Currency,
			Attempt:       state.Attempt,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return checkoutstate.State{}, err
	}

	s.logger.Log(c, basketUID, mylog.SeverityInfo, "Checkout for basket %s completed with order %s", basketUID, orderResp.OrderID)

	return state, nil
}

// finalizeRedirect resolves the outcome after the shopper returns from the
// provider's hosted page. Returns the shop url to send the shopper back to.
func (s *service) finalizeRedirect(c context.Context, basketUID string, reportedStatus string) (string, error) {
	s.logger.Log(c, basketUID, mylog.SeverityInfo, "Redirect return for basket %s with status '%s'", basketUID, reportedStatus)

	checkoutContext, found, err := s.checkoutStore.Get(c, basketUID)
	if err != nil {
		return "", myerrors.NewInternalError(fmt.Errorf("error fetching checkout with uid %s: %s", basketUID, err))
	}
	if !found {
		return "", myerrors.NewNotFoundError(fmt.Errorf("checkout with uid %s not found", basketUID))
	}

	session, err := s.session(basketUID)
	if err != nil {
		return "", err
	}

	// a reconcile task may be resolving the same outcome right now
	resolveLock := s.resolveLock(basketUID)
	resolveLock.Lock()
	defer resolveLock.Unlock()

	state := session.GetState()
	if state.Phase == checkoutstate.PhaseRedirectPending {
		attempt := state.Attempt
		outcome := s.resolveOutcome(c, state, checkoutContext, reportedStatus)
		state, err = s.applyRedirectOutcome(c, session, basketUID, checkoutContext, attempt, outcome)
		if err != nil {
			return "", err
		}
	}

	return addStatusQueryParam(checkoutContext.OriginalReturnURL, string(state.Phase))
}

// resolveOutcome prefers asking the provider over trusting the query
// parameter the shopper came back with.
func (s *service) resolveOutcome(c context.Context, state checkoutstate.State, checkoutContext checkoutapi.CheckoutContext, reportedStatus string) paymentmethods.PaymentStatus {
	descriptor, err := s.registry.Get(state.SelectedMethod)
	if err == nil && descriptor.StatusChecker != nil && checkoutContext.ProviderReference != "" {
		status, err := descriptor.StatusChecker.CheckStatus(c, checkoutContext.ProviderReference)
		if err == nil {
			return status
		}
		s.logger.Log(c, checkoutContext.BasketUID, mylog.SeverityWarn, "Error checking payment status: %s", err)
	}

	switch reportedStatus {
	case "success":
		return paymentmethods.PaymentStatusSucceeded
	case "cancelled":
		return paymentmethods.PaymentStatusCancelled
	case "pending", "":
		return paymentmethods.PaymentStatusPending
	default:
		return paymentmethods.PaymentStatusFailed
	}
}

func (s *service) applyRedirectOutcome(c context.Context, session *checkoutstate.Store, basketUID string, checkoutContext checkoutapi.CheckoutContext, attempt int, outcome paymentmethods.PaymentStatus) (checkoutstate.State, error) {
	state := session.GetState()
	if state.Attempt != attempt || state.Phase != checkoutstate.PhaseRedirectPending {
		// resolved or reset while the status lookup was in flight
		s.logger.Log(c, basketUID, mylog.SeverityWarn, "Discarding redirect outcome of stale attempt %d for basket %s", attempt, basketUID)
		return state, nil
	}

	switch outcome {
	case paymentmethods.PaymentStatusSucceeded:
		return s.completeWithToken(c, session, basketUID, attempt, checkoutapi.Submit{
			Billing: checkoutapi.BillingContact{
				Name:    checkoutContext.BillingName,
				Email:   checkoutContext.BillingEmail,
				Country: checkoutContext.BillingCountry,
			},
		}, checkoutContext.ProviderReference)

	case paymentmethods.PaymentStatusPending:
		// outcome not known yet, the reconcile task will follow up
		return session.GetState(), nil

	default:
		err := &checkouterrors.ProviderError{
			Step:    checkouterrors.StepRedirect,
			Message: fmt.Sprintf("payment ended in status '%s'", outcome),
		}
		session.Dispatch(c, checkoutstate.SubmitFailure{Err: err})
		state := session.GetState()
		s.reportFailure(c, basketUID, string(state.SelectedMethod), state, err)
		return state, nil
	}
}

// reconcile is fired by the task queue for redirect attempts that may never
// have come back. Returns a retryable error while the outcome is undecided.
func (s *service) reconcile(c context.Context, basketUID string, attempt int) error {
	session, err := s.session(basketUID)
	if err != nil {
		// session gone, nothing left to reconcile
		s.logger.Log(c, basketUID, mylog.SeverityInfo, "Reconcile for unknown basket %s, done", basketUID)
		return nil
	}

	// the shopper may be returning from the provider at this very moment
	resolveLock := s.resolveLock(basketUID)
	resolveLock.Lock()
	defer resolveLock.Unlock()

	state := session.GetState()
	if state.Attempt != attempt || state.Phase != checkoutstate.PhaseRedirectPending {
		s.logger.Log(c, basketUID, mylog.SeverityInfo, "Reconcile for basket %s attempt %d is stale, done", basketUID, attempt)
		return nil
	}

	checkoutContext, found, err := s.checkoutStore.Get(c, basketUID)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error fetching checkout with uid %s: %s", basketUID, err))
	}
	if !found {
		return myerrors.NewNotFoundError(fmt.Errorf("checkout with uid %s not found", basketUID))
	}

	outcome := s.resolveOutcome(c, state, checkoutContext, "")
	if outcome == paymentmethods.PaymentStatusPending {
		// ask the queue to try again later
		return myerrors.NewUnavailableError(fmt.Errorf("payment for basket %s still pending", basketUID))
	}

	_, err = s.applyRedirectOutcome(c, session, basketUID, checkoutContext, attempt, outcome)
	return err
}

func (s *service) reset(c context.Context, basketUID string) (checkoutstate.State, error) {
	session, err := s.session(basketUID)
	if err != nil {
		return checkoutstate.State{}, err
	}

	session.Dispatch(c, checkoutstate.Reset{})

	state := session.GetState()
	err = s.persist(c, basketUID, state, "")
	if err != nil {
		return checkoutstate.State{}, err
	}

	return state, nil
}

func (s *service) status(c context.Context, basketUID string) (checkoutstate.State, []paymentmethods.Descriptor, error) {
	session, err := s.session(basketUID)
	if err != nil {
		return checkoutstate.State{}, nil, err
	}

	state := session.GetState()
	return state, s.registry.ListFor(state.Cart), nil
}

func (s *service) session(basketUID string) (*checkoutstate.Store, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	session, exists := s.sessions[basketUID]
	if !exists {
		return nil, myerrors.NewNotFoundError(fmt.Errorf("no active checkout for basket %s", basketUID))
	}
	return session, nil
}

func (s *service) resolveLock(basketUID string) *sync.Mutex {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	lock, exists := s.resolveLocks[basketUID]
	if !exists {
		lock = &sync.Mutex{}
		s.resolveLocks[basketUID] = lock
	}
	return lock
}

// movedOn tells whether the session is no longer waiting for this attempt to
// complete. Attempt alone is not enough, Reset keeps the counter.
func movedOn(state checkoutstate.State, attempt int) bool {
	if state.Attempt != attempt {
		return true
	}
	return state.Phase != checkoutstate.PhaseSubmitting && state.Phase != checkoutstate.PhaseRedirectPending
}

func (s *service) reportFailure(c context.Context, basketUID string, methodID string, state checkoutstate.State, cause error) {
	err := s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.putContext(c, basketUID, state, "", nil)
		if err != nil {
			return err
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.PaymentFailed{
			BasketUID: basketUID,
			MethodID:  methodID,
			ErrorKind: checkouterrors.Kind(cause),
			Attempt:   state.Attempt,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		s.logger.Log(c, basketUID, mylog.SeverityError, "Error reporting payment failure: %s", err)
	}
}

func (s *service) persist(c context.Context, basketUID string, state checkoutstate.State, providerReference string) error {
	return s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		return s.putContext(c, basketUID, state, providerReference, nil)
	})
}

// putContext folds the in-memory state into the durable checkout context,
// preserving fields owned by earlier transitions.
func (s *service) putContext(c context.Context, basketUID string, state checkoutstate.State, providerReference string, billing *checkoutapi.BillingContact) error {
	checkoutContext, found, err := s.checkoutStore.Get(c, basketUID)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error fetching checkout with uid %s: %s", basketUID, err))
	}
	if !found {
		checkoutContext = checkoutapi.CheckoutContext{
			BasketUID: basketUID,
			CreatedAt: s.nower.Now(),
		}
	}

	now := s.nower.Now()
	checkoutContext.LastModified = &now
	checkoutContext.Phase = string(state.Phase)
	checkoutContext.SelectedMethod = string(state.SelectedMethod)
	checkoutContext.Attempt = state.Attempt
	checkoutContext.OrderID = state.OrderID
	checkoutContext.RedirectURL = state.RedirectURL
	if providerReference != "" {
		checkoutContext.ProviderReference = providerReference
	}
	if billing != nil {
		checkoutContext.BillingName = billing.Name
		checkoutContext.BillingEmail = billing.Email
		checkoutContext.BillingCountry = billing.Country
	}
	if state.Err != nil {
		checkoutContext.LastErrorKind = checkouterrors.Kind(state.Err)
		checkoutContext.LastErrorMessage = state.Err.Error()
	} else {
		checkoutContext.LastErrorKind = ""
		checkoutContext.LastErrorMessage = ""
	}

	err = s.checkoutStore.Put(c, basketUID, checkoutContext)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing checkout: %s", err))
	}

	return nil
}

type reconcileTask struct {
	BasketUID string `json:"basketUID"`
	Attempt   int    `json:"attempt"`
}

func addStatusQueryParam(orgURL string, status string) (string, error) {
	u, err := url.Parse(orgURL)
	if err != nil {
		return "", myerrors.NewInternalError(fmt.Errorf("error parsing return URL %s: %s", orgURL, err))
	}
	params := u.Query()
	params.Set("status", status)
	u.RawQuery = params.Encode()
	return u.String(), nil
}
