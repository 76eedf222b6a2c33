package ledger

import (
	"context"
	"fmt"

	"github.com/MarcGrol/compositecheckout/lib/myerrors"
	"github.com/MarcGrol/compositecheckout/lib/myhttp"
	"github.com/MarcGrol/compositecheckout/lib/mylog"
	"github.com/MarcGrol/compositecheckout/lib/mypubsub"
	"github.com/MarcGrol/compositecheckout/lib/mystore"
	"github.com/MarcGrol/compositecheckout/lib/mytime"
	"github.com/MarcGrol/compositecheckout/services/checkoutevents"
)

type service struct {
	entryStore mystore.Store[Entry]
	pubsub     mypubsub.PubSub
	nower      mytime.Nower
	logger     mylog.Logger
}

func newService(entryStore mystore.Store[Entry], pubsub mypubsub.PubSub, nower mytime.Nower, logger mylog.Logger) *service {
	return &service{
		entryStore: entryStore,
		pubsub:     pubsub,
		nower:      nower,
		logger:     logger,
	}
}

func (s *service) Subscribe(c context.Context) error {
	err := s.pubsub.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}

	err = s.pubsub.Subscribe(c, checkoutevents.TopicName, myhttp.GuessHostnameWithScheme()+"/ledger/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

func (s *service) OnCheckoutStarted(c context.Context, topic string, event checkoutevents.CheckoutStarted) error {
	s.logger.Log(c, event.BasketUID, mylog.SeverityInfo, "Ledger: checkout started for basket %s", event.BasketUID)

	now := s.nower.Now()

	return s.entryStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		entry, found, err := s.entryStore.Get(c, event.BasketUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			entry = Entry{
				BasketUID: event.BasketUID,
				CreatedAt: now,
			}
		}

		entry.Status = statusStarted
		entry.AmountInCents = event.AmountInCents
		entry.Currency = event.Currency
		entry.LastModified = &now

		return s.put(c, entry)
	})
}

func (s *service) OnPaymentCompleted(c context.Context, topic string, event checkoutevents.PaymentCompleted) error {
	s.logger.Log(c, event.BasketUID, mylog.SeverityInfo, "Ledger: payment completed for basket %s with order %s", event.BasketUID, event.OrderID)

	now := s.nower.Now()

	return s.entryStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		entry, found, err := s.entryStore.Get(c, event.BasketUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("ledger entry for basket %s not found", event.BasketUID))
		}

		if entry.Status == statusCompleted {
			return nil
		}

		entry.Status = statusCompleted
		entry.MethodID = event.MethodID
		entry.OrderID = event.OrderID
		entry.AmountInCents = event.AmountInCents
		entry.Currency = event.Currency
		entry.LastModified = &now

		return s.put(c, entry)
	})
}

func (s *service) OnPaymentFailed(c context.Context, topic string, event checkoutevents.PaymentFailed) error {
	s.logger.Log(c, event.BasketUID, mylog.SeverityInfo, "Ledger: payment failed for basket %s (%s)", event.BasketUID, event.ErrorKind)

	now := s.nower.Now()

	return s.entryStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		entry, found, err := s.entryStore.Get(c, event.BasketUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("ledger entry for basket %s not found", event.BasketUID))
		}

		entry.Status = statusFailed
		entry.MethodID = event.MethodID
		entry.LastErrorKind = event.ErrorKind
		entry.FailedAttempts++
		entry.LastModified = &now

		return s.put(c, entry)
	})
}

func (s *service) put(c context.Context, entry Entry) error {
	err := s.entryStore.Put(c, entry.BasketUID, entry)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing ledger entry: %s", err))
	}
	return nil
}

func (s *service) listEntries(c context.Context) ([]Entry, error) {
	entries, err := s.entryStore.List(c)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error listing ledger entries: %s", err))
	}
	return entries, nil
}

func (s *service) listCompleted(c context.Context) ([]Entry, error) {
	entries, err := s.entryStore.Query(c, "Status", "=", statusCompleted, "BasketUID")
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error querying ledger entries: %s", err))
	}
	return entries, nil
}

func (s *service) getEntry(c context.Context, basketUID string) (Entry, error) {
	entry, found, err := s.entryStore.Get(c, basketUID)
	if err != nil {
		return Entry{}, myerrors.NewInternalError(fmt.Errorf("error fetching ledger entry %s: %s", basketUID, err))
	}
	if !found {
		return Entry{}, myerrors.NewNotFoundError(fmt.Errorf("ledger entry for basket %s not found", basketUID))
	}
	return entry, nil
}
