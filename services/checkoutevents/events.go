package checkoutevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MarcGrol/compositecheckout/lib/myerrors"
	"github.com/MarcGrol/compositecheckout/lib/myevents"
)

const (
	TopicName            = "checkout"
	checkoutStartedName  = TopicName + ".started"
	paymentCompletedName = TopicName + ".paymentCompleted"
	paymentFailedName    = TopicName + ".paymentFailed"
)

type CheckoutEventService interface {
	Subscribe(c context.Context) error
	OnCheckoutStarted(c context.Context, topic string, event CheckoutStarted) error
	OnPaymentCompleted(c context.Context, topic string, event PaymentCompleted) error
	OnPaymentFailed(c context.Context, topic string, event PaymentFailed) error
}

func DispatchEvent(c context.Context, reader io.Reader, service CheckoutEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case checkoutStartedName:
		event := CheckoutStarted{}
		err := json.Unmarshal([]byte(envelope.EventPayload), &event)
		if err != nil {
			return myerrors.NewInvalidInputError(err)
		}
		return service.OnCheckoutStarted(c, envelope.Topic, event)

	case paymentCompletedName:
		event := PaymentCompleted{}
		err := json.Unmarshal([]byte(envelope.EventPayload), &event)
		if err != nil {
			return myerrors.NewInvalidInputError(err)
		}
		return service.OnPaymentCompleted(c, envelope.Topic, event)

	case paymentFailedName:
		event := PaymentFailed{}
		err := json.Unmarshal([]byte(envelope.EventPayload), &event)
		if err != nil {
			return myerrors.NewInvalidInputError(err)
		}
		return service.OnPaymentFailed(c, envelope.Topic, event)

	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("unknown event %s", envelope.EventTypeName))
	}
}

type CheckoutStarted struct {
	BasketUID     string
	AmountInCents int64
	Currency      string
	MethodCount   int
}

func (e CheckoutStarted) GetEventTypeName() string {
	return checkoutStartedName
}

func (e CheckoutStarted) GetAggregateName() string {
	return e.BasketUID
}

type PaymentCompleted struct {
	BasketUID     string
	MethodID      string
	OrderID       string
	AmountInCents int64
	Currency      string
	Attempt       int
}

func (e PaymentCompleted) GetEventTypeName() string {
	return paymentCompletedName
}

func (e PaymentCompleted) GetAggregateName() string {
	return e.BasketUID
}

type PaymentFailed struct {
	BasketUID string
	MethodID  string
	ErrorKind string
	Attempt   int
}

func (e PaymentFailed) GetEventTypeName() string {
	return paymentFailedName
}

func (e PaymentFailed) GetAggregateName() string {
	return e.BasketUID
}
