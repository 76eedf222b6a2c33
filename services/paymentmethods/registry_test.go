package paymentmethods

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
)

type noopSubmitter struct{}

func (s noopSubmitter) Submit(c context.Context, req SubmitRequest) (SubmitResult, error) {
	return SubmitResult{PaymentToken: "tok_noop"}, nil
}

func descriptor(id checkoutapi.PaymentMethodID) Descriptor {
	return Descriptor{
		ID:        id,
		Submitter: noopSubmitter{},
		Capabilities: Capabilities{
			HasUI:                  true,
			RequiresBillingContact: true,
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(descriptor(checkoutapi.PaymentMethodCard))
	assert.NoError(t, err)

	got, err := registry.Get(checkoutapi.PaymentMethodCard)
	assert.NoError(t, err)
	assert.Equal(t, checkoutapi.PaymentMethodCard, got.ID)
}

func TestRegisterDuplicate(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(descriptor(checkoutapi.PaymentMethodCard))
	assert.NoError(t, err)

	err = registry.Register(descriptor(checkoutapi.PaymentMethodCard))
	assert.Error(t, err)
	assert.Equal(t, "duplicate_method", checkouterrors.Kind(err))
}

func TestRegisterIncompleteDescriptor(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(Descriptor{ID: checkoutapi.PaymentMethodCard})
	assert.Error(t, err)
}

func TestGetUnknown(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("bogus")
	assert.Error(t, err)
	assert.Equal(t, "unrecognized_method", checkouterrors.Kind(err))
}

func TestListForPreservesRegistrationOrder(t *testing.T) {
	registry := NewRegistry()

	assert.NoError(t, registry.Register(descriptor(checkoutapi.PaymentMethodCard)))
	assert.NoError(t, registry.Register(descriptor(checkoutapi.PaymentMethodPayPal)))
	assert.NoError(t, registry.Register(descriptor(checkoutapi.PaymentMethodIdeal)))

	cart := checkoutapi.Cart{
		AllowedMethods: []checkoutapi.PaymentMethodID{
			// cart order differs from registration order on purpose
			checkoutapi.PaymentMethodIdeal,
			checkoutapi.PaymentMethodCard,
		},
	}

	listed := registry.ListFor(cart)
	assert.Len(t, listed, 2)
	assert.Equal(t, checkoutapi.PaymentMethodCard, listed[0].ID)
	assert.Equal(t, checkoutapi.PaymentMethodIdeal, listed[1].ID)
}

func TestListForSkipsUnregisteredMethods(t *testing.T) {
	registry := NewRegistry()

	assert.NoError(t, registry.Register(descriptor(checkoutapi.PaymentMethodCard)))

	cart := checkoutapi.Cart{
		AllowedMethods: []checkoutapi.PaymentMethodID{
			checkoutapi.PaymentMethodCard,
			checkoutapi.PaymentMethodApplePay,
		},
	}

	listed := registry.ListFor(cart)
	assert.Len(t, listed, 1)
	assert.Equal(t, checkoutapi.PaymentMethodCard, listed[0].ID)
}
