package checkoutmollie

import (
	"context"
	"errors"
	"testing"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/compositecheckout/lib/myvault"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
	"github.com/MarcGrol/compositecheckout/services/paymentmethods"
)

var exampleSubmitRequest = paymentmethods.SubmitRequest{
	BasketUID: "123",
	Attempt:   1,
	Cart: checkoutapi.Cart{
		Items: []checkoutapi.LineItem{
			{UID: "p1", Label: "Business plan", Type: checkoutapi.LineItemTypePlan,
				Amount: checkoutapi.Amount{Currency: "EUR", Value: 9900}},
			{UID: "tax", Label: "Tax", Type: checkoutapi.LineItemTypeTax,
				Amount: checkoutapi.Amount{Currency: "EUR", Value: 2079}},
		},
		Total: checkoutapi.Amount{Currency: "EUR", Value: 11979},
	},
	ReturnURL: "https://shop.example.com/basket/123/checkout/completed",
}

func TestSubmitReturnsRedirect(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	service, payer, cleanup := setup(t, ctrl)
	defer cleanup()

	payer.EXPECT().UseAPIKey("static_mollie_key")
	payer.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, request mollie.Payment) (mollie.Payment, error) {
			assert.Equal(t, "EUR", request.Amount.Currency)
			assert.Equal(t, "119.79", request.Amount.Value)
			assert.Equal(t, "Business plan", request.Description)
			assert.Equal(t, mollie.PayPal, request.Method)
			assert.Equal(t, "https://shop.example.com/basket/123/checkout/completed", request.RedirectURL)

			return mollie.Payment{
				ID: "tr_123",
				Links: mollie.PaymentLinks{
					Checkout: &mollie.URL{Href: "https://www.mollie.com/checkout/select-issuer/tr_123"},
				},
			}, nil
		})

	// when
	result, err := service.Submit(c, exampleSubmitRequest)

	// then
	assert.NoError(t, err)
	assert.Equal(t, "https://www.mollie.com/checkout/select-issuer/tr_123", result.RedirectURL)
	assert.Equal(t, "tr_123", result.ProviderReference)
	assert.Empty(t, result.PaymentToken)
}

func TestSubmitCreateFailure(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	service, payer, cleanup := setup(t, ctrl)
	defer cleanup()

	payer.EXPECT().UseAPIKey(gomock.Any())
	payer.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).
		Return(mollie.Payment{}, errors.New("amount too low"))

	// when
	_, err := service.Submit(c, exampleSubmitRequest)

	// then
	assert.Error(t, err)
	assert.Equal(t, "provider", checkouterrors.Kind(err))
	var providerErr *checkouterrors.ProviderError
	assert.True(t, errors.As(err, &providerErr))
	assert.Equal(t, checkouterrors.StepRedirect, providerErr.Step)
}

func TestCheckStatus(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	service, payer, cleanup := setup(t, ctrl)
	defer cleanup()

	payer.EXPECT().UseAPIKey(gomock.Any()).AnyTimes()
	payer.EXPECT().GetPaymentOnID(gomock.Any(), "tr_123").
		Return(mollie.Payment{ID: "tr_123", Status: "paid"}, nil)

	// when
	status, err := service.CheckStatus(c, "tr_123")

	// then
	assert.NoError(t, err)
	assert.Equal(t, paymentmethods.PaymentStatusSucceeded, status)
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, paymentmethods.PaymentStatusSucceeded, classifyStatus("paid"))
	assert.Equal(t, paymentmethods.PaymentStatusCancelled, classifyStatus("canceled"))
	assert.Equal(t, paymentmethods.PaymentStatusFailed, classifyStatus("failed"))
	assert.Equal(t, paymentmethods.PaymentStatusExpired, classifyStatus("expired"))
	assert.Equal(t, paymentmethods.PaymentStatusPending, classifyStatus("open"))
}

func TestAmountAsDecimalString(t *testing.T) {
	assert.Equal(t, "99.00", amountAsDecimalString(9900))
	assert.Equal(t, "0.05", amountAsDecimalString(5))
	assert.Equal(t, "119.79", amountAsDecimalString(11979))
}

func TestDescriptor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, _, cleanup := setup(t, ctrl)
	defer cleanup()

	descriptor := service.Descriptor()
	assert.Equal(t, checkoutapi.PaymentMethodPayPal, descriptor.ID)
	assert.True(t, descriptor.Capabilities.SupportsRedirectFlow)
	assert.False(t, descriptor.Capabilities.HasUI)
	assert.NotNil(t, descriptor.StatusChecker)
}

func setup(t *testing.T, ctrl *gomock.Controller) (*service, *MockPayer, func()) {
	c := context.TODO()

	payer := NewMockPayer(ctrl)

	vault, cleanup, err := myvault.New[myvault.Credentials](c)
	assert.NoError(t, err)

	s := NewService("static_mollie_key", payer, vault)

	return s, payer, cleanup
}
