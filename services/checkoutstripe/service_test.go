package checkoutstripe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/compositecheckout/lib/myvault"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
	"github.com/MarcGrol/compositecheckout/services/paymentmethods"
)

var exampleSubmitRequest = paymentmethods.SubmitRequest{
	BasketUID: "123",
	Attempt:   1,
	Billing: checkoutapi.BillingContact{
		Name:    "Marc",
		Email:   "marc@home.nl",
		Country: "NL",
	},
	Card: checkoutapi.CardFields{
		HolderName:  "M GROL",
		Number:      "4242424242424242",
		ExpiryMonth: "03",
		ExpiryYear:  "2030",
		CVC:         "123",
	},
}

func TestSubmitHappyFlow(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	service, payer, fetcher, _, cleanup := setup(t, ctrl)
	defer cleanup()

	fetcher.EXPECT().FetchConfiguration(gomock.Any(), gomock.Any()).
		Return(ProviderConfiguration{PublicKey: "pk_test_1"}, nil)
	payer.EXPECT().UseApiKey("sk_test_static")
	payer.EXPECT().CreatePaymentMethod(gomock.Any(), exampleSubmitRequest.Card, exampleSubmitRequest.Billing).
		Return("pm_123", nil)

	// when
	result, err := service.Submit(c, exampleSubmitRequest)

	// then
	assert.NoError(t, err)
	assert.Equal(t, "pm_123", result.PaymentToken)
	assert.Empty(t, result.RedirectURL)
}

func TestSubmitWithConfirmation(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given: the configuration announces a setup intent to confirm
	service, payer, fetcher, _, cleanup := setup(t, ctrl)
	defer cleanup()

	fetcher.EXPECT().FetchConfiguration(gomock.Any(), gomock.Any()).
		Return(ProviderConfiguration{PublicKey: "pk_test_1", SetupIntentSecret: "seti_1_secret_a"}, nil)
	payer.EXPECT().UseApiKey("sk_test_static")
	payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("pm_123", nil)
	payer.EXPECT().ConfirmCardSetup(gomock.Any(), "pk_test_1", "seti_1_secret_a").
		Return("succeeded", nil)

	// when
	result, err := service.Submit(c, exampleSubmitRequest)

	// then
	assert.NoError(t, err)
	assert.Equal(t, "pm_123", result.PaymentToken)
}

func TestTokenizeValidationErrorMapsToField(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	service, payer, fetcher, _, cleanup := setup(t, ctrl)
	defer cleanup()

	fetcher.EXPECT().FetchConfiguration(gomock.Any(), gomock.Any()).
		Return(ProviderConfiguration{PublicKey: "pk_test_1"}, nil)
	payer.EXPECT().UseApiKey(gomock.Any())
	payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", &stripe.Error{
			Type: stripe.ErrorType("validation_error"),
			Code: stripe.ErrorCode("incomplete_number"),
			Msg:  "Your card number is incomplete.",
		})

	// when
	_, err := service.Submit(c, exampleSubmitRequest)

	// then: the shopper is pointed at the card number field
	assert.Error(t, err)
	assert.Equal(t, "validation", checkouterrors.Kind(err))
	var validationErr *checkouterrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, []string{"Your card number is incomplete."}, validationErr.FieldErrors["card_number"])
}

func TestTokenizeUnknownCodeDegradesToProviderError(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	service, payer, fetcher, _, cleanup := setup(t, ctrl)
	defer cleanup()

	fetcher.EXPECT().FetchConfiguration(gomock.Any(), gomock.Any()).
		Return(ProviderConfiguration{PublicKey: "pk_test_1"}, nil)
	payer.EXPECT().UseApiKey(gomock.Any())
	payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", &stripe.Error{
			Type: stripe.ErrorTypeCard,
			Code: stripe.ErrorCode("card_declined"),
			Msg:  "Your card was declined.",
		})

	// when
	_, err := service.Submit(c, exampleSubmitRequest)

	// then: an unmapped code never panics, it surfaces as a provider rejection
	assert.Error(t, err)
	assert.Equal(t, "provider", checkouterrors.Kind(err))
	var providerErr *checkouterrors.ProviderError
	assert.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "card_declined", providerErr.ProviderCode)
	assert.Equal(t, checkouterrors.StepTokenize, providerErr.Step)
}

func TestConfirmFailureIsDistinctFromTokenizeFailure(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given: tokenization succeeds but the step-up confirmation is rejected
	service, payer, fetcher, _, cleanup := setup(t, ctrl)
	defer cleanup()

	fetcher.EXPECT().FetchConfiguration(gomock.Any(), gomock.Any()).
		Return(ProviderConfiguration{PublicKey: "pk_test_1", SetupIntentSecret: "seti_1_secret_a"}, nil)
	payer.EXPECT().UseApiKey(gomock.Any())
	payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("pm_123", nil)
	payer.EXPECT().ConfirmCardSetup(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", &stripe.Error{
			Type: stripe.ErrorTypeInvalidRequest,
			Code: stripe.ErrorCode("setup_intent_authentication_failure"),
			Msg:  "The provided payment method failed authentication.",
		})

	// when
	_, err := service.Submit(c, exampleSubmitRequest)

	// then
	assert.Error(t, err)
	var providerErr *checkouterrors.ProviderError
	assert.True(t, errors.As(err, &providerErr))
	assert.Equal(t, checkouterrors.StepConfirm, providerErr.Step)
}

func TestStaleIntentTriggersConfigurationReload(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given: the cached setup intent has expired on the provider side
	service, payer, fetcher, _, cleanup := setup(t, ctrl)
	defer cleanup()

	fetcher.EXPECT().FetchConfiguration(gomock.Any(), gomock.Any()).
		Return(ProviderConfiguration{PublicKey: "pk_test_1", SetupIntentSecret: "seti_1_secret_a"}, nil)
	payer.EXPECT().UseApiKey(gomock.Any())
	payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("pm_123", nil)
	payer.EXPECT().ConfirmCardSetup(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", &stripe.Error{
			Type: stripe.ErrorTypeInvalidRequest,
			Code: stripe.ErrorCodeResourceMissing,
			Msg:  "No such setupintent",
		})

	// when
	_, err := service.Submit(c, exampleSubmitRequest)

	// then: the next submit attempt will fetch a fresh configuration
	assert.Error(t, err)
	assert.Equal(t, 2, service.configCache.Attempt())
}

func TestStaleAttemptResultIsDiscarded(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given: a reload happens while the tokenization call is in flight
	service, payer, fetcher, _, cleanup := setup(t, ctrl)
	defer cleanup()

	fetcher.EXPECT().FetchConfiguration(gomock.Any(), gomock.Any()).
		Return(ProviderConfiguration{PublicKey: "pk_test_1"}, nil)
	payer.EXPECT().UseApiKey(gomock.Any())
	payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, card checkoutapi.CardFields, billing checkoutapi.BillingContact) (string, error) {
			service.configCache.ForceReload()
			return "pm_123", nil
		})

	// when
	_, err := service.Submit(c, exampleSubmitRequest)

	// then: the token obtained under the dead attempt never completes the
	// submit
	assert.Error(t, err)
	assert.Equal(t, "network", checkouterrors.Kind(err))
}

func TestVaultCredentialsPreferredOverStaticKey(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	service, payer, fetcher, vault, cleanup := setup(t, ctrl)
	defer cleanup()

	err := vault.Put(c, CredentialsKeyName, myvault.Credentials{
		ProviderName: "stripe",
		APIKey:       "sk_from_vault",
	})
	assert.NoError(t, err)

	fetcher.EXPECT().FetchConfiguration(gomock.Any(), gomock.Any()).
		Return(ProviderConfiguration{PublicKey: "pk_test_1"}, nil)
	payer.EXPECT().UseApiKey("sk_from_vault")
	payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("pm_123", nil)

	// when
	result, err := service.Submit(c, exampleSubmitRequest)

	// then
	assert.NoError(t, err)
	assert.Equal(t, "pm_123", result.PaymentToken)
}

func TestDescriptor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, _, _, _, cleanup := setup(t, ctrl)
	defer cleanup()

	descriptor := service.Descriptor()
	assert.Equal(t, checkoutapi.PaymentMethodCard, descriptor.ID)
	assert.True(t, descriptor.Capabilities.HasUI)
	assert.True(t, descriptor.Capabilities.RequiresBillingContact)
	assert.False(t, descriptor.Capabilities.SupportsRedirectFlow)
	assert.NotNil(t, descriptor.Submitter)
}

func setup(t *testing.T, ctrl *gomock.Controller) (*service, *MockPayer, *MockConfigFetcher, myvault.VaultReadWriter[myvault.Credentials], func()) {
	c := context.TODO()

	payer := NewMockPayer(ctrl)
	fetcher := NewMockConfigFetcher(ctrl)
	cache := NewConfigCache(fetcher, ConfigRequestArgs{})

	vault, cleanup, err := myvault.New[myvault.Credentials](c)
	assert.NoError(t, err)

	s := NewService("sk_test_static", payer, cache, vault)

	return s, payer, fetcher, vault, cleanup
}
