package checkoutstripe

import (
	"context"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v74"
	stripeclient "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/paymentmethod"

	"github.com/MarcGrol/compositecheckout/lib/myuuid"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
)

//go:generate mockgen -source=payer.go -package checkoutstripe -destination payer_mock.go Payer
type Payer interface {
	UseApiKey(key string)
	CreatePaymentMethod(ctx context.Context, card checkoutapi.CardFields, billing checkoutapi.BillingContact) (string, error)
	ConfirmCardSetup(ctx context.Context, publicKey string, clientSecret string) (string, error)
}

type stripePayer struct {
	uuider myuuid.UUIDer
}

func NewPayer() Payer {
	return &stripePayer{
		uuider: myuuid.RealUUIDer{},
	}
}

func (p *stripePayer) UseApiKey(apiKey string) {
	stripe.Key = apiKey
}

func (p *stripePayer) CreatePaymentMethod(ctx context.Context, card checkoutapi.CardFields, billing checkoutapi.BillingContact) (string, error) {
	expMonth, _ := strconv.ParseInt(card.ExpiryMonth, 10, 64)
	expYear, _ := strconv.ParseInt(card.ExpiryYear, 10, 64)

	method, err := paymentmethod.New(&stripe.PaymentMethodParams{
		Params: stripe.Params{
			// a fresh key per tokenize call, retries within the SDK reuse it
			IdempotencyKey: stripe.String(p.uuider.Create()),
		},
		Type: stripe.String("card"),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.Int64(expMonth),
			ExpYear:  stripe.Int64(expYear),
			CVC:      stripe.String(card.CVC),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Name:  stripe.String(billing.Name),
			Email: stripe.String(billing.Email),
			Address: &stripe.AddressParams{
				Country:    stripe.String(billing.Country),
				PostalCode: stripe.String(billing.PostalCode),
				City:       stripe.String(billing.City),
				Line1:      stripe.String(billing.Street),
			},
		},
	})
	if err != nil {
		return "", err
	}

	return method.ID, nil
}

// ConfirmCardSetup confirms the setup intent announced in the provider
// configuration. A separate client authenticated with the publishable key is
// used: this is the step the embedded provider fields would perform in the
// shopper's browser.
func (p *stripePayer) ConfirmCardSetup(ctx context.Context, publicKey string, clientSecret string) (string, error) {
	sc := &stripeclient.API{}
	sc.Init(publicKey, nil)

	intent, err := sc.SetupIntents.Confirm(intentIDFromSecret(clientSecret), &stripe.SetupIntentConfirmParams{
		ClientSecret: stripe.String(clientSecret),
	})
	if err != nil {
		return "", err
	}

	return string(intent.Status), nil
}

// intentIDFromSecret derives the intent id from a client secret like
// "seti_123_secret_456".
func intentIDFromSecret(clientSecret string) string {
	return strings.SplitN(clientSecret, "_secret", 2)[0]
}
