package checkoutmollie

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"

	"github.com/MarcGrol/compositecheckout/lib/mylog"
	"github.com/MarcGrol/compositecheckout/lib/myvault"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
	"github.com/MarcGrol/compositecheckout/services/paymentmethods"
)

const CredentialsKeyName = "credentials_mollie"

type service struct {
	defaultAPIKey string
	payer         Payer
	vault         myvault.VaultReader[myvault.Credentials]
	logger        mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(apiKey string, payer Payer, vault myvault.VaultReader[myvault.Credentials]) *service {
	return &service{
		defaultAPIKey: apiKey,
		payer:         payer,
		vault:         vault,
		logger:        mylog.New("checkoutmollie"),
	}
}

func (s *service) Descriptor() paymentmethods.Descriptor {
	return paymentmethods.Descriptor{
		ID: checkoutapi.PaymentMethodPayPal,
		Capabilities: paymentmethods.Capabilities{
			SupportsRedirectFlow: true,
		},
		Submitter:     s,
		StatusChecker: s,
	}
}

// Submit initializes a payment on the mollie platform and hands back the
// hosted page the shopper must be redirected to.
func (s *service) Submit(c context.Context, req paymentmethods.SubmitRequest) (paymentmethods.SubmitResult, error) {
	s.logger.Log(c, req.BasketUID, mylog.SeverityInfo, "Starting paypal payment for basket %s (attempt %d)", req.BasketUID, req.Attempt)

	s.setupAuthentication(c, req.BasketUID)

	payment, err := s.payer.CreatePayment(c, mollie.Payment{
		Amount: &mollie.Amount{
			Currency: req.Cart.Total.Currency,
			Value:    amountAsDecimalString(req.Cart.Total.Value),
		},
		Description: describeCart(req.Cart),
		RedirectURL: req.ReturnURL,
		Method:      mollie.PayPal,
		Metadata: map[string]string{
			"basket_uid": req.BasketUID,
			"attempt":    strconv.Itoa(req.Attempt),
		},
	})
	if err != nil {
		return paymentmethods.SubmitResult{}, &checkouterrors.ProviderError{
			Step:    checkouterrors.StepRedirect,
			Message: fmt.Sprintf("error creating payment: %s", err),
		}
	}

	s.logger.Log(c, req.BasketUID, mylog.SeverityInfo, "Created paypal payment %s for basket %s", payment.ID, req.BasketUID)

	return paymentmethods.SubmitResult{
		RedirectURL:       payment.Links.Checkout.Href,
		ProviderReference: payment.ID,
	}, nil
}

// CheckStatus resolves the outcome of a redirect payment, both when the
// shopper returns and when a reconcile task fires.
func (s *service) CheckStatus(c context.Context, providerReference string) (paymentmethods.PaymentStatus, error) {
	s.setupAuthentication(c, providerReference)

	payment, err := s.payer.GetPaymentOnID(c, providerReference)
	if err != nil {
		return paymentmethods.PaymentStatusPending, &checkouterrors.NetworkError{
			Message: fmt.Sprintf("error getting payment %s: %s", providerReference, err),
		}
	}

	return classifyStatus(payment.Status), nil
}

func (s *service) setupAuthentication(c context.Context, traceLabel string) {
	credentials, exists, err := s.vault.Get(c, CredentialsKeyName)
	if err != nil || !exists || credentials.APIKey == "" {
		s.logger.Log(c, traceLabel, mylog.SeverityInfo, "No provider credentials in vault, using static api key")
		s.payer.UseAPIKey(s.defaultAPIKey)
		return
	}
	s.payer.UseAPIKey(credentials.APIKey)
}

func classifyStatus(mollieStatus string) paymentmethods.PaymentStatus {
	switch mollieStatus {
	case "paid":
		return paymentmethods.PaymentStatusSucceeded
	case "canceled":
		return paymentmethods.PaymentStatusCancelled
	case "failed":
		return paymentmethods.PaymentStatusFailed
	case "expired":
		return paymentmethods.PaymentStatusExpired
	default:
		return paymentmethods.PaymentStatusPending
	}
}

// amountAsDecimalString renders minor units the way the mollie api expects
// them, e.g. 9900 -> "99.00".
func amountAsDecimalString(valueInCents int64) string {
	return fmt.Sprintf("%d.%02d", valueInCents/100, valueInCents%100)
}

func describeCart(cart checkoutapi.Cart) string {
	labels := []string{}
	for _, item := range cart.Items {
		if item.Type == checkoutapi.LineItemTypeTax {
			continue
		}
		labels = append(labels, item.Label)
	}
	return strings.Join(labels, ", ")
}
