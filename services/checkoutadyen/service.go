package checkoutadyen

import (
	"context"
	"fmt"

	"github.com/adyen/adyen-go-api-library/v6/src/checkout"

	"github.com/MarcGrol/compositecheckout/lib/mylog"
	"github.com/MarcGrol/compositecheckout/lib/myvault"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
	"github.com/MarcGrol/compositecheckout/services/paymentmethods"
)

const CredentialsKeyName = "credentials_adyen"

type service struct {
	defaultAPIKey   string
	merchantAccount string
	countryCode     string
	payer           Payer
	vault           myvault.VaultReader[myvault.Credentials]
	logger          mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(apiKey string, merchantAccount string, countryCode string, payer Payer, vault myvault.VaultReader[myvault.Credentials]) *service {
	return &service{
		defaultAPIKey:   apiKey,
		merchantAccount: merchantAccount,
		countryCode:     countryCode,
		payer:           payer,
		vault:           vault,
		logger:          mylog.New("checkoutadyen"),
	}
}

func (s *service) Descriptor() paymentmethods.Descriptor {
	return paymentmethods.Descriptor{
		ID: checkoutapi.PaymentMethodIdeal,
		Capabilities: paymentmethods.Capabilities{
			SupportsRedirectFlow: true,
		},
		Submitter: s,
	}
}

// Submit creates a pay-by-link payment restricted to ideal and hands back
// the hosted page url.
func (s *service) Submit(c context.Context, req paymentmethods.SubmitRequest) (paymentmethods.SubmitResult, error) {
	s.logger.Log(c, req.BasketUID, mylog.SeverityInfo, "Starting ideal payment for basket %s (attempt %d)", req.BasketUID, req.Attempt)

	s.setupAuthentication(c, req.BasketUID)

	resp, err := s.payer.CreatePayByLink(c, checkout.CreatePaymentLinkRequest{
		Amount: checkout.Amount{
			Currency: req.Cart.Total.Currency,
			Value:    req.Cart.Total.Value,
		},
		MerchantAccount:        s.merchantAccount,
		Reference:              fmt.Sprintf("%s-%d", req.BasketUID, req.Attempt),
		MerchantOrderReference: req.BasketUID,
		ReturnUrl:              req.ReturnURL,
		CountryCode:            s.countryCode,
		AllowedPaymentMethods:  []string{"ideal"},
	})
	if err != nil {
		return paymentmethods.SubmitResult{}, &checkouterrors.ProviderError{
			Step:    checkouterrors.StepRedirect,
			Message: fmt.Sprintf("error creating pay-by-link: %s", err),
		}
	}

	s.logger.Log(c, req.BasketUID, mylog.SeverityInfo, "Created pay-by-link %s for basket %s", resp.Id, req.BasketUID)

	return paymentmethods.SubmitResult{
		RedirectURL:       resp.Url,
		ProviderReference: resp.Id,
	}, nil
}

func (s *service) setupAuthentication(c context.Context, basketUID string) {
	credentials, exists, err := s.vault.Get(c, CredentialsKeyName)
	if err != nil || !exists || credentials.APIKey == "" {
		s.logger.Log(c, basketUID, mylog.SeverityInfo, "No provider credentials in vault, using static api key")
		s.payer.UseApiKey(s.defaultAPIKey)
		return
	}
	s.payer.UseApiKey(credentials.APIKey)
}
