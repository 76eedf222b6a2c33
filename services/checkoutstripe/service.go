package checkoutstripe

import (
	"context"
	"fmt"

	"github.com/MarcGrol/compositecheckout/lib/mylog"
	"github.com/MarcGrol/compositecheckout/lib/myvault"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
	"github.com/MarcGrol/compositecheckout/services/paymentmethods"
)

const CredentialsKeyName = "credentials_stripe"

type service struct {
	defaultAPIKey string
	payer         Payer
	configCache   *ConfigCache
	vault         myvault.VaultReader[myvault.Credentials]
	logger        mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(apiKey string, payer Payer, configCache *ConfigCache, vault myvault.VaultReader[myvault.Credentials]) *service {
	return &service{
		defaultAPIKey: apiKey,
		payer:         payer,
		configCache:   configCache,
		vault:         vault,
		logger:        mylog.New("checkoutstripe"),
	}
}

func (s *service) Descriptor() paymentmethods.Descriptor {
	return paymentmethods.Descriptor{
		ID: checkoutapi.PaymentMethodCard,
		Capabilities: paymentmethods.Capabilities{
			HasUI:                  true,
			RequiresBillingContact: true,
		},
		Submitter: s,
	}
}

func (s *service) Submit(c context.Context, req paymentmethods.SubmitRequest) (paymentmethods.SubmitResult, error) {
	s.logger.Log(c, req.BasketUID, mylog.SeverityInfo, "Submitting card payment for basket %s (attempt %d)", req.BasketUID, req.Attempt)

	s.setupAuthentication(c, req.BasketUID)

	config, attempt, err := s.configCache.Get(c)
	if err != nil {
		return paymentmethods.SubmitResult{}, err
	}

	token, err := s.payer.CreatePaymentMethod(c, req.Card, req.Billing)
	if err != nil {
		if indicatesStaleConfiguration(err) {
			s.configCache.ForceReload()
		}
		return paymentmethods.SubmitResult{}, translateTokenizeError(err)
	}

	if s.configCache.Attempt() != attempt {
		// tokenization raced a reload: the result belongs to a dead attempt
		// and must not complete the current one
		s.logger.Log(c, req.BasketUID, mylog.SeverityWarn, "Discarding token of stale attempt %d for basket %s", attempt, req.BasketUID)
		return paymentmethods.SubmitResult{}, &checkouterrors.NetworkError{Message: "payment configuration was reloaded during submit"}
	}

	if config.SetupIntentSecret != "" {
		status, err := s.payer.ConfirmCardSetup(c, config.PublicKey, config.SetupIntentSecret)
		if err != nil {
			if indicatesStaleConfiguration(err) {
				s.configCache.ForceReload()
			}
			return paymentmethods.SubmitResult{}, translateConfirmError(err)
		}
		if status != "succeeded" {
			return paymentmethods.SubmitResult{}, &checkouterrors.ProviderError{
				Step:    checkouterrors.StepConfirm,
				Message: fmt.Sprintf("card confirmation ended in status '%s'", status),
			}
		}
	}

	s.logger.Log(c, req.BasketUID, mylog.SeverityInfo, "Tokenized card payment for basket %s", req.BasketUID)

	return paymentmethods.SubmitResult{PaymentToken: token}, nil
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
