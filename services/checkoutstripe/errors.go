package checkoutstripe

import (
	"errors"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
)

// fieldForValidationCode maps provider validation codes onto the card input
// field the shopper has to correct.
func fieldForValidationCode(code string) (string, bool) {
	switch code {
	case "incomplete_number", "invalid_number", "incorrect_number":
		return "card_number", true
	case "incomplete_cvc", "invalid_cvc", "incorrect_cvc":
		return "card_cvc", true
	case "incomplete_expiry", "invalid_expiry_month", "invalid_expiry_year", "invalid_expiry":
		return "card_expiry", true
	}
	return "", false
}

func translateTokenizeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &checkouterrors.NetworkError{Message: err.Error()}
	}

	code := string(stripeErr.Code)
	if stripeErr.Type == "validation_error" || stripeErr.Type == stripe.ErrorTypeCard {
		if field, known := fieldForValidationCode(code); known {
			return &checkouterrors.ValidationError{
				FieldErrors: map[string][]string{field: {stripeErr.Msg}},
			}
		}
	}

	// unknown codes degrade to a generic provider rejection, never a crash
	return &checkouterrors.ProviderError{
		ProviderCode: code,
		Step:         checkouterrors.StepTokenize,
		Message:      stripeErr.Msg,
	}
}

func translateConfirmError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &checkouterrors.NetworkError{Message: err.Error()}
	}

	return &checkouterrors.ProviderError{
		ProviderCode: string(stripeErr.Code),
		Step:         checkouterrors.StepConfirm,
		Message:      stripeErr.Msg,
	}
}

// indicatesStaleConfiguration recognizes rejections caused by an outdated
// provider configuration, typically an expired or consumed setup intent.
func indicatesStaleConfiguration(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}

	switch stripeErr.Code {
	case stripe.ErrorCodeResourceMissing,
		stripe.ErrorCodeSetupIntentAuthenticationFailure:
		return true
	}
	return false
}
