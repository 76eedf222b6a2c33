package paymentmethods

import (
	"context"

	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
)

// Capabilities is the closed set of capability slots a payment method can
// declare. The method selector and the submit flow key off these.
type Capabilities struct {
	HasUI                  bool
	RequiresBillingContact bool
	SupportsRedirectFlow   bool
}

// SubmitRequest carries everything a method needs to produce a payment.
type SubmitRequest struct {
	BasketUID string
	Attempt   int
	Cart      checkoutapi.Cart
	Billing   checkoutapi.BillingContact
	Card      checkoutapi.CardFields
	ReturnURL string
}

// SubmitResult is either a provider token (tokenizing methods) or a redirect
// URL (redirect-flow methods), never both.
type SubmitResult struct {
	PaymentToken      string
	RedirectURL       string
	ProviderReference string
}

// PaymentStatus classifies the provider-side outcome of a redirect flow.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusExpired   PaymentStatus = "expired"
)

//go:generate mockgen -source=api.go -package paymentmethods -destination submitter_mock.go Submitter,StatusChecker
type Submitter interface {
	Submit(c context.Context, req SubmitRequest) (SubmitResult, error)
}

// StatusChecker is implemented by redirect-flow methods: after the shopper
// returns from the provider, the outcome has to be looked up server side.
type StatusChecker interface {
	CheckStatus(c context.Context, providerReference string) (PaymentStatus, error)
}

// Descriptor describes one registered payment method.
type Descriptor struct {
	ID           checkoutapi.PaymentMethodID
	Capabilities Capabilities
	Submitter    Submitter

	// StatusChecker is nil for methods that complete without a redirect.
	StatusChecker StatusChecker
}
