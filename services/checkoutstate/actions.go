package checkoutstate

import (
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
)

// Action is the closed set of transitions accepted by the store.
type Action interface {
	actionName() string
}

// SelectMethod marks a payment method as the active one.
type SelectMethod struct {
	ID checkoutapi.PaymentMethodID
}

// ReplaceCart swaps in a freshly translated cart. Carts are replaced
// wholesale, never patched in place.
type ReplaceCart struct {
	Cart checkoutapi.Cart
}

// BeginSubmit starts a new submit attempt.
type BeginSubmit struct{}

// SubmitRedirect records that the provider wants the shopper redirected.
type SubmitRedirect struct {
	URL string
}

// SubmitSuccess ends the transaction successfully.
type SubmitSuccess struct {
	OrderID     string
	ReceiptData map[string]string
}

// SubmitFailure records a failed attempt. The shopper may retry.
type SubmitFailure struct {
	Err error
}

// Reset returns to the initial phase. It is the only legal way out of a
// successful transaction.
type Reset struct{}

func (a SelectMethod) actionName() string   { return "select-method" }
func (a ReplaceCart) actionName() string    { return "replace-cart" }
func (a BeginSubmit) actionName() string    { return "begin-submit" }
func (a SubmitRedirect) actionName() string { return "submit-redirect" }
func (a SubmitSuccess) actionName() string  { return "submit-success" }
func (a SubmitFailure) actionName() string  { return "submit-failure" }
func (a Reset) actionName() string          { return "reset" }
