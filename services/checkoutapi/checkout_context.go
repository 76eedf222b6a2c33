package checkoutapi

import "time"

// CheckoutContext is the durable snapshot of a checkout session. It is stored
// on every transition so that redirect returns and reconcile tasks can pick
// up the session on another instance.
type CheckoutContext struct {
	BasketUID         string
	CreatedAt         time.Time
	LastModified      *time.Time
	Phase             string
	SelectedMethod    string
	Attempt           int
	OrderID           string
	ProviderReference string
	RedirectURL       string `datastore:",noindex"`
	OriginalReturnURL string `datastore:",noindex"`
	LastErrorKind     string
	LastErrorMessage  string `datastore:",noindex"`

	// billing details are kept so an order can still be created when the
	// shopper completes a redirect flow on another instance
	BillingName    string
	BillingEmail   string
	BillingCountry string
}
