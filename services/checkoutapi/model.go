package checkoutapi

// PaymentMethodID identifies a payment method as shown in the method selector.
type PaymentMethodID string

const (
	PaymentMethodCard     PaymentMethodID = "card"
	PaymentMethodPayPal   PaymentMethodID = "paypal"
	PaymentMethodIdeal    PaymentMethodID = "ideal"
	PaymentMethodApplePay PaymentMethodID = "apple-pay"
)

// Amount carries both the authoritative integer amount in minor units and a
// presentation-only display string. The display string must never be parsed
// back into a number.
type Amount struct {
	Currency     string
	Value        int64
	DisplayValue string
}

type LineItemType string

const (
	LineItemTypePlan   LineItemType = "plan"
	LineItemTypeDomain LineItemType = "domain"
	LineItemTypeTax    LineItemType = "tax"
	LineItemTypeOther  LineItemType = "other"
)

// LineItem is one priced entry in a cart. Immutable once translated.
type LineItem struct {
	UID      string
	Label    string
	Sublabel string
	Type     LineItemType
	Amount   Amount
}

// Cart is the canonical line-item model consumed by the checkout. A cart is
// built once per session and replaced wholesale on mutation, never patched.
type Cart struct {
	Items          []LineItem
	Total          Amount
	AllowedMethods []PaymentMethodID
}

func (c Cart) Allows(id PaymentMethodID) bool {
	for _, m := range c.AllowedMethods {
		if m == id {
			return true
		}
	}
	return false
}

// BillingContact holds the data not gathered by the provider's embedded fields.
type BillingContact struct {
	Name       string `form:"name"`
	Email      string `form:"email"`
	Country    string `form:"country"`
	PostalCode string `form:"postalCode"`
	City       string `form:"city"`
	Street     string `form:"street"`
}

// CardFields is the card input forwarded to the provider for tokenization.
type CardFields struct {
	HolderName  string `form:"holderName"`
	Number      string `form:"number"`
	ExpiryMonth string `form:"expiryMonth"`
	ExpiryYear  string `form:"expiryYear"`
	CVC         string `form:"cvc"`
}
