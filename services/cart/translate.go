package cart

import (
	"strings"

	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
)

// billingClassToMethodID maps the backend's payment-method class identifiers
// to the canonical method ids. Identifiers missing from this table are
// silently dropped: the checkout degrades to fewer methods rather than fail.
var billingClassToMethodID = map[string]checkoutapi.PaymentMethodID{
	"billing-stripe-card":    checkoutapi.PaymentMethodCard,
	"billing-paypal-express": checkoutapi.PaymentMethodPayPal,
	"billing-ideal":          checkoutapi.PaymentMethodIdeal,
	"billing-web-payment":    checkoutapi.PaymentMethodApplePay,
}

// TranslateCart converts the backend cart representation into the canonical
// line-item model. Pure: no I/O, no mutation of its input.
//
// A synthetic tax line item is always appended, even when the tax amount is
// zero. Monetary totals are not validated against the sum of the items; that
// is the backend's responsibility.
func TranslateCart(serverCart ServerCart) checkoutapi.Cart {
	items := make([]checkoutapi.LineItem, 0, len(serverCart.Products)+1)
	for _, product := range serverCart.Products {
		items = append(items, translateProduct(product))
	}

	items = append(items, checkoutapi.LineItem{
		UID:   "tax",
		Label: "Tax",
		Type:  checkoutapi.LineItemTypeTax,
		Amount: checkoutapi.Amount{
			Currency:     serverCart.Currency,
			Value:        serverCart.TotalTaxInteger,
			DisplayValue: serverCart.TotalTaxDisplay,
		},
	})

	allowed := make([]checkoutapi.PaymentMethodID, 0, len(serverCart.AllowedPaymentMethods))
	for _, class := range serverCart.AllowedPaymentMethods {
		id, known := billingClassToMethodID[class]
		if !known {
			continue
		}
		allowed = append(allowed, id)
	}

	return checkoutapi.Cart{
		Items: items,
		Total: checkoutapi.Amount{
			Currency:     serverCart.Currency,
			Value:        serverCart.TotalCostInteger,
			DisplayValue: serverCart.TotalCostDisplay,
		},
		AllowedMethods: allowed,
	}
}

// DroppedPaymentMethodClasses reports the backend identifiers that
// TranslateCart would drop, so callers can log likely version skew.
func DroppedPaymentMethodClasses(serverCart ServerCart) []string {
	dropped := []string{}
	for _, class := range serverCart.AllowedPaymentMethods {
		if _, known := billingClassToMethodID[class]; !known {
			dropped = append(dropped, class)
		}
	}
	return dropped
}

func translateProduct(product ServerProduct) checkoutapi.LineItem {
	sublabel := ""
	if product.IsDomainRegistration {
		// domain registrations carry their registration metadata as sublabel
		sublabel = product.Meta
	}

	return checkoutapi.LineItem{
		UID:      product.UID,
		Label:    product.ProductName,
		Sublabel: sublabel,
		Type:     classifyProduct(product),
		Amount: checkoutapi.Amount{
			Currency:     product.Currency,
			Value:        product.ItemSubtotalInteger,
			DisplayValue: product.ItemSubtotalDisplay,
		},
	}
}

func classifyProduct(product ServerProduct) checkoutapi.LineItemType {
	if product.IsDomainRegistration {
		return checkoutapi.LineItemTypeDomain
	}
	if strings.Contains(product.ProductSlug, "plan") {
		return checkoutapi.LineItemTypePlan
	}
	return checkoutapi.LineItemTypeOther
}
