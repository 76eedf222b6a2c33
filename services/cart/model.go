package cart

// ServerCart is the raw cart representation as served by the billing backend.
type ServerCart struct {
	BasketUID             string          `json:"basket_uid"`
	Products              []ServerProduct `json:"products"`
	Currency              string          `json:"currency"`
	TotalTaxInteger       int64           `json:"total_tax_integer"`
	TotalTaxDisplay       string          `json:"total_tax_display"`
	TotalCostInteger      int64           `json:"total_cost_integer"`
	TotalCostDisplay      string          `json:"total_cost_display"`
	AllowedPaymentMethods []string        `json:"allowed_payment_methods"`
}

type ServerProduct struct {
	UID                  string `json:"uid"`
	ProductName          string `json:"product_name"`
	ProductSlug          string `json:"product_slug"`
	Currency             string `json:"currency"`
	ItemSubtotalInteger  int64  `json:"item_subtotal_integer"`
	ItemSubtotalDisplay  string `json:"item_subtotal_display"`
	IsDomainRegistration bool   `json:"is_domain_registration"`
	Meta                 string `json:"meta"`
}

// OrderRequest is posted to the billing backend once a payment token exists.
type OrderRequest struct {
	BasketUID       string `json:"basket_uid"`
	PaymentMethodID string `json:"payment_method_id"`
	PaymentToken    string `json:"payment_token"`
	BillingName     string `json:"billing_name"`
	BillingEmail    string `json:"billing_email"`
	BillingCountry  string `json:"billing_country"`
}

type OrderResponse struct {
	OrderID     string            `json:"order_id"`
	ReceiptData map[string]string `json:"receipt_data"`
}
