package checkoutadyen

import (
	"context"
	"strings"

	"github.com/adyen/adyen-go-api-library/v6/src/adyen"
	"github.com/adyen/adyen-go-api-library/v6/src/checkout"
	"github.com/adyen/adyen-go-api-library/v6/src/common"
)

//go:generate mockgen -source=payer.go -package checkoutadyen -destination payer_mock.go Payer
type Payer interface {
	UseApiKey(key string)
	CreatePayByLink(ctx context.Context, req checkout.CreatePaymentLinkRequest) (checkout.PaymentLinkResponse, error)
}

type adyenPayer struct {
	client *adyen.APIClient
}

func NewPayer(environment string, apiKey string) Payer {
	return &adyenPayer{
		client: adyen.NewClient(&common.Config{
			ApiKey:      apiKey,
			Environment: common.Environment(strings.ToUpper(environment)),
			Debug:       false,
		}),
	}
}

func (p *adyenPayer) UseApiKey(apiKey string) {
	p.client.GetConfig().ApiKey = apiKey
}

func (p *adyenPayer) CreatePayByLink(ctx context.Context, req checkout.CreatePaymentLinkRequest) (checkout.PaymentLinkResponse, error) {
	resp, _, err := p.client.Checkout.PaymentLinks(&req, ctx)
	if err != nil {
		return checkout.PaymentLinkResponse{}, err
	}
	return resp, nil
}
