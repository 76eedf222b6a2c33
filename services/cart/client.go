package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MarcGrol/compositecheckout/lib/myhttpclient"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
)

//go:generate mockgen -source=client.go -package cart -destination client_mock.go BillingAPI
type BillingAPI interface {
	FetchCart(c context.Context, basketUID string) (ServerCart, error)
	CreateOrder(c context.Context, req OrderRequest) (OrderResponse, error)
}

type billingClient struct {
	baseURL string
	sender  myhttpclient.HTTPSender
}

func NewBillingAPI(baseURL string, sender myhttpclient.HTTPSender) BillingAPI {
	return &billingClient{
		baseURL: baseURL,
		sender:  sender,
	}
}

func (bc *billingClient) FetchCart(c context.Context, basketUID string) (ServerCart, error) {
	status, respPayload, err := bc.sender.Send(c, http.MethodGet, fmt.Sprintf("%s/cart/%s", bc.baseURL, basketUID), nil)
	if err != nil {
		return ServerCart{}, &checkouterrors.NetworkError{Message: fmt.Sprintf("error fetching cart %s: %s", basketUID, err)}
	}
	if status != http.StatusOK {
		return ServerCart{}, translateErrorBody(status, respPayload)
	}

	serverCart := ServerCart{}
	err = json.Unmarshal(respPayload, &serverCart)
	if err != nil {
		return ServerCart{}, &checkouterrors.NetworkError{Message: fmt.Sprintf("error parsing cart %s: %s", basketUID, err)}
	}

	return serverCart, nil
}

func (bc *billingClient) CreateOrder(c context.Context, req OrderRequest) (OrderResponse, error) {
	reqPayload, err := json.Marshal(req)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("error marshalling order request: %s", err)
	}

	status, respPayload, err := bc.sender.Send(c, http.MethodPost, fmt.Sprintf("%s/order", bc.baseURL), reqPayload)
	if err != nil {
		return OrderResponse{}, &checkouterrors.NetworkError{Message: fmt.Sprintf("error creating order for basket %s: %s", req.BasketUID, err)}
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return OrderResponse{}, translateErrorBody(status, respPayload)
	}

	orderResp := OrderResponse{}
	err = json.Unmarshal(respPayload, &orderResp)
	if err != nil {
		return OrderResponse{}, &checkouterrors.NetworkError{Message: fmt.Sprintf("error parsing order response for basket %s: %s", req.BasketUID, err)}
	}

	return orderResp, nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// translateErrorBody maps a backend error response onto the taxonomy: a 4xx
// with a parseable body is a rejection the shopper can act on, everything
// else is treated as a retryable transport failure.
func translateErrorBody(status int, payload []byte) error {
	if status >= http.StatusInternalServerError {
		return &checkouterrors.NetworkError{Message: fmt.Sprintf("backend unavailable (status %d)", status)}
	}

	body := errorBody{}
	err := json.Unmarshal(payload, &body)
	if err != nil || body.Message == "" {
		return &checkouterrors.NetworkError{Message: fmt.Sprintf("backend rejected request (status %d)", status)}
	}

	return &checkouterrors.ProviderError{
		ProviderCode: body.Code,
		Message:      body.Message,
	}
}
