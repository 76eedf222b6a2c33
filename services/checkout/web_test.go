package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/compositecheckout/lib/mypublisher"
	"github.com/MarcGrol/compositecheckout/lib/myqueue"
	"github.com/MarcGrol/compositecheckout/lib/mystore"
	"github.com/MarcGrol/compositecheckout/lib/mytime"
	"github.com/MarcGrol/compositecheckout/services/cart"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkoutevents"
	"github.com/MarcGrol/compositecheckout/services/paymentmethods"
)

var exampleServerCart = cart.ServerCart{
	BasketUID: "123",
	Products: []cart.ServerProduct{
		{
			UID:                 "p1",
			ProductName:         "Business plan",
			ProductSlug:         "business-plan",
			Currency:            "EUR",
			ItemSubtotalInteger: 9900,
			ItemSubtotalDisplay: "€99.00",
		},
	},
	Currency:         "EUR",
	TotalTaxInteger:  2079,
	TotalTaxDisplay:  "€20.79",
	TotalCostInteger: 11979,
	TotalCostDisplay: "€119.79",
	AllowedPaymentMethods: []string{
		"billing-stripe-card",
		"billing-paypal-express",
		"billing-web-payment",
		"billing-netbanking",
	},
}

const submitForm = `basketUid=123` +
	`&billing.name=Marc&billing.email=marc%40home.nl&billing.country=NL` +
	`&card.holderName=M+GROL&card.number=4242424242424242&card.expiryMonth=03&card.expiryYear=2030&card.cvc=123` +
	`&returnUrl=https%3A%2F%2Fshop.example.com%2Fbasket%2F123`

func TestCheckoutService(t *testing.T) {

	t.Run("Start checkout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		f.billingAPI.EXPECT().FetchCart(gomock.Any(), "123").Return(exampleServerCart, nil)
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			BasketUID:     "123",
			AmountInCents: 11979,
			Currency:      "EUR",
			MethodCount:   2,
		}).Return(nil)

		// when
		response := f.perform(http.MethodPost, "/checkout/123/start", "returnUrl=https://shop.example.com/basket/123")

		// then
		assert.Equal(t, 200, response.Code)
		resp := parseResponse(t, response)
		assert.Equal(t, "not-started", resp.Phase)
		assert.Zero(t, resp.Attempt)
		// apple-pay is allowed by the cart but nobody registered it
		assert.Len(t, resp.Methods, 2)
		assert.Equal(t, "card", resp.Methods[0].ID)
		assert.Equal(t, "paypal", resp.Methods[1].ID)

		stored, exists, _ := f.storer.Get(f.ctx, "123")
		assert.True(t, exists)
		assert.Equal(t, "not-started", stored.Phase)
		assert.Equal(t, "https://shop.example.com/basket/123", stored.OriginalReturnURL)
	})

	t.Run("Select method", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)

		// when
		response := f.perform(http.MethodPut, "/checkout/123/method/card", "")

		// then
		assert.Equal(t, 200, response.Code)
		resp := parseResponse(t, response)
		assert.Equal(t, "pending", resp.Phase)
		assert.Equal(t, "card", resp.SelectedMethod)
	})

	t.Run("Select method not allowed by cart", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)

		// when
		response := f.perform(http.MethodPut, "/checkout/123/method/ideal", "")

		// then
		assert.Equal(t, 400, response.Code)
	})

	t.Run("Submit tokenizing method creates order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)
		f.perform(http.MethodPut, "/checkout/123/method/card", "")

		// given
		f.cardSubmitter.EXPECT().Submit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(c context.Context, req paymentmethods.SubmitRequest) (paymentmethods.SubmitResult, error) {
				assert.Equal(t, "123", req.BasketUID)
				assert.Equal(t, 1, req.Attempt)
				assert.Equal(t, "4242424242424242", req.Card.Number)
				assert.Equal(t, "marc@home.nl", req.Billing.Email)
				return paymentmethods.SubmitResult{PaymentToken: "pm_123"}, nil
			})
		f.billingAPI.EXPECT().CreateOrder(gomock.Any(), cart.OrderRequest{
			BasketUID:       "123",
			PaymentMethodID: "card",
			PaymentToken:    "pm_123",
			BillingName:     "Marc",
			BillingEmail:    "marc@home.nl",
			BillingCountry:  "NL",
		}).Return(cart.OrderResponse{OrderID: "order-1", ReceiptData: map[string]string{"receipt": "r-1"}}, nil)
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.PaymentCompleted{
			BasketUID:     "123",
			MethodID:      "card",
			OrderID:       "order-1",
			AmountInCents: 11979,
			Currency:      "EUR",
			Attempt:       1,
		}).Return(nil)

		// when
		response := f.perform(http.MethodPost, "/checkout/123/submit", submitForm)

		// then
		assert.Equal(t, 200, response.Code)
		resp := parseResponse(t, response)
		assert.Equal(t, "success", resp.Phase)
		assert.Equal(t, "order-1", resp.OrderID)

		stored, _, _ := f.storer.Get(f.ctx, "123")
		assert.Equal(t, "success", stored.Phase)
		assert.Equal(t, "order-1", stored.OrderID)
	})

	t.Run("Submit with unrecognized method fails without starting an attempt", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)
		// apple-pay is allowed by the cart but was never registered
		f.perform(http.MethodPut, "/checkout/123/method/apple-pay", "")

		// given
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.PaymentFailed{
			BasketUID: "123",
			MethodID:  "apple-pay",
			ErrorKind: "unrecognized_method",
			Attempt:   0,
		}).Return(nil)

		// when
		response := f.perform(http.MethodPost, "/checkout/123/submit", submitForm)

		// then
		assert.Equal(t, 500, response.Code)

		status := f.perform(http.MethodGet, "/checkout/123", "")
		resp := parseResponse(t, status)
		assert.Equal(t, "failed", resp.Phase)
		assert.Equal(t, "unrecognized_method", resp.ErrorKind)
		assert.Zero(t, resp.Attempt)
	})

	t.Run("Submit redirect method hands off and schedules reconcile", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)
		f.perform(http.MethodPut, "/checkout/123/method/paypal", "")

		// given
		f.paypalSubmitter.EXPECT().Submit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(c context.Context, req paymentmethods.SubmitRequest) (paymentmethods.SubmitResult, error) {
				assert.Equal(t, "http://localhost:8888/checkout/123/completed", req.ReturnURL)
				return paymentmethods.SubmitResult{
					RedirectURL:       "https://pay.example.com/redirect/1",
					ProviderReference: "tr_1",
				}, nil
			})
		f.queuer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
			DoAndReturn(func(c context.Context, task myqueue.Task) error {
				assert.Equal(t, "123-1", task.UID)
				assert.Equal(t, "/checkout/123/reconcile/1", task.WebhookURLPath)
				return nil
			})

		// when
		response := f.perform(http.MethodPost, "/checkout/123/submit", submitForm)

		// then
		assert.Equal(t, 303, response.Code)
		assert.Equal(t, "https://pay.example.com/redirect/1", response.Header().Get("Location"))

		stored, _, _ := f.storer.Get(f.ctx, "123")
		assert.Equal(t, "redirect-pending", stored.Phase)
		assert.Equal(t, "tr_1", stored.ProviderReference)
		assert.Equal(t, "marc@home.nl", stored.BillingEmail)
	})

	t.Run("Redirect return completes the checkout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)
		f.perform(http.MethodPut, "/checkout/123/method/paypal", "")
		f.submitRedirect(t)

		// given: the provider is the authority on the outcome
		f.paypalChecker.EXPECT().CheckStatus(gomock.Any(), "tr_1").
			Return(paymentmethods.PaymentStatusSucceeded, nil)
		f.billingAPI.EXPECT().CreateOrder(gomock.Any(), cart.OrderRequest{
			BasketUID:       "123",
			PaymentMethodID: "paypal",
			PaymentToken:    "tr_1",
			BillingName:     "Marc",
			BillingEmail:    "marc@home.nl",
			BillingCountry:  "NL",
		}).Return(cart.OrderResponse{OrderID: "order-2"}, nil)
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.PaymentCompleted{
			BasketUID:     "123",
			MethodID:      "paypal",
			OrderID:       "order-2",
			AmountInCents: 11979,
			Currency:      "EUR",
			Attempt:       1,
		}).Return(nil)

		// when
		response := f.perform(http.MethodGet, "/checkout/123/completed?status=success", "")

		// then
		assert.Equal(t, 303, response.Code)
		assert.Equal(t, "https://shop.example.com/basket/123?status=success", response.Header().Get("Location"))

		stored, _, _ := f.storer.Get(f.ctx, "123")
		assert.Equal(t, "success", stored.Phase)
		assert.Equal(t, "order-2", stored.OrderID)
	})

	t.Run("Redirect return with cancelled payment fails the attempt", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)
		f.perform(http.MethodPut, "/checkout/123/method/paypal", "")
		f.submitRedirect(t)

		// given
		f.paypalChecker.EXPECT().CheckStatus(gomock.Any(), "tr_1").
			Return(paymentmethods.PaymentStatusCancelled, nil)
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.PaymentFailed{
			BasketUID: "123",
			MethodID:  "paypal",
			ErrorKind: "provider",
			Attempt:   1,
		}).Return(nil)

		// when
		response := f.perform(http.MethodGet, "/checkout/123/completed?status=cancelled", "")

		// then
		assert.Equal(t, 303, response.Code)
		assert.Equal(t, "https://shop.example.com/basket/123?status=failed", response.Header().Get("Location"))

		status := f.perform(http.MethodGet, "/checkout/123", "")
		resp := parseResponse(t, status)
		assert.Equal(t, "failed", resp.Phase)
		// the shopper can retry
		assert.Equal(t, 1, resp.Attempt)
	})

	t.Run("Reconcile of a stale attempt is a no-op", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)

		// when: attempt 5 never existed
		response := f.perform(http.MethodPost, "/checkout/123/reconcile/5", "")

		// then
		assert.Equal(t, 200, response.Code)
	})

	t.Run("Reconcile of a pending payment asks for retry", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)
		f.perform(http.MethodPut, "/checkout/123/method/paypal", "")
		f.submitRedirect(t)

		// given
		f.paypalChecker.EXPECT().CheckStatus(gomock.Any(), "tr_1").
			Return(paymentmethods.PaymentStatusPending, nil)

		// when
		response := f.perform(http.MethodPost, "/checkout/123/reconcile/1", "")

		// then: non-2xx makes the task queue redeliver later
		assert.Equal(t, 503, response.Code)
	})

	t.Run("Duplicate submit is absorbed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)
		f.perform(http.MethodPut, "/checkout/123/method/card", "")

		// given
		f.cardSubmitter.EXPECT().Submit(gomock.Any(), gomock.Any()).
			Return(paymentmethods.SubmitResult{PaymentToken: "pm_123"}, nil)
		f.billingAPI.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
			Return(cart.OrderResponse{OrderID: "order-1"}, nil)
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.Any()).Return(nil)
		f.perform(http.MethodPost, "/checkout/123/submit", submitForm)

		// when: submitting again after success
		response := f.perform(http.MethodPost, "/checkout/123/submit", submitForm)

		// then: no new attempt was started, no provider call was made
		assert.Equal(t, 200, response.Code)
		resp := parseResponse(t, response)
		assert.Equal(t, "success", resp.Phase)
		assert.Equal(t, 1, resp.Attempt)
	})

	t.Run("Reset during an in-flight submit discards the completion", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)
		f.perform(http.MethodPut, "/checkout/123/method/card", "")

		// given: the shopper resets while tokenization is in flight; no order
		// may be created for the token that comes back
		f.cardSubmitter.EXPECT().Submit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(c context.Context, req paymentmethods.SubmitRequest) (paymentmethods.SubmitResult, error) {
				resetResponse := f.perform(http.MethodPost, "/checkout/123/reset", "")
				assert.Equal(t, 200, resetResponse.Code)
				return paymentmethods.SubmitResult{PaymentToken: "pm_123"}, nil
			})

		// when
		response := f.perform(http.MethodPost, "/checkout/123/submit", submitForm)

		// then
		assert.Equal(t, 200, response.Code)
		resp := parseResponse(t, response)
		assert.Equal(t, "not-started", resp.Phase)
		assert.Equal(t, 1, resp.Attempt)

		stored, _, _ := f.storer.Get(f.ctx, "123")
		assert.Equal(t, "not-started", stored.Phase)
		assert.Empty(t, stored.OrderID)
	})

	t.Run("Simultaneous reconcile and redirect return create one order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)
		f.perform(http.MethodPut, "/checkout/123/method/paypal", "")
		f.submitRedirect(t)

		entered := make(chan struct{})
		release := make(chan struct{})

		// given: one status lookup, one order, one event
		f.paypalChecker.EXPECT().CheckStatus(gomock.Any(), "tr_1").
			DoAndReturn(func(c context.Context, ref string) (paymentmethods.PaymentStatus, error) {
				close(entered)
				<-release
				return paymentmethods.PaymentStatusSucceeded, nil
			})
		f.billingAPI.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
			Return(cart.OrderResponse{OrderID: "order-2"}, nil).Times(1)
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.Any()).Return(nil).Times(1)

		var wg sync.WaitGroup
		var reconcileResponse, completedResponse *httptest.ResponseRecorder

		wg.Add(1)
		go func() {
			defer wg.Done()
			reconcileResponse = f.perform(http.MethodPost, "/checkout/123/reconcile/1", "")
		}()

		// when: the shopper returns while the reconcile task is mid-lookup
		<-entered
		wg.Add(1)
		go func() {
			defer wg.Done()
			completedResponse = f.perform(http.MethodGet, "/checkout/123/completed?status=success", "")
		}()
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		// then
		assert.Equal(t, 200, reconcileResponse.Code)
		assert.Equal(t, 303, completedResponse.Code)
		assert.Equal(t, "https://shop.example.com/basket/123?status=success", completedResponse.Header().Get("Location"))

		stored, _, _ := f.storer.Get(f.ctx, "123")
		assert.Equal(t, "success", stored.Phase)
		assert.Equal(t, "order-2", stored.OrderID)
	})

	t.Run("Reset returns to initial phase keeping the cart", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)
		f.startCheckout(t)
		f.perform(http.MethodPut, "/checkout/123/method/card", "")

		// when
		response := f.perform(http.MethodPost, "/checkout/123/reset", "")

		// then
		assert.Equal(t, 200, response.Code)
		resp := parseResponse(t, response)
		assert.Equal(t, "not-started", resp.Phase)
		assert.Equal(t, int64(11979), resp.Cart.Total.Value)
	})

	t.Run("Status of unknown basket", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// when
		response := f.perform(http.MethodGet, "/checkout/999", "")

		// then
		assert.Equal(t, 404, response.Code)
	})
}

type fixture struct {
	ctx             context.Context
	router          *mux.Router
	storer          mystore.Store[checkoutapi.CheckoutContext]
	billingAPI      *cart.MockBillingAPI
	cardSubmitter   *paymentmethods.MockSubmitter
	paypalSubmitter *paymentmethods.MockSubmitter
	paypalChecker   *paymentmethods.MockStatusChecker
	queuer          *myqueue.MockTaskQueuer
	publisher       *mypublisher.MockPublisher
}

func setup(t *testing.T, ctrl *gomock.Controller) *fixture {
	c := context.TODO()

	storer, _, err := mystore.NewInMemoryStore[checkoutapi.CheckoutContext](c)
	assert.NoError(t, err)
	billingAPI := cart.NewMockBillingAPI(ctrl)
	cardSubmitter := paymentmethods.NewMockSubmitter(ctrl)
	paypalSubmitter := paymentmethods.NewMockSubmitter(ctrl)
	paypalChecker := paymentmethods.NewMockStatusChecker(ctrl)
	queuer := myqueue.NewMockTaskQueuer(ctrl)
	publisher := mypublisher.NewMockPublisher(ctrl)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	registry := paymentmethods.NewRegistry()
	err = registry.Register(paymentmethods.Descriptor{
		ID:           checkoutapi.PaymentMethodCard,
		Capabilities: paymentmethods.Capabilities{HasUI: true, RequiresBillingContact: true},
		Submitter:    cardSubmitter,
	})
	assert.NoError(t, err)
	err = registry.Register(paymentmethods.Descriptor{
		ID:            checkoutapi.PaymentMethodPayPal,
		Capabilities:  paymentmethods.Capabilities{SupportsRedirectFlow: true},
		Submitter:     paypalSubmitter,
		StatusChecker: paypalChecker,
	})
	assert.NoError(t, err)

	sut := NewWebService(registry, billingAPI, storer, publisher, queuer, nower)
	router := mux.NewRouter()

	// called by RegisterEndpoints
	publisher.EXPECT().CreateTopic(gomock.Any(), checkoutevents.TopicName).Return(nil)

	err = sut.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	return &fixture{
		ctx:             c,
		router:          router,
		storer:          storer,
		billingAPI:      billingAPI,
		cardSubmitter:   cardSubmitter,
		paypalSubmitter: paypalSubmitter,
		paypalChecker:   paypalChecker,
		queuer:          queuer,
		publisher:       publisher,
	}
}

func (f *fixture) perform(method string, url string, body string) *httptest.ResponseRecorder {
	var request *http.Request
	if body != "" {
		request = httptest.NewRequest(method, url, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		request = httptest.NewRequest(method, url, nil)
	}
	request.Host = "localhost:8888"
	response := httptest.NewRecorder()
	f.router.ServeHTTP(response, request)
	return response
}

func (f *fixture) startCheckout(t *testing.T) {
	f.billingAPI.EXPECT().FetchCart(gomock.Any(), "123").Return(exampleServerCart, nil)
	f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.Any()).Return(nil)

	response := f.perform(http.MethodPost, "/checkout/123/start", "returnUrl=https://shop.example.com/basket/123")
	assert.Equal(t, 200, response.Code)
}

func (f *fixture) submitRedirect(t *testing.T) {
	f.paypalSubmitter.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(paymentmethods.SubmitResult{
			RedirectURL:       "https://pay.example.com/redirect/1",
			ProviderReference: "tr_1",
		}, nil)
	f.queuer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)

	response := f.perform(http.MethodPost, "/checkout/123/submit", submitForm)
	assert.Equal(t, 303, response.Code)
}

func parseResponse(t *testing.T, response *httptest.ResponseRecorder) checkoutResponse {
	resp := checkoutResponse{}
	err := json.Unmarshal(response.Body.Bytes(), &resp)
	assert.NoError(t, err)
	return resp
}
