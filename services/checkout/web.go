package checkout

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/compositecheckout/lib/mycontext"
	"github.com/MarcGrol/compositecheckout/lib/myerrors"
	"github.com/MarcGrol/compositecheckout/lib/myhttp"
	"github.com/MarcGrol/compositecheckout/lib/mylog"
	"github.com/MarcGrol/compositecheckout/lib/mypublisher"
	"github.com/MarcGrol/compositecheckout/lib/myqueue"
	"github.com/MarcGrol/compositecheckout/lib/mystore"
	"github.com/MarcGrol/compositecheckout/lib/mytime"
	"github.com/MarcGrol/compositecheckout/services/cart"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
	"github.com/MarcGrol/compositecheckout/services/checkoutstate"
	"github.com/MarcGrol/compositecheckout/services/paymentmethods"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(registry *paymentmethods.Registry, billingAPI cart.BillingAPI,
	checkoutStore mystore.Store[checkoutapi.CheckoutContext], publisher mypublisher.Publisher,
	queuer myqueue.TaskQueuer, nower mytime.Nower) *webService {
	logger := mylog.New("checkout")
	return &webService{
		logger:  logger,
		service: newService(registry, billingAPI, checkoutStore, publisher, queuer, nower, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/checkout/{basketUID}", s.statusPage()).Methods("GET")
	router.HandleFunc("/checkout/{basketUID}/start", s.startCheckoutPage()).Methods("POST")
	router.HandleFunc("/checkout/{basketUID}/method/{methodID}", s.selectMethodPage()).Methods("PUT")
	router.HandleFunc("/checkout/{basketUID}/cart", s.refreshCartPage()).Methods("PUT")
	router.HandleFunc("/checkout/{basketUID}/submit", s.submitPage()).Methods("POST")
	router.HandleFunc("/checkout/{basketUID}/completed", s.completedPage()).Methods("GET")
	router.HandleFunc("/checkout/{basketUID}/reset", s.resetPage()).Methods("POST")

	// task queue callback
	router.HandleFunc("/checkout/{basketUID}/reconcile/{attempt}", s.reconcilePage()).Methods("POST", "PUT")

	return s.service.CreateTopics(c)
}

type methodResponse struct {
	ID                     string `json:"id"`
	HasUI                  bool   `json:"hasUI"`
	RequiresBillingContact bool   `json:"requiresBillingContact"`
	SupportsRedirectFlow   bool   `json:"supportsRedirectFlow"`
}

type checkoutResponse struct {
	BasketUID      string           `json:"basketUID"`
	Phase          string           `json:"phase"`
	SelectedMethod string           `json:"selectedMethod,omitempty"`
	Attempt        int              `json:"attempt"`
	RedirectURL    string           `json:"redirectURL,omitempty"`
	OrderID        string           `json:"orderID,omitempty"`
	ErrorKind      string           `json:"errorKind,omitempty"`
	ErrorMessage   string           `json:"errorMessage,omitempty"`
	Cart           checkoutapi.Cart `json:"cart"`
	Methods        []methodResponse `json:"methods,omitempty"`
}

func (s *webService) startCheckoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		basketUID := mux.Vars(r)["basketUID"]
		if basketUID == "" {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("missing basketUID")))
			return
		}

		err := r.ParseForm()
		if err != nil {
			responseWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(err))
			return
		}
		returnURL := r.FormValue("returnUrl")
		if returnURL == "" {
			responseWriter.WriteError(c, w, 3, myerrors.NewInvalidInputError(fmt.Errorf("missing returnUrl")))
			return
		}

		state, methods, err := s.service.startCheckout(c, basketUID, returnURL)
		if err != nil {
			responseWriter.WriteError(c, w, 4, asHTTPError(err))
			return
		}

		responseWriter.Write(c, w, http.StatusOK, newCheckoutResponse(basketUID, state, methods))
	}
}

func (s *webService) statusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		basketUID := mux.Vars(r)["basketUID"]

		state, methods, err := s.service.status(c, basketUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, asHTTPError(err))
			return
		}

		responseWriter.Write(c, w, http.StatusOK, newCheckoutResponse(basketUID, state, methods))
	}
}

func (s *webService) selectMethodPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		basketUID := mux.Vars(r)["basketUID"]
		methodID := mux.Vars(r)["methodID"]

		state, err := s.service.selectMethod(c, basketUID, checkoutapi.PaymentMethodID(methodID))
		if err != nil {
			responseWriter.WriteError(c, w, 1, asHTTPError(err))
			return
		}

		responseWriter.Write(c, w, http.StatusOK, newCheckoutResponse(basketUID, state, nil))
	}
}

func (s *webService) refreshCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		basketUID := mux.Vars(r)["basketUID"]

		state, err := s.service.refreshCart(c, basketUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, asHTTPError(err))
			return
		}

		responseWriter.Write(c, w, http.StatusOK, newCheckoutResponse(basketUID, state, nil))
	}
}

func (s *webService) submitPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		basketUID := mux.Vars(r)["basketUID"]

		form, err := checkoutapi.NewSubmitFromRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		// where redirect-flow providers send the shopper after paying
		redirectReturnURL := fmt.Sprintf("%s/checkout/%s/completed", myhttp.HostnameWithScheme(r), basketUID)

		state, err := s.service.submit(c, basketUID, form, redirectReturnURL)
		if err != nil {
			responseWriter.WriteError(c, w, 2, asHTTPError(err))
			return
		}

		if state.Phase == checkoutstate.PhaseRedirectPending {
			http.Redirect(w, r, state.RedirectURL, http.StatusSeeOther)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, newCheckoutResponse(basketUID, state, nil))
	}
}

func (s *webService) completedPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		basketUID := mux.Vars(r)["basketUID"]
		reportedStatus := r.URL.Query().Get("status")

		returnURL, err := s.service.finalizeRedirect(c, basketUID, reportedStatus)
		if err != nil {
			responseWriter.WriteError(c, w, 1, asHTTPError(err))
			return
		}

		http.Redirect(w, r, returnURL, http.StatusSeeOther)
	}
}

func (s *webService) resetPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		basketUID := mux.Vars(r)["basketUID"]

		state, err := s.service.reset(c, basketUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, asHTTPError(err))
			return
		}

		responseWriter.Write(c, w, http.StatusOK, newCheckoutResponse(basketUID, state, nil))
	}
}

func (s *webService) reconcilePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		basketUID := mux.Vars(r)["basketUID"]
		attempt, err := strconv.Atoi(mux.Vars(r)["attempt"])
		if err != nil {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("invalid attempt: %s", err)))
			return
		}

		err = s.service.reconcile(c, basketUID, attempt)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{})
	}
}

func newCheckoutResponse(basketUID string, state checkoutstate.State, descriptors []paymentmethods.Descriptor) checkoutResponse {
	resp := checkoutResponse{
		BasketUID:      basketUID,
		Phase:          string(state.Phase),
		SelectedMethod: string(state.SelectedMethod),
		Attempt:        state.Attempt,
		RedirectURL:    state.RedirectURL,
		OrderID:        state.OrderID,
		Cart:           state.Cart,
	}
	if state.Err != nil {
		resp.ErrorKind = checkouterrors.Kind(state.Err)
		resp.ErrorMessage = state.Err.Error()
	}
	for _, descriptor := range descriptors {
		resp.Methods = append(resp.Methods, methodResponse{
			ID:                     string(descriptor.ID),
			HasUI:                  descriptor.Capabilities.HasUI,
			RequiresBillingContact: descriptor.Capabilities.RequiresBillingContact,
			SupportsRedirectFlow:   descriptor.Capabilities.SupportsRedirectFlow,
		})
	}
	return resp
}

// asHTTPError gives taxonomy errors a proper http status without losing the
// original message.
func asHTTPError(err error) error {
	switch checkouterrors.Kind(err) {
	case "validation", "provider":
		return myerrors.NewInvalidInputError(err)
	case "network":
		return myerrors.NewUnavailableError(err)
	default:
		return err
	}
}
