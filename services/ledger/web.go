package ledger

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/compositecheckout/lib/mycontext"
	"github.com/MarcGrol/compositecheckout/lib/myhttp"
	"github.com/MarcGrol/compositecheckout/lib/mylog"
	"github.com/MarcGrol/compositecheckout/lib/mypubsub"
	"github.com/MarcGrol/compositecheckout/lib/mystore"
	"github.com/MarcGrol/compositecheckout/lib/mytime"
	"github.com/MarcGrol/compositecheckout/services/checkoutevents"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(entryStore mystore.Store[Entry], pubsub mypubsub.PubSub, nower mytime.Nower) *webService {
	logger := mylog.New("ledger")
	return &webService{
		logger:  logger,
		service: newService(entryStore, pubsub, nower, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/ledger", s.listPage()).Methods("GET")
	router.HandleFunc("/ledger/completed", s.listCompletedPage()).Methods("GET")
	router.HandleFunc("/ledger/{basketUID}", s.entryPage()).Methods("GET")

	// pubsub push endpoint
	router.HandleFunc("/ledger/event", s.eventPage()).Methods("POST")

	return s.service.Subscribe(c)
}

func (s *webService) listPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		entries, err := s.service.listEntries(c)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, entries)
	}
}

func (s *webService) listCompletedPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		entries, err := s.service.listCompleted(c)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, entries)
	}
}

func (s *webService) entryPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		basketUID := mux.Vars(r)["basketUID"]

		entry, err := s.service.getEntry(c, basketUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, entry)
	}
}

func (s *webService) eventPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		err := checkoutevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{})
	}
}
