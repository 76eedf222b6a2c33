package warmup

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/compositecheckout/lib/mycontext"
	"github.com/MarcGrol/compositecheckout/lib/myhttp"
	"github.com/MarcGrol/compositecheckout/lib/mylog"
	"github.com/MarcGrol/compositecheckout/lib/myvault"
	"github.com/MarcGrol/compositecheckout/services/checkoutadyen"
	"github.com/MarcGrol/compositecheckout/services/checkoutmollie"
	"github.com/MarcGrol/compositecheckout/services/checkoutstripe"
)

type webService struct {
	logger mylog.Logger
	vault  myvault.VaultReader[myvault.Credentials]
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(vault myvault.VaultReader[myvault.Credentials]) *webService {
	logger := mylog.New("warmup")
	return &webService{
		logger: logger,
		vault:  vault,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")
}

func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		// touch the vault so the datastore connection is established before
		// the first shopper request arrives
		for _, keyName := range []string{
			checkoutstripe.CredentialsKeyName,
			checkoutmollie.CredentialsKeyName,
			checkoutadyen.CredentialsKeyName,
		} {
			_, _, err := s.vault.Get(c, keyName)
			if err != nil {
				errorWriter.WriteError(c, w, 1, err)
				return
			}
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}
