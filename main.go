package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/compositecheckout/lib/myhttpclient"
	"github.com/MarcGrol/compositecheckout/lib/mypublisher"
	"github.com/MarcGrol/compositecheckout/lib/mypubsub"
	"github.com/MarcGrol/compositecheckout/lib/myqueue"
	"github.com/MarcGrol/compositecheckout/lib/mystore"
	"github.com/MarcGrol/compositecheckout/lib/mytime"
	"github.com/MarcGrol/compositecheckout/lib/myvault"
	"github.com/MarcGrol/compositecheckout/services/cart"
	"github.com/MarcGrol/compositecheckout/services/checkout"
	"github.com/MarcGrol/compositecheckout/services/checkoutadyen"
	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkoutmollie"
	"github.com/MarcGrol/compositecheckout/services/checkoutstripe"
	"github.com/MarcGrol/compositecheckout/services/ledger"
	"github.com/MarcGrol/compositecheckout/services/paymentmethods"
	"github.com/MarcGrol/compositecheckout/services/warmup"
)

func main() {
	c := context.Background()

	router := mux.NewRouter()
	nower := mytime.RealNower{}

	checkoutStore, checkoutStoreCleanup, err := mystore.New[checkoutapi.CheckoutContext](c)
	if err != nil {
		log.Fatalf("Error creating checkout store: %s", err)
	}
	defer checkoutStoreCleanup()

	entryStore, entryStoreCleanup, err := mystore.New[ledger.Entry](c)
	if err != nil {
		log.Fatalf("Error creating ledger store: %s", err)
	}
	defer entryStoreCleanup()

	vault, vaultCleanup, err := myvault.New[myvault.Credentials](c)
	if err != nil {
		log.Fatalf("Error creating vault: %s", err)
	}
	defer vaultCleanup()

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	queuer, queuerCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating task queue: %s", err)
	}
	defer queuerCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queuer, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	sender := myhttpclient.New()
	billingBaseURL := getenvOrDefault("BILLING_SERVICE_URL", "http://localhost:8081")
	billingAPI := cart.NewBillingAPI(billingBaseURL, sender)

	registry := paymentmethods.NewRegistry()

	registerStripe(registry, billingBaseURL, sender, vault)
	registerMollie(registry, vault)
	registerAdyen(registry, vault)

	checkoutService := checkout.NewWebService(registry, billingAPI, checkoutStore, publisher, queuer, nower)
	err = checkoutService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering checkout endpoints: %s", err)
	}

	ledgerService := ledger.NewWebService(entryStore, pubsub, nower)
	err = ledgerService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering ledger endpoints: %s", err)
	}

	warmupService := warmup.NewService(vault)
	warmupService.RegisterEndpoints(c, router)

	startWebServerBlocking(router)
}

func registerStripe(registry *paymentmethods.Registry, billingBaseURL string, sender myhttpclient.HTTPSender, vault myvault.VaultReader[myvault.Credentials]) {
	fetcher := checkoutstripe.NewConfigFetcher(billingBaseURL, sender)
	configCache := checkoutstripe.NewConfigCache(fetcher, checkoutstripe.ConfigRequestArgs{
		Country: getenvOrDefault("DEFAULT_COUNTRY", "NL"),
	})
	service := checkoutstripe.NewService(os.Getenv("STRIPE_API_KEY"), checkoutstripe.NewPayer(), configCache, vault)

	err := registry.Register(service.Descriptor())
	if err != nil {
		log.Fatalf("Error registering stripe card method: %s", err)
	}
}

func registerMollie(registry *paymentmethods.Registry, vault myvault.VaultReader[myvault.Credentials]) {
	payer, err := checkoutmollie.NewPayer()
	if err != nil {
		log.Fatalf("Error creating mollie client: %s", err)
	}
	service := checkoutmollie.NewService(os.Getenv("MOLLIE_API_KEY"), payer, vault)

	err = registry.Register(service.Descriptor())
	if err != nil {
		log.Fatalf("Error registering mollie paypal method: %s", err)
	}
}

func registerAdyen(registry *paymentmethods.Registry, vault myvault.VaultReader[myvault.Credentials]) {
	payer := checkoutadyen.NewPayer(getenvOrDefault("ADYEN_ENVIRONMENT", "TEST"), os.Getenv("ADYEN_API_KEY"))
	service := checkoutadyen.NewService(
		os.Getenv("ADYEN_API_KEY"),
		os.Getenv("ADYEN_MERCHANT_ACCOUNT"),
		getenvOrDefault("DEFAULT_COUNTRY", "NL"),
		payer,
		vault)

	err := registry.Register(service.Descriptor())
	if err != nil {
		log.Fatalf("Error registering adyen ideal method: %s", err)
	}
}

func getenvOrDefault(name string, fallback string) string {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	return value
}

func startWebServerBlocking(router *mux.Router) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
