package checkoutstripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/MarcGrol/compositecheckout/lib/myhttpclient"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
)

// ProviderConfiguration is what the billing backend hands out to bootstrap
// the provider client: the publishable key, the client script location and
// optionally a setup-intent secret when step-up authentication is expected.
type ProviderConfiguration struct {
	PublicKey         string `json:"public_key"`
	ScriptURL         string `json:"js_url"`
	SetupIntentSecret string `json:"setup_intent_secret,omitempty"`
}

type ConfigRequestArgs struct {
	Country     string `json:"country,omitempty"`
	NeedsIntent bool   `json:"needs_intent,omitempty"`
}

//go:generate mockgen -source=config.go -package checkoutstripe -destination config_mock.go ConfigFetcher
type ConfigFetcher interface {
	FetchConfiguration(c context.Context, args ConfigRequestArgs) (ProviderConfiguration, error)
}

type httpConfigFetcher struct {
	baseURL string
	sender  myhttpclient.HTTPSender
}

func NewConfigFetcher(baseURL string, sender myhttpclient.HTTPSender) ConfigFetcher {
	return &httpConfigFetcher{
		baseURL: baseURL,
		sender:  sender,
	}
}

func (f *httpConfigFetcher) FetchConfiguration(c context.Context, args ConfigRequestArgs) (ProviderConfiguration, error) {
	reqPayload, err := json.Marshal(args)
	if err != nil {
		return ProviderConfiguration{}, fmt.Errorf("error marshalling configuration request: %s", err)
	}

	status, respPayload, err := f.sender.Send(c, http.MethodPost, fmt.Sprintf("%s/payments/stripe/configuration", f.baseURL), reqPayload)
	if err != nil {
		return ProviderConfiguration{}, &checkouterrors.NetworkError{Message: fmt.Sprintf("error fetching provider configuration: %s", err)}
	}
	if status != http.StatusOK {
		return ProviderConfiguration{}, &checkouterrors.NetworkError{Message: fmt.Sprintf("provider configuration endpoint returned status %d", status)}
	}

	config := ProviderConfiguration{}
	err = json.Unmarshal(respPayload, &config)
	if err != nil {
		return ProviderConfiguration{}, &checkouterrors.NetworkError{Message: fmt.Sprintf("error parsing provider configuration: %s", err)}
	}

	return config, nil
}

// ConfigCache caches the provider configuration per attempt generation.
// Concurrent readers of the same attempt share a single in-flight fetch, so
// independently rendered fragments never issue duplicate network calls.
// ForceReload advances the generation: used when the provider reports the
// configuration (e.g. an expired setup intent) is stale.
type ConfigCache struct {
	fetcher ConfigFetcher
	args    ConfigRequestArgs

	group   singleflight.Group
	mutex   sync.Mutex
	attempt int
	configs map[int]ProviderConfiguration
}

func NewConfigCache(fetcher ConfigFetcher, args ConfigRequestArgs) *ConfigCache {
	return &ConfigCache{
		fetcher: fetcher,
		args:    args,
		attempt: 1,
		configs: map[int]ProviderConfiguration{},
	}
}

// Attempt returns the current generation counter.
func (cc *ConfigCache) Attempt() int {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	return cc.attempt
}

// Get returns the configuration for the current attempt, fetching it at most
// once per generation. The attempt under which the configuration was obtained
// is returned so callers can detect staleness after suspension points.
func (cc *ConfigCache) Get(c context.Context) (ProviderConfiguration, int, error) {
	cc.mutex.Lock()
	attempt := cc.attempt
	if config, cached := cc.configs[attempt]; cached {
		cc.mutex.Unlock()
		return config, attempt, nil
	}
	cc.mutex.Unlock()

	value, err, _ := cc.group.Do(strconv.Itoa(attempt), func() (any, error) {
		config, err := cc.fetcher.FetchConfiguration(c, cc.args)
		if err != nil {
			return nil, err
		}

		cc.mutex.Lock()
		if cc.attempt == attempt {
			cc.configs[attempt] = config
		}
		// a completion for an older attempt is discarded, not cached
		cc.mutex.Unlock()

		return config, nil
	})
	if err != nil {
		// failure leaves the configuration absent so the UI can offer retry
		return ProviderConfiguration{}, attempt, err
	}

	return value.(ProviderConfiguration), attempt, nil
}

// ForceReload invalidates the cached configuration and advances the attempt
// generation. Returns the new attempt value.
func (cc *ConfigCache) ForceReload() int {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	cc.group.Forget(strconv.Itoa(cc.attempt))
	delete(cc.configs, cc.attempt)
	cc.attempt++

	return cc.attempt
}
