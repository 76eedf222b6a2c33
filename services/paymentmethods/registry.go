package paymentmethods

import (
	"fmt"
	"sync"

	"github.com/MarcGrol/compositecheckout/services/checkoutapi"
	"github.com/MarcGrol/compositecheckout/services/checkouterrors"
)

// Registry maps payment-method ids onto their descriptors. It is populated
// once during startup and read-only for the rest of the process lifetime, so
// reads do not take the lock. Registration order is the canonical display
// order.
type Registry struct {
	mutex   sync.Mutex
	ordered []Descriptor
	index   map[checkoutapi.PaymentMethodID]int
}

func NewRegistry() *Registry {
	return &Registry{
		index: map[checkoutapi.PaymentMethodID]int{},
	}
}

func (r *Registry) Register(descriptor Descriptor) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if descriptor.ID == "" || descriptor.Submitter == nil {
		return fmt.Errorf("incomplete descriptor for payment method '%s'", descriptor.ID)
	}

	if _, exists := r.index[descriptor.ID]; exists {
		return &checkouterrors.DuplicateMethodError{MethodID: string(descriptor.ID)}
	}

	r.index[descriptor.ID] = len(r.ordered)
	r.ordered = append(r.ordered, descriptor)

	return nil
}

func (r *Registry) Get(id checkoutapi.PaymentMethodID) (Descriptor, error) {
	idx, exists := r.index[id]
	if !exists {
		return Descriptor{}, &checkouterrors.UnrecognizedMethodError{MethodID: string(id)}
	}

	return r.ordered[idx], nil
}

// ListFor returns the registered methods allowed for this cart, preserving
// registration order. Methods the cart allows but nobody registered are
// skipped.
func (r *Registry) ListFor(cart checkoutapi.Cart) []Descriptor {
	result := []Descriptor{}
	for _, descriptor := range r.ordered {
		if cart.Allows(descriptor.ID) {
			result = append(result, descriptor)
		}
	}

	return result
}
