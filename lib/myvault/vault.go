package myvault

import (
	"context"

	"github.com/MarcGrol/compositecheckout/lib/mystore"
)

// Credentials are the secrets a payment-provider adapter needs to authenticate itself.
type Credentials struct {
	ProviderName string
	APIKey       string
}

type VaultReader[T any] interface {
	Get(c context.Context, uid string) (T, bool, error)
}

type VaultReadWriter[T any] interface {
	Get(c context.Context, uid string) (T, bool, error)
	Put(c context.Context, uid string, value T) error
}

type vault[T any] struct {
	store mystore.Store[T]
}

func New[T any](c context.Context) (VaultReadWriter[T], func(), error) {
	store, cleanup, err := mystore.New[T](c)
	if err != nil {
		return nil, nil, err
	}

	return &vault[T]{store: store}, cleanup, nil
}

func (v *vault[T]) Get(c context.Context, uid string) (T, bool, error) {
	return v.store.Get(c, uid)
}

func (v *vault[T]) Put(c context.Context, uid string, value T) error {
	return v.store.Put(c, uid, value)
}
