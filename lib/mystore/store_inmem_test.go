package mystore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type session struct {
	UID    string
	Method string
	Phase  string
}

var (
	example = session{UID: "123", Method: "card", Phase: "pending"}
)

func TestStore(t *testing.T) {
	c := context.TODO()
	ss, cleanup, err := NewInMemoryStore[session](c)
	assert.NoError(t, err)
	defer cleanup()

	t.Run("Get not found", func(t *testing.T) {
		_, found, err := ss.Get(c, example.UID)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Put", func(t *testing.T) {
		err = ss.Put(c, example.UID, example)
		assert.NoError(t, err)
	})

	t.Run("Get found", func(t *testing.T) {
		s, found, err := ss.Get(c, example.UID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, session{UID: "123", Method: "card", Phase: "pending"}, s)
	})

	t.Run("List", func(t *testing.T) {
		all, err := ss.List(c)
		assert.NoError(t, err)
		assert.Equal(t, []session{example}, all)
	})

	t.Run("Transaction rolls back on error", func(t *testing.T) {
		err := ss.RunInTransaction(c, func(c context.Context) error {
			return fmt.Errorf("forced failure")
		})
		assert.Error(t, err)
	})

	t.Run("Transactional put is visible afterwards", func(t *testing.T) {
		err := ss.RunInTransaction(c, func(c context.Context) error {
			return ss.Put(c, "456", session{UID: "456", Method: "paypal", Phase: "submitting"})
		})
		assert.NoError(t, err)

		s, found, err := ss.Get(c, "456")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "paypal", s.Method)
	})
}
