package mypubsub

import "context"

// PubSub abstracts the push-based event transport: topics are created on
// startup and subscribers receive events as HTTP posts.
//
//go:generate mockgen -source=pubsub_api.go -package mypubsub -destination pubsub_mock.go PubSub
type PubSub interface {
	CreateTopic(c context.Context, topic string) error
	Subscribe(c context.Context, topic string, urlToPostTo string) error
	Publish(c context.Context, topic string, data string) error
}

var New func(c context.Context) (PubSub, func(), error)
