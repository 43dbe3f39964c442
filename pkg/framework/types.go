package framework

import "context"

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Message defines the abstract message posted to a running component,
// e.g. a user intent forwarded to a controller.
type Message interface {
	// NewMessage creates an empty message.
	NewMessage() Message
}

// MessagePoster accepts messages for asynchronous processing.
type MessagePoster interface {
	// PostMessage enqueues the message, false if it's dropped.
	PostMessage(Message) bool
}
