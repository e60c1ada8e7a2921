package domain

// Row is a raw backend record keyed by column name.
type Row map[string]any

// Filter restricts a query to rows whose columns equal the given values.
type Filter map[string]any

// Subscription is a live registration on the gateway change feed.
// Close unsubscribes; it is safe to call more than once.
type Subscription interface {
	Close() error
}

// SubscriptionFunc adapts a function to the Subscription interface.
type SubscriptionFunc func() error

func (f SubscriptionFunc) Close() error { return f() }
