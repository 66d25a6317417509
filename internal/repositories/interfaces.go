package repositories

import "context"

// DefaultCartKey is the fixed storage key the cart is persisted under.
const DefaultCartKey = "cart"

// CartStore is the durable key-value persistence port for serialized cart
// state. Implementations must round-trip the stored string exactly.
type CartStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
}

// StoreError wraps low-level persistence failures with categorisation used by services.
type StoreError interface {
	error
	IsNotFound() bool
	IsUnavailable() bool
}

type storeError struct {
	message     string
	notFound    bool
	unavailable bool
	cause       error
}

func (e *storeError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *storeError) Unwrap() error { return e.cause }

func (e *storeError) IsNotFound() bool { return e.notFound }

func (e *storeError) IsUnavailable() bool { return e.unavailable }

// NewNotFoundError builds a StoreError categorised as not-found.
func NewNotFoundError(message string) error {
	return &storeError{message: message, notFound: true}
}

// NewUnavailableError builds a StoreError categorised as unavailable.
func NewUnavailableError(message string, cause error) error {
	return &storeError{message: message, unavailable: true, cause: cause}
}

// IsNotFound reports whether err is a StoreError categorised as not-found.
func IsNotFound(err error) bool {
	storeErr, ok := err.(StoreError)
	return ok && storeErr.IsNotFound()
}
