package verification

import (
	"context"
	"errors"
	"time"
)

var errBackendUnavailable = errors.New("verification backend unavailable")

// Backend is the distributed tier of the code store. redisx.Cache satisfies
// it; when no usable Redis is configured the service is wired with
// NoBackend instead, so business logic never branches on configuration.
type Backend interface {
	// Available reports whether this backend can be asked at all. It must
	// not perform I/O.
	Available() bool
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes key and reports whether the key existed, atomically.
	Del(ctx context.Context, key string) (existed bool, err error)
	Exists(ctx context.Context, key string) (bool, error)
}

// NoBackend is the null backend wired when Redis is absent or points at
// the local machine. Every operation short-circuits without I/O.
type NoBackend struct{}

func (NoBackend) Available() bool { return false }

func (NoBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (NoBackend) SetEx(context.Context, string, string, time.Duration) error {
	return errBackendUnavailable
}

func (NoBackend) Del(context.Context, string) (bool, error) {
	return false, errBackendUnavailable
}

func (NoBackend) Exists(context.Context, string) (bool, error) {
	return false, errBackendUnavailable
}
