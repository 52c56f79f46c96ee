package cache

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNilClient indicates a backend was built without a Redis client
	ErrNilClient = errors.New("redis client cannot be nil")

	// ErrUnknownOp indicates an Op with an unsupported Kind
	ErrUnknownOp = errors.New("unknown cache operation")
)

// isConnectivityError reports whether err means the Redis connection is
// unusable. Server replies, misses, caller cancellation and local errors such
// as ErrUnknownOp leave the connection alone.
func isConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
