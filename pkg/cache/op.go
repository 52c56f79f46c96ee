package cache

import (
	"context"
	"fmt"
	"time"
)

// OpKind identifies a cache operation.
type OpKind int

const (
	// OpGet reads a key.
	OpGet OpKind = iota

	// OpSet writes a key.
	OpSet
)

// String returns the lowercase operation name.
func (k OpKind) String() string {
	switch k {
	case OpGet:
		return "get"
	case OpSet:
		return "set"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op describes a single cache operation so that any backend can execute it.
type Op struct {
	Kind        OpKind
	Key         string
	Value       []byte
	TTL         time.Duration
	NoOverwrite bool
}

// GetOp describes a read of key.
func GetOp(key string) Op {
	return Op{Kind: OpGet, Key: key}
}

// SetOp describes a write of value under key for ttl.
func SetOp(key string, value []byte, ttl time.Duration, noOverwrite bool) Op {
	return Op{Kind: OpSet, Key: key, Value: value, TTL: ttl, NoOverwrite: noOverwrite}
}

// Result is the outcome of an Op. The zero value means "miss" for reads and
// "not stored" for writes.
type Result struct {
	Value  []byte
	Found  bool
	Stored bool
}

// Apply executes the operation against b.
func (o Op) Apply(ctx context.Context, b Backend) (Result, error) {
	switch o.Kind {
	case OpGet:
		value, found, err := b.Get(ctx, o.Key)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: value, Found: found}, nil
	case OpSet:
		stored, err := b.Set(ctx, o.Key, o.Value, o.TTL, o.NoOverwrite)
		if err != nil {
			return Result{}, err
		}
		return Result{Stored: stored}, nil
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownOp, o.Kind)
	}
}
