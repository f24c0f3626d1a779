// Package retry provides a policy-driven retry-with-backoff client
// interceptor for rpc-core.CallSync, distinct from Request.Retry's fixed
// resend count (spec.md §4.9): Request.Retry re-sends the same in-flight
// call when its own dispatcher timeout fires, while this package retries a
// whole CallSync round trip after it has already settled with an error.
package retry

import (
	stderrors "errors"
	"time"

	"github.com/gostdlib/base/context"

	rpccore "github.com/shuai132/rpc-core"
	"github.com/shuai132/rpc-core/interceptor"
	"github.com/shuai132/rpc-core/request"
)

// Policy configures retry behavior for Rpc.CallSync calls.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (including the first
	// call). 0 means no retry (single attempt).
	MaxAttempts int

	// InitialBackoff is the initial wait time before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait time between retries.
	MaxBackoff time.Duration

	// Multiplier is the factor by which the backoff increases after each retry.
	Multiplier float64

	// Retryable is an optional function to determine if an error is
	// retryable. If nil, the default retryable check is used.
	Retryable func(err error) bool
}

// DefaultPolicy returns a sensible default retry policy: 3 attempts total,
// 100ms initial backoff, 5s max backoff, 2x multiplier.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	}
}

// ClientInterceptor returns a client interceptor that retries failed
// CallSync invocations according to the given policy.
func ClientInterceptor(policy Policy) interceptor.ClientInterceptor {
	if policy.MaxAttempts <= 0 {
		return func(ctx context.Context, cmd string, data []byte, invoker interceptor.Invoker) ([]byte, error) {
			return invoker(ctx, cmd, data)
		}
	}

	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	return func(ctx context.Context, cmd string, data []byte, invoker interceptor.Invoker) ([]byte, error) {
		var lastErr error
		backoff := policy.InitialBackoff

		for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
			resp, err := invoker(ctx, cmd, data)
			if err == nil {
				return resp, nil
			}

			if !retryable(err) {
				return nil, err
			}
			lastErr = err

			if attempt < policy.MaxAttempts-1 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}

				backoff = time.Duration(float64(backoff) * policy.Multiplier)
				if backoff > policy.MaxBackoff {
					backoff = policy.MaxBackoff
				}
			}
		}
		return nil, lastErr
	}
}

// IsRetryable reports whether err — expected to be a *rpccore.CallError, or
// wrap one — represents a transient failure worth retrying. Timeout,
// RpcNotReady, and RpcExpired are retryable (the peer or local Rpc may
// recover); Canceled, NoSuchCmd, and RspSerializeError are not (retrying
// reproduces the same outcome). An error that isn't a CallError at all is
// treated as retryable, since CallSync's only typed failure is CallError —
// anything else signals a lower-level problem (e.g. a panic recovered by
// the caller) this package isn't positioned to classify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var callErr *rpccore.CallError
	if !stderrors.As(err, &callErr) {
		return true
	}
	switch callErr.FinallyType {
	case request.Timeout, request.RpcNotReady, request.RpcExpired:
		return true
	default:
		return false
	}
}
