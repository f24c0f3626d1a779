// Package hedge provides hedging (speculative retry) for rpc-core.CallSync:
// it sends the same command to the same Rpc multiple times in parallel,
// staggered by HedgeDelay, and returns whichever response arrives first.
// Hedging is disabled by default and must be explicitly enabled by setting
// MaxHedgedRequests > 0.
package hedge

import (
	"time"

	"github.com/gostdlib/base/context"

	rpccore "github.com/shuai132/rpc-core"
	"github.com/shuai132/rpc-core/interceptor"
	"github.com/shuai132/rpc-core/request"
)

// Policy configures hedging behavior. Zero value means hedging is disabled.
type Policy struct {
	// MaxHedgedRequests is the maximum number of hedged requests (excluding
	// the original). 0 means no hedging. 1 means 1 hedge (2 total requests).
	MaxHedgedRequests int

	// HedgeDelay is how long to wait before sending each successive hedge.
	HedgeDelay time.Duration

	// NonFatalTypes, when non-empty, lists the only FinallyTypes that don't
	// immediately fail the hedge group; every other FinallyType is fatal. If
	// empty, the default classification in isFatal applies. Errors that
	// aren't a *rpccore.CallError are always fatal.
	NonFatalTypes []request.FinallyType
}

// DefaultPolicy returns a sensible default hedging policy: 1 hedge (2 total
// requests), 50ms delay.
func DefaultPolicy() Policy {
	return Policy{MaxHedgedRequests: 1, HedgeDelay: 50 * time.Millisecond}
}

type result struct {
	resp []byte
	err  error
}

// ClientInterceptor returns a client interceptor that hedges CallSync
// invocations according to the given policy. Disabled (pass-through) if
// MaxHedgedRequests <= 0.
func ClientInterceptor(policy Policy) interceptor.ClientInterceptor {
	if policy.MaxHedgedRequests <= 0 {
		return func(ctx context.Context, cmd string, data []byte, invoker interceptor.Invoker) ([]byte, error) {
			return invoker(ctx, cmd, data)
		}
	}

	return func(ctx context.Context, cmd string, data []byte, invoker interceptor.Invoker) ([]byte, error) {
		totalRequests := policy.MaxHedgedRequests + 1
		results := make(chan result, totalRequests)

		hedgeCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		pool := context.Pool(ctx)
		pool.Submit(ctx, func() {
			resp, err := invoker(hedgeCtx, cmd, data)
			select {
			case results <- result{resp, err}:
			case <-hedgeCtx.Done():
			}
		})

		for i := 0; i < policy.MaxHedgedRequests; i++ {
			delay := policy.HedgeDelay * time.Duration(i+1)
			pool.Submit(ctx, func() {
				select {
				case <-hedgeCtx.Done():
					return
				case <-time.After(delay):
				}
				select {
				case <-hedgeCtx.Done():
					return
				default:
				}
				resp, err := invoker(hedgeCtx, cmd, data)
				select {
				case results <- result{resp, err}:
				case <-hedgeCtx.Done():
				}
			})
		}

		var lastErr error
		received := 0
		for received < totalRequests {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case r := <-results:
				received++
				if r.err == nil {
					cancel()
					return r.resp, nil
				}
				if isFatal(r.err, policy.NonFatalTypes) {
					cancel()
					return nil, r.err
				}
				lastErr = r.err
			}
		}
		return nil, lastErr
	}
}

// isFatal returns true if err should immediately fail the hedge group
// without waiting for other in-flight responses. An error that isn't a
// *rpccore.CallError (e.g. ctx cancellation surfaced directly) is always
// fatal. When nonFatalTypes is non-empty, a CallError is fatal unless its
// FinallyType is listed there. Otherwise Canceled, NoSuchCmd and
// RspSerializeError are fatal (retrying would reproduce the identical
// outcome), and Timeout/RpcNotReady/RpcExpired are non-fatal, since a
// sibling hedge may still succeed.
func isFatal(err error, nonFatalTypes []request.FinallyType) bool {
	if err == nil {
		return false
	}

	callErr, ok := err.(*rpccore.CallError)
	if !ok {
		return true
	}

	if len(nonFatalTypes) > 0 {
		for _, t := range nonFatalTypes {
			if callErr.FinallyType == t {
				return false
			}
		}
		return true
	}

	switch callErr.FinallyType {
	case request.Canceled, request.NoSuchCmd, request.RspSerializeError:
		return true
	default:
		return false
	}
}
