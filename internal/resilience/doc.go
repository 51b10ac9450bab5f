// Package resilience groups the fault-tolerance patterns wrapped around every
// outbound generation-provider call.
//
//   - circuitbreaker: trips after a failure ratio so a failing provider is not
//     hammered while callers fall back to their default text
//   - retry: exponential backoff with jitter for transient failures
//     (timeouts, 408, 429, 5xx)
//
// Usage:
//
//	b := circuitbreaker.New(circuitbreaker.ForProvider("openai"))
//	err := retry.Do(ctx, retry.ForProvider(2), func() error {
//	    out, err := b.Call(func() (string, error) {
//	        return callProvider(ctx)
//	    })
//	    ...
//	})
package resilience
