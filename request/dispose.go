package request

import "github.com/gostdlib/base/concurrency/sync"

// Dispose is the scope-bound cancel group described in spec.md §4.6: an
// ordered set of requests that get canceled en masse when the scope ends.
//
// The source holds weak references so Dispose never extends a Request's
// lifetime on its own. Go has no general-purpose weak pointer for arbitrary
// heap objects in the Go version this module targets, so Dispose holds
// ordinary (strong) pointers instead; callers are expected to explicitly
// Dismiss a Dispose when its scope ends rather than relying on it becoming
// unreachable, which is the same discipline the source's RAII Drop impl
// enforces implicitly.
type Dispose struct {
	mu       sync.Mutex
	requests []*Request
}

// NewDispose returns an empty Dispose group.
func NewDispose() *Dispose {
	return &Dispose{}
}

// add appends req to the group; called by Request.AddTo.
func (d *Dispose) add(req *Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
}

// Remove drops req from the group. It also compacts any entries that have
// already settled (reached a terminal FinallyType), mirroring the source's
// habit of compacting dead weak refs during a remove scan — a settled
// Request is the Go analogue of a weak ref whose target is gone, in that
// canceling it again would do nothing.
func (d *Dispose) Remove(req *Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.requests[:0]
	for _, r := range d.requests {
		if r == req {
			continue
		}
		if r.IsSettled() {
			continue
		}
		out = append(out, r)
	}
	d.requests = out
}

// Dismiss cancels every not-yet-settled request, in insertion order, then
// clears the group. A request that was never Call()ed is canceled too: its
// canceled flag is then observed the moment Call() runs, per spec.md §4.4
// step 2. Cancel is idempotent, so already-settled requests are skipped
// purely to avoid redundant work, not for correctness.
func (d *Dispose) Dismiss() {
	d.mu.Lock()
	reqs := d.requests
	d.requests = nil
	d.mu.Unlock()

	for _, r := range reqs {
		if !r.IsSettled() {
			r.Cancel()
		}
	}
}

// Len reports the number of tracked requests, for tests and diagnostics.
func (d *Dispose) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}
