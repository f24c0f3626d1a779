// Package health implements the reserved health-check command described in
// SPEC_FULL.md §4.12: a tiny service, built entirely on top of
// rpccore.Subscribe and Rpc.CallSync, that reports a ServingStatus per named service
// (or the overall server, via the empty-string service name).
package health

// ServingStatus is the health state of a service, or of the server overall
// when queried with the empty service name.
type ServingStatus uint8

const (
	// Unknown is the zero value, returned on a failed or malformed check.
	Unknown ServingStatus = iota
	// Serving means the service is accepting requests.
	Serving
	// NotServing means the service is known but not currently accepting
	// requests.
	NotServing
	// ServiceUnknown means the queried service name was never registered.
	ServiceUnknown
)

func (s ServingStatus) String() string {
	switch s {
	case Serving:
		return "SERVING"
	case NotServing:
		return "NOT_SERVING"
	case ServiceUnknown:
		return "SERVICE_UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// Cmd is the reserved command name the health service registers itself
// under and that Check dials.
const Cmd = "__health"

// checkRequest is the JSON body of a health check call.
type checkRequest struct {
	Service string `json:"service"`
}

// checkResponse is the JSON body of a health check reply.
type checkResponse struct {
	Status ServingStatus `json:"status"`
}
