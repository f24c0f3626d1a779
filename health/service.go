package health

import (
	"github.com/gostdlib/base/concurrency/sync"

	rpccore "github.com/shuai132/rpc-core"
)

// Server implements the health check service. Use NewServer to create an
// instance, then call Register to bind it to an Rpc under Cmd.
type Server struct {
	mu       sync.RWMutex
	services map[string]ServingStatus
}

// NewServer creates a new health check server. By default the overall
// server health (empty service name) is set to Serving.
func NewServer() *Server {
	return &Server{
		services: map[string]ServingStatus{
			"": Serving,
		},
	}
}

// SetServingStatus sets the health status for a service. Use an empty
// string to set the overall server health status.
func (s *Server) SetServingStatus(service string, status ServingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[service] = status
}

// ServingStatus returns the health status for a service. Returns
// ServiceUnknown if the service was never registered.
func (s *Server) ServingStatus(service string) ServingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.services[service]
	if !ok {
		return ServiceUnknown
	}
	return status
}

// check handles one decoded checkRequest.
func (s *Server) check(req checkRequest) checkResponse {
	s.mu.RLock()
	status, ok := s.services[req.Service]
	s.mu.RUnlock()
	if !ok {
		return checkResponse{Status: ServiceUnknown}
	}
	return checkResponse{Status: status}
}

// Register binds s to rpc under Cmd, so Check (and any peer calling Cmd
// directly) can reach it.
func Register(rpc *rpccore.Rpc, s *Server) {
	rpccore.Subscribe(rpc, Cmd, nil, s.check)
}

// Enable is a convenience function that creates a health server and
// registers it against rpc. Returns the Server so the caller can update
// service status afterward.
func Enable(rpc *rpccore.Rpc) *Server {
	s := NewServer()
	Register(rpc, s)
	return s
}
