package server

import (
	"encoding/json"
	"fmt"
)

// HandlerFunc is the signature for JSON-RPC method handlers
type HandlerFunc func(params json.RawMessage) (interface{}, error)

// methodRegistry returns a map of method names to handler functions.
// Shared by the HTTP endpoint and the WebSocket endpoint.
func (s *Server) methodRegistry() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"targets":         s.handleTargets,
		"screenshot":      s.handleScreenshot,
		"run.start":       s.handleRunStart,
		"run.status":      s.handleRunStatus,
		"run.pause":       s.handleRunPause,
		"run.resume":      s.handleRunResume,
		"run.stop":        s.handleRunStop,
		"server.shutdown": s.handleShutdown,
	}
}

// Execute dispatches a method call using the registry.
// This is the main entry point for embedded clients.
func (s *Server) Execute(method string, params json.RawMessage) (interface{}, error) {
	handler, exists := s.methodRegistry()[method]
	if !exists {
		return nil, fmt.Errorf("method not found: %s", method)
	}

	return handler(params)
}
