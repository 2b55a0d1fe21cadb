package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/szuyu2308/Tool-Simulator/devices"
	"github.com/szuyu2308/Tool-Simulator/engine"
	"github.com/szuyu2308/Tool-Simulator/script"
	"github.com/szuyu2308/Tool-Simulator/utils"
)

const (
	// Parse error: Invalid JSON was received by the server
	ErrCodeParseError = -32700

	// Invalid Request: The JSON sent is not a valid Request object
	ErrCodeInvalidRequest = -32600

	// Method not found: The method does not exist / is not available
	ErrCodeMethodNotFound = -32601

	// Server error: Internal JSON-RPC error
	ErrCodeServerError = -32000
)

// Server timeouts
const (
	ReadTimeout  = 10 * time.Second
	WriteTimeout = 30 * time.Second
	IdleTimeout  = 120 * time.Second
)

var okResponse = map[string]interface{}{"status": "ok"}

type JSONRPCRequest struct {
	// these fields are all omitempty, so we can report back to client if they are missing
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Server exposes run control over JSON-RPC, on HTTP /rpc and WebSocket /ws.
type Server struct {
	manager    *engine.Manager
	enableCORS bool
	httpServer *http.Server
}

func NewServer(manager *engine.Manager) *Server {
	return &Server{manager: manager}
}

// corsMiddleware handles CORS preflight requests and adds CORS headers to responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start(addr string, enableCORS bool) error {
	s.enableCORS = enableCORS

	mux := http.NewServeMux()
	mux.HandleFunc("/", sendBanner)
	mux.HandleFunc("/rpc", s.handleJSONRPC)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.handleWebSocket(w, r)
	})

	// if host is missing, default to localhost
	if !strings.Contains(addr, ":") {
		port, err := strconv.Atoi(addr)
		if err != nil {
			return fmt.Errorf("invalid port: %v", err)
		}
		addr = fmt.Sprintf(":%d", port)
	}

	var handler http.Handler = mux
	if enableCORS {
		handler = corsMiddleware(mux)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	utils.Info("Starting server on http://%s...", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONRPCError(w, nil, ErrCodeParseError, "Parse error", "expecting jsonrpc payload")
		return
	}

	if req.JSONRPC != "2.0" {
		sendJSONRPCError(w, req.ID, ErrCodeInvalidRequest, "Invalid Request", "'jsonrpc' must be '2.0'")
		return
	}

	if req.ID == nil {
		sendJSONRPCError(w, nil, ErrCodeInvalidRequest, "Invalid Request", "'id' field is required")
		return
	}

	if req.Method == "" {
		sendJSONRPCError(w, req.ID, ErrCodeServerError, "Server error", "'method' is required")
		return
	}

	utils.Info("Request ID: %v, Method: %s, Params: %s", req.ID, req.Method, string(req.Params))

	handler, exists := s.methodRegistry()[req.Method]
	if !exists {
		sendJSONRPCError(w, req.ID, ErrCodeMethodNotFound, "Method not found", fmt.Sprintf("Method '%s' not found", req.Method))
		return
	}

	result, err := handler(req.Params)
	if err != nil {
		utils.Error("method %s: %v", req.Method, err)
		sendJSONRPCError(w, req.ID, ErrCodeServerError, "Server error", err.Error())
		return
	}

	sendJSONRPCResponse(w, req.ID, result)
}

func sendJSONRPCResponse(w http.ResponseWriter, id interface{}, result interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func sendJSONRPCError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		ID: id,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func sendBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(okResponse)
}

func (s *Server) handleTargets(params json.RawMessage) (interface{}, error) {
	targets, err := s.manager.Registry().All()
	if err != nil {
		return nil, err
	}
	return devices.TargetInfoList(targets), nil
}

// RunStartParams carries the script and its fan-out for run.start. The
// script is given inline as a script document, or by path on the server's
// filesystem.
type RunStartParams struct {
	Script     json.RawMessage `json:"script,omitempty"`
	ScriptPath string          `json:"scriptPath,omitempty"`
	Targets    []string        `json:"targets"`
}

func (s *Server) handleRunStart(params json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("'params' is required with fields: script or scriptPath, targets")
	}

	var startParams RunStartParams
	if err := json.Unmarshal(params, &startParams); err != nil {
		return nil, fmt.Errorf("invalid parameters: %v. Expected fields: script or scriptPath, targets", err)
	}

	if len(startParams.Targets) == 0 {
		return nil, fmt.Errorf("'targets' is required")
	}

	var scr *script.Script
	var err error
	switch {
	case len(startParams.Script) > 0:
		scr, err = script.Unmarshal(startParams.Script)
	case startParams.ScriptPath != "":
		scr, err = script.Load(startParams.ScriptPath)
	default:
		return nil, fmt.Errorf("either 'script' or 'scriptPath' is required")
	}
	if err != nil {
		return nil, err
	}

	if err := s.manager.Launch(scr, startParams.Targets, engine.Config{}); err != nil {
		return nil, err
	}

	go s.manager.Wait()
	return okResponse, nil
}

func (s *Server) handleRunStatus(params json.RawMessage) (interface{}, error) {
	return s.manager.Status(), nil
}

func (s *Server) handleRunPause(params json.RawMessage) (interface{}, error) {
	s.manager.Pause()
	return okResponse, nil
}

func (s *Server) handleRunResume(params json.RawMessage) (interface{}, error) {
	s.manager.Resume()
	return okResponse, nil
}

func (s *Server) handleRunStop(params json.RawMessage) (interface{}, error) {
	s.manager.Stop()
	return okResponse, nil
}

// ScreenshotParams represents the parameters for the screenshot request
type ScreenshotParams struct {
	Serial  string `json:"serial"`
	Format  string `json:"format,omitempty"`  // "png" or "jpeg"
	Quality int    `json:"quality,omitempty"` // 1-100, only used for JPEG
}

func (s *Server) handleScreenshot(params json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("'params' is required with fields: serial")
	}

	var screenshotParams ScreenshotParams
	if err := json.Unmarshal(params, &screenshotParams); err != nil {
		return nil, fmt.Errorf("invalid parameters: %v. Expected fields: serial, format, quality", err)
	}

	target, err := s.manager.Registry().Find(screenshotParams.Serial)
	if err != nil {
		return nil, err
	}

	data, err := target.Screenshot()
	if err != nil {
		return nil, err
	}

	format := screenshotParams.Format
	if format == "" {
		format = "png"
	}
	if format == "jpeg" {
		img, err := utils.DecodePng(data)
		if err != nil {
			return nil, err
		}
		quality := screenshotParams.Quality
		if quality == 0 {
			quality = 90
		}
		data, err = utils.EncodeJpeg(img, quality)
		if err != nil {
			return nil, err
		}
	}

	return map[string]interface{}{
		"format": format,
		"data":   fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(data)),
	}, nil
}

func (s *Server) handleShutdown(params json.RawMessage) (interface{}, error) {
	s.manager.Stop()

	// respond first, then tear the listener down
	go func() {
		time.Sleep(100 * time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(ctx)
	}()
	return okResponse, nil
}
