package commands

import (
	"sync"

	"github.com/szuyu2308/Tool-Simulator/devices"
	"github.com/szuyu2308/Tool-Simulator/engine"
	"github.com/szuyu2308/Tool-Simulator/utils"
)

// CommandResponse represents a standardized response format for all commands
type CommandResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) *CommandResponse {
	return &CommandResponse{
		Status: "ok",
		Data:   data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err error) *CommandResponse {
	return &CommandResponse{
		Status: "error",
		Error:  err.Error(),
	}
}

var (
	setupOnce sync.Once
	config    utils.Config
	manager   *engine.Manager
)

// Setup installs the runtime configuration. Called once at startup before
// any command runs; later calls are ignored.
func Setup(cfg utils.Config) {
	setupOnce.Do(func() {
		config = cfg
		manager = engine.NewManager(devices.NewAdb(cfg.AdbPath), cfg)
	})
}

// Manager returns the shared run manager, building one from defaults when
// Setup was never called.
func Manager() *engine.Manager {
	Setup(utils.DefaultConfig())
	return manager
}

// Configuration returns the installed runtime configuration.
func Configuration() utils.Config {
	Setup(utils.DefaultConfig())
	return config
}

// FindTarget resolves a serial to a connected target.
func FindTarget(serial string) (devices.Target, error) {
	return Manager().Registry().Find(serial)
}
