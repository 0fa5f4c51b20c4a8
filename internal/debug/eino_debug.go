// Package debug starts the eino visual debugger for the advice chain.
package debug

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/rs/zerolog"

	"github.com/dyike/audney/config"
)

const defaultDevServerPort = 52538

type EinoDebugger struct {
	config *config.Config
	logger zerolog.Logger
}

func NewEinoDebugger(cfg *config.Config, logger zerolog.Logger) *EinoDebugger {
	return &EinoDebugger{
		config: cfg,
		logger: logger.With().Str("component", "eino_debug").Logger(),
	}
}

// Initialize starts the devops server. It must run before the advice chain
// is compiled so the graph is registered with it.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.config.EinoDebugEnabled {
		return nil
	}

	d.logger.Debug().Str("port", d.devServerPort()).Msg("initializing eino debug plugin")
	if err := devops.Init(ctx, devops.WithDevServerPort(d.devServerPort())); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.logger.Info().Str("url", d.GetDebugURL()).Msg("eino debug server ready")
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.config.EinoDebugEnabled {
		return ""
	}
	return "http://localhost:" + d.devServerPort()
}

func (d *EinoDebugger) devServerPort() string {
	if d.config.EinoDebugPort <= 0 {
		return strconv.Itoa(defaultDevServerPort)
	}
	return strconv.Itoa(d.config.EinoDebugPort)
}
