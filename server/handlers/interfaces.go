// Package handlers provides HTTP handlers for the activityboard server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"time"

	"github.com/nomis52/activityboard/board"
	"github.com/nomis52/activityboard/capacity"
	"github.com/nomis52/activityboard/config"
	"github.com/nomis52/activityboard/server/types"
)

// PropertiesProvider describes the running server.
type PropertiesProvider interface {
	Properties() types.ServerProperties
}

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Reloader can reload its configuration.
type Reloader interface {
	Reload() error
}

// BoardProvider provides the current board controller. The controller is
// replaced when the configuration is reloaded.
type BoardProvider interface {
	Board() *board.Controller
}

// CapacityProvider provides the capacity report and its schedule.
type CapacityProvider interface {
	CapacityReport() *capacity.Report
	NextRun() *time.Time
}

// CapacityHistoryProvider provides the stored capacity reports, newest first.
type CapacityHistoryProvider interface {
	CapacityHistory() []capacity.Report
}
