package cli

import (
	"github.com/sendflowr/pulse/adapter/api"
	identityApp "github.com/sendflowr/pulse/internal/identity/application"
	"github.com/sendflowr/pulse/internal/simulation"
	"github.com/sendflowr/pulse/internal/timing/application/services"
	"github.com/sendflowr/pulse/pkg/config"
)

// App holds the CLI application dependencies.
type App struct {
	Config *config.Config

	// Timing engine
	DecisionService *services.DecisionService
	FeatureService  *services.FeatureService

	// Identity resolution
	Resolver *identityApp.Resolver

	// API server, assembled but not started
	Server *api.Server

	// Event store loader for the seed command
	EventWriter simulation.EventWriter
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
