// Package app is the top-level wiring point: a Plugin registers systems and
// resources into a World and Schedules container, and App drives a set of
// plugins through their lifecycle and then into the tick loop.
//
// © 2025 verseengine authors. MIT License.
package app

import (
	"github.com/xentripetal/verseengine/ecs"
	"github.com/xentripetal/verseengine/scheduler"
)

// Plugin is the unit of composition every engine feature (asset loading, a
// game's own gameplay systems) implements. Only Build is required; the
// other three let a plugin defer work until the rest of the app has had a
// chance to register its own resources.
type Plugin interface {
	// Build registers this plugin's systems, resources and schedules into
	// app. Called once, in registration order, before any Ready check.
	Build(app *App)
}

// ReadyPlugin is implemented by a Plugin that needs to block App.Run's
// startup until some asynchronous precondition is satisfied (a connection
// established, a config file parsed by another plugin). Ready is polled
// about once a millisecond, before the main loop starts, until every
// registered plugin reports true.
type ReadyPlugin interface {
	Ready(app *App) bool
}

// FinishPlugin runs once, after every plugin's Build has been called and
// every ReadyPlugin has reported ready, but before Startup. Use this for
// wiring that depends on another plugin's Build having already run (e.g.
// registering a loader against an asset.Server another plugin constructed).
type FinishPlugin interface {
	Finish(app *App)
}

// CleanupPlugin runs once, in reverse registration order, after every
// FinishPlugin has run and before App.Run enters the main loop. If App.Run's
// context is canceled while it is still waiting for readiness, Cleanup runs
// then instead.
type CleanupPlugin interface {
	Cleanup(app *App)
}
