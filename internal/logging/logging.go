// Package logging configures the process-wide logp backend and hands out
// named loggers, the same split stress_pipeline/main.go uses: one call to
// the configure package at startup, then *logp.Logger values threaded
// through constructors via .Named(...) rather than a package-global.
package logging

import (
	"github.com/elastic/elastic-agent-libs/config"
	"github.com/elastic/elastic-agent-libs/logp"
	logpcfg "github.com/elastic/elastic-agent-libs/logp/configure"
)

// Configure initializes the global logp backend for the named component.
// cfg may be nil, in which case logp falls back to its own defaults.
func Configure(name string, cfg *config.C) error {
	return logpcfg.Logging(name, cfg)
}

// Root returns the top-level "logqueued" logger. Components should call
// .Named(...) on it rather than holding onto the root directly.
func Root() *logp.Logger {
	return logp.NewLogger("logqueued")
}
