// Package mlauncher runs a fixed set of long-lived applications (HTTP
// server, background sweepers, consumers) concurrently and waits for all
// of them to return.
package mlauncher

import (
	"sync"

	"github.com/cgcardona/maestro/pkg/mlog"
)

// App is one unit the Launcher runs to completion (or until the process
// is killed). Run receives the Launcher so an app can inspect siblings
// if it needs to, though most apps ignore it.
type App interface {
	Run(l *Launcher) error
}

// Launcher owns a named set of App instances and runs them all.
type Launcher struct {
	apps   map[string]App
	Logger mlog.Logger
	wg     *sync.WaitGroup
}

// NewLauncher builds a Launcher and applies each option.
func NewLauncher(opts ...func(*Launcher)) *Launcher {
	l := &Launcher{
		apps: make(map[string]App),
		wg:   &sync.WaitGroup{},
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.Logger == nil {
		l.Logger = &mlog.NoneLogger{}
	}

	return l
}

// WithLogger sets the Launcher's logger.
func WithLogger(logger mlog.Logger) func(*Launcher) {
	return func(l *Launcher) { l.Logger = logger }
}

// RunApp registers app under name.
func RunApp(name string, app App) func(*Launcher) {
	return func(l *Launcher) { l.Add(name, app) }
}

// Add registers app under name, overwriting any prior app with that name.
func (l *Launcher) Add(name string, app App) {
	if l.apps == nil {
		l.apps = make(map[string]App)
	}

	l.apps[name] = app
}

// Run starts every registered app in its own goroutine and blocks until
// all of them return.
func (l *Launcher) Run() {
	l.Logger.Infof("Starting %d app(s)\n", len(l.apps))

	for name, app := range l.apps {
		l.wg.Add(1)

		go func(name string, app App) {
			defer l.wg.Done()

			l.Logger.Info("--")
			l.Logger.Infof("Launcher: App [33m(%s)[0m starting\n", name)

			if err := app.Run(l); err != nil {
				l.Logger.Errorf("Launcher: App (%s) failed: %s\n", name, err)
				return
			}

			l.Logger.Infof("Launcher: App (%s) finished\n", name)
		}(name, app)
	}

	l.wg.Wait()
	l.Logger.Info("Launcher: Terminated")
}
