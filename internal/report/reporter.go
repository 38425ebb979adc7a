package report

import (
	"os"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
)

// Options configures the Sentry client
type Options struct {
	DSN         string
	Environment string
	Release     string
}

// Setup initializes Sentry. An empty DSN leaves the client disabled so
// reporting calls become no-ops.
func Setup(opts Options) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		EnableTracing:    opts.DSN != "",
		TracesSampleRate: 0.2,
	}); err != nil {
		return err
	}
	ConfigureScope(opts.Environment, opts.Release)
	return nil
}

// Flush waits for buffered events to be delivered
func Flush() {
	sentry.Flush(2 * time.Second)
}

// ConfigureScope sets global Sentry scope tags and context related to the runtime and host.
func ConfigureScope(env, version string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("env", env)
		scope.SetTag("app_version", version)
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("goarch", runtime.GOARCH)
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": getHostname(),
		})
	})
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// Reporter sends solver failures to Sentry through a hub
type Reporter struct {
	hub *sentry.Hub
}

// NewReporter creates a Reporter on the given hub, or the current hub if nil
func NewReporter(hub *sentry.Hub) *Reporter {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &Reporter{hub: hub}
}

// ReportSolveFailure captures err tagged with the session and operation
func (r *Reporter) ReportSolveFailure(err error, sessionID, operation string) {
	if r == nil || err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("session_id", sessionID)
		scope.SetTag("operation", operation)
		r.hub.CaptureException(err)
	})
}
