package meta

import (
	"os"
	"sync"
)

var (
	serviceName    string    //nolint:gochecknoglobals // for minimizing dependency injection across codebase
	serviceVersion string    //nolint:gochecknoglobals // for minimizing dependency injection across codebase
	once           sync.Once //nolint:gochecknoglobals // ensures SetServiceInfo is called once
)

// SetServiceInfo sets the global service name and version.
// This should be called once at application startup; subsequent calls are
// ignored. When name is empty, the SERVICE_NAME environment variable is
// used as a fallback, so short-lived scripts can identify themselves
// without any wiring.
func SetServiceInfo(name, version string) {
	once.Do(func() {
		if name == "" {
			name = os.Getenv("SERVICE_NAME")
		}
		serviceName = name
		serviceVersion = version
	})
}

// ServiceName returns the global service name.
func ServiceName() string {
	return serviceName
}

// ServiceVersion returns the global service version.
func ServiceVersion() string {
	return serviceVersion
}
