package telemetry

import (
	"os"
	"sync"
)

const defaultArtifactsDir = ".newsverify"

var (
	mu             sync.RWMutex
	observeEnabled bool
	artifactsDir   string
)

func init() {
	// Read once at process start; Configure may override from the config file.
	observeEnabled = os.Getenv("NV_OBSERVE_JSON") == "1"
	artifactsDir = os.Getenv("NV_ARTIFACTS_DIR")
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
}

// Configure sets the startup values from loaded configuration. An empty dir
// keeps the current directory.
func Configure(observe bool, dir string) {
	mu.Lock()
	defer mu.Unlock()
	observeEnabled = observe
	if dir != "" {
		artifactsDir = dir
	}
}

// ObserveEnabled reports whether JSONL emission is on.
func ObserveEnabled() bool {
	// Allow tests to flip emission mid-run via env.
	switch os.Getenv("NV_OBSERVE_JSON") {
	case "1":
		return true
	case "0":
		return false
	}
	mu.RLock()
	defer mu.RUnlock()
	return observeEnabled
}

// ArtifactsDir returns the directory holding events.jsonl.
func ArtifactsDir() string {
	if v := os.Getenv("NV_ARTIFACTS_DIR"); v != "" {
		return v
	}
	mu.RLock()
	defer mu.RUnlock()
	return artifactsDir
}
