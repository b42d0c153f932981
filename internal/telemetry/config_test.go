package telemetry_test

import (
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"testing"

	"github.com/petasbytes/newsverify/internal/telemetry"
)

// Run TestConfigChild in a clean env so startup-only telemetry config is deterministic.
func runWithEnv(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(os.Args[0], append([]string{"-test.run=^TestConfigChild$"}, args...)...)
	// Avoid setting empty NV_* vars; the child must see them as unset.
	base := []string{"GO_WANT_HELPER_PROCESS=1"}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "PATH=") {
			base = append(base, kv)
			break
		}
	}
	for k, v := range env {
		base = append(base, k+"="+v)
	}
	cmd.Env = base
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestStartupConfig_Matrix(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"baseline_off", map[string]string{}, "observe=false dir=.newsverify"},
		{"observe_on", map[string]string{"NV_OBSERVE_JSON": "1"}, "observe=true dir=.newsverify"},
		{"observe_garbage", map[string]string{"NV_OBSERVE_JSON": "yes"}, "observe=false dir=.newsverify"},
		{"custom_dir", map[string]string{"NV_ARTIFACTS_DIR": "/tmp/nv"}, "observe=false dir=/tmp/nv"},
		{"configure_overrides", map[string]string{"NV_CHILD_CONFIGURE": "1"}, "observe=true dir=configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runWithEnv(t, tt.env)
			if err != nil {
				t.Fatalf("subprocess error: %v\n%s", err, got)
			}
			if !containsLine(got, tt.want) {
				t.Fatalf("want line:\n%s\ngot output:\n%s", tt.want, got)
			}
		})
	}
}

// TestConfigChild prints the startup config for the parent to assert on.
func TestConfigChild(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("NV_CHILD_CONFIGURE") == "1" {
		telemetry.Configure(true, "configured")
	}
	fmt.Printf("observe=%v dir=%s\n", telemetry.ObserveEnabled(), telemetry.ArtifactsDir())
}

// containsLine reports whether output has a line exactly equal to want.
func containsLine(output, want string) bool {
	return slices.Contains(strings.Split(output, "\n"), want)
}
