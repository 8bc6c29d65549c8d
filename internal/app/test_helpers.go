package app

import (
	"bytes"
	"os"
	"testing"

	"github.com/specialistvlad/calocluster/internal/testutil"
)

// SetupAppTest creates an App whose output and debug logs are captured.
// Set CALOCLUSTER_TEST_LOGS=true to print the logs after the test.
func SetupAppTest(t *testing.T, cfg *Config, opts ...Option) (*App, *bytes.Buffer, *testutil.SafeBuffer) {
	t.Helper()

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	a := NewApp(out, logs, cfg, opts...)

	t.Cleanup(func() {
		if t.Failed() || os.Getenv("CALOCLUSTER_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, out, logs
}
