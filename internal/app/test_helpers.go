package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance for system testing. Reports and
// logs are captured in separate buffers; set SYNCGRAPH_TEST_LOGS=true to dump
// the logs after the test.
func SetupAppTest(t *testing.T, cfg *Config, opts ...Option) (*App, *SafeBuffer, *SafeBuffer) {
	t.Helper()

	out := &SafeBuffer{}
	logs := &SafeBuffer{}
	cfg.LogLevel = "debug"
	opts = append([]Option{WithLogWriter(logs)}, opts...)

	testApp, err := NewApp(out, cfg, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, testApp.Close())
		if os.Getenv("SYNCGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return testApp, out, logs
}
