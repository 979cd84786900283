package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadFile_Defaults verifies that the built-in values are used when neither
// a file nor environment variables are set.
func TestLoadFile_Defaults(t *testing.T) {
	t.Setenv("CONCRETEOCI_PORT", "")
	os.Unsetenv("CONCRETEOCI_PORT")

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "namespace_name", cfg.Namespace)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.TTLInterval)
}

func TestLoadFile_EnvVars(t *testing.T) {
	t.Setenv("CONCRETEOCI_PORT", "9001")
	t.Setenv("CONCRETEOCI_NAMESPACE", "testns")
	t.Setenv("CONCRETEOCI_LOG_LEVEL", "DEBUG")
	t.Setenv("CONCRETEOCI_TTL_INTERVAL", "5s")

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "testns", cfg.Namespace)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.TTLInterval)
}

// TestLoadFile_InvalidEnvVar verifies that the fallback is used when the
// environment variable cannot be parsed.
func TestLoadFile_InvalidEnvVar(t *testing.T) {
	t.Setenv("CONCRETEOCI_PORT", "not-a-port")
	t.Setenv("CONCRETEOCI_REQUEST_TIMEOUT", "soon")

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "concreteoci.yaml")
	content := "port: 7000\nnamespace: fromfile\nlogFormat: json\nttlInterval: 10s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONCRETEOCI_CONFIG", path)
	t.Setenv("CONCRETEOCI_PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Port)
	assert.Equal(t, "fromfile", cfg.Namespace)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.TTLInterval)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		t.Setenv("CONCRETEOCI_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("BadYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [1, 2"), 0o600))
		t.Setenv("CONCRETEOCI_CONFIG", path)
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("InvalidLogLevel", func(t *testing.T) {
		t.Setenv("CONCRETEOCI_CONFIG", "")
		t.Setenv("CONCRETEOCI_LOG_LEVEL", "verbose")
		_, err := Load()
		assert.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("PortOutOfRange", func(t *testing.T) {
		t.Setenv("CONCRETEOCI_CONFIG", "")
		t.Setenv("CONCRETEOCI_PORT", "70000")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadFile_TOML(t *testing.T) {
	t.Setenv("CONCRETEOCI_PORT", "")
	path := filepath.Join(t.TempDir(), "concreteoci.toml")
	content := "port = 7100\nnamespace = \"tomlns\"\nlogLevel = \"warn\"\nrequestTimeout = \"5s\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7100, cfg.Port)
	assert.Equal(t, "tomlns", cfg.Namespace)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.TTLInterval, "unset keys keep their defaults")
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Setenv("CONCRETEOCI_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "concreteoci.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\n"), 0o600))

	w, err := NewWatcher(path)
	require.NoError(t, err)

	// A rewrite may surface as several events, some of which see a truncated file.
	var (
		mu      sync.Mutex
		levels  []string
		lastErr error
	)
	w.OnChange = func(cfg *Config) {
		mu.Lock()
		defer mu.Unlock()
		levels = append(levels, cfg.LogLevel)
	}
	w.OnError = func(err error) {
		mu.Lock()
		defer mu.Unlock()
		lastErr = err
	}
	require.NoError(t, w.Start())
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\n"), 0o600))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(levels) > 0 && levels[len(levels)-1] == "debug"
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: loud\n"), 0o600))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return lastErr != nil
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorContains(t, lastErr, "invalid configuration")
}

func TestWatcher_RequiresPath(t *testing.T) {
	_, err := NewWatcher("")
	assert.Error(t, err)
}
