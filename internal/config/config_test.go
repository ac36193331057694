package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Driver:        "rod",
		Headless:      true,
		Width:         1280,
		Height:        720,
		Timeout:       30 * time.Second,
		ScriptTimeout: 2 * time.Second,
		PollInterval:  50 * time.Millisecond,
	}, c)
	assert.NoError(t, c.Validate())
}

func TestLoadEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PAGEWAIT_DRIVER", "playwright")
	t.Setenv("PAGEWAIT_HEADLESS", "false")
	t.Setenv("PAGEWAIT_SCRIPT_TIMEOUT", "500ms")
	t.Setenv("PAGEWAIT_ARTIFACTS", "/tmp/shots")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "playwright", c.Driver)
	assert.False(t, c.Headless)
	assert.Equal(t, 500*time.Millisecond, c.ScriptTimeout)
	assert.Equal(t, "/tmp/shots", c.ArtifactDir)
}

func TestLoadDotEnvFile(t *testing.T) {
	// t.Setenv registers cleanup for the variables godotenv will set
	t.Setenv("PAGEWAIT_WIDTH", "")
	require.NoError(t, os.Unsetenv("PAGEWAIT_WIDTH"))
	t.Setenv("PAGEWAIT_DRIVER", "chromedp")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PAGEWAIT_WIDTH=800\nPAGEWAIT_DRIVER=rod\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 800, c.Width)
	assert.Equal(t, "chromedp", c.Driver, "environment wins over .env")
}

func TestLoadMissingDotEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PAGEWAIT_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Config{Driver: "selenium", Width: 0, Height: 720}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "selenium"`)
	assert.Contains(t, err.Error(), "viewport must be positive")
	assert.Contains(t, err.Error(), "timeout must be positive")
}

func TestBrowserOptions(t *testing.T) {
	c := Config{Driver: "chromedp", Width: 640, Height: 480, Headless: true, ProfileDir: "/p"}
	o := c.BrowserOptions()
	assert.Equal(t, "chromedp", o.Driver)
	assert.Equal(t, 640, o.Width)
	assert.True(t, o.Headless)
	assert.Equal(t, "/p", o.ProfileDir)
}
