package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testHashKey = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{
			"ADMIN_AUTH_API_URL":     "https://auth.example.com/v1",
			"ADMIN_SESSION_HASH_KEY": testHashKey,
		}),
	)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, "/admin", cfg.Server.BasePath)
	require.Equal(t, time.Second, cfg.Login.RedirectDelay)
	require.Equal(t, 10, cfg.Login.PerMinute)
	require.True(t, cfg.Session.CookieSecure)
	require.Equal(t, []byte(testHashKey), cfg.Session.HashKey)
	require.Nil(t, cfg.Session.BlockKey)
}

func TestLoadZeroRedirectDelay(t *testing.T) {
	t.Parallel()

	cfg, err := Load(
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{
			"ADMIN_AUTH_API_URL":         "https://auth.example.com/v1",
			"ADMIN_SESSION_HASH_KEY":     testHashKey,
			"ADMIN_LOGIN_REDIRECT_DELAY": "0",
		}),
	)
	require.NoError(t, err)
	require.Zero(t, cfg.Login.RedirectDelay)
}

func TestLoadDotEnvPrecedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# local\nexport ADMIN_BASE_PATH=/console\nADMIN_LOGIN_REDIRECT_DELAY=\"250ms\"\nADMIN_AUTH_API_URL=http://localhost:9000\nADMIN_SESSION_HASH_KEY=" + testHashKey + "\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	cfg, err := Load(
		WithEnvFile(envPath),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"ADMIN_BASE_PATH": "/override"}),
	)
	require.NoError(t, err)
	require.Equal(t, "/override", cfg.Server.BasePath)
	require.Equal(t, 250*time.Millisecond, cfg.Login.RedirectDelay)
	require.Equal(t, "http://localhost:9000", cfg.Auth.BaseURL)
}

func TestLoadBase64Keys(t *testing.T) {
	t.Parallel()

	cfg, err := Load(
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{
			"ADMIN_AUTH_API_URL":      "https://auth.example.com",
			"ADMIN_SESSION_HASH_KEY":  "base64:MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=",
			"ADMIN_SESSION_BLOCK_KEY": "base64:MDEyMzQ1Njc4OWFiY2RlZg==",
		}),
	)
	require.NoError(t, err)
	require.Equal(t, []byte(testHashKey), cfg.Session.HashKey)
	require.Len(t, cfg.Session.BlockKey, 16)
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	_, err := Load(
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{
			"ADMIN_AUTH_API_URL":       "/relative",
			"ADMIN_SESSION_HASH_KEY":   "short",
			"ADMIN_SESSION_BLOCK_KEY":  "base64:!!!",
			"ADMIN_LOGIN_RATE_PER_MIN": "0",
		}),
	)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	require.ElementsMatch(t, []string{
		"ADMIN_SESSION_BLOCK_KEY",
		"Auth.BaseURL",
		"Session.HashKey",
		"Login.PerMinute",
	}, vErr.Fields())
}
