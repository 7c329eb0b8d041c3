package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := load(nil, "", lookupFrom(map[string]string{"MIABE_AUTH_SECRET": "s3cret"}))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, int64(50), cfg.ReferrerReward)
	require.Equal(t, int64(0), cfg.RedeemerReward)
	require.Equal(t, 6, cfg.ReferralCodeLength)
	require.Equal(t, 8, cfg.JoinCodeLength)
	require.Equal(t, 10, cfg.MaxIdentifierAttempts)
	require.Equal(t, 5*time.Second, cfg.VideoPollInterval)
	require.Equal(t, 60, cfg.VideoMaxPollAttempts)
	require.False(t, cfg.StorageEnabled())
	require.False(t, cfg.VideoEnabled())
}

func TestLayering(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "MIABE_AUTH_SECRET=from-file\nMIABE_REFERRAL_REWARD=75\nMIABE_HTTP_ADDR=:7000\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	env := map[string]string{
		"MIABE_HTTP_ADDR":           ":9000",
		"MIABE_CORS_ORIGINS":        "https://miabesite.com, http://localhost:3000,",
		"MIABE_VIDEO_POLL_INTERVAL": "2s",
		"MIABE_AUTO_MIGRATE":        "true",
		"MIABE_TRUSTED_PROXIES":     "10.0.0.0/8,127.0.0.1",
	}
	cfg, err := load([]string{"-addr", ":9100", "-sweep"}, envFile, lookupFrom(env))
	require.NoError(t, err)

	require.Equal(t, "from-file", cfg.AuthSecret)
	require.Equal(t, int64(75), cfg.ReferrerReward)
	require.Equal(t, ":9100", cfg.HTTPAddr, "flags win over env and .env")
	require.Equal(t, []string{"https://miabesite.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	require.Equal(t, 2*time.Second, cfg.VideoPollInterval)
	require.True(t, cfg.VideoSweep)
	require.True(t, cfg.AutoMigrate)
	require.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MIABE_AUTH_SECRET=file\n"), 0o600))

	cfg, err := load(nil, envFile, lookupFrom(map[string]string{"MIABE_AUTH_SECRET": "env"}))
	require.NoError(t, err)
	require.Equal(t, "env", cfg.AuthSecret)
}

func TestInvalidValues(t *testing.T) {
	_, err := load(nil, "", lookupFrom(map[string]string{
		"MIABE_AUTH_SECRET":     "x",
		"MIABE_REFERRAL_REWARD": "lots",
	}))
	require.Error(t, err)

	_, err = load(nil, "", lookupFrom(map[string]string{}))
	require.ErrorContains(t, err, "AUTH_SECRET")

	_, err = load(nil, "", lookupFrom(map[string]string{
		"MIABE_AUTH_SECRET":          "x",
		"MIABE_REFERRAL_CODE_LENGTH": "2",
	}))
	require.Error(t, err)

	_, err = load([]string{"-unknown"}, "", lookupFrom(map[string]string{"MIABE_AUTH_SECRET": "x"}))
	require.Error(t, err)
}

func TestStorageEnabled(t *testing.T) {
	cfg := &Config{S3Bucket: "assets", S3AccessKey: "a", S3SecretKey: "b"}
	require.True(t, cfg.StorageEnabled())
}
