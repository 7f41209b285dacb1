package cfgloader

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacutils/pkg/mailalert"
)

// writeConfigFile places a config file for the test environment under a
// temp working directory, mirroring the ./config/${ENVIRONMENT}.yaml layout
// MustLoad expects.
func writeConfigFile(t *testing.T, contents string) {
	t.Helper()

	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll("config", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("config", "test.yaml"), []byte(contents), 0o600))
}

// captureSlog routes the default slog output into a buffer for the duration
// of the test, so the config print path can be asserted on.
func captureSlog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

const alertYAML = `
from_addr: alerts@example.com
to_addrs:
  - ops@example.com
password_file: .secrets/smtp_pwd
smtp_host: ${SMTP_HOST}
`

func TestMustLoad_DefaultsAndEnvExpansion(t *testing.T) {
	t.Setenv("ENVIRONMENT", EnvTest)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	writeConfigFile(t, alertYAML)

	cfg := MustLoad[mailalert.Config](WithSilent())

	assert.Equal(t, "alerts@example.com", cfg.FromAddr)
	assert.Equal(t, []string{"ops@example.com"}, cfg.ToAddrs)
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost, "env var references must be expanded")

	// Fields absent from the yaml pick up their declared defaults.
	assert.Equal(t, "[ALERT]", cfg.SubjectPrefix)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 30*time.Second, cfg.SendTimeout)
	assert.Equal(t, "error", cfg.MinLevel)
}

func TestMustLoad_PrintsMaskedConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", EnvTest)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	writeConfigFile(t, alertYAML)
	out := captureSlog(t)

	MustLoad[mailalert.Config]()

	printed := out.String()
	assert.Contains(t, printed, "Loaded config")
	assert.Contains(t, printed, strings.Repeat("*", len(".secrets/smtp_pwd")))
	assert.NotContains(t, printed, ".secrets/smtp_pwd", "masked fields must not print in clear text")
}

func TestMustLoad_SilentSuppressesPrint(t *testing.T) {
	t.Setenv("ENVIRONMENT", EnvTest)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	writeConfigFile(t, alertYAML)
	out := captureSlog(t)

	MustLoad[mailalert.Config](WithSilent())

	assert.NotContains(t, out.String(), "Loaded config")
}

func TestMaskStruct(t *testing.T) {
	type creds struct {
		User string `yaml:"user"`
		Pass string `yaml:"pass" mask:"true"`
	}
	type cfg struct {
		Host  string `yaml:"host"`
		Port  int    `yaml:"port" mask:"true"`
		Creds creds  `yaml:"creds"`
	}

	tests := []struct {
		name     string
		in       cfg
		expected cfg
	}{
		{
			name:     "masked string becomes asterisks",
			in:       cfg{Host: "db.internal", Creds: creds{User: "svc", Pass: "hunter2"}},
			expected: cfg{Host: "db.internal", Creds: creds{User: "svc", Pass: "*******"}},
		},
		{
			name:     "masked non-string zeroes out",
			in:       cfg{Host: "db.internal", Port: 5432},
			expected: cfg{Host: "db.internal", Port: 0},
		},
		{
			name:     "unmasked fields pass through",
			in:       cfg{Host: "db.internal", Creds: creds{User: "svc"}},
			expected: cfg{Host: "db.internal", Creds: creds{User: "svc"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, maskStruct(tc.in))
		})
	}
}
