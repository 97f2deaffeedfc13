package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/contact-directory/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "bootstrap"}, names)
}

func TestBootstrapCmd_SQLite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", filepath.Join(dir, "contacts.sqlite"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("BCRYPT_COST", "4")

	run := func() string {
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetArgs([]string{"bootstrap"})
		require.NoError(t, root.Execute())
		return out.String()
	}

	assert.Contains(t, run(), "action=created")
	assert.Contains(t, run(), "action=none")
}

func TestMigrateCmd_SQLite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", filepath.Join(dir, "contacts.sqlite"))
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.Execute())

	_, err := os.Stat(filepath.Join(dir, "contacts.sqlite"))
	assert.NoError(t, err)
}

func TestNewServer_UsesConfiguredTimeouts(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         9090,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 4 * time.Second,
	}}

	srv := newServer(cfg, nil)

	assert.Equal(t, "127.0.0.1:9090", srv.Addr)
	assert.Equal(t, 3*time.Second, srv.ReadTimeout)
	assert.Equal(t, 4*time.Second, srv.WriteTimeout)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
}

func TestTLSFiles(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))

	tests := []struct {
		name     string
		tls      config.TLSConfig
		wantTLS  bool
		wantWarn string
	}{
		{"disabled", config.TLSConfig{Enabled: false, CertFile: cert, KeyFile: key}, false, "TLS disabled; serving plain HTTP"},
		{"enabled with files", config.TLSConfig{Enabled: true, CertFile: cert, KeyFile: key}, true, ""},
		{"missing key", config.TLSConfig{Enabled: true, CertFile: cert, KeyFile: filepath.Join(dir, "nope.pem")}, false, "TLS files not found; falling back to plain HTTP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			certFile, keyFile, ok := tlsFiles(tt.tls, zap.New(core))

			assert.Equal(t, tt.wantTLS, ok)
			if tt.wantTLS {
				assert.Equal(t, cert, certFile)
				assert.Equal(t, key, keyFile)
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.Len())
			assert.Equal(t, tt.wantWarn, logs.All()[0].Message)
		})
	}
}
