// SPDX-License-Identifier: MIT
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay247.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{
			name:     "valid",
			body:     "relay:\n  candidates: [room1]\n",
			wantCode: 0,
			wantOut:  "is valid",
		},
		{
			name:     "invalid_rescan",
			body:     "relay:\n  rescan_interval: 1ms\n",
			wantCode: 1,
			wantErr:  "rescan_interval",
		},
		{
			name:     "unknown_key",
			body:     "relay:\n  candidatez: [room1]\n",
			wantCode: 1,
			wantErr:  "Configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := configCLI([]string{"validate", "-f", writeConfigFile(t, tt.body)}, &stdout, &stderr)
			assert.Equal(t, tt.wantCode, code, stderr.String())
			if tt.wantOut != "" {
				assert.Contains(t, stdout.String(), tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, stderr.String(), tt.wantErr)
			}
		})
	}
}

func TestConfigValidate_RequiresFile(t *testing.T) {
	t.Setenv("RELAY247_CONFIG", "")
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, configCLI([]string{"validate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "--file is required")
}

func TestConfigDump_RedactsSecrets(t *testing.T) {
	path := writeConfigFile(t, "ingest:\n  token: super-secret\napi:\n  token: api-secret\nproxy: http://user:pw@proxy:8080\n")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, configCLI([]string{"dump", "-f", path, "--format=json"}, &stdout, &stderr), stderr.String())

	out := stdout.String()
	assert.NotContains(t, out, "super-secret")
	assert.NotContains(t, out, "api-secret")
	assert.NotContains(t, out, "user:pw")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	assert.Equal(t, "http://proxy:8080", decoded["Proxy"])
}

func TestConfigDump_YAML(t *testing.T) {
	path := writeConfigFile(t, "relay:\n  candidates: [a, b]\n")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, configCLI([]string{"dump", "-f", path}, &stdout, &stderr), stderr.String())

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &decoded))
	assert.Contains(t, decoded, "relay")
}

func TestConfigCLI_UnknownSubcommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, configCLI([]string{"bogus"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Unknown subcommand")
}

func TestConfigInit_WritesLoadableDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relay247.yaml")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, configCLI([]string{"init", "-f", path}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "wrote")

	stdout.Reset()
	assert.Equal(t, 0, configCLI([]string{"validate", "-f", path}, &stdout, &stderr), stderr.String())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	stderr.Reset()
	assert.Equal(t, 1, configCLI([]string{"init", "-f", path}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "already exists")

	assert.Equal(t, 0, configCLI([]string{"init", "-f", path, "--force"}, &stdout, &stderr))
}
