package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["reset-password"])
	assert.True(t, names["import-snapshot"])
	assert.True(t, names["export-snapshot"])
}

func TestResetPasswordRequiresPassword(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"reset-password", "--email", "rahim@test.com"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"password" not set`)
}

func TestSnapshotRoundTripThroughCLI(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BABURCHI_DATABASE_DRIVER", "sqlite")
	t.Setenv("BABURCHI_DATABASE_SQLITE_PATH", filepath.Join(dir, "cli.db"))

	input := filepath.Join(dir, "backup.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"baburchi_products":"[{\"id\":\"p1\",\"sku\":\"CHILI-500\",\"name\":\"Chili\",\"price\":550}]"}`), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"import-snapshot", input})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Imported 1 products")

	out.Reset()
	rootCmd.SetArgs([]string{"export-snapshot"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), `"sku": "CHILI-500"`)
	assert.Contains(t, out.String(), `"stock": 50`)
}
