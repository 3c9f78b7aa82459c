package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	t.Run("creates up and down files", func(t *testing.T) {
		dir := t.TempDir()

		pair, err := CreateMigration(dir, "Add Receivables Table", "initial schema")
		require.NoError(t, err)

		assert.Equal(t, "add_receivables_table", pair.Name)
		assert.FileExists(t, pair.UpPath)
		assert.FileExists(t, pair.DownPath)

		up, err := os.ReadFile(pair.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "add_receivables_table")
		assert.Contains(t, string(up), "initial schema")
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), "---", "")
		assert.Error(t, err)
	})

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "migrations")

		pair, err := CreateMigration(dir, "seed", "")
		require.NoError(t, err)
		assert.FileExists(t, pair.UpPath)
	})
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"add users table", "add_users_table"},
		{"Add-Payments", "add_payments"},
		{"  spaced  out  ", "spaced_out"},
		{"v2_schema", "v2_schema"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.input), "input %q", tt.input)
	}
}

func TestListMigrations(t *testing.T) {
	t.Run("returns base names of pairs", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"001_init.up.sql",
			"001_init.down.sql",
			"002_orders.up.sql",
			"002_orders.down.sql",
			"README.md",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		}

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"001_init", "002_orders"}, migrations)
	})

	t.Run("missing directory yields empty list", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})
}
