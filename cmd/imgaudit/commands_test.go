package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgaudit/pkg/ui"
)

type cliEnv struct {
	dir        string
	configPath string
	dbPath     string
	cursorPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "imgaudit.yaml"),
		dbPath:     filepath.Join(dir, "images.db"),
		cursorPath: filepath.Join(dir, "process.txt"),
	}

	content := fmt.Sprintf(`database:
  driver: sqlite
  name: %s
  table: images
  connect_attempts: 1
checkpoint:
  file: %s
output:
  corrupted_urls_file: %s
  corrupted_ids_file: %s
logging:
  level: error
`, env.dbPath, env.cursorPath, filepath.Join(dir, "urls.txt"), filepath.Join(dir, "ids.txt"))
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0644))
	return env
}

// run executes the command tree and returns what it printed
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	ui.SetOutput(&buf)
	ui.SetColor(false)
	defer ui.SetOutput(nil)

	rootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestDBMigrateThenStatus(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "db", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date")

	db, err := sql.Open("sqlite", env.dbPath)
	require.NoError(t, err)
	for _, id := range []int64{3, 5, 9} {
		_, err := db.Exec(`INSERT INTO images (id, ref_id, image_path) VALUES (?, ?, ?)`, id, fmt.Sprintf("R%03d", id), fmt.Sprintf("img/%d.jpg", id))
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	out, err = env.run(t, "checkpoint", "set", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Cursor set to 4")

	out, err = env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Cursor: 4")
	assert.Contains(t, out, "Upper bound: 9")
	assert.Contains(t, out, "Remaining ids: 5")
}

func TestCheckpointSetAndShow(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "checkpoint", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No checkpoint saved yet")
	assert.Contains(t, out, "Cursor: 1")

	_, err = env.run(t, "checkpoint", "set", "250")
	require.NoError(t, err)

	data, err := os.ReadFile(env.cursorPath)
	require.NoError(t, err)
	assert.Equal(t, "250", strings.TrimSpace(string(data)))

	out, err = env.run(t, "checkpoint", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Cursor: 250")
	assert.NotContains(t, out, "No checkpoint saved yet")
}

func TestCheckpointSetRejectsInvalidCursor(t *testing.T) {
	env := newCLIEnv(t)

	for _, arg := range []string{"0", "-3", "ten"} {
		_, err := env.run(t, "checkpoint", "set", "--", arg)
		assert.Error(t, err, arg)
	}

	_, err := os.Stat(env.cursorPath)
	assert.True(t, os.IsNotExist(err))
}
