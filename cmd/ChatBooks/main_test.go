package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	conf := `
[library]
booksDir = "` + filepath.ToSlash(filepath.Join(dir, "books")) + `"
processedDir = "` + filepath.ToSlash(filepath.Join(dir, "processed")) + `"

[localStore]
booksDir = "` + filepath.ToSlash(filepath.Join(dir, "vb")) + `"
qaDir = "` + filepath.ToSlash(filepath.Join(dir, "vq")) + `"

[aiConfig.chatModel]
provider = "disabled"

[aiConfig.speech]
provider = "disabled"
`
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "ingest", "ask", "qa", "worker"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	cmd, _, err := root.Find([]string{"qa", "add"})
	require.NoError(t, err)
	assert.Equal(t, "add", cmd.Name())
}

func TestIngestRequiresFiles(t *testing.T) {
	_, err := run(t, "--config", writeTestConfig(t), "ingest")
	assert.Error(t, err)
}

func TestQAAddRequiresFlags(t *testing.T) {
	_, err := run(t, "--config", writeTestConfig(t), "qa", "add", "-q", "only a question")
	assert.Error(t, err)
}

func TestQAAddAndIngestUnsupported(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, "--config", cfg, "qa", "add", "-q", "Who wrote it?", "-a", "Melville")
	require.NoError(t, err)
	assert.Contains(t, out, "stored ")

	txt := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	out, err = run(t, "--config", cfg, "ingest", txt)
	require.NoError(t, err)
	assert.Contains(t, out, "unsupported")
}

func TestAskWithoutChatModel(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, "--config", cfg, "ask", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "Please, add a document first.")

	_, err = run(t, "--config", cfg, "qa", "add", "-q", "Who wrote it?", "-a", "Melville")
	require.NoError(t, err)
	_, err = run(t, "--config", cfg, "ask", "Who wrote it?")
	assert.Error(t, err)
}

func TestWorkerRequiresKafka(t *testing.T) {
	_, err := run(t, "--config", writeTestConfig(t), "worker")
	assert.Error(t, err)
}
