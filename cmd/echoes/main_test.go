package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("ECHOES_ANTHROPIC_API_KEY", "")
	t.Setenv("GITHUB_TOKEN", "")
	return &cli{t: t, db: filepath.Join(t.TempDir(), "echoes.db")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db", c.db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

var savedID = regexp.MustCompile(`New entry saved! \((\d+)\)`)

func TestCLI_EntryLifecycle(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("list")
	assert.Contains(t, out, "No entries yet")

	out = c.mustRun("add", "--title", "Harbor", "--date", "2024-05-01", "I", "walked", "along", "the", "harbor.")
	m := savedID.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	out = c.mustRun("show", id)
	assert.Contains(t, out, "Title:   Harbor")
	assert.Contains(t, out, "Date:    2024-05-01")
	assert.Contains(t, out, "I walked along the harbor.")

	c.mustRun("edit", id, "--title", "Harbor at dusk")
	out = c.mustRun("list")
	assert.Contains(t, out, "Harbor at dusk")

	out = c.mustRun("stats")
	assert.Contains(t, out, "Entries: 1")

	c.mustRun("delete", id)
	_, err := c.run("show", id)
	require.Error(t, err)
}

func TestCLI_AddRejectsBlank(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("add", "   ")
	require.Error(t, err)
}

func TestCLI_EchoesWithoutKey(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("echoes", "A long enough entry about the sea and the wind.")
	require.Error(t, err)
}

func TestCLI_ExportImport(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "--date", "2024-01-01", "first entry")
	c.mustRun("add", "--date", "2024-01-02", "second entry")

	file := filepath.Join(t.TempDir(), "backup.json")
	out := c.mustRun("export", "-o", file)
	assert.Contains(t, out, "Exported 2 entries")

	other := newCLI(t)
	out = other.mustRun("import", file)
	assert.Contains(t, out, "Imported 2 new entries.")
	out = other.mustRun("import", file)
	assert.Contains(t, out, "Imported 0 new entries.")

	txt := filepath.Join(t.TempDir(), "backup.txt")
	require.NoError(t, os.WriteFile(txt, []byte("[]"), 0o600))
	_, err := other.run("import", txt)
	require.Error(t, err)
}

// fakeGitHub serves one file of the contents API.
func fakeGitHub(t *testing.T) (*httptest.Server, func() []byte) {
	t.Helper()
	var (
		mu      sync.Mutex
		content []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			if content == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"sha": "abc", "content": base64.StdEncoding.EncodeToString(content),
			})
		case http.MethodPut:
			var req struct {
				Content string `json:"content"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			content, _ = base64.StdEncoding.DecodeString(req.Content)
			w.WriteHeader(http.StatusCreated)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []byte {
		mu.Lock()
		defer mu.Unlock()
		return content
	}
}

func TestCLI_Sync(t *testing.T) {
	srv, remote := fakeGitHub(t)
	c := newCLI(t)
	t.Setenv("ECHOES_GITHUB_API_URL", srv.URL)

	_, err := c.run("sync", "push")
	require.Error(t, err)

	c.mustRun("sync", "config", "set", "-u", "ada", "-r", "journal", "-p", "diary.json", "--token", "ghp_secret")
	out := c.mustRun("sync", "config", "show")
	assert.Contains(t, out, "Token:    set")
	assert.NotContains(t, out, "ghp_secret")

	out = c.mustRun("sync", "push")
	assert.Contains(t, out, "No entries to sync.")
	assert.Nil(t, remote())

	c.mustRun("add", "--date", "2024-01-01", "an entry worth keeping")
	out = c.mustRun("sync", "pull")
	assert.Contains(t, out, "Pushed 1 local entries")
	assert.Contains(t, string(remote()), "an entry worth keeping")

	other := newCLI(t)
	t.Setenv("ECHOES_GITHUB_API_URL", srv.URL)
	other.mustRun("sync", "config", "set", "-u", "ada", "-r", "journal", "-p", "diary.json", "--token", "t")
	out = other.mustRun("sync", "pull")
	assert.Contains(t, out, "Synced 1 new entries from GitHub!")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\nb\tc", 10))
	assert.Equal(t, "שלום ע...", truncate("שלום עולם יפה", 9))
}
