package commands

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfa/chat-tui/chat"
	"github.com/jpfa/chat-tui/store"
)

type request struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	mu       sync.Mutex
	requests []request
}

func (s *testServer) calls() []request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]request(nil), s.requests...)
}

// setup points HOME and JPFA_SERVER at temporary fixtures and returns the
// profile directory.
func setup(t *testing.T) (*testServer, string) {
	t.Helper()
	color.NoColor = true

	ts := &testServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ts.mu.Lock()
		ts.requests = append(ts.requests, request{r.Method, r.URL.Path, string(body)})
		ts.mu.Unlock()

		if r.Method == http.MethodGet && r.URL.Path == "/conversations" {
			_, _ = io.WriteString(w, `[{"id":1,"title":"first"},{"id":2,"title":""}]`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("JPFA_SERVER", srv.URL)
	t.Setenv("JPFA_TOKEN", "")
	return ts, filepath.Join(home, ".jpfa")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func storeSelection(t *testing.T, profileDir string, id chat.ID) {
	t.Helper()
	st, err := store.Open(profileDir)
	require.NoError(t, err)
	require.NoError(t, st.SetLastConversation(id))
	require.NoError(t, st.Close())
}

func storedSelection(t *testing.T, profileDir string) chat.ID {
	t.Helper()
	st, err := store.Open(profileDir)
	require.NoError(t, err)
	defer st.Close()
	id, err := st.LastConversation()
	require.NoError(t, err)
	return id
}

func TestConversationsList(t *testing.T) {
	_, dir := setup(t)
	storeSelection(t, dir, "2")

	out, err := execute(t, "conversations", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "TITLE")
	assert.Contains(t, lines[1], "first")
	assert.True(t, strings.HasPrefix(lines[1], "  1"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "* 2"), lines[2])
	assert.Contains(t, lines[2], "(untitled)")
}

func TestConversationsRename(t *testing.T) {
	ts, _ := setup(t)

	out, err := execute(t, "conversations", "rename", "007", "Budget")
	require.NoError(t, err)
	assert.Contains(t, out, `Renamed 007 to "Budget"`)

	calls := ts.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPut, calls[0].Method)
	assert.Equal(t, "/conversations/007", calls[0].Path)
	assert.JSONEq(t, `{"title":"Budget"}`, calls[0].Body)
}

func TestConversationsRenameRejectsEmptyID(t *testing.T) {
	ts, _ := setup(t)

	_, err := execute(t, "conversations", "rename", " ", "Budget")
	assert.Error(t, err)
	assert.Empty(t, ts.calls())
}

func TestConversationsDeleteYesClearsSelection(t *testing.T) {
	ts, dir := setup(t)
	storeSelection(t, dir, "1")

	out, err := execute(t, "conversations", "delete", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted conversation 1")

	assert.Equal(t, []request{{http.MethodDelete, "/conversations/1", ""}}, ts.calls())
	assert.True(t, storedSelection(t, dir).IsDraft())
}

func TestConversationsDeleteKeepsOtherSelection(t *testing.T) {
	_, dir := setup(t)
	storeSelection(t, dir, "2")

	_, err := execute(t, "conversations", "delete", "1", "-y")
	require.NoError(t, err)
	assert.Equal(t, chat.ID("2"), storedSelection(t, dir))
}

func TestConversationsDeletePrompts(t *testing.T) {
	ts, _ := setup(t)
	orig := confirmFunc
	t.Cleanup(func() { confirmFunc = orig })

	var asked string
	confirmFunc = func(message string) (bool, error) {
		asked = message
		return false, nil
	}

	out, err := execute(t, "conversations", "delete", "1")
	require.NoError(t, err)
	assert.Equal(t, "Delete conversation 1?", asked)
	assert.Contains(t, out, "Deletion cancelled")
	assert.Empty(t, ts.calls())
}

func TestServerFlagIsValidated(t *testing.T) {
	ts, _ := setup(t)

	_, err := execute(t, "--server", "ftp://example.com", "conversations", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--server")
	assert.Empty(t, ts.calls())
}

func TestConfigFlag(t *testing.T) {
	_, _ = setup(t)
	path := filepath.Join(t.TempDir(), "other.yaml")
	t.Setenv("JPFA_SERVER", "")

	_, err := execute(t, "--config", path, "conversations", "list", "--server", "http://127.0.0.1:1")
	assert.Error(t, err, "unreachable server")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "jpfa dev"), out)

	out, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "jpfa version dev\n", out)
}
