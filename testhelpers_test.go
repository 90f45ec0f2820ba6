package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// newTestLogger returns a logger that discards output
func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// createTestMarkdownFile creates a markdown file with specified content
func createTestMarkdownFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "failed to create test file %s", path)
	return path
}

// createTestDir creates a directory below dir
func createTestDir(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(path, 0755))
	return path
}

// createScenarioProject builds the example project: notes.md, img.png and
// an empty drafts/ directory. It returns the resolved root.
func createScenarioProject(t *testing.T) string {
	t.Helper()
	root := resolvedTempDir(t)
	createTestMarkdownFile(t, root, "notes.md", testMarkdownNotes)
	require.NoError(t, os.WriteFile(filepath.Join(root, "img.png"), []byte{0x89, 'P', 'N', 'G'}, 0644))
	createTestDir(t, root, "drafts")
	return root
}

// resolvedTempDir returns a temp dir with symlinks resolved (macOS /var)
func resolvedTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

// newTestModel populates a fresh model for root
func newTestModel(t *testing.T, root string) (*treeModel, *populator) {
	t.Helper()
	model := newTreeModel(root)
	pop := newPopulator(osLister{}, true, newTestLogger())
	_, err := pop.populate(model, root, rootID)
	require.NoError(t, err)
	return model, pop
}

// newTestApp builds a running app for root. The dispatcher and hub stop at
// test cleanup.
func newTestApp(t *testing.T, root string) *app {
	t.Helper()
	a, err := newApp(root, osLister{}, true, newTestLogger())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a.start(ctx)
	return a
}

// newTestMux returns the app's routes
func newTestMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	a.registerRoutes(mux)
	return mux
}

// doRequest runs one request through handler
func doRequest(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// childNodes returns the rows directly below id
func childNodes(m *treeModel, id nodeID) []treeNode {
	var out []treeNode
	for _, c := range m.children(id) {
		n, _ := m.node(c)
		out = append(out, n)
	}
	return out
}

// childByName finds the child of parent called name
func childByName(t *testing.T, m *treeModel, parent nodeID, name string) nodeID {
	t.Helper()
	for _, c := range m.children(parent) {
		if n, _ := m.node(c); n.Name == name {
			return c
		}
	}
	t.Fatalf("no child %q under node %d", name, parent)
	return 0
}

// assertOnlyPlaceholder checks that id has exactly one child and it is a placeholder
func assertOnlyPlaceholder(t *testing.T, m *treeModel, id nodeID) {
	t.Helper()
	kids := childNodes(m, id)
	require.Len(t, kids, 1, "expected a single child under node %d", id)
	require.True(t, kids[0].isPlaceholder(), "child of node %d should be a placeholder, got %+v", id, kids[0])
	require.Empty(t, m.children(m.children(id)[0]), "placeholder must not have children")
}

// assertValidHTML checks for required HTML structure elements
func assertValidHTML(t *testing.T, html string) {
	t.Helper()
	for _, tag := range []string{"<!DOCTYPE html>", "<html", "<head>", "<body", "</body>", "</html>"} {
		if !strings.Contains(html, tag) {
			t.Errorf("HTML missing required tag: %s", tag)
		}
	}
}

// assertStatusCode checks HTTP status code with clear error message
func assertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected status code %d, got %d", want, got)
	}
}

// recordingRenderer captures LoadHTML calls
type recordingRenderer struct {
	loads []previewDoc
}

func (r *recordingRenderer) LoadHTML(html, baseLocation string) {
	r.loads = append(r.loads, previewDoc{HTML: html, Base: baseLocation, Seq: uint64(len(r.loads) + 1)})
}
