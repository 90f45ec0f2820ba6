package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, root string) (*previewController, *recordingRenderer) {
	t.Helper()
	model, pop := newTestModel(t, root)
	pane := &recordingRenderer{}
	return newPreviewController(model, pop, pane, newTestLogger()), pane
}

func TestExpand_ReplacesPlaceholder(t *testing.T) {
	root := resolvedTempDir(t)
	docs := createTestDir(t, root, "docs")
	createTestDir(t, docs, "sub")
	createTestMarkdownFile(t, docs, "guide.md", testMarkdownTitle)
	createTestMarkdownFile(t, docs, "skip.txt", "x")

	c, _ := newTestController(t, root)
	id := childByName(t, c.model, rootID, "docs")
	placeholder := c.model.children(id)[0]

	cs, err := c.expand(id)
	require.NoError(t, err)

	assert.Equal(t, []nodeID{placeholder}, cs.Removed)
	rows := childNodes(c.model, id)
	require.Len(t, rows, 2)
	assert.Equal(t, "sub", rows[0].Name)
	assert.Equal(t, "guide.md", rows[1].Name)
	assertOnlyPlaceholder(t, c.model, childByName(t, c.model, id, "sub"))
}

func TestExpand_EmptyDirectoryStaysExpandable(t *testing.T) {
	root := createScenarioProject(t)
	c, _ := newTestController(t, root)
	drafts := childByName(t, c.model, rootID, "drafts")

	_, err := c.expand(drafts)
	require.NoError(t, err)

	assertOnlyPlaceholder(t, c.model, drafts)
}

func TestExpand_AlreadyExpandedIsNoop(t *testing.T) {
	root := resolvedTempDir(t)
	docs := createTestDir(t, root, "docs")
	createTestMarkdownFile(t, docs, "a.md", testMarkdownTitle)

	c, _ := newTestController(t, root)
	id := childByName(t, c.model, rootID, "docs")
	_, err := c.expand(id)
	require.NoError(t, err)
	before := childNodes(c.model, id)

	cs, err := c.expand(id)
	require.NoError(t, err)

	assert.Empty(t, cs.Removed)
	assert.Empty(t, cs.Added)
	assert.Equal(t, before, childNodes(c.model, id))
}

func TestExpand_Errors(t *testing.T) {
	root := createScenarioProject(t)
	c, _ := newTestController(t, root)
	notes := childByName(t, c.model, rootID, "notes.md")
	placeholder := c.model.children(childByName(t, c.model, rootID, "drafts"))[0]

	tests := []struct {
		name string
		id   nodeID
		want error
	}{
		{"file row", notes, errNotDirectory},
		{"placeholder row", placeholder, errNotDirectory},
		{"unknown id", 999, errUnknownNode},
		{"root", rootID, errUnknownNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.expand(tt.id)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			_, err = c.collapse(tt.id)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestExpandNode_DoesNotTouchModel(t *testing.T) {
	root := resolvedTempDir(t)
	docs := createTestDir(t, root, "docs")
	createTestMarkdownFile(t, docs, "a.md", testMarkdownTitle)

	model, pop := newTestModel(t, root)
	id := childByName(t, model, rootID, "docs")
	before := model.liveCount()

	mu, err := expandNode(model, pop, id)
	require.NoError(t, err)

	assert.Equal(t, before, model.liveCount())
	assert.Len(t, mu.Removed, 1)
	require.Len(t, mu.Added, 1)
	assert.Equal(t, "a.md", mu.Added[0].Node.Name)
}

func TestCollapse_LeavesSinglePlaceholder(t *testing.T) {
	root := resolvedTempDir(t)
	docs := createTestDir(t, root, "docs")
	createTestDir(t, docs, "sub")
	createTestMarkdownFile(t, docs, "a.md", testMarkdownTitle)
	createTestMarkdownFile(t, docs, "b.md", testMarkdownTitle)

	c, _ := newTestController(t, root)
	id := childByName(t, c.model, rootID, "docs")
	_, err := c.expand(id)
	require.NoError(t, err)
	_, err = c.expand(childByName(t, c.model, id, "sub"))
	require.NoError(t, err)
	rowsBefore := c.model.liveCount()

	cs, err := c.collapse(id)
	require.NoError(t, err)

	assertOnlyPlaceholder(t, c.model, id)
	assert.Len(t, cs.Removed, 3)
	assert.Less(t, c.model.liveCount(), rowsBefore)

	// collapsing an unexpanded directory swaps in a fresh placeholder too
	_, err = c.collapse(id)
	require.NoError(t, err)
	assertOnlyPlaceholder(t, c.model, id)
}

func TestExpandCollapseExpand_Idempotent(t *testing.T) {
	root := resolvedTempDir(t)
	docs := createTestDir(t, root, "docs")
	createTestDir(t, docs, "sub")
	createTestMarkdownFile(t, docs, "a.md", testMarkdownTitle)

	c, _ := newTestController(t, root)
	id := childByName(t, c.model, rootID, "docs")

	_, err := c.expand(id)
	require.NoError(t, err)
	first := childNodes(c.model, id)

	_, err = c.collapse(id)
	require.NoError(t, err)
	_, err = c.expand(id)
	require.NoError(t, err)

	assert.Equal(t, first, childNodes(c.model, id))
}

func TestExpand_RereadsDiskAfterCollapse(t *testing.T) {
	root := resolvedTempDir(t)
	docs := createTestDir(t, root, "docs")
	createTestMarkdownFile(t, docs, "a.md", testMarkdownTitle)

	c, _ := newTestController(t, root)
	id := childByName(t, c.model, rootID, "docs")
	_, err := c.expand(id)
	require.NoError(t, err)
	_, err = c.collapse(id)
	require.NoError(t, err)

	createTestMarkdownFile(t, docs, "b.md", testMarkdownTitle)
	_, err = c.expand(id)
	require.NoError(t, err)

	rows := childNodes(c.model, id)
	require.Len(t, rows, 2)
	assert.Equal(t, "b.md", rows[1].Name)
}

func TestActivate_RendersMarkdown(t *testing.T) {
	root := resolvedTempDir(t)
	readme := createTestMarkdownFile(t, root, "README.md", testMarkdownTitle)

	c, pane := newTestController(t, root)

	require.NoError(t, c.activate([]nodeID{childByName(t, c.model, rootID, "README.md")}))

	require.Len(t, pane.loads, 1)
	assert.Contains(t, pane.loads[0].HTML, "<h1>Title</h1>")
	assert.Equal(t, readme, pane.loads[0].Base)
	assert.True(t, filepath.IsAbs(pane.loads[0].Base))
}

func TestActivate_InertRows(t *testing.T) {
	root := createScenarioProject(t)
	c, pane := newTestController(t, root)
	drafts := childByName(t, c.model, rootID, "drafts")
	placeholder := c.model.children(drafts)[0]

	require.NoError(t, c.activate([]nodeID{drafts, placeholder, 999}))

	assert.Empty(t, pane.loads, "directories, placeholders and unknown rows leave the pane alone")
}

func TestActivate_ContinuesPastInertRows(t *testing.T) {
	root := createScenarioProject(t)
	c, pane := newTestController(t, root)

	ids := []nodeID{childByName(t, c.model, rootID, "drafts"), childByName(t, c.model, rootID, "notes.md")}
	require.NoError(t, c.activate(ids))

	require.Len(t, pane.loads, 1)
	assert.Contains(t, pane.loads[0].HTML, "<h1>Notes</h1>")
}

func TestActivate_ReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, path string)
	}{
		{
			name: "file removed after listing",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.Remove(path))
			},
		},
		{
			name: "not valid UTF-8",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte(testInvalidUTF8), 0644))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := resolvedTempDir(t)
			path := createTestMarkdownFile(t, root, "broken.md", testMarkdownTitle)
			c, pane := newTestController(t, root)
			tt.setup(t, path)

			err := c.activate([]nodeID{childByName(t, c.model, rootID, "broken.md")})

			require.Error(t, err)
			assert.True(t, errors.Is(err, errRead), "got %v", err)
			require.Len(t, pane.loads, 1, "the failure is shown in the pane")
			assert.Contains(t, pane.loads[0].HTML, "mdplan-error")
			assert.Equal(t, path, pane.loads[0].Base)
		})
	}
}

func TestActivate_ReadsThroughInjectedReader(t *testing.T) {
	root := createScenarioProject(t)
	c, pane := newTestController(t, root)
	c.readFile = func(string) ([]byte, error) { return nil, os.ErrPermission }

	err := c.activate([]nodeID{childByName(t, c.model, rootID, "notes.md")})

	assert.True(t, errors.Is(err, errRead))
	require.Len(t, pane.loads, 1)
	assert.Contains(t, pane.loads[0].HTML, "permission denied")
}
