package main

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// expandNode plans the expansion of a directory row: its placeholder goes
// away and the fresh directory listing takes its place. A row that is
// already expanded yields an empty mutation.
func expandNode(m *treeModel, p *populator, id nodeID) (mutation, error) {
	n, err := directoryRow(m, id)
	if err != nil {
		return mutation{}, err
	}

	first, ok := m.firstChild(id)
	if ok {
		if child, _ := m.node(first); !child.isPlaceholder() {
			return mutation{Parent: id}, nil
		}
	}

	rows, listErr := p.plan(n.Path)
	if listErr != nil {
		p.log.WithError(listErr).WithField("node", id).Warn("Showing unreadable directory as empty")
	}

	mu := mutation{Parent: id, Added: rows}
	if ok {
		mu.Removed = []nodeID{first}
	}
	return mu, nil
}

// collapseNode plans the collapse of a directory row: every child goes and a
// single fresh placeholder remains, so the next expand re-reads the disk.
func collapseNode(m *treeModel, id nodeID) (mutation, error) {
	if _, err := directoryRow(m, id); err != nil {
		return mutation{}, err
	}
	return mutation{
		Parent:  id,
		Removed: m.children(id),
		Added:   []addition{{}},
	}, nil
}

func directoryRow(m *treeModel, id nodeID) (treeNode, error) {
	n, ok := m.node(id)
	if !ok || id == rootID {
		return treeNode{}, fmt.Errorf("%w: %d", errUnknownNode, id)
	}
	if !n.isDir() {
		return treeNode{}, fmt.Errorf("%w: %d", errNotDirectory, id)
	}
	return n, nil
}

// previewController reacts to tree events. It must only be used from the
// dispatcher goroutine.
type previewController struct {
	model    *treeModel
	pop      *populator
	pane     renderer
	readFile func(string) ([]byte, error)
	log      *logrus.Logger
}

func newPreviewController(model *treeModel, pop *populator, pane renderer, logger *logrus.Logger) *previewController {
	return &previewController{
		model:    model,
		pop:      pop,
		pane:     pane,
		readFile: os.ReadFile,
		log:      logger,
	}
}

func (c *previewController) expand(id nodeID) (changeSet, error) {
	mu, err := expandNode(c.model, c.pop, id)
	if err != nil {
		return changeSet{}, err
	}
	return c.model.apply(mu)
}

func (c *previewController) collapse(id nodeID) (changeSet, error) {
	mu, err := collapseNode(c.model, id)
	if err != nil {
		return changeSet{}, err
	}
	return c.model.apply(mu)
}

// activate previews every Markdown row in ids, in order. Other rows are
// inert. Read and conversion failures are shown in the pane and returned.
func (c *previewController) activate(ids []nodeID) error {
	var errs []error
	for _, id := range ids {
		n, ok := c.model.node(id)
		if !ok {
			c.log.WithField("node", id).Warn("Ignoring activation of unknown row")
			continue
		}
		if n.isDir() || !isMarkdownName(n.Name) {
			continue
		}

		html, err := c.render(n.Path)
		if err != nil {
			c.log.WithError(err).WithField("path", n.Path).Warn("Preview failed")
			c.pane.LoadHTML(errorHTML(n.Name, err), n.Path)
			errs = append(errs, err)
			continue
		}
		c.pane.LoadHTML(html, n.Path)
		c.log.WithField("path", n.Path).Debug("Previewed file")
	}
	return errors.Join(errs...)
}

func (c *previewController) render(path string) (string, error) {
	data, err := c.readFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errRead, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8 text", errRead, path)
	}
	return markdownToHTML(string(data))
}
