package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// dirLister is the slice of the filesystem the tree needs
type dirLister interface {
	ReadDir(name string) ([]os.DirEntry, error)
	Stat(name string) (os.FileInfo, error)
}

type osLister struct{}

func (osLister) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }
func (osLister) Stat(name string) (os.FileInfo, error)      { return os.Stat(name) }

// populator materialises the immediate children of a directory.
type populator struct {
	fs     dirLister
	sorted bool
	log    *logrus.Logger
}

func newPopulator(fs dirLister, sorted bool, logger *logrus.Logger) *populator {
	return &populator{fs: fs, sorted: sorted, log: logger}
}

// isMarkdownName reports whether name carries the .md extension. A bare
// ".md" is a hidden file with no extension and does not count.
func isMarkdownName(name string) bool {
	return filepath.Ext(name) == ".md" && strings.TrimLeft(name, ".") != "md"
}

// plan lists path and returns the rows to append under its node: one per
// directory or Markdown file, each directory carrying a placeholder child.
// With nothing admitted the plan is a single placeholder, so the node keeps
// its expander. An unreadable directory plans like an empty one and the
// listing error is returned alongside.
func (p *populator) plan(path string) ([]addition, error) {
	entries, err := p.fs.ReadDir(path)
	if err != nil {
		return []addition{{}}, fmt.Errorf("%w: %s: %v", errListing, path, err)
	}

	var admitted []addition
	for _, entry := range entries {
		full := filepath.Join(path, entry.Name())

		// Stat follows symlinks, so a linked directory is browsable
		info, err := p.fs.Stat(full)
		if err != nil {
			p.log.WithError(err).WithField("path", full).Warn("Skipping entry that cannot be stat'ed")
			continue
		}

		switch {
		case info.IsDir():
			admitted = append(admitted, addition{
				Node:     treeNode{Name: entry.Name(), Icon: iconFolder, Path: full},
				Children: []treeNode{{}},
			})
		case isMarkdownName(entry.Name()):
			admitted = append(admitted, addition{
				Node: treeNode{Name: entry.Name(), Icon: iconGeneric, Path: full},
			})
		}
	}

	if len(admitted) == 0 {
		return []addition{{}}, nil
	}
	if p.sorted {
		sortAdditions(admitted)
	}
	return admitted, nil
}

// populate appends the planned rows for path under parent
func (p *populator) populate(m *treeModel, path string, parent nodeID) (changeSet, error) {
	rows, listErr := p.plan(path)
	if listErr != nil {
		p.log.WithError(listErr).Warn("Showing unreadable directory as empty")
	}
	return m.apply(mutation{Parent: parent, Added: rows})
}

// sortAdditions orders directories first, then files, alphabetically within each group
func sortAdditions(rows []addition) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Node.isDir() != rows[j].Node.isDir() {
			return rows[i].Node.isDir()
		}
		return rows[i].Node.Name < rows[j].Node.Name
	})
}
