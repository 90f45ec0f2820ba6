package main

import (
	"fmt"
	"path/filepath"
)

// nodeID addresses a slot in a treeModel. IDs are never reused within a model,
// so an id held by a stale browser tab can only miss, never alias a new row.
type nodeID int

const rootID nodeID = 0

// Icon names, as looked up in the icon theme
const (
	iconFolder  = "folder"
	iconGeneric = "text-x-generic"
)

// treeNode is one row of the file browser. The zero value is a placeholder.
type treeNode struct {
	Name string
	Icon string
	Path string
}

func (n treeNode) isPlaceholder() bool {
	return n.Name == "" && n.Icon == "" && n.Path == ""
}

func (n treeNode) isDir() bool {
	return n.Icon == iconFolder
}

type slot struct {
	node     treeNode
	parent   nodeID
	children []nodeID
	live     bool
}

// treeModel is an arena of rows mirroring the part of the project the user
// has expanded. Slot 0 is the invisible project root.
type treeModel struct {
	root  string
	slots []slot
}

func newTreeModel(root string) *treeModel {
	return &treeModel{
		root: root,
		slots: []slot{{
			node:   treeNode{Name: filepath.Base(root), Icon: iconFolder, Path: root},
			parent: -1,
			live:   true,
		}},
	}
}

func (m *treeModel) valid(id nodeID) bool {
	return id >= 0 && int(id) < len(m.slots) && m.slots[id].live
}

// node returns the row stored under id
func (m *treeModel) node(id nodeID) (treeNode, bool) {
	if !m.valid(id) {
		return treeNode{}, false
	}
	return m.slots[id].node, true
}

// children returns a copy of the ordered child ids of id
func (m *treeModel) children(id nodeID) []nodeID {
	if !m.valid(id) {
		return nil
	}
	out := make([]nodeID, len(m.slots[id].children))
	copy(out, m.slots[id].children)
	return out
}

func (m *treeModel) firstChild(id nodeID) (nodeID, bool) {
	if !m.valid(id) || len(m.slots[id].children) == 0 {
		return 0, false
	}
	return m.slots[id].children[0], true
}

func (m *treeModel) parentOf(id nodeID) (nodeID, bool) {
	if !m.valid(id) || id == rootID {
		return 0, false
	}
	return m.slots[id].parent, true
}

// add appends n as the last child of parent
func (m *treeModel) add(parent nodeID, n treeNode) (nodeID, error) {
	if !m.valid(parent) {
		return 0, fmt.Errorf("%w: parent %d", errUnknownNode, parent)
	}
	id := nodeID(len(m.slots))
	m.slots = append(m.slots, slot{node: n, parent: parent, live: true})
	m.slots[parent].children = append(m.slots[parent].children, id)
	return id, nil
}

// remove detaches id from its parent and frees its whole subtree
func (m *treeModel) remove(id nodeID) error {
	if !m.valid(id) || id == rootID {
		return fmt.Errorf("%w: %d", errUnknownNode, id)
	}
	parent := m.slots[id].parent
	siblings := m.slots[parent].children
	for i, c := range siblings {
		if c == id {
			m.slots[parent].children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	m.free(id)
	return nil
}

func (m *treeModel) free(id nodeID) {
	for _, c := range m.slots[id].children {
		m.free(c)
	}
	m.slots[id] = slot{}
}

// liveCount reports how many rows the model holds, the root excluded
func (m *treeModel) liveCount() int {
	n := 0
	for i := 1; i < len(m.slots); i++ {
		if m.slots[i].live {
			n++
		}
	}
	return n
}

// addition is one row to append, plus the rows to nest under it.
type addition struct {
	Node     treeNode
	Children []treeNode
}

// mutation describes a change to the children of Parent. Handlers compute it
// without touching the model; apply performs it in one step.
type mutation struct {
	Parent  nodeID
	Removed []nodeID
	Added   []addition
}

// changeSet is an applied mutation, with the ids the new rows received.
type changeSet struct {
	Parent  nodeID         `json:"parent"`
	Removed []nodeID       `json:"removed"`
	Added   []nodeSnapshot `json:"added"`
}

// apply performs mu. Removed ids must be current children of mu.Parent.
func (m *treeModel) apply(mu mutation) (changeSet, error) {
	cs := changeSet{Parent: mu.Parent, Removed: []nodeID{}, Added: []nodeSnapshot{}}
	if !m.valid(mu.Parent) {
		return cs, fmt.Errorf("%w: %d", errUnknownNode, mu.Parent)
	}
	for _, id := range mu.Removed {
		if p, ok := m.parentOf(id); !ok || p != mu.Parent {
			return cs, fmt.Errorf("%w: %d is not a child of %d", errUnknownNode, id, mu.Parent)
		}
	}

	for _, id := range mu.Removed {
		if err := m.remove(id); err != nil {
			return cs, err
		}
		cs.Removed = append(cs.Removed, id)
	}
	for _, a := range mu.Added {
		id, err := m.add(mu.Parent, a.Node)
		if err != nil {
			return cs, err
		}
		for _, c := range a.Children {
			if _, err := m.add(id, c); err != nil {
				return cs, err
			}
		}
		cs.Added = append(cs.Added, m.snapshot(id))
	}
	return cs, nil
}

// nodeSnapshot is the wire form of a row and its materialised subtree.
// Paths are relative to the project root.
type nodeSnapshot struct {
	ID          nodeID         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Icon        string         `json:"icon,omitempty"`
	Path        string         `json:"path,omitempty"`
	Placeholder bool           `json:"placeholder,omitempty"`
	Children    []nodeSnapshot `json:"children,omitempty"`
}

func (m *treeModel) snapshot(id nodeID) nodeSnapshot {
	s := m.slots[id]
	snap := nodeSnapshot{
		ID:          id,
		Name:        s.node.Name,
		Icon:        s.node.Icon,
		Placeholder: s.node.isPlaceholder(),
	}
	if s.node.Path != "" {
		snap.Path = m.relPath(s.node.Path)
	}
	for _, c := range s.children {
		snap.Children = append(snap.Children, m.snapshot(c))
	}
	return snap
}

func (m *treeModel) relPath(abs string) string {
	rel, err := filepath.Rel(m.root, abs)
	if err != nil {
		return filepath.Base(abs)
	}
	return filepath.ToSlash(rel)
}
