package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// app wires the tree model, the preview controller and the browser-facing
// adapters together. The model and controller are only touched from the
// dispatcher goroutine.
type app struct {
	root     string
	model    *treeModel
	ctrl     *previewController
	pane     *previewPane
	dispatch *dispatcher
	hub      *hub
	log      *logrus.Logger
}

// previewInfo tells windows which document the pane holds
type previewInfo struct {
	Seq  uint64 `json:"seq"`
	Path string `json:"path,omitempty"`
}

// activation is the outcome of activating rows
type activation struct {
	Preview previewInfo `json:"preview"`
	Error   string      `json:"error,omitempty"`
}

// newApp builds the model for root and populates its first level
func newApp(root string, fs dirLister, sorted bool, logger *logrus.Logger) (*app, error) {
	model := newTreeModel(root)
	pop := newPopulator(fs, sorted, logger)
	if _, err := pop.populate(model, root, rootID); err != nil {
		return nil, err
	}

	pane := newPreviewPane()
	a := &app{
		root:     root,
		model:    model,
		ctrl:     newPreviewController(model, pop, pane, logger),
		pane:     pane,
		dispatch: newDispatcher(),
		hub:      newHub(logger),
		log:      logger,
	}
	a.hub.handle = a.handleMessage
	pane.onLoad(func(doc previewDoc) {
		a.hub.publish(wsMessage{Type: msgPreviewLoaded, Data: mustMarshal(a.log, a.previewInfo(doc))})
	})

	logger.WithFields(logrus.Fields{
		"root": root,
		"rows": model.liveCount(),
	}).Info("Project loaded")
	return a, nil
}

// start runs the dispatcher and the websocket hub until ctx is done
func (a *app) start(ctx context.Context) {
	go a.dispatch.run(ctx)
	go a.hub.run(ctx)
}

func (a *app) previewInfo(doc previewDoc) previewInfo {
	info := previewInfo{Seq: doc.Seq}
	if doc.Base != "" {
		info.Path = a.model.relPath(doc.Base)
	}
	return info
}

func (a *app) expand(ctx context.Context, id nodeID) (changeSet, error) {
	return a.change(ctx, func() (changeSet, error) { return a.ctrl.expand(id) })
}

func (a *app) collapse(ctx context.Context, id nodeID) (changeSet, error) {
	return a.change(ctx, func() (changeSet, error) { return a.ctrl.collapse(id) })
}

// change runs fn as one event. The broadcast happens inside the event so
// windows see changes in the order the model took them.
func (a *app) change(ctx context.Context, fn func() (changeSet, error)) (changeSet, error) {
	var cs changeSet
	var err error
	if serr := a.dispatch.submit(ctx, func() {
		cs, err = fn()
		if err == nil && (len(cs.Removed) > 0 || len(cs.Added) > 0) {
			a.hub.publish(wsMessage{Type: msgTreeChanged, Data: mustMarshal(a.log, cs)})
		}
	}); serr != nil {
		return changeSet{}, serr
	}
	return cs, err
}

func (a *app) activate(ctx context.Context, ids []nodeID) (activation, error) {
	var err error
	var doc previewDoc
	if serr := a.dispatch.submit(ctx, func() {
		err = a.ctrl.activate(ids)
		doc = a.pane.current()
	}); serr != nil {
		return activation{}, serr
	}
	out := activation{Preview: a.previewInfo(doc)}
	if err != nil {
		out.Error = err.Error()
	}
	return out, nil
}

func (a *app) snapshot(ctx context.Context) (nodeSnapshot, error) {
	var snap nodeSnapshot
	if err := a.dispatch.submit(ctx, func() {
		snap = a.model.snapshot(rootID)
	}); err != nil {
		return nodeSnapshot{}, err
	}
	return snap, nil
}

// handleMessage turns a window's websocket frame into a dispatcher event
func (a *app) handleMessage(c *wsClient, msg wsMessage) {
	ctx := context.Background()
	var err error
	switch msg.Type {
	case msgExpand:
		_, err = a.expand(ctx, msg.ID)
	case msgCollapse:
		_, err = a.collapse(ctx, msg.ID)
	case msgActivate:
		var out activation
		out, err = a.activate(ctx, msg.IDs)
		if err == nil && out.Error != "" {
			err = errors.New(out.Error)
		}
	default:
		a.log.WithField("type", msg.Type).Debug("Ignoring unknown message type")
		return
	}
	if err != nil {
		a.log.WithError(err).WithField("type", msg.Type).Debug("Event failed")
		c.reply(wsMessage{Type: msgError, ID: msg.ID, Error: err.Error()})
	}
}

func (a *app) title() string {
	return filepath.Base(a.root)
}
