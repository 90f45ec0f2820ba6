package main

import "sync"

// renderer is the HTML display the preview controller drives.
type renderer interface {
	// LoadHTML shows html; relative links in it resolve against baseLocation.
	LoadHTML(html, baseLocation string)
}

// previewDoc is what the pane currently displays. Seq increases with every load.
type previewDoc struct {
	HTML string `json:"html"`
	Base string `json:"base"`
	Seq  uint64 `json:"seq"`
}

// previewPane holds the current document. It is written from the dispatcher
// and read from HTTP handlers.
type previewPane struct {
	mu        sync.RWMutex
	doc       previewDoc
	listeners []func(previewDoc)
}

func newPreviewPane() *previewPane {
	return &previewPane{}
}

func (p *previewPane) LoadHTML(html, baseLocation string) {
	p.mu.Lock()
	p.doc = previewDoc{HTML: html, Base: baseLocation, Seq: p.doc.Seq + 1}
	doc := p.doc
	listeners := p.listeners
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(doc)
	}
}

func (p *previewPane) current() previewDoc {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc
}

// onLoad registers fn to be called after every LoadHTML
func (p *previewPane) onLoad(fn func(previewDoc)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}
