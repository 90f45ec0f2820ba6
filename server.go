package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const maxRequestBody = 64 << 10

type indexTemplateData struct {
	Title     string
	Root      string
	StyleCSS  template.CSS
	TreeJS    template.JS
	TreeWidth int
}

type previewTemplateData struct {
	BaseHref    string
	MarkdownCSS template.CSS
	Content     template.HTML
	Empty       bool
}

// withRecovery wraps an HTTP handler with panic recovery
func withRecovery(logger *logrus.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithField("panic", err).Errorf("PANIC serving %s\n%s", r.URL.Path, debug.Stack())
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// sameOrigin accepts requests without an Origin header and those whose
// Origin matches the host they were sent to.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// withCSRFCheck rejects cross-origin POST requests by validating the Origin header
func withCSRFCheck(logger *logrus.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !sameOrigin(r) {
			logger.WithField("origin", r.Header.Get("Origin")).Warn("CSRF: rejected cross-origin POST")
			http.Error(w, "Forbidden: cross-origin request", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging logs each request at debug level
func withLogging(logger *logrus.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("Request")
	}
}

// registerRoutes registers all HTTP routes on mux
func (a *app) registerRoutes(mux *http.ServeMux) {
	get := func(h http.HandlerFunc) http.HandlerFunc {
		return withRecovery(a.log, withLogging(a.log, h))
	}
	post := func(h http.HandlerFunc) http.HandlerFunc {
		return withRecovery(a.log, withLogging(a.log, withCSRFCheck(a.log, h)))
	}

	mux.HandleFunc("GET /{$}", get(a.serveIndex))
	mux.HandleFunc("GET /api/tree", get(a.serveTree))
	mux.HandleFunc("POST /api/expand", post(a.handleExpand))
	mux.HandleFunc("POST /api/collapse", post(a.handleCollapse))
	mux.HandleFunc("POST /api/activate", post(a.handleActivate))
	mux.HandleFunc("GET /preview", get(a.servePreview))
	mux.HandleFunc("GET /files/", get(a.serveProjectFile))
	mux.HandleFunc("GET /icons/{name}", get(a.serveIcon))
	// websocket upgrades need the raw ResponseWriter, so no logging wrapper
	mux.HandleFunc("GET /ws", withRecovery(a.log, a.serveWS))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// statusFor maps event errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, errNotDirectory):
		return http.StatusBadRequest
	case errors.Is(err, errDispatcherStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func (a *app) renderTemplate(w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		a.log.WithError(err).Error("Template execution error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (a *app) serveIndex(w http.ResponseWriter, r *http.Request) {
	a.renderTemplate(w, indexTmpl, indexTemplateData{
		Title:     a.title(),
		Root:      a.root,
		StyleCSS:  template.CSS(styleCSS),
		TreeJS:    template.JS(treeJS),
		TreeWidth: 150,
	})
}

func (a *app) serveTree(w http.ResponseWriter, r *http.Request) {
	snap, err := a.snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, snap)
}

type nodeRequest struct {
	ID *nodeID `json:"id"`
}

func (a *app) handleExpand(w http.ResponseWriter, r *http.Request) {
	a.handleNodeEvent(w, r, a.expand)
}

func (a *app) handleCollapse(w http.ResponseWriter, r *http.Request) {
	a.handleNodeEvent(w, r, a.collapse)
}

func (a *app) handleNodeEvent(w http.ResponseWriter, r *http.Request, fn func(context.Context, nodeID) (changeSet, error)) {
	var req nodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == nil {
		http.Error(w, "Node id is required", http.StatusBadRequest)
		return
	}
	cs, err := fn(r.Context(), *req.ID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, cs)
}

type activateRequest struct {
	IDs []nodeID `json:"ids"`
}

func (a *app) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := a.activate(r.Context(), req.IDs)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, out)
}

// baseHref maps a file's location to the URL its relative links resolve against
func (a *app) baseHref(base string) string {
	if base == "" {
		return "/files/"
	}
	rel, err := filepath.Rel(a.root, base)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "/files/"
	}
	u := url.URL{Path: "/files/" + filepath.ToSlash(rel)}
	return u.EscapedPath()
}

func (a *app) servePreview(w http.ResponseWriter, r *http.Request) {
	doc := a.pane.current()
	w.Header().Set("Cache-Control", "no-cache")
	a.renderTemplate(w, previewTmpl, previewTemplateData{
		BaseHref:    a.baseHref(doc.Base),
		MarkdownCSS: template.CSS(markdownCSS),
		Content:     template.HTML(doc.HTML),
		Empty:       doc.Seq == 0,
	})
}

// resolveWithinRoot resolves a slash-separated path below root, following
// symlinks, and refuses anything that ends up outside root.
func resolveWithinRoot(root, rel string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(rel))
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", fmt.Errorf("path does not exist: %w", err)
	}
	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return "", fmt.Errorf("access denied: path must be within the project")
	}
	return resolved, nil
}

// serveProjectFile serves raw project files so previews can load relative
// images and links
func (a *app) serveProjectFile(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/files/")
	path, err := resolveWithinRoot(a.root, rel)
	if err != nil {
		if strings.Contains(err.Error(), "access denied") {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (a *app) serveIcon(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(r.PathValue("name"), ".png")
	size := defaultIconSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "Invalid icon size", http.StatusBadRequest)
			return
		}
		size = n
	}

	data, err := iconPNG(name, size)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Write(data)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

func (a *app) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	c := &wsClient{hub: a.hub, conn: conn, send: make(chan []byte, 64)}
	if !a.hub.join(c) {
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
