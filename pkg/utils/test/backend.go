// Package testutils provides an in-process fake of the style-conversion
// backend for command, gateway, and tool tests.
package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"

	"github.com/papercomputeco/stylectl/pkg/backend"
)

// SampleOpenAPI is the document the fake serves at /api/v1/openapi.json.
const SampleOpenAPI = `{
  "openapi": "3.1.0",
  "info": {"title": "Style Converter", "version": "1.0.0"},
  "paths": {
    "/api/v1/convert": {
      "post": {
        "tags": ["convert"],
        "summary": "Convert a query into every mood",
        "operationId": "convert",
        "requestBody": {"content": {"application/json": {}}}
      }
    },
    "/api/v1/vector-store:search": {
      "get": {
        "tags": ["vector-store"],
        "summary": "Search the loaded collection",
        "parameters": [
          {"name": "query", "in": "query", "required": true},
          {"name": "top_k", "in": "query"}
        ]
      }
    }
  }
}`

// Upload is one multipart upload the fake received.
type Upload struct {
	Collection string
	UserName   string
	Size       string
	FileName   string
	CSV        []byte
}

// FakeBackend serves the backend's REST surface from memory.
type FakeBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	token       string
	collections map[string]int
	loaded      string
	conversions map[string]string
	hits        []backend.ScoredMessage
	frames      []string
	uploads     []Upload
	unhealthy   bool
}

// NewFakeBackend starts a fake requiring token as its bearer token. An empty
// token disables the check.
func NewFakeBackend(token string) *FakeBackend {
	f := &FakeBackend{
		token:       token,
		collections: map[string]int{},
		conversions: map[string]string{
			"formal":  "I would be delighted to attend.",
			"playful": "Ooh count me in!!",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", f.handleHealth)
	mux.HandleFunc("GET /api/v1/openapi.json", f.handleOpenAPI)
	mux.HandleFunc("POST /api/v1/convert", f.handleConvert)
	mux.HandleFunc("GET /api/v1/vector-store/collections", f.handleCollections)
	mux.HandleFunc("POST /api/v1/vector-store/collections", f.handleCreate)
	mux.HandleFunc("DELETE /api/v1/vector-store/collections", f.handleDrop)
	mux.HandleFunc("GET /api/v1/vector-store/collections:loaded", f.handleLoaded)
	mux.HandleFunc("POST /api/v1/vector-store/collections:load", f.handleLoad)
	mux.HandleFunc("GET /api/v1/vector-store/collections/vectors:count", f.handleCount)
	mux.HandleFunc("POST /api/v1/vector-store/collections/vectors:load", f.handleUpload)
	mux.HandleFunc("GET /api/v1/vector-store:search", f.handleSearch)

	f.Server = httptest.NewServer(f.authorize(mux))
	return f
}

// URL is the fake's base URL.
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

// Close shuts the fake down.
func (f *FakeBackend) Close() {
	f.Server.Close()
}

// Client returns a backend client pointed at the fake with fast retries.
func (f *FakeBackend) Client() *backend.Client {
	c, err := backend.NewClient(backend.Config{
		BaseURL: f.URL(),
		Token:   f.token,
		Retry: backend.RetryConfig{
			MaxAttempts: 2,
			BaseBackoff: 1,
			MaxBackoff:  1,
		},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// AddCollection seeds a collection holding count vectors.
func (f *FakeBackend) AddCollection(name string, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[name] = count
}

// SetLoaded marks name as the loaded collection.
func (f *FakeBackend) SetLoaded(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = name
}

// SetHits replaces the search results.
func (f *FakeBackend) SetHits(hits ...backend.ScoredMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = hits
}

// SetUploadFrames replaces the raw event-stream frames an upload answers with.
// Without frames the fake reports a two-step upload of the CSV.
func (f *FakeBackend) SetUploadFrames(frames ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = frames
}

// SetUnhealthy makes /health answer with a degraded status.
func (f *FakeBackend) SetUnhealthy(unhealthy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unhealthy = unhealthy
}

// Uploads returns the uploads received so far.
func (f *FakeBackend) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.uploads)
}

// Loaded returns the loaded collection.
func (f *FakeBackend) Loaded() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *FakeBackend) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.token != "" && r.URL.Path != "/health" && r.Header.Get("Authorization") != "Bearer "+f.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeBackend) handleHealth(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unhealthy {
		writeJSON(w, http.StatusOK, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (f *FakeBackend) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, SampleOpenAPI)
}

func (f *FakeBackend) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req backend.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "query is required"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    backend.StatusCompleted,
		"converted": f.conversions,
	})
}

func (f *FakeBackend) handleCollections(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "collections": f.names()})
}

func (f *FakeBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[name]; ok {
		writeJSON(w, http.StatusConflict, map[string]string{"detail": fmt.Sprintf("collection %s already exists", name)})
		return
	}
	f.collections[name] = 0
	f.loaded = name
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "collections": f.names()})
}

func (f *FakeBackend) handleDrop(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[name]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("collection %s not found", name)})
		return
	}
	delete(f.collections, name)
	if f.loaded == name {
		f.loaded = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "collections": f.names()})
}

func (f *FakeBackend) handleLoaded(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var loaded *string
	if f.loaded != "" {
		name := f.loaded
		loaded = &name
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "loaded_collection": loaded})
}

func (f *FakeBackend) handleLoad(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[name]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("collection %s not found", name)})
		return
	}
	f.loaded = name
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (f *FakeBackend) handleCount(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	f.mu.Lock()
	defer f.mu.Unlock()
	count, ok := f.collections[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("collection %s not found", name)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "collection_name": name, "count": count})
}

func (f *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	file, header, err := r.FormFile("csv_file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "csv_file is required"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	up := Upload{
		Collection: r.FormValue("collection_name"),
		UserName:   r.FormValue("user_name"),
		Size:       r.FormValue("size"),
		FileName:   header.Filename,
		CSV:        data,
	}

	f.mu.Lock()
	f.uploads = append(f.uploads, up)
	f.collections[up.Collection] += 2
	frames := slices.Clone(f.frames)
	f.mu.Unlock()

	if len(frames) == 0 {
		frames = []string{
			`data: {"status":"processing","processed":1,"total":2,"percentage":50.0}` + "\n\n",
			`data: {"status":"completed","processed":2,"total":2,"percentage":100.0}` + "\n\n",
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for _, frame := range frames {
		_, _ = io.WriteString(w, frame)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (f *FakeBackend) handleSearch(w http.ResponseWriter, r *http.Request) {
	topK, _ := strconv.Atoi(r.URL.Query().Get("top_k"))

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "no collection loaded"})
		return
	}

	hits := f.hits
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	writeJSON(w, http.StatusOK, backend.SearchResponse{
		Status:         "success",
		CollectionName: f.loaded,
		Query:          r.URL.Query().Get("query"),
		TopK:           topK,
		Messages:       hits,
	})
}

// names must be called with mu held.
func (f *FakeBackend) names() []string {
	names := make([]string, 0, len(f.collections))
	for name := range f.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
