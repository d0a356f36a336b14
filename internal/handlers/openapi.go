package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description from a YAML file
type OpenAPIHandler struct {
	openAPIPath string

	once     sync.Once
	yamlData []byte
	jsonData []byte
	loadErr  error
}

// NewOpenAPIHandler creates a new OpenAPI handler. The path is resolved once at startup.
func NewOpenAPIHandler(openAPIPath string) *OpenAPIHandler {
	absPath, err := filepath.Abs(filepath.Clean(openAPIPath))
	if err != nil {
		absPath = openAPIPath
	}
	return &OpenAPIHandler{openAPIPath: absPath}
}

// RegisterRoutes registers OpenAPI routes
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

// load reads the file once and prepares the JSON rendering
func (h *OpenAPIHandler) load() error {
	h.once.Do(func() {
		data, err := os.ReadFile(h.openAPIPath)
		if err != nil {
			h.loadErr = err
			return
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			h.loadErr = err
			return
		}
		jsonData, err := json.Marshal(doc)
		if err != nil {
			h.loadErr = err
			return
		}
		h.yamlData = data
		h.jsonData = jsonData
	})
	return h.loadErr
}

// ServeYAML serves the OpenAPI document in YAML format
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	if err := h.load(); err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(h.yamlData)
}

// ServeJSON serves the OpenAPI document converted to JSON
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	if err := h.load(); err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(h.jsonData)
}
