package handlers

import (
	"net/http"
	"path/filepath"
)

type PageHandler struct {
	publicDir string
}

func NewPageHandler(publicDir string) *PageHandler {
	return &PageHandler{publicDir: publicDir}
}

func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.publicDir, "landing.html"))
}

func (h *PageHandler) App(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.publicDir, "app.html"))
}

// Static serves scripts, styles and images from the public directory.
func (h *PageHandler) Static() http.Handler {
	return http.FileServer(http.Dir(h.publicDir))
}
