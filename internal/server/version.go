package server

import "net/http"

// Build information, overridden at link time by the release pipeline.
var (
	Version = "dev"
	Commit  = ""
)

// handleVersion reports the running build.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "ledgerlens",
		"version": Version,
		"commit":  Commit,
	})
}
