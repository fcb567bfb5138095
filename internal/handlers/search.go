// internal/handlers/search.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/jamsesh/jamsesh/internal/catalog"
)

// SearchHandler proxies catalog searches so browser clients never talk to
// the upstream provider directly (CORS, and the provider stays swappable).
// GET /songs/search?q=...&limit=25
func SearchHandler(logger *logrus.Logger, provider catalog.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		query := r.URL.Query().Get("q")
		if query == "" {
			http.Error(w, "missing q parameter", http.StatusBadRequest)
			return
		}
		limit := 25
		if ls := r.URL.Query().Get("limit"); ls != "" {
			if v, err := strconv.Atoi(ls); err == nil && v > 0 && v <= 50 {
				limit = v
			}
		}

		songs, err := provider.Search(r.Context(), query, limit)
		if err != nil {
			logger.Warnf("catalog search failed for %q: %v", query, err)
			http.Error(w, "catalog search failed", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(songs); err != nil {
			logger.Warnf("failed to encode search response: %v", err)
		}
	}
}
