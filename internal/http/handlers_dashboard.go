package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/stats"
)

// statsResponse is the body of GET /api/stats.
type statsResponse struct {
	stats.Summary
	Breakdown []stats.CategorySlice `json:"breakdown"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, st *session.State) {
	summary := st.Transactions.Stats()
	NewJSONResponse().Body(statsResponse{
		Summary:   summary,
		Breakdown: stats.Breakdown(summary),
	}).Write(w)
}

func (s *Server) handleDailySeries(w http.ResponseWriter, r *http.Request, st *session.State) {
	days, err := ParseDays(r.URL.Query(), s.opts.StatsWindowDays)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(st.Transactions.DailySeries(days)).Write(w)
}

// handleCategories serves the static catalog; it needs no session.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	var kind core.Kind
	if v := strings.TrimSpace(r.URL.Query().Get("kind")); v != "" {
		k, err := core.ParseKind(v)
		if err != nil {
			writeError(w, r, log.OpRead, err)
			return
		}
		kind = k
	}
	NewJSONResponse().
		Header("Cache-Control", "public, max-age=3600").
		Body(core.CategoriesFor(kind)).
		Write(w)
}
