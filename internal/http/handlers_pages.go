package http

import (
	"bytes"
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/listing"
	"fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/stats"
)

// pageKind describes one of the two per-kind list pages.
type pageKind struct {
	Kind  core.Kind
	Path  string
	Title string
	Noun  string
}

var (
	expensesPage = pageKind{Kind: core.KindExpense, Path: "/expenses", Title: "Expenses", Noun: "expense"}
	incomesPage  = pageKind{Kind: core.KindIncome, Path: "/incomes", Title: "Incomes", Noun: "income"}
)

// render executes a template into a buffer first so a failing template
// never leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentTemplate)
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		http.Error(w, "error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, errorType := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Page request failed",
			log.FieldErrorType, errorType,
			log.FieldError, err)
	}
	s.render(w, r, status, "error.html", struct {
		Status  int
		Message string
	}{status, message})
}

// loginData feeds login.html.
type loginData struct {
	Mode  string // signin or signup
	Email string
	Name  string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.Resolve(r.Context(), tokenFromRequest(r)); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	mode := "signin"
	if r.URL.Query().Get("mode") == "signup" {
		mode = "signup"
	}
	s.render(w, r, http.StatusOK, "login.html", loginData{Mode: mode})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	data := loginData{Mode: "signin"}
	if err := p.Parse(); err != nil {
		data.Error = err.Error()
		s.render(w, r, http.StatusUnprocessableEntity, "login.html", data)
		return
	}
	if p.Get("mode") == "signup" {
		data.Mode = "signup"
	}
	data.Email, data.Name = p.Get("email"), p.Get("name")

	var (
		token string
		st    *session.State
		err   error
	)
	if data.Mode == "signup" {
		token, st, err = s.sessions.SignUp(r.Context(), data.Email, p.GetRaw("password"), data.Name)
	} else {
		token, st, err = s.sessions.SignIn(r.Context(), data.Email, p.GetRaw("password"))
	}
	if err != nil {
		status, message, _ := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Sign-in failed", log.FieldError, err)
		}
		data.Error = message
		s.render(w, r, status, "login.html", data)
		return
	}

	http.SetCookie(w, s.newSessionCookie(token, st.Session.ExpiresAt))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	if token := tokenFromRequest(r); token != "" {
		if err := s.sessions.SignOut(r.Context(), token); err != nil && !errors.Is(err, auth.ErrInvalidToken) {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Sign-out failed",
				log.FieldOperation, log.OpSignOut,
				log.FieldError, err)
		}
	}
	http.SetCookie(w, s.clearCookie())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type dashboardData struct {
	User       core.Profile
	Active     string
	Loaded     bool
	Summary    stats.Summary
	Breakdown  []stats.CategorySlice
	Series     []stats.DailyPoint
	SeriesMax  core.Money
	WindowDays int
	Recent     []core.Transaction
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request, st *session.State) {
	summary := st.Transactions.Stats()
	series := st.Transactions.DailySeries(s.opts.StatsWindowDays)

	var peak core.Money
	for _, p := range series {
		peak = core.Money{Cents: max(peak.Cents, p.Income.Cents, p.Expense.Cents)}
	}

	s.render(w, r, http.StatusOK, "dashboard.html", dashboardData{
		User:       st.Profile(),
		Active:     "/",
		Loaded:     st.Transactions.Loaded(),
		Summary:    summary,
		Breakdown:  stats.Breakdown(summary),
		Series:     series,
		SeriesMax:  peak,
		WindowDays: s.opts.StatsWindowDays,
		Recent:     stats.Recent(st.Transactions.Transactions(), recentCount),
	})
}

// listData feeds list.html.
type listData struct {
	User       core.Profile
	Active     string
	Page       pageKind
	Query      listing.Query
	Items      []core.Transaction
	Total      core.Money
	Categories []core.Category
	Today      string
	Form       map[string]string
	Error      string
}

func (s *Server) listData(r *http.Request, st *session.State, page pageKind) (listData, error) {
	q, err := ParseListQuery(r.URL.Query(), page.Kind)
	if err != nil {
		return listData{}, err
	}
	items := st.Transactions.Query(q)
	return listData{
		User:       st.Profile(),
		Active:     page.Path,
		Page:       page,
		Query:      q,
		Items:      items,
		Total:      stats.Total(items),
		Categories: core.CategoriesFor(page.Kind),
		Today:      core.DateOf(s.now()).String(),
	}, nil
}

func (s *Server) listPage(page pageKind) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, st *session.State) {
		data, err := s.listData(r, st, page)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		s.render(w, r, http.StatusOK, "list.html", data)
	}
}

// createFromPage handles the add form on a list page. Success redirects
// back to the list; a rejected draft re-renders it with the message.
func (s *Server) createFromPage(page pageKind) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, st *session.State) {
		p := NewRequestBodyParser(r)
		err := p.Parse()
		var d core.Draft
		if err == nil {
			d, err = parseDraft(p, page.Kind)
		}
		if err == nil {
			var tx core.Transaction
			if tx, err = st.Transactions.Create(r.Context(), d); err == nil {
				logTransaction(r, "Transaction created", log.OpCreate, tx)
				http.Redirect(w, r, page.Path, http.StatusSeeOther)
				return
			}
		}

		status, message, _ := errorStatus(err)
		if status >= http.StatusInternalServerError {
			s.renderError(w, r, err)
			return
		}
		data, qerr := s.listData(r, st, page)
		if qerr != nil {
			s.renderError(w, r, qerr)
			return
		}
		data.Error = message
		data.Form = map[string]string{
			"amount":      p.Get("amount"),
			"category":    p.Get("category"),
			"description": p.Get("description"),
			"date":        p.Get("date"),
		}
		s.render(w, r, status, "list.html", data)
	}
}

// handleDeleteFromPage deletes one transaction and returns to the page the
// form was posted from.
func (s *Server) handleDeleteFromPage(w http.ResponseWriter, r *http.Request, st *session.State) {
	id := r.PathValue("id")
	if err := st.Transactions.Delete(r.Context(), id); err != nil {
		s.renderError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, id)

	back := "/"
	if err := r.ParseForm(); err == nil {
		switch ret := r.PostForm.Get("return"); ret {
		case expensesPage.Path, incomesPage.Path:
			back = ret
		}
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// handleRefreshFromPage reloads the list after a failed initial load.
func (s *Server) handleRefreshFromPage(w http.ResponseWriter, r *http.Request, st *session.State) {
	if err := st.Transactions.Load(r.Context()); err != nil {
		s.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type settingsData struct {
	User   core.Profile
	Active string
	Saved  bool
	Error  string
}

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request, st *session.State) {
	s.render(w, r, http.StatusOK, "settings.html", settingsData{
		User:   st.Profile(),
		Active: "/settings",
		Saved:  r.URL.Query().Get("saved") == "1",
	})
}

func (s *Server) handleSettingsForm(w http.ResponseWriter, r *http.Request, st *session.State) {
	p := NewRequestBodyParser(r)
	err := p.Parse()
	if err == nil {
		_, err = s.sessions.UpdateProfile(r.Context(), st, parseProfilePatch(p))
	}
	if err == nil {
		http.Redirect(w, r, "/settings?saved=1", http.StatusSeeOther)
		return
	}

	status, message, _ := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, status, "settings.html", settingsData{
		User:   st.Profile(),
		Active: "/settings",
		Error:  message,
	})
}
