package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

const maxFormBytes = 64 << 10

// page is the data passed to index.html.
type page struct {
	// Notices report the outcome of the action handled in this request.
	Notices []session.Notice
	Form    EntryForm
	From    string
	To      string
	View    *session.View
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		MethodNotAllowedError("GET, HEAD").Write(w)
		return
	}

	filter, notices := ParseFilter(r.URL.Query())
	s.render(w, r, http.StatusOK, page{Notices: notices, Form: s.blankForm()}, filter)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if !s.parsePost(w, r) {
		return
	}

	form := ParseEntryForm(r.PostForm)
	entry, err := form.Entry(s.session.Today())
	var exp core.Expense
	if err == nil {
		exp, err = s.session.Submit(r.Context(), entry)
	}
	if err != nil {
		s.actionFailed(w, r, err, log.OpSubmit, page{Form: form})
		return
	}

	s.submitted.Add(1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense submitted",
		log.NewFields().WithExpense(exp.Description, core.FormatAmount(exp.Amount), exp.Category).ToSlice()...)
	s.render(w, r, http.StatusOK, page{
		Notices: []session.Notice{session.AddedNotice(exp)},
		Form:    s.blankForm(),
	}, session.Filter{})
}

func (s *Server) handleRecategorize(w http.ResponseWriter, r *http.Request) {
	if !s.parsePost(w, r) {
		return
	}

	pg := page{Form: s.blankForm()}
	if r.PostForm.Get(fieldConfirm) != "1" {
		pg.Notices = []session.Notice{session.Info("No changes saved. Use 'Save Changes' to apply the corrections.")}
		s.render(w, r, http.StatusOK, pg, session.Filter{})
		return
	}

	updates, err := ParseCorrections(r.PostForm)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	n, err := s.session.Recategorize(r.Context(), updates)
	if err != nil {
		s.actionFailed(w, r, err, log.OpRecategorize, pg)
		return
	}
	if n == 0 {
		pg.Notices = []session.Notice{session.Info("No category changes to save.")}
	} else {
		pg.Notices = []session.Notice{session.Success("Categories updated successfully.")}
	}
	s.render(w, r, http.StatusOK, pg, session.Filter{})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if !s.parsePost(w, r) {
		return
	}

	pg := page{Form: s.blankForm()}
	idx, err := ParseRowIndex(r.PostForm)
	if err != nil {
		pg.Notices = []session.Notice{session.Warning("Please enter a valid row number.")}
		s.render(w, r, http.StatusUnprocessableEntity, pg, session.Filter{})
		return
	}

	if _, err := s.session.Delete(r.Context(), idx); err != nil {
		s.actionFailed(w, r, err, log.OpDelete, pg)
		return
	}
	pg.Notices = []session.Notice{session.Success("Entry deleted.")}
	s.render(w, r, http.StatusOK, pg, session.Filter{})
}

// parsePost enforces POST and parses a bounded form body. It writes the
// error response and returns false on failure.
func (s *Server) parsePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		MethodNotAllowedError(http.MethodPost).Write(w)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Parse form error", log.FieldError, err)
		BadRequestError("Invalid request format").Write(w)
		return false
	}
	return true
}

// actionFailed shows user errors as a warning on the page with 422 and
// reports anything else as a 500.
func (s *Server) actionFailed(w http.ResponseWriter, r *http.Request, err error, op string, pg page) {
	if session.IsUserError(err) {
		pg.Notices = append(pg.Notices, session.Warning("%s", session.UserMessage(err)))
		s.render(w, r, http.StatusUnprocessableEntity, pg, session.Filter{})
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), "Store action failed", err, log.ComponentSession, op, nil)
	InternalServerError("Failed to update the expense store").Write(w)
}

func (s *Server) blankForm() EntryForm {
	return EntryForm{Date: s.session.Today().Format(core.DateLayout)}
}

// render runs one pass of the session and writes the page. The template is
// executed into a buffer first so a failure can still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, pg page, filter session.Filter) {
	logger := log.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	view, err := s.session.Render(r.Context(), filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "Render failed", log.FieldOperation, log.OpRender, log.FieldError, err)
		InternalServerError("Failed to load expenses").Write(w)
		return
	}
	pg.View = view
	if filter.DateRangeActive() {
		pg.From = filter.From.Format(core.DateLayout)
		pg.To = filter.To.Format(core.DateLayout)
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", pg); err != nil {
		logger.ErrorContext(r.Context(), "Index template execution failed", log.FieldError, err, "template", "index.html")
		InternalServerError("Failed to render page").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the templates, the store and the model.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.session.Ready(ctx); err != nil {
		checks["session"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["session"] = "ok"
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_response_time_avg_seconds", "Average response time", "gauge", traceMetrics.AverageResponseTime.Seconds())
	metric("expenses_submitted_total", "Expenses added through the form", "counter", s.submitted.Load())
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	if s.cacheStats != nil {
		st := s.cacheStats()
		metric("prediction_cache_entries", "Cached predictions", "gauge", st.Size)
		metric("prediction_cache_hits_total", "Prediction cache hits", "counter", st.Hits)
		metric("prediction_cache_misses_total", "Prediction cache misses", "counter", st.Misses)
	}
	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.started).Seconds()))
}
