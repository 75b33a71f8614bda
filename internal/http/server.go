package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"carteira/internal/cache"
	"carteira/internal/core"
	"carteira/internal/ledger"
	"carteira/internal/log"
	"carteira/internal/middleware/ratelimit"
	"carteira/internal/middleware/security"
	"carteira/internal/middleware/trace"
	"carteira/internal/services"
	"carteira/internal/statement"
)

// Options tune the server; zero values fall back to the config defaults.
type Options struct {
	UserID            string
	InitialPageSize   int
	PageIncrement     int
	SummaryCacheSize  int
	SummaryCacheTTL   time.Duration
	RequestsPerMinute int
}

// Server exposes the ledger service as a JSON API. All mutations run against
// the configured user's ledger.
type Server struct {
	http.Server

	service *services.LedgerService
	userID  string

	initialPageSize int
	pageIncrement   int

	// generation is bumped on every mutation; it prefixes summary cache keys
	// so stale entries are never served and age out through the LRU.
	generation   atomic.Int64
	summaryCache *cache.LRUCache[summaryResponse]
	cacheManager *cache.Manager

	detector *security.Detector
	limiter  *ratelimit.Limiter
	traceMw  *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, service *services.LedgerService, opts Options) *Server {
	if opts.UserID == "" {
		opts.UserID = "local"
	}
	if opts.InitialPageSize < 1 {
		opts.InitialPageSize = 4
	}
	if opts.PageIncrement < 1 {
		opts.PageIncrement = 1
	}
	if opts.SummaryCacheSize < 1 {
		opts.SummaryCacheSize = 256
	}
	if opts.SummaryCacheTTL <= 0 {
		opts.SummaryCacheTTL = 30 * time.Second
	}

	s := &Server{
		service:         service,
		userID:          opts.UserID,
		initialPageSize: opts.InitialPageSize,
		pageIncrement:   opts.PageIncrement,
		summaryCache:    cache.NewLRUCache[summaryResponse](opts.SummaryCacheSize, opts.SummaryCacheTTL),
		cacheManager:    cache.NewManager(),
		detector:        security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
	}

	s.started = time.Now()
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/import", s.handleImport)
	mux.HandleFunc("POST /api/resync", s.handleResync)

	mux.HandleFunc("GET /api/statement", s.handleStatement)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	s.traceMw = trace.NewMiddleware(s.detector.ExtractClientIP)
	headersMw := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	handler := s.rateLimitMutations(mux)
	handler = s.flagSuspicious(handler)
	handler = headersMw.Middleware(handler)
	handler = s.traceMw.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// flagSuspicious counts and logs probing requests. They still get a normal
// response; the signal is for the operator, not the prober.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMutations applies the per-client limit to mutating methods only;
// reads stay unthrottled the way the statement view expects.
func (s *Server) rateLimitMutations(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, nil)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Shutdown stops the HTTP server and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) invalidateSummaries() {
	s.generation.Add(1)
}

func (s *Server) summaryKey(c statement.Criteria) string {
	return "g" + strconv.FormatInt(s.generation.Load(), 10) + "|" + criteriaKey(c)
}

type transactionJSON struct {
	ID         string `json:"id,omitempty"`
	Status     string `json:"status,omitempty"`
	Type       string `json:"type"`
	ValueCents int64  `json:"value_cents"`
	Category   string `json:"category"`
	Date       string `json:"date"`
	UserID     string `json:"user_id,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	out := transactionJSON{
		ID:         tx.ID,
		Type:       string(tx.Type),
		ValueCents: tx.Value.Cents,
		Category:   string(tx.Category),
		Date:       tx.Date.String(),
		UserID:     tx.UserID,
	}
	if !tx.CreatedAt.IsZero() {
		out.CreatedAt = tx.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !tx.UpdatedAt.IsZero() {
		out.UpdatedAt = tx.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func toEntryJSON(e ledger.Entry) transactionJSON {
	out := toTransactionJSON(e.Transaction)
	out.Status = string(e.Status)
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleMetrics writes operational counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	traceMetrics := s.traceMw.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	store := s.service.Store()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP ledger_transactions Transactions currently in the ledger\n")
	fmt.Fprintf(w, "# TYPE ledger_transactions gauge\n")
	fmt.Fprintf(w, "ledger_transactions %d\n\n", len(store.Entries()))

	fmt.Fprintf(w, "# HELP ledger_pending_transactions Transactions awaiting remote confirmation\n")
	fmt.Fprintf(w, "# TYPE ledger_pending_transactions gauge\n")
	fmt.Fprintf(w, "ledger_pending_transactions %d\n\n", store.PendingCount())

	fmt.Fprintf(w, "# HELP summary_cache_entries Current summary cache entries\n")
	fmt.Fprintf(w, "# TYPE summary_cache_entries gauge\n")
	fmt.Fprintf(w, "summary_cache_entries %d\n\n", s.summaryCache.Size())

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.limiter.ActiveClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}

// handleReady reports readiness from the ledger's perspective: hydrated for
// the configured user and not wedged on a collaborator error.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	store := s.service.Store()
	if store.UserID() != s.userID {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "hydrating"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	store := s.service.Store()
	entries := store.Entries()
	items := make([]transactionJSON, 0, len(entries))
	for _, e := range entries {
		if !criteria.Matches(e.Transaction) {
			continue
		}
		items = append(items, toEntryJSON(e))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions":   items,
		"count":          len(items),
		"pending_count":  store.PendingCount(),
		"active_filters": criteria.ActiveCount(),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	draft, err := decodeDraft(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.service.Create(r.Context(), s.userID, draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummaries()
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	patch, err := decodePatch(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.service.Update(r.Context(), id, s.userID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummaries()
	writeJSON(w, http.StatusOK, toTransactionJSON(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.Delete(r.Context(), id, s.userID); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummaries()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := readCSVBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.service.Import(r.Context(), s.userID, raw)
	if len(created) > 0 {
		s.invalidateSummaries()
	}
	if err != nil {
		// A mid-import persistence failure still created earlier rows; report
		// both so the client does not re-submit the whole file.
		body := errorBody(err)
		writeJSON(w, statusForError(err), map[string]any{
			"error":    body.Error,
			"field":    body.Field,
			"row":      body.Row,
			"imported": len(created),
		})
		return
	}

	items := make([]transactionJSON, len(created))
	for i, tx := range created {
		items[i] = toTransactionJSON(tx)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"imported":     len(items),
		"transactions": items,
	})
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	confirmed, err := s.service.Resync(r.Context(), 0)
	if confirmed > 0 {
		s.invalidateSummaries()
	}
	if err != nil {
		writeJSON(w, statusForError(err), map[string]any{
			"error":     err.Error(),
			"confirmed": confirmed,
			"pending":   s.service.Store().PendingCount(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"confirmed": confirmed,
		"pending":   s.service.Store().PendingCount(),
	})
}

type monthJSON struct {
	Label        string            `json:"label"`
	Transactions []transactionJSON `json:"transactions"`
}

// handleStatement returns the filtered ledger grouped by calendar month,
// windowed to the requested limit. has_more tells the client whether another
// "load more" would reveal anything.
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := parseLimit(r.URL.Query(), s.initialPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filtered := s.service.Store().Filtered(criteria)
	window := filtered
	if limit < len(filtered) {
		window = filtered[:limit]
	}

	buckets := statement.GroupByMonth(window)
	months := make([]monthJSON, len(buckets))
	for i, b := range buckets {
		items := make([]transactionJSON, len(b.Transactions))
		for j, tx := range b.Transactions {
			items[j] = toTransactionJSON(tx)
		}
		months[i] = monthJSON{Label: b.Label, Transactions: items}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"months":         months,
		"shown":          len(window),
		"total":          len(filtered),
		"has_more":       len(window) < len(filtered),
		"next_limit":     min(limit+s.pageIncrement, len(filtered)),
		"active_filters": criteria.ActiveCount(),
	})
}

type categorySliceJSON struct {
	Category   string `json:"category"`
	TotalCents int64  `json:"total_cents"`
	Color      string `json:"color"`
}

type summaryResponse struct {
	IncomeCents   int64               `json:"income_cents"`
	ExpenseCents  int64               `json:"expense_cents"`
	BalanceCents  int64               `json:"balance_cents"`
	Breakdown     []categorySliceJSON `json:"breakdown"`
	ActiveFilters int                 `json:"active_filters"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := s.summaryKey(criteria)
	if cached, found := s.summaryCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary := s.service.Store().Summarize(criteria)
	resp := summaryResponse{
		IncomeCents:   summary.Income.Cents,
		ExpenseCents:  summary.Expense.Cents,
		BalanceCents:  summary.Balance.Cents,
		Breakdown:     make([]categorySliceJSON, len(summary.Breakdown)),
		ActiveFilters: criteria.ActiveCount(),
	}
	for i, slice := range summary.Breakdown {
		resp.Breakdown[i] = categorySliceJSON{
			Category:   string(slice.Category),
			TotalCents: slice.Total.Cents,
			Color:      slice.Color,
		}
	}

	s.summaryCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleCategories exposes the closed category set with its palette so
// clients render the same colors everywhere.
func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	cats := core.Categories()
	out := make([]map[string]string, len(cats))
	for i, c := range cats {
		out[i] = map[string]string{
			"name":  string(c),
			"color": statement.CategoryColor(i),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}
