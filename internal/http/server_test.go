package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"carteira/internal/ledger"
	"carteira/internal/remote/memory"
	"carteira/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewLedgerService(ledger.New(memory.New()), nil)
	s := NewServer(":0", svc, Options{UserID: "user-1", InitialPageSize: 4, PageIncrement: 1})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" && strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreateTransaction(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/transactions",
		`{"type":"Receita","value":"1.500,00","category":"Alimentação","date":"2024-01-15"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["id"] == nil || body["id"] == "" {
		t.Error("created transaction has no id")
	}
	if body["value_cents"].(float64) != 150000 {
		t.Errorf("value_cents = %v, want 150000", body["value_cents"])
	}
	if body["type"] != "income" {
		t.Errorf("type = %v, want income", body["type"])
	}

	list := decode(t, do(t, s, http.MethodGet, "/api/transactions", ""))
	if list["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", list["count"])
	}
}

func TestCreateTransactionRejectsUnknownCategory(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/transactions",
		`{"type":"expense","value":"50.00","category":"Lazer","date":"2024-01-15"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	body := decode(t, rec)
	if body["field"] != "category" {
		t.Errorf("field = %v, want category", body["field"])
	}
}

func TestCreateTransactionRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/transactions", `{"type":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateTransaction(t *testing.T) {
	s := newTestServer(t)

	created := decode(t, do(t, s, http.MethodPost, "/api/transactions",
		`{"type":"expense","value":"50.00","category":"Transporte","date":"2024-02-10"}`))
	id := created["id"].(string)

	rec := do(t, s, http.MethodPatch, "/api/transactions/"+id, `{"value":"75.00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["value_cents"].(float64) != 7500 {
		t.Errorf("value_cents = %v, want 7500", body["value_cents"])
	}
	if body["category"] != "Transporte" {
		t.Errorf("category changed unexpectedly: %v", body["category"])
	}
}

func TestUpdateUnknownIDIs404(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPatch, "/api/transactions/nope", `{"value":"75.00"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404; body = %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateEmptyPatchIs400(t *testing.T) {
	s := newTestServer(t)

	created := decode(t, do(t, s, http.MethodPost, "/api/transactions",
		`{"type":"expense","value":"50.00","category":"Transporte","date":"2024-02-10"}`))
	id := created["id"].(string)

	rec := do(t, s, http.MethodPatch, "/api/transactions/"+id, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := newTestServer(t)

	created := decode(t, do(t, s, http.MethodPost, "/api/transactions",
		`{"type":"expense","value":"50.00","category":"Transporte","date":"2024-02-10"}`))
	id := created["id"].(string)

	rec := do(t, s, http.MethodDelete, "/api/transactions/"+id, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = do(t, s, http.MethodDelete, "/api/transactions/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestImportCSV(t *testing.T) {
	s := newTestServer(t)

	csv := "tipo,valor,categoria,data\n" +
		"Receita,1500.00,Alimentação,2024-01-15\n" +
		"Despesa,200.50,Transporte,2024-01-20\n"
	rec := do(t, s, http.MethodPost, "/api/transactions/import", csv)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["imported"].(float64) != 2 {
		t.Errorf("imported = %v, want 2", body["imported"])
	}

	list := decode(t, do(t, s, http.MethodGet, "/api/transactions", ""))
	if list["count"].(float64) != 2 {
		t.Errorf("count after import = %v, want 2", list["count"])
	}
}

func TestImportCSVFailFast(t *testing.T) {
	s := newTestServer(t)

	csv := "tipo,valor,categoria,data\n" +
		"Receita,1500.00,Alimentação,2024-01-15\n" +
		"Despesa,10.00,Lazer,2024-01-20\n"
	rec := do(t, s, http.MethodPost, "/api/transactions/import", csv)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["row"].(float64) != 3 {
		t.Errorf("row = %v, want 3", body["row"])
	}

	list := decode(t, do(t, s, http.MethodGet, "/api/transactions", ""))
	if list["count"].(float64) != 0 {
		t.Errorf("count after failed import = %v, want 0", list["count"])
	}
}

func TestStatementWindowing(t *testing.T) {
	s := newTestServer(t)

	rows := []string{
		`{"type":"expense","value":"10.00","category":"Transporte","date":"2024-03-05"}`,
		`{"type":"expense","value":"20.00","category":"Transporte","date":"2024-03-06"}`,
		`{"type":"expense","value":"30.00","category":"Transporte","date":"2024-02-07"}`,
		`{"type":"expense","value":"40.00","category":"Transporte","date":"2024-02-08"}`,
		`{"type":"expense","value":"50.00","category":"Transporte","date":"2024-01-09"}`,
	}
	for _, row := range rows {
		if rec := do(t, s, http.MethodPost, "/api/transactions", row); rec.Code != http.StatusCreated {
			t.Fatalf("seed create failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	body := decode(t, do(t, s, http.MethodGet, "/api/statement", ""))
	if body["shown"].(float64) != 4 {
		t.Errorf("shown = %v, want 4 (initial page)", body["shown"])
	}
	if body["total"].(float64) != 5 {
		t.Errorf("total = %v, want 5", body["total"])
	}
	if body["has_more"] != true {
		t.Error("has_more = false, want true")
	}
	if body["next_limit"].(float64) != 5 {
		t.Errorf("next_limit = %v, want 5", body["next_limit"])
	}

	body = decode(t, do(t, s, http.MethodGet, "/api/statement?limit=5", ""))
	if body["shown"].(float64) != 5 || body["has_more"] != false {
		t.Errorf("full window: shown = %v, has_more = %v", body["shown"], body["has_more"])
	}
}

func TestStatementFilterByType(t *testing.T) {
	s := newTestServer(t)

	seeds := []string{
		`{"type":"income","value":"100.00","category":"Alimentação","date":"2024-01-15"}`,
		`{"type":"expense","value":"50.00","category":"Transporte","date":"2024-01-16"}`,
	}
	for _, row := range seeds {
		if rec := do(t, s, http.MethodPost, "/api/transactions", row); rec.Code != http.StatusCreated {
			t.Fatal(rec.Body.String())
		}
	}

	body := decode(t, do(t, s, http.MethodGet, "/api/statement?type=income", ""))
	if body["total"].(float64) != 1 {
		t.Errorf("total = %v, want 1", body["total"])
	}
	if body["active_filters"].(float64) != 1 {
		t.Errorf("active_filters = %v, want 1", body["active_filters"])
	}
}

func TestSummaryReflectsMutations(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/api/transactions",
		`{"type":"income","value":"100.00","category":"Alimentação","date":"2024-01-15"}`)

	body := decode(t, do(t, s, http.MethodGet, "/api/summary", ""))
	if body["income_cents"].(float64) != 10000 {
		t.Errorf("income_cents = %v, want 10000", body["income_cents"])
	}

	// A second read hits the cache; a mutation must invalidate it.
	do(t, s, http.MethodPost, "/api/transactions",
		`{"type":"expense","value":"40.00","category":"Moradia","date":"2024-01-16"}`)

	body = decode(t, do(t, s, http.MethodGet, "/api/summary", ""))
	if body["expense_cents"].(float64) != 4000 {
		t.Errorf("expense_cents after create = %v, want 4000", body["expense_cents"])
	}
	if body["balance_cents"].(float64) != 6000 {
		t.Errorf("balance_cents = %v, want 6000", body["balance_cents"])
	}
	breakdown := body["breakdown"].([]any)
	if len(breakdown) != 1 {
		t.Fatalf("breakdown slices = %d, want 1", len(breakdown))
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	s := newTestServer(t)

	body := decode(t, do(t, s, http.MethodGet, "/api/categories", ""))
	cats := body["categories"].([]any)
	if len(cats) != 5 {
		t.Fatalf("categories = %d, want 5", len(cats))
	}
	first := cats[0].(map[string]any)
	if first["name"] != "Alimentação" || first["color"] != "#2196F3" {
		t.Errorf("first category = %v", first)
	}
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	if rec := do(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}

	// Not hydrated yet: readiness is refused.
	if rec := do(t, s, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before hydrate = %d, want 503", rec.Code)
	}

	if err := s.service.Hydrate(context.Background(), "user-1"); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	if rec := do(t, s, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz after hydrate = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/transactions",
		`{"type":"expense","value":"40,00","category":"Moradia","date":"05/01/2024"}`)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d, want 200", rec.Code)
	}
	out := rec.Body.String()
	for _, metric := range []string{
		"http_requests_total",
		"ledger_transactions 1",
		"ledger_pending_transactions",
		"suspicious_requests_total",
		"active_rate_limit_clients",
	} {
		if !strings.Contains(out, metric) {
			t.Errorf("metrics output missing %q", metric)
		}
	}
}
