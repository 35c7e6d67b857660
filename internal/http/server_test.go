package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"khata/internal/core"
	"khata/internal/ledger"
	"khata/internal/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	ld := ledger.New(store, nil)
	history := ledger.NewHistoryResolver(store, store)
	bills := ledger.NewBills(store)
	s := NewServer(":0", ld, history, bills, store)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, store
}

func doJSON(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleEntries(t *testing.T) {
	s, store := newTestServer(t)

	body := `{"society":"green-acres","category":"bank","account":"operating","amount":"100.00","side":"credit","day":"2026-03-10"}`
	rec := doJSON(t, s, http.MethodPost, "/api/entries", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body = %s", rec.Code, rec.Body.String())
	}

	var resp createEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Effect != "increase" {
		t.Errorf("effect = %q, want increase", resp.Effect)
	}
	if resp.AmountPaise != 10000 {
		t.Errorf("amount_paise = %d, want 10000", resp.AmountPaise)
	}

	agg, err := store.Aggregate(context.Background(), core.AccountRef{
		Society: "green-acres", Category: core.CategoryBank, Name: "operating",
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if agg.Total.Paise != 10000 {
		t.Errorf("stored total = %d, want 10000", agg.Total.Paise)
	}
}

func TestHandleEntriesValidation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad amount", `{"society":"s","category":"bank","account":"a","amount":"-5","side":"credit","day":"2026-03-10"}`},
		{"bad day", `{"society":"s","category":"bank","account":"a","amount":"10","side":"credit","day":"10/03/2026"}`},
		{"bad side", `{"society":"s","category":"bank","account":"a","amount":"10","side":"sideways","day":"2026-03-10"}`},
		{"missing society", `{"category":"bank","account":"a","amount":"10","side":"credit","day":"2026-03-10"}`},
		{"malformed body", `{not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/entries", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

// failingStore wraps the memory store with a write path that always exhausts
// its conflict budget.
type failingStore struct {
	*memory.Store
}

func (f *failingStore) ApplyDelta(context.Context, core.AccountRef, core.Money, core.Effect, core.Date) error {
	return fmt.Errorf("%w: after 5 attempts", ledger.ErrTransactionFailed)
}

func TestHandleEntriesTransactionFailure(t *testing.T) {
	store := &failingStore{Store: memory.New()}
	ld := ledger.New(store, nil)
	history := ledger.NewHistoryResolver(store, store)
	bills := ledger.NewBills(store)
	s := NewServer(":0", ld, history, bills, store)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	body := `{"society":"s","category":"bank","account":"a","amount":"10","side":"credit","day":"2026-03-10"}`
	rec := doJSON(t, s, http.MethodPost, "/api/entries", body)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleBalance(t *testing.T) {
	s, _ := newTestServer(t)

	for _, e := range []string{
		`{"society":"green-acres","category":"bank","account":"operating","amount":"100.00","side":"credit","day":"2026-03-10"}`,
		`{"society":"green-acres","category":"bank","account":"operating","amount":"30.00","side":"debit","day":"2026-03-12"}`,
	} {
		if rec := doJSON(t, s, http.MethodPost, "/api/entries", e); rec.Code != http.StatusCreated {
			t.Fatalf("seed entry failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/balance?society=green-acres&category=bank&account=operating&day=2026-03-11", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp balanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.BalancePaise != 10000 {
		t.Errorf("balance as of 2026-03-11 = %d, want 10000", resp.BalancePaise)
	}

	// No day parameter serves the running aggregate with the watermark.
	rec = doJSON(t, s, http.MethodGet, "/api/balance?society=green-acres&category=bank&account=operating", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.BalancePaise != 7000 {
		t.Errorf("aggregate balance = %d, want 7000", resp.BalancePaise)
	}
	if resp.LastUpdatedDay != "2026-03-12" {
		t.Errorf("last_updated_day = %q, want 2026-03-12", resp.LastUpdatedDay)
	}
}

func TestHandleBalanceReport(t *testing.T) {
	s, _ := newTestServer(t)

	for _, e := range []string{
		`{"society":"green-acres","category":"bank","account":"operating","amount":"100.00","side":"credit","day":"2026-03-10"}`,
		`{"society":"green-acres","category":"cash","account":"petty","amount":"20.00","side":"credit","day":"2026-03-11"}`,
	} {
		if rec := doJSON(t, s, http.MethodPost, "/api/entries", e); rec.Code != http.StatusCreated {
			t.Fatalf("seed entry failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/report/balances?society=green-acres&from=2026-03-01&to=2026-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var rows []balanceRangeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d report rows, want 2", len(rows))
	}
	for _, row := range rows {
		if row.OpeningPaise != 0 {
			t.Errorf("opening for %s = %d, want 0", row.Account, row.OpeningPaise)
		}
	}

	// Unknown society reports empty, not an error.
	rec = doJSON(t, s, http.MethodGet, "/api/report/balances?society=nowhere&from=2026-03-01&to=2026-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows for unknown society, want 0", len(rows))
	}
}

func TestHandleSnapshots(t *testing.T) {
	s, _ := newTestServer(t)

	for _, e := range []string{
		`{"society":"green-acres","category":"bank","account":"operating","amount":"100.00","side":"credit","day":"2026-03-10"}`,
		`{"society":"green-acres","category":"bank","account":"operating","amount":"25.00","side":"credit","day":"2026-03-10"}`,
		`{"society":"green-acres","category":"bank","account":"operating","amount":"10.00","side":"debit","day":"2026-03-12"}`,
	} {
		if rec := doJSON(t, s, http.MethodPost, "/api/entries", e); rec.Code != http.StatusCreated {
			t.Fatalf("seed entry failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/snapshots?society=green-acres&category=bank&account=operating&from=2026-03-01&to=2026-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var snaps []snapshotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &snaps); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	if snaps[0].Day != "2026-03-10" || snaps[0].ChangePaise != 12500 {
		t.Errorf("first snapshot = %+v, want 2026-03-10/12500", snaps[0])
	}
	if snaps[1].Day != "2026-03-12" || snaps[1].ChangePaise != -1000 {
		t.Errorf("second snapshot = %+v, want 2026-03-12/-1000", snaps[1])
	}
}

func TestHandlePenaltyPreview(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{
		"amount": "1000.00",
		"policy": {"due_date":"2026-03-05","occurrence":"recurring","frequency_days":5,"type":"percentage","value":"2"},
		"as_of": "2026-03-15"
	}`
	rec := doJSON(t, s, http.MethodPost, "/api/penalty/preview", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp penaltyPreviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// 10 days overdue at 5-day frequency: two applications of 2% of 1000.00.
	if resp.PenaltyPaise != 4000 {
		t.Errorf("penalty_paise = %d, want 4000", resp.PenaltyPaise)
	}
}

func TestHandlePenaltyPreviewInvalidPolicy(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{
		"amount": "1000.00",
		"policy": {"due_date":"2026-03-05","occurrence":"recurring","frequency_days":0,"type":"percentage","value":"2"},
		"as_of": "2026-03-15"
	}`
	rec := doJSON(t, s, http.MethodPost, "/api/penalty/preview", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestBillEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	createBody := `{
		"society": "green-acres",
		"category": "income",
		"account": "maintenance",
		"description": "june maintenance",
		"amount": "1000.00",
		"policy": {"due_date":"2026-06-01","occurrence":"recurring","frequency_days":7,"type":"percentage","value":"2.5"}
	}`
	rec := doJSON(t, s, http.MethodPost, "/api/bills", createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created billResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.ID == "" {
		t.Error("created bill has no ID")
	}
	if created.PenaltyValue != 250 {
		t.Errorf("penalty_value = %d, want 250 basis points", created.PenaltyValue)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/bills?society=green-acres", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var listed []billResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("got %d bills, want 1", len(listed))
	}

	rec = doJSON(t, s, http.MethodPost, "/api/bills/settle?id="+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("settle status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/bills?society=green-acres", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !listed[0].Settled {
		t.Error("bill not settled after settle call")
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
