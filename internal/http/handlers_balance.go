package http

import (
	"fmt"
	"net/http"
	"strings"

	"khata/internal/core"
)

type balanceResponse struct {
	Society        string `json:"society"`
	Category       string `json:"category"`
	Account        string `json:"account"`
	Day            string `json:"day"`
	BalancePaise   int64  `json:"balance_paise"`
	LastUpdatedDay string `json:"last_updated_day,omitempty"`
}

// handleBalance answers a point-in-time balance question. Without a day
// parameter it serves the running aggregate, which also carries the
// last-updated watermark.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	q := r.URL.Query()
	account := accountFromQuery(q)
	if err := account.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if strings.TrimSpace(q.Get("day")) == "" {
		agg, err := s.store.Aggregate(r.Context(), account)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{
			Society:        account.Society,
			Category:       string(account.Category),
			Account:        account.Name,
			Day:            string(core.Today()),
			BalancePaise:   agg.Total.Paise,
			LastUpdatedDay: string(agg.LastUpdatedDay),
		})
		return
	}

	day, err := dayFromQuery(q, "day")
	if err != nil {
		writeError(w, r, err)
		return
	}

	balance, err := s.history.BalanceAsOf(r.Context(), account, day)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		Society:      account.Society,
		Category:     string(account.Category),
		Account:      account.Name,
		Day:          string(day),
		BalancePaise: balance.Paise,
	})
}

type accountResponse struct {
	Society  string `json:"society"`
	Category string `json:"category"`
	Account  string `json:"account"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	q := r.URL.Query()
	society := strings.TrimSpace(q.Get("society"))
	if society == "" {
		writeError(w, r, core.ErrEmptySociety)
		return
	}
	category := core.AccountCategory(strings.TrimSpace(q.Get("category")))

	accounts, err := s.store.ListAccounts(r.Context(), society, category)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{
			Society:  a.Society,
			Category: string(a.Category),
			Account:  a.Name,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type snapshotResponse struct {
	Day         string `json:"day"`
	ChangePaise int64  `json:"change_paise"`
}

// handleSnapshots serves the per-day audit trail of one account.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	q := r.URL.Query()
	account := accountFromQuery(q)
	if err := account.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	from, err := dayFromQuery(q, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := dayFromQuery(q, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if to.Before(from) {
		writeError(w, r, fmt.Errorf("%w: range %s..%s is inverted", core.ErrInvalidDate, from, to))
		return
	}

	snaps, err := s.store.ListDailySnapshots(r.Context(), account, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]snapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snapshotResponse{
			Day:         string(snap.Day),
			ChangePaise: snap.Change.Paise,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type balanceRangeResponse struct {
	Society      string `json:"society"`
	Category     string `json:"category"`
	Account      string `json:"account"`
	OpeningPaise int64  `json:"opening_paise"`
	ClosingPaise int64  `json:"closing_paise"`
}

// handleBalanceReport serves opening and closing balances for all accounts of
// a society over [from, to]. Reports are cached briefly; a just-recorded
// entry may take up to the cache TTL to show.
func (s *Server) handleBalanceReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	q := r.URL.Query()
	society := strings.TrimSpace(q.Get("society"))
	if society == "" {
		writeError(w, r, core.ErrEmptySociety)
		return
	}
	category := core.AccountCategory(strings.TrimSpace(q.Get("category")))

	from, err := dayFromQuery(q, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := dayFromQuery(q, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}

	cacheKey := fmt.Sprintf("%s|%s|%s|%s", society, category, from, to)
	ranges, cached := s.reportCache.Get(cacheKey)
	if !cached {
		ranges, err = s.history.SocietyRangeBalances(r.Context(), society, category, from, to)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.reportCache.Set(cacheKey, ranges)
	}

	out := make([]balanceRangeResponse, 0, len(ranges))
	for _, rng := range ranges {
		out = append(out, balanceRangeResponse{
			Society:      rng.Account.Society,
			Category:     string(rng.Account.Category),
			Account:      rng.Account.Name,
			OpeningPaise: rng.Opening.Paise,
			ClosingPaise: rng.Closing.Paise,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
