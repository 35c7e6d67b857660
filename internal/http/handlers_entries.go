package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"khata/internal/core"
)

type createEntryRequest struct {
	Society  string `json:"society"`
	Category string `json:"category"`
	Account  string `json:"account"`
	Amount   string `json:"amount"`
	Side     string `json:"side"`
	Day      string `json:"day"`
}

type createEntryResponse struct {
	Society     string `json:"society"`
	Category    string `json:"category"`
	Account     string `json:"account"`
	AmountPaise int64  `json:"amount_paise"`
	Side        string `json:"side"`
	Effect      string `json:"effect"`
	Day         string `json:"day"`
}

// handleEntries records one ledger entry. The balance effect is derived from
// the account category and entry side, never taken from the client.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req createEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	paise, err := core.ParseDecimalToPaise(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	day := core.Today()
	if strings.TrimSpace(req.Day) != "" {
		day, err = core.ParseDate(req.Day)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	entry := core.Entry{
		Account: core.AccountRef{
			Society:  strings.TrimSpace(req.Society),
			Category: core.AccountCategory(strings.TrimSpace(req.Category)),
			Name:     strings.TrimSpace(req.Account),
		},
		Amount: core.Money{Paise: paise},
		Side:   core.Side(strings.TrimSpace(req.Side)),
		Day:    day,
	}

	effect, err := s.ledger.Record(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Entry recorded",
		"society", entry.Account.Society,
		"account", entry.Account.Name,
		"amount_paise", entry.Amount.Paise,
		"effect", effect)

	writeJSON(w, http.StatusCreated, createEntryResponse{
		Society:     entry.Account.Society,
		Category:    string(entry.Account.Category),
		Account:     entry.Account.Name,
		AmountPaise: entry.Amount.Paise,
		Side:        string(entry.Side),
		Effect:      string(effect),
		Day:         string(entry.Day),
	})
}
