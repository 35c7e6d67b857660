package http

import (
	"fmt"
	"net/http"
	"strings"

	"khata/internal/core"
)

type penaltyPolicyRequest struct {
	DueDate       string `json:"due_date"`
	Occurrence    string `json:"occurrence"`
	FrequencyDays int    `json:"frequency_days"`
	Type          string `json:"type"`
	// Value is a decimal string: rupees for fixed penalties, percent for
	// percentage ones ("2.5" means 2.5%).
	Value string `json:"value"`
}

func (p penaltyPolicyRequest) toPolicy() (core.PenaltyPolicy, error) {
	dueDate, err := core.ParseDate(p.DueDate)
	if err != nil {
		return core.PenaltyPolicy{}, err
	}
	value, err := core.ParseDecimalToPaise(p.Value)
	if err != nil {
		return core.PenaltyPolicy{}, fmt.Errorf("%w: penalty value %q", core.ErrInvalidPolicy, p.Value)
	}
	return core.NewPenaltyPolicy(
		dueDate,
		core.PenaltyOccurrence(strings.TrimSpace(p.Occurrence)),
		p.FrequencyDays,
		core.PenaltyType(strings.TrimSpace(p.Type)),
		value,
	)
}

type penaltyPreviewRequest struct {
	Amount string               `json:"amount"`
	Policy penaltyPolicyRequest `json:"policy"`
	AsOf   string               `json:"as_of"`
}

type penaltyPreviewResponse struct {
	AmountPaise  int64  `json:"amount_paise"`
	PenaltyPaise int64  `json:"penalty_paise"`
	AsOf         string `json:"as_of"`
}

// handlePenaltyPreview computes the penalty a policy would charge on an
// amount as of a given day, without touching any account.
func (s *Server) handlePenaltyPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req penaltyPreviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	amountPaise, err := core.ParseDecimalToPaise(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount := core.Money{Paise: amountPaise}

	policy, err := req.Policy.toPolicy()
	if err != nil {
		writeError(w, r, err)
		return
	}

	asOf := core.Today()
	if strings.TrimSpace(req.AsOf) != "" {
		asOf, err = core.ParseDate(req.AsOf)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	penalty := policy.Penalty(amount, asOf)
	writeJSON(w, http.StatusOK, penaltyPreviewResponse{
		AmountPaise:  amount.Paise,
		PenaltyPaise: penalty.Paise,
		AsOf:         string(asOf),
	})
}

type createBillRequest struct {
	Society     string               `json:"society"`
	Category    string               `json:"category"`
	Account     string               `json:"account"`
	Description string               `json:"description"`
	Amount      string               `json:"amount"`
	Policy      penaltyPolicyRequest `json:"policy"`
}

type billResponse struct {
	ID               string `json:"id"`
	Society          string `json:"society"`
	Category         string `json:"category"`
	Account          string `json:"account"`
	Description      string `json:"description"`
	AmountPaise      int64  `json:"amount_paise"`
	DueDate          string `json:"due_date"`
	Occurrence       string `json:"occurrence"`
	FrequencyDays    int    `json:"frequency_days"`
	PenaltyType      string `json:"penalty_type"`
	PenaltyValue     int64  `json:"penalty_value"`
	PenaltiesApplied int64  `json:"penalties_applied"`
	Settled          bool   `json:"settled"`
}

func billToResponse(b core.Bill) billResponse {
	return billResponse{
		ID:               b.ID,
		Society:          b.Account.Society,
		Category:         string(b.Account.Category),
		Account:          b.Account.Name,
		Description:      b.Description,
		AmountPaise:      b.Amount.Paise,
		DueDate:          string(b.Policy.DueDate),
		Occurrence:       string(b.Policy.Occurrence),
		FrequencyDays:    b.Policy.FrequencyDays,
		PenaltyType:      string(b.Policy.Type),
		PenaltyValue:     b.Policy.Value,
		PenaltiesApplied: b.PenaltiesApplied,
		Settled:          b.Settled,
	}
}

func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateBill(w, r)
	case http.MethodGet:
		s.handleListBills(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	amountPaise, err := core.ParseDecimalToPaise(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	policy, err := req.Policy.toPolicy()
	if err != nil {
		writeError(w, r, err)
		return
	}

	bill := core.Bill{
		Account: core.AccountRef{
			Society:  strings.TrimSpace(req.Society),
			Category: core.AccountCategory(strings.TrimSpace(req.Category)),
			Name:     strings.TrimSpace(req.Account),
		},
		Description: strings.TrimSpace(req.Description),
		Amount:      core.Money{Paise: amountPaise},
		Policy:      policy,
	}

	created, err := s.bills.Create(r.Context(), bill)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, billToResponse(created))
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	society := strings.TrimSpace(r.URL.Query().Get("society"))
	if society == "" {
		writeError(w, r, core.ErrEmptySociety)
		return
	}

	bills, err := s.bills.List(r.Context(), society)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]billResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, billToResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSettleBill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing bill id"})
		return
	}

	if err := s.bills.Settle(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
