package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cashbook/internal/core"
	"cashbook/internal/ledger"
	"cashbook/internal/services"
)

type entryRequest struct {
	Date     string          `json:"date"`
	Time     string          `json:"time"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Type     string          `json:"type"`
	Mode     string          `json:"mode"`
	Division string          `json:"division"`
	Details  string          `json:"details"`
	Remarks  string          `json:"remarks"`
	Contact  string          `json:"contact"`
	BillNo   string          `json:"billNo"`
}

type entryResponse struct {
	ID        string          `json:"id"`
	Date      string          `json:"date"`
	Time      string          `json:"time,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Type      string          `json:"type"`
	Mode      string          `json:"mode,omitempty"`
	Division  string          `json:"division,omitempty"`
	Details   string          `json:"details,omitempty"`
	Remarks   string          `json:"remarks,omitempty"`
	Contact   string          `json:"contact,omitempty"`
	BillNo    string          `json:"billNo,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type ledgerRowResponse struct {
	entryResponse
	Balance decimal.Decimal `json:"balance"`
	Expense decimal.Decimal `json:"expenses"`
}

type ledgerResponse struct {
	Opening      decimal.Decimal     `json:"openingBalance"`
	Rows         []ledgerRowResponse `json:"rows"`
	CashIn       decimal.Decimal     `json:"cashIn"`
	CashOut      decimal.Decimal     `json:"cashOut"`
	NetCash      decimal.Decimal     `json:"netCash"`
	TotalExpense decimal.Decimal     `json:"totalExpense"`
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:        e.ID,
		Date:      e.Date.String(),
		Time:      e.Time,
		Amount:    e.Amount,
		Category:  e.Category,
		Type:      string(e.Direction),
		Mode:      e.Mode,
		Division:  e.Division,
		Details:   e.Details,
		Remarks:   e.Remarks,
		Contact:   e.Contact,
		BillNo:    e.BillNo,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (req entryRequest) toEntry(id string) (core.Entry, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Entry{}, err
	}
	direction, err := core.ParseDirection(req.Type)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{
		ID:        id,
		Date:      date,
		Time:      strings.TrimSpace(req.Time),
		Amount:    req.Amount,
		Category:  req.Category,
		Direction: direction,
		Mode:      req.Mode,
		Division:  req.Division,
		Details:   req.Details,
		Remarks:   req.Remarks,
		Contact:   req.Contact,
		BillNo:    req.BillNo,
	}, nil
}

// filterFromQuery reads the ledger filter from query parameters. Every
// parameter is optional; an invalid type or date is a client error.
func filterFromQuery(r *http.Request) (ledger.EntryFilter, error) {
	q := r.URL.Query()
	f := ledger.EntryFilter{
		Search:   strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
		Mode:     strings.TrimSpace(q.Get("mode")),
		Division: strings.TrimSpace(q.Get("division")),
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		direction, err := core.ParseDirection(v)
		if err != nil {
			return ledger.EntryFilter{}, err
		}
		f.Direction = direction
	}
	if v := strings.TrimSpace(q.Get("date")); v != "" {
		date, err := core.ParseDate(v)
		if err != nil {
			return ledger.EntryFilter{}, err
		}
		f.Date = date
	}
	return f, nil
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		respondBadRequest(w, "invalid filter: "+err.Error())
		return
	}

	entries, err := s.book.ListEntries(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	e, err := req.toEntry("")
	if err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.book.CreateEntry(r.Context(), e)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	respondJSON(w, http.StatusCreated, toEntryResponse(created))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.book.GetEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toEntryResponse(e))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	e, err := req.toEntry(r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	updated, err := s.book.UpdateEntry(r.Context(), e)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	respondJSON(w, http.StatusOK, toEntryResponse(updated))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.book.DeleteEntry(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		respondBadRequest(w, "invalid filter: "+err.Error())
		return
	}

	view, err := s.ledgerView(r, f)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := ledgerResponse{
		Opening:      view.Opening,
		Rows:         make([]ledgerRowResponse, 0, len(view.Rows)),
		CashIn:       view.CashIn,
		CashOut:      view.CashOut,
		NetCash:      view.NetCash,
		TotalExpense: view.TotalExpense,
	}
	for _, row := range view.Rows {
		out.Rows = append(out.Rows, ledgerRowResponse{
			entryResponse: toEntryResponse(row.Entry),
			Balance:       row.Balance,
			Expense:       row.Expense,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// ledgerView serves the ledger from cache when the same filter was asked
// for recently.
func (s *Server) ledgerView(r *http.Request, f ledger.EntryFilter) (services.LedgerView, error) {
	key := r.URL.RawQuery
	if view, ok := s.ledgerCache.Get(key); ok {
		return view, nil
	}
	view, err := s.book.Ledger(r.Context(), f)
	if err != nil {
		return services.LedgerView{}, err
	}
	s.ledgerCache.Set(key, view)
	return view, nil
}
