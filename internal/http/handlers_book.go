package http

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type nameRequest struct {
	Name string `json:"name"`
}

type summaryResponse struct {
	OpeningBalance    decimal.Decimal `json:"openingBalance"`
	CashIn            decimal.Decimal `json:"cashIn"`
	CashOut           decimal.Decimal `json:"cashOut"`
	NetCash           decimal.Decimal `json:"netCash"`
	Balance           decimal.Decimal `json:"balance"`
	TotalExpense      decimal.Decimal `json:"totalExpense"`
	MemberCount       int             `json:"memberCount"`
	TotalSubscription decimal.Decimal `json:"totalSubscription"`
	TotalPaid         decimal.Decimal `json:"totalPaid"`
	TotalDue          decimal.Decimal `json:"totalDue"`
	ProductCount      int             `json:"productCount"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.book.Categories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if err := s.book.AddCategory(r.Context(), req.Name); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.book.Fields(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, fields)
}

func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if err := s.book.AddField(r.Context(), req.Name); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	const key = "summary"

	sum, ok := s.summaryCache.Get(key)
	if !ok {
		var err error
		sum, err = s.book.Summarize(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		s.summaryCache.Set(key, sum)
	}

	respondJSON(w, http.StatusOK, summaryResponse{
		OpeningBalance:    sum.Opening,
		CashIn:            sum.CashIn,
		CashOut:           sum.CashOut,
		NetCash:           sum.NetCash,
		Balance:           sum.Balance,
		TotalExpense:      sum.TotalExpense,
		MemberCount:       sum.MemberCount,
		TotalSubscription: sum.TotalSubscription,
		TotalPaid:         sum.TotalPaid,
		TotalDue:          sum.TotalDue,
		ProductCount:      sum.ProductCount,
	})
}
