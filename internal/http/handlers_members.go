package http

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"cashbook/internal/core"
	"cashbook/internal/services"
)

type memberRequest struct {
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email"`
	Subscription decimal.Decimal `json:"subscription"`
}

type installmentRequest struct {
	Date    string          `json:"date"`
	Amount  decimal.Decimal `json:"amount"`
	Details string          `json:"details"`
}

type installmentResponse struct {
	Date    string          `json:"date"`
	Amount  decimal.Decimal `json:"amount"`
	Details string          `json:"details,omitempty"`
}

type memberResponse struct {
	ID           string                      `json:"id"`
	Name         string                      `json:"name"`
	Phone        string                      `json:"phone,omitempty"`
	Email        string                      `json:"email,omitempty"`
	Subscription decimal.Decimal             `json:"subscription"`
	Installments map[int]installmentResponse `json:"installments"`
	TotalPaid    decimal.Decimal             `json:"totalPaid"`
	Due          decimal.Decimal             `json:"due"`
	Advance      decimal.Decimal             `json:"advance"`
}

type membersResponse struct {
	Columns []int            `json:"columns"`
	Members []memberResponse `json:"members"`
}

func toMemberResponse(v services.MemberView) memberResponse {
	out := memberResponse{
		ID:           v.ID,
		Name:         v.Name,
		Phone:        v.Phone,
		Email:        v.Email,
		Subscription: v.EffectiveSubscription(),
		Installments: make(map[int]installmentResponse, len(v.Installments)),
		TotalPaid:    v.TotalPaid,
		Due:          v.Due,
		Advance:      v.Advance,
	}
	for idx, slot := range v.Installments {
		out.Installments[idx] = installmentResponse{
			Date:    slot.PaidOn.String(),
			Amount:  slot.Amount,
			Details: slot.Details,
		}
	}
	return out
}

func (req installmentRequest) toSlot() (core.InstallmentSlot, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.InstallmentSlot{}, err
	}
	return core.InstallmentSlot{
		PaidOn:  date,
		Amount:  req.Amount,
		Details: req.Details,
	}, nil
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	view, err := s.book.Members(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := membersResponse{Columns: view.Columns, Members: make([]memberResponse, 0, len(view.Members))}
	for _, m := range view.Members {
		out.Members = append(out.Members, toMemberResponse(m))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	created, err := s.book.CreateMember(r.Context(), core.Member{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Subscription: req.Subscription,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	view, err := s.book.GetMember(r.Context(), created.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toMemberResponse(view))
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	view, err := s.book.GetMember(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toMemberResponse(view))
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	updated, err := s.book.UpdateMember(r.Context(), core.Member{
		ID:           r.PathValue("id"),
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Subscription: req.Subscription,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	view, err := s.book.GetMember(r.Context(), updated.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toMemberResponse(view))
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.book.DeleteMember(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInstallmentColumns(w http.ResponseWriter, r *http.Request) {
	columns, err := s.book.InstallmentColumns(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		Columns []int `json:"columns"`
	}{Columns: columns})
}

// handleAddInstallment records a payment into the next free column.
func (s *Server) handleAddInstallment(w http.ResponseWriter, r *http.Request) {
	s.putInstallment(w, r, 0)
}

// handlePutInstallment records a payment into an explicit column.
func (s *Server) handlePutInstallment(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("idx"))
	if err != nil || idx < 1 {
		respondBadRequest(w, "invalid installment index")
		return
	}
	s.putInstallment(w, r, idx)
}

func (s *Server) putInstallment(w http.ResponseWriter, r *http.Request, idx int) {
	var req installmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	slot, err := req.toSlot()
	if err != nil {
		respondError(w, r, err)
		return
	}

	assigned, err := s.book.PutInstallment(r.Context(), r.PathValue("id"), idx, slot)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	respondJSON(w, http.StatusOK, struct {
		Index int `json:"index"`
	}{Index: assigned})
}

func (s *Server) handleRemoveInstallment(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("idx"))
	if err != nil || idx < 1 {
		respondBadRequest(w, "invalid installment index")
		return
	}

	if err := s.book.RemoveInstallment(r.Context(), r.PathValue("id"), idx); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}
