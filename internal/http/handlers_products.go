package http

import (
	"net/http"
	"strconv"

	"cashbook/internal/core"
	"cashbook/internal/services"
)

type productRequest struct {
	Name    string `json:"name"`
	Unit    string `json:"unit"`
	Remarks string `json:"remarks"`
}

type stockLogRequest struct {
	Type     string `json:"type"`
	Quantity int64  `json:"quantity"`
	Date     string `json:"date"`
	Remarks  string `json:"remarks"`
}

type stockLogResponse struct {
	Seq      int    `json:"seq"`
	Type     string `json:"type"`
	Quantity int64  `json:"quantity"`
	Date     string `json:"date"`
	Remarks  string `json:"remarks,omitempty"`
	Stock    int64  `json:"stock"`
}

type stockTotalsResponse struct {
	In    int64 `json:"in"`
	Out   int64 `json:"out"`
	Stock int64 `json:"stock"`
}

type productResponse struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Unit    string              `json:"unit,omitempty"`
	Remarks string              `json:"remarks,omitempty"`
	Logs    []stockLogResponse  `json:"logs"`
	Totals  stockTotalsResponse `json:"totals"`
}

func toProductResponse(v services.ProductView) productResponse {
	out := productResponse{
		ID:      v.ID,
		Name:    v.Name,
		Unit:    v.Unit,
		Remarks: v.Remarks,
		Logs:    make([]stockLogResponse, 0, len(v.Logs)),
		Totals: stockTotalsResponse{
			In:    v.Totals.In,
			Out:   v.Totals.Out,
			Stock: v.Totals.Stock,
		},
	}
	for i, m := range v.Logs {
		out.Logs = append(out.Logs, stockLogResponse{
			Seq:      i + 1,
			Type:     string(m.Type),
			Quantity: m.Quantity,
			Date:     m.Date.String(),
			Remarks:  m.Remarks,
			Stock:    m.Balance,
		})
	}
	return out
}

func (req stockLogRequest) toMovement() (core.StockMovement, error) {
	typ, err := core.ParseMovementType(req.Type)
	if err != nil {
		return core.StockMovement{}, err
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.StockMovement{}, err
	}
	return core.StockMovement{
		Type:     typ,
		Quantity: req.Quantity,
		Date:     date,
		Remarks:  req.Remarks,
	}, nil
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	views, err := s.book.Products(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]productResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toProductResponse(v))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	created, err := s.book.CreateProduct(r.Context(), core.Product{
		Name:    req.Name,
		Unit:    req.Unit,
		Remarks: req.Remarks,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	respondJSON(w, http.StatusCreated, toProductResponse(services.ProductView{Product: created}))
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRangeFromQuery(r)
	if err != nil {
		respondBadRequest(w, "invalid date range: "+err.Error())
		return
	}

	view, err := s.book.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := toProductResponse(view)
	if !from.IsZero() || !to.IsZero() {
		out = windowProductResponse(out, from, to)
	}
	respondJSON(w, http.StatusOK, out)
}

// dateRangeFromQuery reads optional from/to bounds. Either side may be
// omitted.
func dateRangeFromQuery(r *http.Request) (from, to core.Date, err error) {
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		if from, err = core.ParseDate(v); err != nil {
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = core.ParseDate(v); err != nil {
			return
		}
	}
	return
}

// windowProductResponse narrows the log to the date window. Rows keep
// their original sequence numbers and stored running balances; the totals
// cover only the rows inside the window.
func windowProductResponse(p productResponse, from, to core.Date) productResponse {
	kept := make([]stockLogResponse, 0, len(p.Logs))
	var totals stockTotalsResponse
	for _, row := range p.Logs {
		d, err := core.ParseDate(row.Date)
		if err != nil {
			continue
		}
		if !from.IsZero() && d.Before(from.Time) {
			continue
		}
		if !to.IsZero() && d.After(to.Time) {
			continue
		}
		kept = append(kept, row)
		if row.Type == string(core.MovementIn) {
			totals.In += row.Quantity
		} else {
			totals.Out += row.Quantity
		}
	}
	totals.Stock = totals.In - totals.Out
	p.Logs = kept
	p.Totals = totals
	return p
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	view, err := s.book.UpdateProduct(r.Context(), core.Product{
		ID:      r.PathValue("id"),
		Name:    req.Name,
		Unit:    req.Unit,
		Remarks: req.Remarks,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	respondJSON(w, http.StatusOK, toProductResponse(view))
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.book.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAppendLog(w http.ResponseWriter, r *http.Request) {
	var req stockLogRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	m, err := req.toMovement()
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.book.AppendLog(r.Context(), r.PathValue("id"), m)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	respondJSON(w, http.StatusCreated, toProductResponse(view))
}

func (s *Server) handleUpdateLog(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.Atoi(r.PathValue("seq"))
	if err != nil || seq < 1 {
		respondBadRequest(w, "invalid log sequence")
		return
	}

	var req stockLogRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	m, err := req.toMovement()
	if err != nil {
		respondError(w, r, err)
		return
	}

	// Rows are numbered from 1 on the wire; the service indexes from 0.
	view, err := s.book.UpdateLog(r.Context(), r.PathValue("id"), seq-1, m)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	respondJSON(w, http.StatusOK, toProductResponse(view))
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.Atoi(r.PathValue("seq"))
	if err != nil || seq < 1 {
		respondBadRequest(w, "invalid log sequence")
		return
	}

	view, err := s.book.DeleteLog(r.Context(), r.PathValue("id"), seq-1)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateViews()
	respondJSON(w, http.StatusOK, toProductResponse(view))
}
