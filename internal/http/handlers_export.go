package http

import (
	"net/http"
	"time"

	"cashbook/internal/export"
)

const (
	pdfContentType  = "application/pdf"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func setDownloadHeaders(w http.ResponseWriter, contentType, base, ext string) {
	filename := base + "-" + time.Now().Format("20060102") + ext
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func (s *Server) handleEntriesPDF(w http.ResponseWriter, r *http.Request) {
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

	setDownloadHeaders(w, pdfContentType, "cashbook-entries", ".pdf")
	if err := export.EntriesPDF(w, view, "Cash Book"); err != nil {
		respondError(w, r, err)
	}
}

func (s *Server) handleEntriesXLSX(w http.ResponseWriter, r *http.Request) {
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

	setDownloadHeaders(w, xlsxContentType, "cashbook-entries", ".xlsx")
	if err := export.EntriesXLSX(w, view, "Entries"); err != nil {
		respondError(w, r, err)
	}
}

func (s *Server) handleMembersPDF(w http.ResponseWriter, r *http.Request) {
	view, err := s.book.Members(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	setDownloadHeaders(w, pdfContentType, "cashbook-members", ".pdf")
	if err := export.MembersPDF(w, view, "Members"); err != nil {
		respondError(w, r, err)
	}
}

func (s *Server) handleMembersXLSX(w http.ResponseWriter, r *http.Request) {
	view, err := s.book.Members(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	setDownloadHeaders(w, xlsxContentType, "cashbook-members", ".xlsx")
	if err := export.MembersXLSX(w, view, "Members"); err != nil {
		respondError(w, r, err)
	}
}

func (s *Server) handleProductPDF(w http.ResponseWriter, r *http.Request) {
	view, err := s.book.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	setDownloadHeaders(w, pdfContentType, "cashbook-stock", ".pdf")
	if err := export.ProductPDF(w, view); err != nil {
		respondError(w, r, err)
	}
}

func (s *Server) handleProductXLSX(w http.ResponseWriter, r *http.Request) {
	view, err := s.book.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	setDownloadHeaders(w, xlsxContentType, "cashbook-stock", ".xlsx")
	if err := export.ProductXLSX(w, view, "Stock"); err != nil {
		respondError(w, r, err)
	}
}
