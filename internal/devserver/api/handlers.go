package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/propscan/internal/client/models"
	"github.com/dmitrijs2005/propscan/internal/devserver/accounts"
	"github.com/dmitrijs2005/propscan/internal/devserver/listings"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type scanRequest struct {
	URL string `json:"url"`
}

type compareRequest struct {
	PropertyIDs []string `json:"property_ids"`
}

type askRequest struct {
	PropertyID string `json:"property_id"`
	Question   string `json:"question"`
}

type usageRequest struct {
	Kind   models.UsageKind `json:"kind"`
	Amount float64          `json:"amount"`
}

type historyResponse struct {
	Items []models.HistoryItem `json:"items"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidation(w, "", "request body is not valid JSON")
		return false
	}
	return true
}

func (s *Server) authResult(token string, a *accounts.Account) models.AuthResult {
	u := models.User{ID: a.ID, Email: a.Email, Name: a.Name, Plan: a.Plan, ScanLimit: a.Limit, CreatedAt: a.CreatedAt}
	return models.AuthResult{AccessToken: token, TokenType: "bearer", User: &u}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	token, a, err := s.accounts.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.authResult(token, a))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeValidation(w, "email", "field required")
		return
	}
	token, a, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.authResult(token, a))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.accounts.Profile(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if !decode(w, r, &req) {
		return
	}
	cost := req.Kind.Cost()
	if cost == 0 {
		writeValidation(w, "kind", "kind must be one of scan, compare, question")
		return
	}
	if req.Amount == 0 {
		req.Amount = cost
	}
	a, err := s.accounts.Charge(r.Context(), userID(r.Context()), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.accounts.Receipt(a, req.Kind, req.Amount))
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := listings.FromURL(req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	id := userID(ctx)
	if _, err := s.accounts.Charge(ctx, id, models.UsageScan.Cost()); err != nil {
		s.writeError(w, r, err)
		return
	}
	scan, err := s.accounts.AddScan(ctx, id, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ScanResult{Property: scan.Property, ScannedAt: scan.ScannedAt})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	scans, err := s.accounts.History(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]models.HistoryItem, 0, len(scans))
	for _, sc := range scans {
		items = append(items, models.HistoryItem{
			ID:         sc.ID,
			PropertyID: sc.Property.ID,
			URL:        sc.Property.URL,
			Title:      sc.Property.Title,
			ScannedAt:  sc.ScannedAt,
		})
	}
	writeJSON(w, http.StatusOK, historyResponse{Items: items})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.PropertyIDs) < 2 {
		writeValidation(w, "property_ids", "at least two properties are required")
		return
	}

	ctx := r.Context()
	id := userID(ctx)
	props := make([]models.Property, 0, len(req.PropertyIDs))
	for _, pid := range req.PropertyIDs {
		p, err := s.accounts.Property(ctx, id, pid)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		props = append(props, p)
	}

	if _, err := s.accounts.Charge(ctx, id, models.UsageCompare.Cost()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings.Compare(props))
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeValidation(w, "question", "field required")
		return
	}

	ctx := r.Context()
	id := userID(ctx)
	p, err := s.accounts.Property(ctx, id, req.PropertyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.accounts.Charge(ctx, id, models.UsageQuestion.Cost()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings.Answer(p, req.Question))
}
