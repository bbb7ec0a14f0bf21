package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/validation"
)

// looseString accepts a JSON string, number or null, normalizing to the
// string form. Clients send amount and category_id as either numbers or
// strings; validation always sees strings.
type looseString string

func (v *looseString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = looseString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = looseString(n.String())
	return nil
}

// expenseRequest is the payload for creating and updating expenses. Fields
// are normalized to strings and validated server side; the client is not
// trusted to pre-convert types.
type expenseRequest struct {
	Amount      looseString `json:"amount"`
	CategoryID  looseString `json:"category_id"`
	Description looseString `json:"description"`
	Date        looseString `json:"date"`
}

func (req expenseRequest) toInput() validation.SubmissionInput {
	return validation.SubmissionInput{
		Amount:      string(req.Amount),
		CategoryID:  string(req.CategoryID),
		Description: string(req.Description),
		Date:        string(req.Date),
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	identity := identityFrom(r)
	created, result, err := s.service.Create(r.Context(), identity, req.toInput(), s.today())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "create expense failed",
			log.FieldError, err, log.FieldUserID, identity.UserID)
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}
	if !result.OK() {
		writeValidationFailed(w, result)
		return
	}

	s.invalidateSummaries(identity.UserID)
	writeMessage(w, http.StatusCreated, "Expense created successfully", toExpenseJSON(created))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	page, err := s.service.List(r.Context(), identity.UserID, params)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list expenses failed",
			log.FieldError, err, log.FieldUserID, identity.UserID)
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": toExpenseListJSON(page.Expenses),
		"pagination": paginationJSON{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	expense, err := s.service.Get(r.Context(), identity.UserID, r.PathValue("id"))
	if err != nil {
		s.writeExpenseError(w, r, err, identity.UserID)
		return
	}
	writeData(w, http.StatusOK, toExpenseJSON(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	identity := identityFrom(r)
	updated, result, err := s.service.Update(r.Context(), identity.UserID, r.PathValue("id"), req.toInput(), s.today())
	if err != nil {
		s.writeExpenseError(w, r, err, identity.UserID)
		return
	}
	if !result.OK() {
		writeValidationFailed(w, result)
		return
	}

	s.invalidateSummaries(identity.UserID)
	writeMessage(w, http.StatusOK, "Expense updated successfully", toExpenseJSON(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	if err := s.service.Delete(r.Context(), identity.UserID, r.PathValue("id")); err != nil {
		s.writeExpenseError(w, r, err, identity.UserID)
		return
	}

	s.invalidateSummaries(identity.UserID)
	writeMessage(w, http.StatusOK, "Expense deleted successfully", nil)
}

// writeExpenseError maps service errors onto API responses. Not-found and
// not-owned collapse into the same 404 so ownership is never leaked.
func (s *Server) writeExpenseError(w http.ResponseWriter, r *http.Request, err error, userID string) {
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found or access denied", nil)
		return
	}
	s.logger.ErrorContext(r.Context(), "expense operation failed",
		log.FieldError, err, log.FieldUserID, userID)
	writeError(w, http.StatusInternalServerError, "Internal server error", nil)
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}
