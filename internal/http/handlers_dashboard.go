package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"savvy/internal/dashboard"
	"savvy/internal/forms"
	"savvy/internal/log"
	"savvy/internal/records"
	"savvy/internal/session"
	"savvy/internal/viewmodel"
)

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessions.Identity(r.Context())
	if !ok {
		NewResponse().JSON(map[string]any{"authenticated": false}).Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"authenticated": true, "user": id}).Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(r.Context()); err != nil {
		s.writeError(w, r, dashboard.Result{}, err)
		return
	}
	NewResponse().
		JSON(map[string]any{"authenticated": false}).
		TriggerSuccessNotification("Signed out", "You have been signed out").
		Write(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.Refresh(r.Context()); err != nil {
		s.writeError(w, r, dashboard.Result{}, err)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		TriggerRecordsChanged("transactions").
		TriggerRecordsChanged("goals").
		Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	st, err := ParseSortState(r.URL.Query(), "sort", "dir")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	list, err := s.dashboard.Transactions(r.Context(), st)
	if err != nil {
		s.writeError(w, r, dashboard.Result{Title: "Error loading transactions"}, err)
		return
	}
	NewResponse().JSON(list).Write(w)
}

// handleToggleSort answers the state that selecting a column produces. It is
// pure and touches neither the session nor the record store.
func (s *Server) handleToggleSort(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	current, err := ParseSortState(q, "current", "dir")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	selected, err := viewmodel.ParseSortField(strings.TrimSpace(q.Get("select")))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewResponse().JSON(current.Toggle(selected)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	tx, res, err := s.dashboard.CreateTransaction(r.Context(), p.TransactionForm())
	if err != nil {
		s.writeError(w, r, res, err)
		return
	}
	s.appMetrics.transactionsCreated.Add(1)
	s.events.LogRecordAction(r.Context(), log.OpCreate, "transaction", ownerOf(r), tx.ID)

	NewResponse().
		Status(http.StatusCreated).
		JSON(viewmodel.Transaction(tx)).
		NotifyResult(res).
		TriggerRecordsChanged("transactions").
		TriggerFormReset().
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		BadRequestError("Missing transaction id").Write(w)
		return
	}

	res, err := s.dashboard.DeleteTransaction(r.Context(), id)
	if err != nil {
		s.writeError(w, r, res, err)
		return
	}
	s.appMetrics.transactionsDeleted.Add(1)
	s.events.LogRecordAction(r.Context(), log.OpDelete, "transaction", ownerOf(r), id)

	NewResponse().
		JSON(res).
		NotifyResult(res).
		TriggerRecordsChanged("transactions").
		Write(w)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.dashboard.Goals(r.Context())
	if err != nil {
		s.writeError(w, r, dashboard.Result{Title: "Error loading goals"}, err)
		return
	}
	NewResponse().JSON(map[string]any{"items": goals}).Write(w)
}

func (s *Server) handleGoalForm(w http.ResponseWriter, r *http.Request) {
	f, err := s.dashboard.GoalForm(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, dashboard.Result{Title: "Error loading goal"}, err)
		return
	}
	NewResponse().JSON(f).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	g, res, err := s.dashboard.CreateGoal(r.Context(), p.GoalForm())
	if err != nil {
		s.writeError(w, r, res, err)
		return
	}
	s.appMetrics.goalsSaved.Add(1)
	s.events.LogRecordAction(r.Context(), log.OpCreate, "goal", ownerOf(r), g.ID)

	NewResponse().
		Status(http.StatusCreated).
		JSON(viewmodel.Goal(g)).
		NotifyResult(res).
		TriggerRecordsChanged("goals").
		TriggerFormReset().
		Write(w)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	g, res, err := s.dashboard.UpdateGoal(r.Context(), id, p.GoalForm())
	if err != nil {
		s.writeError(w, r, res, err)
		return
	}
	s.appMetrics.goalsSaved.Add(1)
	s.events.LogRecordAction(r.Context(), log.OpUpdate, "goal", ownerOf(r), g.ID)

	NewResponse().
		JSON(viewmodel.Goal(g)).
		NotifyResult(res).
		TriggerRecordsChanged("goals").
		Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	res, err := s.dashboard.DeleteGoal(r.Context(), id)
	if err != nil {
		s.writeError(w, r, res, err)
		return
	}
	s.appMetrics.goalsDeleted.Add(1)
	s.events.LogRecordAction(r.Context(), log.OpDelete, "goal", ownerOf(r), id)

	NewResponse().
		JSON(res).
		NotifyResult(res).
		TriggerRecordsChanged("goals").
		Write(w)
}

func (s *Server) handleMonthlySpending(w http.ResponseWriter, r *http.Request) {
	bars, err := s.dashboard.MonthlySpending(r.Context())
	if err != nil {
		s.writeError(w, r, dashboard.Result{}, err)
		return
	}
	NewResponse().JSON(map[string]any{"months": bars}).Write(w)
}

func (s *Server) handleNudges(w http.ResponseWriter, r *http.Request) {
	feed, err := s.dashboard.Nudges(r.Context())
	if err != nil {
		s.writeError(w, r, dashboard.Result{}, err)
		return
	}
	NewResponse().JSON(feed).Write(w)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	card, err := s.dashboard.Profile(r.Context())
	if err != nil {
		s.writeError(w, r, dashboard.Result{}, err)
		return
	}
	NewResponse().JSON(card).Write(w)
}

// writeError maps a dashboard error to its status. Form errors answer 422,
// a missing row 404, and any other record store failure 502. All of them
// carry the notification the dashboard phrased.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, res dashboard.Result, err error) {
	var fe forms.FieldErrors
	var ae *dashboard.ActionError

	switch {
	case errors.Is(err, session.ErrNoSession):
		UnauthorizedError().Write(w)
	case errors.As(err, &fe):
		ValidationError(fe).NotifyResult(res).Write(w)
	case errors.As(err, &ae):
		s.appMetrics.storeFailures.Add(1)
		if res.Message == "" {
			res.Message = dashboard.UserMessage(err)
		}
		if res.Title == "" {
			res.Title = "Error"
		}
		res.OK = false

		status, errType := http.StatusBadGateway, log.ErrorTypeNetwork
		switch {
		case errors.Is(err, records.ErrNotFound):
			status, errType = http.StatusNotFound, log.ErrorTypeNotFound
		case errors.Is(err, context.DeadlineExceeded):
			errType = log.ErrorTypeTimeout
		}
		s.events.LogError(r.Context(), "record store request failed", err, ae.Op,
			log.NewFields().WithComponent(log.ComponentRecords).WithErrorType(errType))
		ErrorResponse(status, res.Message).NotifyResult(res).Write(w)
	default:
		s.logger.ErrorContext(r.Context(), "unexpected handler error", log.FieldError, err)
		InternalServerError("Something went wrong, please try again").Write(w)
	}
}

func ownerOf(r *http.Request) string {
	id, _ := session.FromContext(r.Context())
	return id.UserID
}
