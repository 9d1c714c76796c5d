package http

import (
	"context"
	"fmt"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const (
	defaultListLimit = 100
	paramSkip        = "skip"
	paramLimit       = "limit"
	paramTxID        = "transaction_id"
)

// TransactionService is the ledger behaviour the handlers need.
type TransactionService interface {
	Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	List(ctx context.Context, skip, limit int) ([]core.Transaction, error)
	Update(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context) (core.Summary, error)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.transactions.Create(r.Context(), req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	skip, err := QueryInt(r, paramSkip, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := QueryInt(r, paramLimit, defaultListLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := s.transactions.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.Transaction{}
	}
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Transactions listed",
		applog.FieldSkip, skip, applog.FieldLimit, limit, "count", len(items))
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, paramTxID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTransaction replaces every field of the transaction named by
// the transaction_id query parameter.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := RequiredQueryID(r, paramTxID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req TransactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.transactions.Update(r.Context(), id, req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, paramTxID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Transaction %d deleted successfully", id),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.transactions.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
