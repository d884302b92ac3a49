package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/stats"
)

// transactionList is the body of GET /api/transactions.
type transactionList struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
	// Total is the sum of amounts; it is only meaningful when the list is
	// filtered to one kind.
	Total  core.Money `json:"total"`
	Loaded bool       `json:"loaded"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, st *session.State) {
	q, err := ParseListQuery(r.URL.Query(), "")
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	txs := st.Transactions.Query(q)
	NewJSONResponse().Body(transactionList{
		Transactions: txs,
		Count:        len(txs),
		Total:        stats.Total(txs),
		Loaded:       st.Transactions.Loaded(),
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, st *session.State) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	d, err := parseDraft(p, "")
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := st.Transactions.Create(r.Context(), d)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	logTransaction(r, "Transaction created", log.OpCreate, tx)
	NewJSONResponse().Status(http.StatusCreated).Body(tx).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, st *session.State) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	patch, err := parsePatch(p)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	tx, err := st.Transactions.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	logTransaction(r, "Transaction updated", log.OpUpdate, tx)
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, st *session.State) {
	id := r.PathValue("id")
	if err := st.Transactions.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleRefreshTransactions reloads the list from the backend. A failed
// reload keeps the previous list.
func (s *Server) handleRefreshTransactions(w http.ResponseWriter, r *http.Request, st *session.State) {
	if err := st.Transactions.Load(r.Context()); err != nil {
		writeError(w, r, log.OpLoad, err)
		return
	}
	txs := st.Transactions.Transactions()
	NewJSONResponse().Body(transactionList{
		Transactions: txs,
		Count:        len(txs),
		Total:        stats.Total(txs),
		Loaded:       true,
	}).Write(w)
}

func logTransaction(r *http.Request, msg, op string, tx core.Transaction) {
	fields := log.NewFields().
		WithOperation(op).
		WithTransaction(tx.ID, tx.Kind.String(), tx.Amount.Cents, tx.Category)
	log.FromContext(r.Context()).InfoContext(r.Context(), msg, fields.ToSlice()...)
}
