package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger/internal/core"
	"ledger/internal/log"
)

func (s *Server) handleListTransactions(c *gin.Context) {
	period, err := ParsePeriod(c.Request.URL.Query(), s.now())
	if err != nil {
		respondError(c, err)
		return
	}
	txs, err := s.svc.Transactions.List(c.Request.Context(), c.Param("id"), currentUser(c).ID, period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransactions(txs))
}

func (s *Server) handleCreateTransaction(c *gin.Context) {
	ctx, userID := c.Request.Context(), currentUser(c).ID
	var req transactionRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	in, err := req.input(core.TransactionInput{})
	if err != nil {
		respondError(c, err)
		return
	}
	t, err := s.svc.Transactions.Create(ctx, c.Param("id"), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(t.ID, t.WalletID, core.FormatAmount(t.Amount)).
			ToSlice()...)
	c.JSON(http.StatusCreated, toTransaction(t))
}

func (s *Server) handleGetTransaction(c *gin.Context) {
	t, err := s.svc.Transactions.Get(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransaction(t))
}

// handleReplaceTransaction replaces every field; an absent category or tag
// list clears it and an absent date keeps the stored one.
func (s *Server) handleReplaceTransaction(c *gin.Context) {
	var req transactionRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	in, err := req.input(core.TransactionInput{})
	if err != nil {
		respondError(c, err)
		return
	}
	s.updateTransaction(c, in)
}

// handlePatchTransaction overlays the request on the stored transaction.
// "category_id": null clears the category, tag_ids replaces the whole set.
func (s *Server) handlePatchTransaction(c *gin.Context) {
	var req transactionRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	current, err := s.svc.Transactions.Get(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	in, err := req.input(transactionInput(current))
	if err != nil {
		respondError(c, err)
		return
	}
	s.updateTransaction(c, in)
}

func (s *Server) updateTransaction(c *gin.Context, in core.TransactionInput) {
	ctx := c.Request.Context()
	t, err := s.svc.Transactions.Update(ctx, c.Param("id"), currentUser(c).ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Transaction updated",
		log.NewFields().
			WithOperation(log.OpUpdate).
			WithTransaction(t.ID, t.WalletID, core.FormatAmount(t.Amount)).
			ToSlice()...)
	c.JSON(http.StatusOK, toTransaction(t))
}

func (s *Server) handleDeleteTransaction(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := s.svc.Transactions.Delete(ctx, id, currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, id)
	c.Status(http.StatusNoContent)
}
