package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger/internal/core"
)

func (s *Server) handleListWallets(c *gin.Context) {
	wallets, err := s.svc.Wallets.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWallets(wallets))
}

func (s *Server) handleCreateWallet(c *gin.Context) {
	var req walletRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	w, err := s.svc.Wallets.Create(c.Request.Context(), currentUser(c).ID, req.input(core.WalletInput{}))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toWallet(w))
}

func (s *Server) handleGetWallet(c *gin.Context) {
	w, err := s.svc.Wallets.Get(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWallet(w))
}

// handleReplaceWallet treats absent fields as empty, so a PUT must carry the
// whole wallet.
func (s *Server) handleReplaceWallet(c *gin.Context) {
	var req walletRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	w, err := s.svc.Wallets.Update(c.Request.Context(), c.Param("id"), currentUser(c).ID, req.input(core.WalletInput{}))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWallet(w))
}

func (s *Server) handlePatchWallet(c *gin.Context) {
	ctx, userID := c.Request.Context(), currentUser(c).ID
	var req walletRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	current, err := s.svc.Wallets.Get(ctx, c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	w, err := s.svc.Wallets.Update(ctx, current.ID, userID, req.input(walletInput(current.Wallet)))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWallet(w))
}

func (s *Server) handleDeleteWallet(c *gin.Context) {
	if err := s.svc.Wallets.Delete(c.Request.Context(), c.Param("id"), currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleWalletSummary(c *gin.Context) {
	period, err := ParsePeriod(c.Request.URL.Query(), s.now())
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := s.svc.Wallets.Summary(c.Request.Context(), c.Param("id"), currentUser(c).ID, period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSummary(summary))
}
