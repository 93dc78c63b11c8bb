package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sevenbit/faircore/internal/ledger"
	"github.com/sevenbit/faircore/internal/models"
)

// WalletHandler is the payment-facing surface of the ledger. Domain rejections
// (insufficient funds, unknown rollback target) come back as HTTP 200 with a
// structured ERROR result, so integrators branch on the code, never on text.
type WalletHandler struct {
	ledger ledger.Ledger
}

func NewWalletHandler(lg ledger.Ledger) *WalletHandler {
	return &WalletHandler{ledger: lg}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	balance, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		UserID:    userID,
		Balance:   balance,
		Formatted: models.FormatCurrency(balance),
	})
}

func (h *WalletHandler) ApplyTransaction(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		ID      string                 `json:"id" binding:"required"`
		Type    models.TransactionType `json:"type" binding:"required"`
		Amount  int64                  `json:"amount" binding:"required"`
		RoundID string                 `json:"round_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	result, err := h.ledger.Apply(c.Request.Context(), &models.Transaction{
		ID:      req.ID,
		UserID:  userID,
		Type:    req.Type,
		Amount:  req.Amount,
		RoundID: req.RoundID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger unavailable"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *WalletHandler) Rollback(c *gin.Context) {
	var req struct {
		TransactionID string `json:"transaction_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	result, err := h.ledger.Rollback(c.Request.Context(), req.TransactionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger unavailable"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID := c.GetInt64("user_id")
	limit := parseLimit(c)

	txs, err := h.ledger.History(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs, "count": len(txs)})
}
