package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/models"
	"github.com/sevenbit/faircore/internal/services"
)

type GameHandler struct {
	engine *services.Engine
}

func NewGameHandler(engine *services.Engine) *GameHandler {
	return &GameHandler{engine: engine}
}

// gameError translates engine errors to HTTP statuses. Known domain
// rejections keep their message; anything else is an infrastructure failure
// whose text stays out of the response.
func gameError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, services.ErrActiveRound), errors.Is(err, fair.ErrSeedExhausted):
		status = http.StatusConflict
	case errors.Is(err, services.ErrRoundNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNotRoundOwner):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrWalletBusy):
		status = http.StatusServiceUnavailable
	case errors.Is(err, services.ErrInvalidBet),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrRoundNotActive),
		errors.Is(err, services.ErrCellRevealed),
		errors.Is(err, services.ErrNothingRevealed),
		errors.Is(err, fair.ErrBadClientSeed):
		status = http.StatusBadRequest
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *GameHandler) PlaceBet(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.PlaceBet(c.Request.Context(), userID, &req)
	if err != nil {
		gameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *GameHandler) CashoutCrash(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		RoundID string `json:"round_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.CashoutCrash(c.Request.Context(), userID, req.RoundID)
	if err != nil {
		gameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *GameHandler) RevealMines(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		RoundID string `json:"round_id" binding:"required"`
		Cell    *int   `json:"cell" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.RevealMines(c.Request.Context(), userID, req.RoundID, *req.Cell)
	if err != nil {
		gameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *GameHandler) CashoutMines(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		RoundID string `json:"round_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.CashoutMines(c.Request.Context(), userID, req.RoundID)
	if err != nil {
		gameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	userID := c.GetInt64("user_id")
	limit := parseLimit(c)

	rounds, err := h.engine.RoundHistory(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "rounds": rounds, "count": len(rounds)})
}

func (h *GameHandler) GetVerificationData(c *gin.Context) {
	userID := c.GetInt64("user_id")

	info, err := h.engine.VerificationData(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get verification data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
}

func (h *GameHandler) Verify(c *gin.Context) {
	var req services.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.Verify(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "verification failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "verification": result})
}

// RotateSeeds reveals the active server seed and returns the next commitment.
func (h *GameHandler) RotateSeeds(c *gin.Context) {
	userID := c.GetInt64("user_id")

	revealed, next, err := h.engine.RotateSeeds(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate seeds"})
		return
	}

	resp := gin.H{"success": true, "next": next}
	if revealed != nil {
		resp["revealed"] = gin.H{
			"seed_id":          revealed.ID,
			"server_seed":      revealed.ServerSeed,
			"server_seed_hash": revealed.ServerSeedHash,
			"client_seed":      revealed.ClientSeed,
			"last_nonce":       revealed.Nonce,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GameHandler) SetClientSeed(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		ClientSeed string `json:"client_seed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if err := h.engine.SetClientSeed(c.Request.Context(), userID, req.ClientSeed); err != nil {
		gameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "client_seed": req.ClientSeed})
}

func parseLimit(c *gin.Context) int64 {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
