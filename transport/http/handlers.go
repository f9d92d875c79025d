package http

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/ports"
	"github.com/listforge/trustgate/service"
)

// ActionApplier builds the in-transaction update for an unlocked action.
// The Postgres store implements it; a nil ApplyFunc means the action has no
// immediate store-side effect.
type ActionApplier interface {
	ApplyAction(action core.ActionType, entityID string) ports.ApplyFunc
}

// Handlers contains the HTTP handlers for the trust and settlement endpoints
type Handlers struct {
	auth       *service.AuthService
	settlement *service.SettlementService
	ledger     ports.PaymentLedger
	applier    ActionApplier
	domain     string
}

// NewHandlers creates new handlers. domain is the expected sign-in domain.
func NewHandlers(
	auth *service.AuthService,
	settlement *service.SettlementService,
	ledger ports.PaymentLedger,
	applier ActionApplier,
	domain string,
) *Handlers {
	return &Handlers{
		auth:       auth,
		settlement: settlement,
		ledger:     ledger,
		applier:    applier,
		domain:     domain,
	}
}

// SignIn handles the wallet sign-in request
func (h *Handlers) SignIn(c *gin.Context) {
	var req struct {
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.auth.SignIn(c.Request.Context(), req.Message, req.Signature, h.domain)
	if err != nil {
		status, reason := signInFailure(err)
		c.JSON(status, gin.H{"error": reason})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": result.Token,
		"user": gin.H{
			"address": result.User.Address,
			"role":    result.User.Role,
		},
	})
}

// Logout revokes the presented credential
func (h *Handlers) Logout(c *gin.Context) {
	session := sessionFrom(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's claims
func (h *Handlers) Me(c *gin.Context) {
	session := sessionFrom(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    session.Address,
		"role":       session.Role,
		"expires_at": session.ExpiresAt,
	})
}

// Settle verifies and consumes an on-chain payment for a priced action
func (h *Handlers) Settle(c *gin.Context) {
	session := sessionFrom(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	var req struct {
		TxHash   string `json:"tx_hash" binding:"required"`
		ChainID  uint64 `json:"chain_id" binding:"required"`
		Action   string `json:"action" binding:"required"`
		EntityID string `json:"entity_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if len(req.TxHash) != 66 || req.TxHash[:2] != "0x" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_tx_hash"})
		return
	}

	action, err := core.ParseAction(req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_action"})
		return
	}

	settleReq := service.SettleRequest{
		TxHash:          common.HexToHash(req.TxHash),
		ChainID:         req.ChainID,
		Payer:           common.HexToAddress(session.Address),
		Action:          action,
		RelatedEntityID: req.EntityID,
	}

	payment, err := h.settlement.Settle(c.Request.Context(), settleReq, h.applier.ApplyAction(action, req.EntityID))
	if err != nil {
		status, reason := settlementFailure(err)
		c.JSON(status, gin.H{"error": reason})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tx_hash":   payment.TxHash,
		"action":    payment.Action,
		"amount":    payment.Amount,
		"currency":  payment.Currency,
		"chain_id":  payment.ChainID,
		"entity_id": payment.RelatedEntityID,
	})
}

// ListPayments returns the most recent ledger entries (admin only)
func (h *Handlers) ListPayments(c *gin.Context) {
	payments, err := h.ledger.List(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func signInFailure(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidMessage):
		return http.StatusBadRequest, "invalid_message"
	case errors.Is(err, core.ErrDomainMismatch):
		return http.StatusUnauthorized, "domain_mismatch"
	case errors.Is(err, core.ErrMessageExpired):
		return http.StatusUnauthorized, "expired_message"
	case errors.Is(err, core.ErrSignatureMismatch):
		return http.StatusUnauthorized, "signature_mismatch"
	}
	return http.StatusInternalServerError, "sign_in_failed"
}

func settlementFailure(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrPaymentAlreadyUsed):
		return http.StatusConflict, "already_used"
	case errors.Is(err, core.ErrLookupFailed):
		return http.StatusBadGateway, "lookup_failed"
	case errors.Is(err, core.ErrSenderMismatch):
		return http.StatusPaymentRequired, "sender_mismatch"
	case errors.Is(err, core.ErrRecipientMismatch):
		return http.StatusPaymentRequired, "recipient_mismatch"
	case errors.Is(err, core.ErrAmountMismatch):
		return http.StatusPaymentRequired, "amount_mismatch"
	case errors.Is(err, core.ErrChainUnsupported):
		return http.StatusBadRequest, "chain_unsupported"
	case errors.Is(err, core.ErrUnknownAction):
		return http.StatusBadRequest, "unknown_action"
	}
	return http.StatusInternalServerError, "settlement_failed"
}
