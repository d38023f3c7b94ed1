package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dealroom-app/dealroom/internal/common"
	"github.com/dealroom-app/dealroom/internal/contracts"
	"github.com/gin-gonic/gin"
)

type createContractReq struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) CreateContract(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createContractReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	contract := &contracts.Contract{
		IssuerID:    uid,
		Title:       req.Title,
		Description: req.Description,
		Status:      contracts.StatusOpen,
	}
	if err := h.Contracts.Create(c.Request.Context(), contract); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to create contract")
		return
	}
	common.Created(c, gin.H{"contract": contract})
}

func (h *Handler) ListOpenContracts(c *gin.Context) {
	list, err := h.Contracts.ListOpen(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to list contracts")
		return
	}
	common.OK(c, gin.H{"contracts": list})
}

func (h *Handler) ListMyContracts(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	list, err := h.Contracts.ListByIssuer(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to list contracts")
		return
	}
	common.OK(c, gin.H{"contracts": list})
}

func contractIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) SignContract(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, okk := contractIDParam(c)
	if !okk {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid contract id")
		return
	}

	if err := h.Contracts.Sign(c.Request.Context(), id, uid); err != nil {
		switch {
		case errors.Is(err, contracts.ErrNotFound):
			common.Fail(c, http.StatusNotFound, 40405, "contract not found or not open")
		case errors.Is(err, contracts.ErrNotOpen):
			common.Fail(c, http.StatusNotFound, 40405, "contract not found or not open")
		case errors.Is(err, contracts.ErrOwnContract):
			common.Fail(c, http.StatusBadRequest, 40003, "cannot sign your own contract")
		case errors.Is(err, contracts.ErrAlreadySigned):
			common.Fail(c, http.StatusBadRequest, 40004, "contract already signed")
		default:
			common.Fail(c, http.StatusInternalServerError, 50004, "failed to sign contract")
		}
		return
	}
	common.OK(c, gin.H{"signed": true})
}

// ListContractSigners is issuer-only: it reveals who is available to chat
// with about the contract.
func (h *Handler) ListContractSigners(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, okk := contractIDParam(c)
	if !okk {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid contract id")
		return
	}

	isIssuer, err := h.Contracts.IsIssuer(c.Request.Context(), id, uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to check issuer")
		return
	}
	if !isIssuer {
		common.Fail(c, http.StatusForbidden, 40303, "only the issuer can list signers")
		return
	}

	signers, err := h.Contracts.ListSigners(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to list signers")
		return
	}
	common.OK(c, gin.H{"signers": signers})
}
