package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// PolicyHandlers serves the admin policy and role endpoints
type PolicyHandlers struct {
	policySvc domain.PolicyService
	log       *zap.Logger
}

// NewPolicyHandlers creates new policy handlers
func NewPolicyHandlers(policySvc domain.PolicyService, log *zap.Logger) *PolicyHandlers {
	return &PolicyHandlers{policySvc: policySvc, log: log}
}

type policyReq struct {
	Sub string `json:"sub" binding:"required"`
	Obj string `json:"obj" binding:"required"`
	Act string `json:"act" binding:"required"`
}

type roleReq struct {
	Role domain.Role `json:"role" binding:"required"`
}

// List returns every policy rule
func (h *PolicyHandlers) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.policySvc.GetPolicies()})
}

// Add inserts a policy rule
func (h *PolicyHandlers) Add(c *gin.Context) {
	var r policyReq
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	if err := h.policySvc.AddPolicy(r.Sub, r.Obj, r.Act); err != nil {
		h.log.Warn("policy not added", zap.Strings("rule", []string{r.Sub, r.Obj, r.Act}), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "not added"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Remove deletes a policy rule
func (h *PolicyHandlers) Remove(c *gin.Context) {
	var r policyReq
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	if err := h.policySvc.RemovePolicy(r.Sub, r.Obj, r.Act); err != nil {
		h.log.Warn("policy not removed", zap.Strings("rule", []string{r.Sub, r.Obj, r.Act}), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "not removed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetRole changes the role of a profile
func (h *PolicyHandlers) SetRole(c *gin.Context) {
	var r roleReq
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	profile, err := h.policySvc.SetProfileRole(c.Request.Context(), c.Param("id"), r.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}
