package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/apperr"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/roleassign"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/users"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/pkg/middleware"
)

// RoleHandler exposes the privileged role operations. Route-level gating is
// advisory; the assignment service re-derives caller authority from the role
// store on every call.
type RoleHandler struct {
	assign   *roleassign.Service
	usersSvc *users.Service
}

func NewRoleHandler(a *roleassign.Service, u *users.Service) *RoleHandler {
	return &RoleHandler{assign: a, usersSvc: u}
}

// Register routes under the authenticated API group.
func (h *RoleHandler) Register(rg *gin.RouterGroup) {
	r := rg.Group("/roles")
	r.POST("/assign", h.Assign)
	r.GET("/users", middleware.RequireRole("admin"), h.SearchUsers)
	r.GET("/supporters/:id/owner", middleware.RequireRole("admin"), h.GetSupporterOwner)
}

func (h *RoleHandler) Assign(c *gin.Context) {
	var in roleassign.AssignInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.assign.Assign(c.Request.Context(), middleware.SubFromContext(c), in)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *RoleHandler) SearchUsers(c *gin.Context) {
	q := c.Query("q")
	found, err := h.usersSvc.Search(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": found})
}

func (h *RoleHandler) GetSupporterOwner(c *gin.Context) {
	info, err := h.assign.GetSupporterOwner(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}
