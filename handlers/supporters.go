package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/apperr"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/claims"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/roles"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/storage"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/supporters"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/pkg/middleware"
)

// SupporterHandler serves the public directory read path plus owner
// self-service. images may be nil when object storage is not configured;
// mirror may be nil, in which case gating uses token claims alone.
type SupporterHandler struct {
	svc    *supporters.Service
	images *storage.ImageStore
	mirror claims.Mirror
}

func NewSupporterHandler(s *supporters.Service, img *storage.ImageStore, m claims.Mirror) *SupporterHandler {
	return &SupporterHandler{svc: s, images: img, mirror: m}
}

// RegisterPublic registers the unauthenticated directory routes.
func (h *SupporterHandler) RegisterPublic(rg *gin.RouterGroup) {
	s := rg.Group("/supporters")
	s.GET("", h.List)
	s.GET("/:slug", h.Get)
}

// RegisterAuthed registers routes requiring an authenticated caller.
func (h *SupporterHandler) RegisterAuthed(rg *gin.RouterGroup) {
	s := rg.Group("/supporters")
	s.POST("", h.Create)
	s.PUT("/:slug", h.Update)
	s.POST("/:slug/image-url", h.ImageUploadURL)
}

func (h *SupporterHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"supporters": list})
}

func (h *SupporterHandler) Get(c *gin.Context) {
	sp, err := h.svc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (h *SupporterHandler) Create(c *gin.Context) {
	var sp supporters.Supporter
	if err := c.ShouldBindJSON(&sp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// a new listing starts ownerless; ownership is granted through the
	// role assignment service only
	sp.OwnerUserID = ""
	if err := h.svc.Create(c.Request.Context(), &sp); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sp)
}

func (h *SupporterHandler) Update(c *gin.Context) {
	slug := c.Param("slug")
	if !h.callerMayManage(c, slug) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not permitted"})
		return
	}
	var sp supporters.Supporter
	if err := c.ShouldBindJSON(&sp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.UpdateDetails(c.Request.Context(), slug, &sp); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// ImageUploadURL hands the entity's owner (or an admin) a short-lived
// presigned PUT URL for the listing image.
func (h *SupporterHandler) ImageUploadURL(c *gin.Context) {
	slug := c.Param("slug")
	if !h.callerMayManage(c, slug) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not permitted"})
		return
	}
	if h.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage not configured"})
		return
	}
	if _, err := h.svc.GetBySlug(c.Request.Context(), slug); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	u, err := h.images.PresignedUploadURL(c.Request.Context(), storage.ImageKey(slug), 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to presign upload"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploadUrl": u, "key": storage.ImageKey(slug)})
}

// callerMayManage gates listing mutations. The token claims are the
// baseline; when the assignment service has mirrored a fresher snapshot
// for the caller, that snapshot wins, so a token minted before a role
// change cannot keep managing entities the caller no longer owns.
func (h *SupporterHandler) callerMayManage(c *gin.Context, slug string) bool {
	cm := middleware.ClaimsFromContext(c)
	if cm == nil {
		return false
	}
	caller := roles.FromClaimsMap(cm)
	if h.mirror != nil {
		if snap, err := h.mirror.Get(c.Request.Context(), caller.Sub); err == nil && snap != nil {
			caller = snap.Claims()
		}
	}
	return roles.CanManageSupporter(caller, slug)
}
