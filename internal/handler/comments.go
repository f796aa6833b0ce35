package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nestnote/backend/internal/model"
	"github.com/nestnote/backend/internal/service"
)

type CommentHandler struct {
	svc *service.CommentService
}

func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

// Create godoc
// @Summary Post a comment on a page
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateCommentRequest true "Page address and content"
// @Success 201 {object} model.CommentView
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Message: "invalid credentials"})
		return
	}

	var req model.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: "invalid request"})
		return
	}

	view, err := h.svc.Create(c.Request.Context(), user.ID, req.Address, req.Content)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// List godoc
// @Summary List comments for a page
// @Tags comments
// @Produce json
// @Param address query string true "Page address"
// @Success 200 {array} model.CommentView
// @Failure 400 {object} model.ErrorResponse
// @Router /comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	views, err := h.svc.ListByAddress(c.Request.Context(), c.Query("address"))
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}
