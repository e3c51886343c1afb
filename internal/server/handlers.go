package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
	"github.com/ShneWtf/cafe-delivery-bot/pkg/logger"
)

// Notifier announces orders placed through the API in Telegram. The bot
// implements it; tests run without one.
type Notifier interface {
	NewOrder(ctx context.Context, order *models.Order)
}

type handlers struct {
	svc      *domain.Service
	notifier Notifier
	logger   *logger.Logger
}

func (h *handlers) register(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/health", h.health)

	api.POST("/user", h.registerUser)
	api.GET("/user/:id", h.getUser)

	api.GET("/categories", h.listCategories)
	api.GET("/menu", h.listMenu)
	api.GET("/menu/:id", h.getMenuItem)
	api.GET("/stories", h.listStories)

	api.POST("/orders", h.createOrder)
	api.GET("/orders", h.listMyOrders)
	api.GET("/orders/:id", h.getOrder)
	api.POST("/orders/:id/cancel", h.cancelOrder)

	admin := api.Group("/admin")
	admin.POST("/menu", h.createMenuItem)
	admin.PUT("/menu/:id", h.updateMenuItem)
	admin.DELETE("/menu/:id", h.deleteMenuItem)
	admin.POST("/stories", h.createStory)
	admin.PUT("/stories/:id", h.updateStory)
	admin.DELETE("/stories/:id", h.deleteStory)
	admin.GET("/orders", h.listActiveOrders)
	admin.POST("/orders/:id/status", h.setOrderStatus)
	admin.POST("/roles", h.setRole)
	admin.GET("/stats", h.getStats)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"status": "ok"}})
}

// ============ USERS ============

type registerUserRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

func (h *handlers) registerUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}
	user, _, err := h.svc.GetOrCreateUser(c.Request.Context(), req.TelegramID, req.Username, req.FirstName, req.LastName)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, user)
}

func (h *handlers) getUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid user id")
		return
	}
	user, err := h.svc.User(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, user)
}

// ============ MENU AND STORIES ============

func (h *handlers) listCategories(c *gin.Context) {
	categories, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, categories)
}

func (h *handlers) listMenu(c *gin.Context) {
	var categoryID int64
	if raw := c.Query("category_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid category_id")
			return
		}
		categoryID = parsed
	}
	items, err := h.svc.Menu(c.Request.Context(), categoryID, true)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

func (h *handlers) getMenuItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid item id")
		return
	}
	item, err := h.svc.MenuItem(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, item)
}

func (h *handlers) listStories(c *gin.Context) {
	stories, err := h.svc.Stories(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, stories)
}

func (h *handlers) createMenuItem(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	var item models.MenuItem
	if err := c.ShouldBindJSON(&item); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}
	if err := h.svc.CreateMenuItem(c.Request.Context(), actorID, &item); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, item)
}

func (h *handlers) updateMenuItem(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	id, err := pathID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid item id")
		return
	}
	var item models.MenuItem
	if err := c.ShouldBindJSON(&item); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}
	item.ID = id
	if err := h.svc.UpdateMenuItem(c.Request.Context(), actorID, &item); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, item)
}

func (h *handlers) deleteMenuItem(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	id, err := pathID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid item id")
		return
	}
	if err := h.svc.DeleteMenuItem(c.Request.Context(), actorID, id); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *handlers) createStory(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	var story models.Story
	if err := c.ShouldBindJSON(&story); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}
	if err := h.svc.CreateStory(c.Request.Context(), actorID, &story); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, story)
}

func (h *handlers) updateStory(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	id, err := pathID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid story id")
		return
	}
	var story models.Story
	if err := c.ShouldBindJSON(&story); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}
	story.ID = id
	if err := h.svc.UpdateStory(c.Request.Context(), actorID, &story); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, story)
}

func (h *handlers) deleteStory(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	id, err := pathID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid story id")
		return
	}
	if err := h.svc.DeleteStory(c.Request.Context(), actorID, id); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": id})
}

// ============ ORDERS ============

func (h *handlers) createOrder(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	var draft domain.OrderDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}
	// Orders are always placed on behalf of the calling identity.
	draft.UserID = actorID

	order, err := h.svc.CreateOrder(c.Request.Context(), draft)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if h.notifier != nil {
		h.notifier.NewOrder(c.Request.Context(), order)
	}
	ok(c, http.StatusCreated, order)
}

func (h *handlers) listMyOrders(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	orders, err := h.svc.UserOrders(c.Request.Context(), actorID, limit)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, orders)
}

func (h *handlers) getOrder(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	id, err := pathID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}
	order, err := h.svc.Order(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if order.UserID != actorID && !h.svc.Can(c.Request.Context(), actorID, domain.CapManageOrders) {
		fail(c, http.StatusForbidden, "FORBIDDEN", "You do not have access to this order")
		return
	}
	ok(c, http.StatusOK, order)
}

func (h *handlers) cancelOrder(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	id, err := pathID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}
	order, err := h.svc.CancelOrder(c.Request.Context(), actorID, id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

func (h *handlers) listActiveOrders(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	orders, err := h.svc.ActiveOrders(c.Request.Context(), actorID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, orders)
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *handlers) setOrderStatus(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	id, err := pathID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}
	order, err := h.svc.SetOrderStatus(c.Request.Context(), actorID, id, models.OrderStatus(req.Status))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

// ============ ROLES AND STATS ============

type setRoleRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	Role       string `json:"role" binding:"required"`
}

func (h *handlers) setRole(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}
	if err := h.svc.SetRole(c.Request.Context(), actorID, req.TelegramID, models.Role(req.Role)); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"telegram_id": req.TelegramID, "role": req.Role})
}

func (h *handlers) getStats(c *gin.Context) {
	actorID, authorized := identity(c)
	if !authorized {
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), actorID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// ============ RESPONSE HELPERS ============

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

// failErr maps a domain error kind to an HTTP status.
func (h *handlers) failErr(c *gin.Context, err error) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		fail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case domain.KindForbidden:
		fail(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case domain.KindInvalidTransition:
		fail(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case domain.KindValidation:
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

// identity reads the caller's Telegram ID from the X-Telegram-ID header. The
// API is identity-based, not session-based: authorization happens in the
// domain layer against this ID.
func identity(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-Telegram-ID")
	if raw == "" {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "X-Telegram-ID header is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "X-Telegram-ID must be a number")
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
