package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShneWtf/cafe-delivery-bot/config"
	"github.com/ShneWtf/cafe-delivery-bot/internal/db"
	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
	"github.com/ShneWtf/cafe-delivery-bot/pkg/logger"
)

const (
	testDirectorID = int64(1000)
	testAdminID    = int64(2000)
	testCustomerID = int64(4000)
)

func setupRouter(t *testing.T) (*gin.Engine, *db.MemoryDB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Telegram.DirectorID = testDirectorID
	cfg.Loyalty.WelcomeBonus = 500
	cfg.Loyalty.CashbackPercent = 5
	cfg.Loyalty.MinOrderForBonus = 500
	cfg.Loyalty.MaxBonusSharePercent = 50

	store := db.NewMemoryDB()
	svc := domain.New(store, cfg, logger.NewNop())

	ctx := context.Background()
	require.NoError(t, store.UpsertUser(ctx, &models.User{TelegramID: testDirectorID, Role: models.RoleDirector}))
	require.NoError(t, store.UpsertUser(ctx, &models.User{TelegramID: testAdminID, Role: models.RoleAdmin}))
	require.NoError(t, store.UpsertUser(ctx, &models.User{TelegramID: testCustomerID, Role: models.RoleCustomer}))

	cat := &models.Category{Name: "Пицца", Active: true}
	require.NoError(t, store.UpsertCategory(ctx, cat))
	require.NoError(t, store.CreateMenuItem(ctx, &models.MenuItem{
		CategoryID: cat.ID, Name: "Маргарита", Price: 550, Available: true,
	}))

	router := gin.New()
	h := &handlers{svc: svc, logger: logger.NewNop()}
	h.register(router)
	return router, store
}

func doRequest(router *gin.Engine, method, path string, identity int64, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if identity != 0 {
		req.Header.Set("X-Telegram-ID", fmt.Sprintf("%d", identity))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	response := decode(t, w)
	require.False(t, response["success"].(bool))
	return response["error"].(map[string]interface{})["code"].(string)
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)
	w := doRequest(router, http.MethodGet, "/api/health", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublicMenu(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/menu", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.True(t, response["success"].(bool))
	items := response["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Маргарита", items[0].(map[string]interface{})["name"])

	w = doRequest(router, http.MethodGet, "/api/menu/9999", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestRegisterUser(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/user", 0, map[string]interface{}{
		"telegram_id": 5000,
		"first_name":  "Ivan",
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "customer", data["role"])
	assert.Equal(t, float64(500), data["balance_bonus"])

	w = doRequest(router, http.MethodPost, "/api/user", 0, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderEndpoint(t *testing.T) {
	router, store := setupRouter(t)

	items, err := store.MenuItems(context.Background(), 0, true)
	require.NoError(t, err)
	itemID := items[0].ID

	t.Run("requires identity", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/orders", 0, map[string]interface{}{})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
	})

	t.Run("places an order for the caller", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/orders", testCustomerID, map[string]interface{}{
			"items":   []map[string]interface{}{{"id": itemID, "quantity": 2}},
			"address": "ул. Ленина, 1",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, float64(testCustomerID), data["user_id"])
		assert.Equal(t, float64(1100), data["total_price"])
		assert.Equal(t, "created", data["status"])
	})

	t.Run("validation errors map to 400", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/orders", testCustomerID, map[string]interface{}{
			"items": []map[string]interface{}{{"id": itemID, "quantity": 1}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})
}

func TestOrderAccess(t *testing.T) {
	router, _ := setupRouter(t)

	items := decode(t, doRequest(router, http.MethodGet, "/api/menu", 0, nil))["data"].([]interface{})
	itemID := items[0].(map[string]interface{})["id"]

	w := doRequest(router, http.MethodPost, "/api/orders", testCustomerID, map[string]interface{}{
		"items":   []map[string]interface{}{{"id": itemID, "quantity": 1}},
		"address": "ул. Ленина, 1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decode(t, w)["data"].(map[string]interface{})["id"].(float64)

	t.Run("stranger cannot read it", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, fmt.Sprintf("/api/orders/%.0f", orderID), 5555, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin can read it", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, fmt.Sprintf("/api/orders/%.0f", orderID), testAdminID, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("owner lists own orders", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/orders", testCustomerID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		orders := decode(t, w)["data"].([]interface{})
		assert.Len(t, orders, 1)
	})
}

func TestAdminOrderStatus(t *testing.T) {
	router, _ := setupRouter(t)

	items := decode(t, doRequest(router, http.MethodGet, "/api/menu", 0, nil))["data"].([]interface{})
	itemID := items[0].(map[string]interface{})["id"]

	w := doRequest(router, http.MethodPost, "/api/orders", testCustomerID, map[string]interface{}{
		"items":   []map[string]interface{}{{"id": itemID, "quantity": 1}},
		"address": "ул. Ленина, 1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decode(t, w)["data"].(map[string]interface{})["id"].(float64)
	path := fmt.Sprintf("/api/admin/orders/%.0f/status", orderID)

	t.Run("customer is forbidden", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, path, testCustomerID, map[string]interface{}{"status": "accepted"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", errorCode(t, w))
	})

	t.Run("illegal jump conflicts", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, path, testAdminID, map[string]interface{}{"status": "delivered"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "INVALID_TRANSITION", errorCode(t, w))
	})

	t.Run("legal step succeeds", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, path, testAdminID, map[string]interface{}{"status": "accepted"})
		require.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "accepted", data["status"])
	})
}

func TestRoleEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	t.Run("admin cannot grant roles", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/admin/roles", testAdminID, map[string]interface{}{
			"telegram_id": testCustomerID,
			"role":        "courier",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("director grants a role", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/admin/roles", testDirectorID, map[string]interface{}{
			"telegram_id": testCustomerID,
			"role":        "courier",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/admin/roles", testDirectorID, map[string]interface{}{
			"telegram_id": testCustomerID,
			"role":        "owner",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStoriesEndpoints(t *testing.T) {
	router, _ := setupRouter(t)

	t.Run("customer cannot publish", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/admin/stories", testCustomerID, map[string]interface{}{
			"title": "Хак",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin publishes and the feed shows it", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/admin/stories", testAdminID, map[string]interface{}{
			"title":     "Скидка недели",
			"is_active": true,
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = doRequest(router, http.MethodGet, "/api/stories", 0, nil)
		require.Equal(t, http.StatusOK, w.Code)
		stories := decode(t, w)["data"].([]interface{})
		require.Len(t, stories, 1)
		assert.Equal(t, "Скидка недели", stories[0].(map[string]interface{})["title"])
	})
}

func TestStatsEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/admin/stats", testAdminID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["total_users"])

	w = doRequest(router, http.MethodGet, "/api/admin/stats", testCustomerID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
