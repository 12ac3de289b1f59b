package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/middlewares"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"bitbucket.org/mmdatafocus/pos_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("pos-backend")

// RateLimiter is a fixed-window limiter backed by redis, keyed by client IP.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		// limiter failure must not take the API down
		c.Next()
		return
	}
	if count == 1 {
		rl.client.Expire(c.Request.Context(), key, rl.window)
	}
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	c.Next()
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
}

func respond(c *gin.Context, result any, err error) {
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func dayQuery(c *gin.Context) (*time.Time, bool) {
	raw := c.Query("business_day")
	if raw == "" {
		return nil, true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "business_day must be YYYY-MM-DD"})
		return nil, false
	}
	return &day, true
}

func registerRoutes(r *gin.Engine) {
	r.POST("/auth/login", func(c *gin.Context) {
		var input models.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		token, user, err := models.Login(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	})

	api := r.Group("/api", middlewares.RequireAuth())

	api.GET("/settings", func(c *gin.Context) {
		result, err := models.GetPosSettings(c.Request.Context())
		respond(c, result, err)
	})
	api.PUT("/settings", func(c *gin.Context) {
		var input models.NewPosSettings
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdatePosSettings(c.Request.Context(), &input)
		respond(c, result, err)
	})

	api.GET("/units", func(c *gin.Context) {
		result, err := models.GetUnits(c.Request.Context(), utils.NilIfEmpty(c.Query("name")))
		respond(c, result, err)
	})
	api.POST("/units", func(c *gin.Context) {
		var input models.NewUnit
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateUnit(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/units/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewUnit
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateUnit(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/units/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeleteUnit(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/unit-conversions", func(c *gin.Context) {
		result, err := models.GetRawMaterialUnitConversions(c.Request.Context(), nil)
		respond(c, result, err)
	})
	api.POST("/unit-conversions", func(c *gin.Context) {
		var input models.NewRawMaterialUnitConversion
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateRawMaterialUnitConversion(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/unit-conversions/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewRawMaterialUnitConversion
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateRawMaterialUnitConversion(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/unit-conversions/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeleteRawMaterialUnitConversion(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/suppliers", func(c *gin.Context) {
		result, err := models.GetSuppliers(c.Request.Context(), utils.NilIfEmpty(c.Query("name")))
		respond(c, result, err)
	})
	api.POST("/suppliers", func(c *gin.Context) {
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateSupplier(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/suppliers/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateSupplier(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/suppliers/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeleteSupplier(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/raw-materials", func(c *gin.Context) {
		name := utils.NilIfEmpty(c.Query("name"))
		result, err := models.GetRawMaterials(c.Request.Context(), name)
		respond(c, result, err)
	})
	api.GET("/raw-materials/low-stock", func(c *gin.Context) {
		result, err := models.GetLowStockRawMaterials(c.Request.Context())
		respond(c, result, err)
	})
	api.GET("/raw-materials/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.GetRawMaterial(c.Request.Context(), id)
		respond(c, result, err)
	})
	api.POST("/raw-materials", func(c *gin.Context) {
		var input models.NewRawMaterial
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateRawMaterial(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/raw-materials/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewRawMaterial
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateRawMaterial(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/raw-materials/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeleteRawMaterial(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/inventory-transactions", func(c *gin.Context) {
		var rawMaterialId *int
		if raw := c.Query("raw_material_id"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raw_material_id"})
				return
			}
			rawMaterialId = &id
		}
		result, err := models.GetInventoryTransactions(c.Request.Context(), rawMaterialId, nil, nil)
		respond(c, result, err)
	})
	api.POST("/inventory-transactions", func(c *gin.Context) {
		var input models.NewInventoryTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateInventoryTransaction(c.Request.Context(), &input)
		respond(c, result, err)
	})

	api.GET("/purchase-orders", func(c *gin.Context) {
		result, err := models.GetPurchaseOrders(c.Request.Context(), nil, nil)
		respond(c, result, err)
	})
	api.GET("/purchase-orders/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.GetPurchaseOrder(c.Request.Context(), id)
		respond(c, result, err)
	})
	api.POST("/purchase-orders", func(c *gin.Context) {
		var input models.NewPurchaseOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.POST("/purchase-orders/:id/receive", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := workflow.ReceivePurchaseOrder(c.Request.Context(), id)
		respond(c, result, err)
	})
	api.DELETE("/purchase-orders/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeletePurchaseOrder(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/recipes", func(c *gin.Context) {
		name := utils.NilIfEmpty(c.Query("name"))
		result, err := models.GetRecipes(c.Request.Context(), name)
		respond(c, result, err)
	})
	api.GET("/recipes/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.GetRecipe(c.Request.Context(), id)
		respond(c, result, err)
	})
	api.GET("/recipes/:id/cost", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		cost, yield, err := models.CostAndYield(c.Request.Context(), id)
		if err != nil {
			respond(c, nil, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cost": cost, "yield": yield})
	})
	api.POST("/recipes", func(c *gin.Context) {
		var input models.NewRecipe
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateRecipe(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/recipes/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewRecipe
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateRecipe(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/recipes/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeleteRecipe(c.Request.Context(), id)
		respond(c, result, err)
	})
	api.POST("/recipes/refresh-costs", func(c *gin.Context) {
		if err := workflow.RefreshRecipeCosts(c.Request.Context()); err != nil {
			respond(c, nil, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.GET("/categories", func(c *gin.Context) {
		result, err := models.GetCategories(c.Request.Context())
		respond(c, result, err)
	})
	api.POST("/categories", func(c *gin.Context) {
		var input models.NewCategory
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateCategory(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/categories/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewCategory
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateCategory(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/categories/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeleteCategory(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/menu-items", func(c *gin.Context) {
		var categoryId *int
		if raw := c.Query("category_id"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
				return
			}
			categoryId = &id
		}
		result, err := models.GetMenuItems(c.Request.Context(), categoryId)
		respond(c, result, err)
	})
	api.GET("/menu-items/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.GetMenuItem(c.Request.Context(), id)
		respond(c, result, err)
	})
	api.POST("/menu-items", func(c *gin.Context) {
		var input models.NewMenuItem
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateMenuItem(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/menu-items/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewMenuItem
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateMenuItem(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/menu-items/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeleteMenuItem(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/deals", func(c *gin.Context) {
		result, err := models.GetDeals(c.Request.Context())
		respond(c, result, err)
	})
	api.POST("/deals", func(c *gin.Context) {
		var input models.NewDeal
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateDeal(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/deals/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewDeal
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateDeal(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/deals/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeleteDeal(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/print-stations", func(c *gin.Context) {
		result, err := models.GetPrintStations(c.Request.Context())
		respond(c, result, err)
	})
	api.POST("/print-stations", func(c *gin.Context) {
		var input models.NewPrintStation
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreatePrintStation(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/print-stations/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewPrintStation
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdatePrintStation(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/print-stations/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeletePrintStation(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/tables", func(c *gin.Context) {
		result, err := models.GetTables(c.Request.Context())
		respond(c, result, err)
	})
	api.POST("/tables", func(c *gin.Context) {
		var input models.NewTable
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateTable(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/tables/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewTable
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateTable(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/tables/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeleteTable(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/table-sessions", func(c *gin.Context) {
		result, err := models.GetOpenTableSessions(c.Request.Context())
		respond(c, result, err)
	})
	api.POST("/table-sessions", func(c *gin.Context) {
		var input models.NewTableSession
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.OpenTableSession(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.POST("/table-sessions/:id/close", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.CloseTableSession(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/waiters", func(c *gin.Context) {
		result, err := models.GetWaiters(c.Request.Context())
		respond(c, result, err)
	})
	api.POST("/waiters", func(c *gin.Context) {
		var input models.NewWaiter
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateWaiter(c.Request.Context(), &input)
		respond(c, result, err)
	})
	api.PUT("/waiters/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewWaiter
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateWaiter(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	api.DELETE("/waiters/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeleteWaiter(c.Request.Context(), id)
		respond(c, result, err)
	})

	api.GET("/orders", func(c *gin.Context) {
		day, ok := dayQuery(c)
		if !ok {
			return
		}
		result, err := models.GetOrders(c.Request.Context(), day, nil)
		respond(c, result, err)
	})
	api.GET("/orders/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.GetOrder(c.Request.Context(), id)
		respond(c, result, err)
	})
	api.POST("/orders", func(c *gin.Context) {
		var input models.NewOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), "PlaceOrder")
		defer span.End()
		result, err := workflow.PlaceOrder(ctx, &input)
		respond(c, result, err)
	})
	api.PUT("/orders/:id/status", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input struct {
			Status models.OrderStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.UpdateOrderStatus(c.Request.Context(), id, input.Status)
		respond(c, result, err)
	})

	api.GET("/payments", func(c *gin.Context) {
		day, ok := dayQuery(c)
		if !ok {
			return
		}
		result, err := models.GetPayments(c.Request.Context(), day)
		respond(c, result, err)
	})
	api.POST("/payments", func(c *gin.Context) {
		var input models.NewPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreatePayment(c.Request.Context(), &input)
		respond(c, result, err)
	})

	api.GET("/kitchen-vouchers", func(c *gin.Context) {
		day, ok := dayQuery(c)
		if !ok {
			return
		}
		result, err := models.GetKitchenVouchers(c.Request.Context(), day, nil)
		respond(c, result, err)
	})
	api.POST("/kitchen-vouchers", func(c *gin.Context) {
		var input models.NewKitchenVoucher
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := workflow.PostKitchenVoucher(c.Request.Context(), &input)
		respond(c, result, err)
	})

	api.GET("/reports/kitchen-stock", func(c *gin.Context) {
		day, ok := dayQuery(c)
		if !ok {
			return
		}
		businessDay := time.Now()
		if day != nil {
			businessDay = *day
		} else {
			resolved, err := models.GetBusinessDay(c.Request.Context())
			if err != nil {
				respond(c, nil, err)
				return
			}
			businessDay = resolved
		}
		result, err := models.GetKitchenStockSummary(c.Request.Context(), businessDay)
		respond(c, result, err)
	})
	api.GET("/reports/kitchen-stock/export", func(c *gin.Context) {
		day, ok := dayQuery(c)
		if !ok {
			return
		}
		var businessDay time.Time
		if day != nil {
			businessDay = *day
		} else {
			resolved, err := models.GetBusinessDay(c.Request.Context())
			if err != nil {
				respond(c, nil, err)
				return
			}
			businessDay = resolved
		}
		content, err := models.ExportKitchenStockSummary(c.Request.Context(), businessDay)
		if err != nil {
			respond(c, nil, err)
			return
		}
		filename := fmt.Sprintf("kitchen-stock-%s.xlsx", businessDay.Format("2006-01-02"))
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
	})

	admin := api.Group("", middlewares.RequireAdmin())
	admin.GET("/users", func(c *gin.Context) {
		result, err := models.GetUsers(c.Request.Context())
		respond(c, result, err)
	})
	admin.POST("/users", func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateUser(c.Request.Context(), &input)
		respond(c, result, err)
	})
	admin.POST("/users/:id/deactivate", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := models.DeactivateUser(c.Request.Context(), id)
		respond(c, result, err)
	})
	admin.POST("/businesses", func(c *gin.Context) {
		var input models.NewBusiness
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := models.CreateBusiness(c.Request.Context(), &input)
		respond(c, result, err)
	})

	api.POST("/users/change-password", func(c *gin.Context) {
		var input struct {
			OldPassword string `json:"old_password" binding:"required"`
			NewPassword string `json:"new_password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		if err := models.ChangePassword(c.Request.Context(), userId, input.OldPassword, input.NewPassword); err != nil {
			respond(c, nil, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server first; app endpoints return 503 until the
	// database and redis are ready.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDRESS")})
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	registerRoutes(r)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running it as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	log.Println("Server started successfully on port " + port)

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// customErrorLogger logs only requests that recorded errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}
