package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/MikeMC777/backoffice-resto/docs"
	"github.com/MikeMC777/backoffice-resto/internal/cashier"
	"github.com/MikeMC777/backoffice-resto/internal/catalog"
	"github.com/MikeMC777/backoffice-resto/internal/customer"
	"github.com/MikeMC777/backoffice-resto/internal/delivery"
	"github.com/MikeMC777/backoffice-resto/internal/driver"
	"github.com/MikeMC777/backoffice-resto/internal/earnings"
	"github.com/MikeMC777/backoffice-resto/internal/httpx"
	"github.com/MikeMC777/backoffice-resto/internal/notify"
	"github.com/MikeMC777/backoffice-resto/internal/order"
	"github.com/MikeMC777/backoffice-resto/internal/realtime"
	"github.com/MikeMC777/backoffice-resto/internal/tracking"
	"github.com/MikeMC777/backoffice-resto/internal/validation"
)

// app holds what the handlers need. Tests fill only the parts they hit.
type app struct {
	orders    *order.Service
	drivers   *driver.Service
	codes     *delivery.Service
	tracking  *tracking.Manager
	cashier   *cashier.Service
	drafts    *cashier.Drafts
	menu      catalog.Repository
	customers customer.Repository
	earnings  *earnings.Service
	notes     notify.Repository
	hub       *realtime.Hub
	ready     func(context.Context) error
}

func (a *app) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(), httpx.Metrics())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/readyz", readyHandler(a.ready))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws", wsHandler(a.hub))
	r.GET("/ws/tracking/:id", trackingWSHandler(a.hub, a.tracking))

	v1 := r.Group("/api/v1")

	v1.GET("/orders", listOrdersHandler(a.orders))
	v1.GET("/orders/:id", getOrderHandler(a.orders))
	v1.GET("/orders/:id/items", orderItemsHandler(a.orders))
	v1.GET("/orders/:id/actions", orderActionsHandler(a.orders))
	v1.POST("/orders/:id/status", transitionHandler(a.orders))
	v1.GET("/orders/:id/notifications", orderNotificationsHandler(a.notes))
	v1.POST("/orders/:id/driver", assignDriverHandler(a.drivers))
	v1.GET("/orders/:id/delivery-code", codeStatusHandler(a.codes))
	v1.POST("/orders/:id/delivery-code", generateCodeHandler(a.codes))
	v1.POST("/orders/:id/delivery-code/confirm", confirmCodeHandler(a.codes))
	v1.GET("/orders/:id/tracking", trackingViewHandler(a.tracking))

	v1.GET("/drivers", listDriversHandler(a.drivers))
	v1.POST("/drivers", createDriverHandler(a.drivers))
	v1.GET("/drivers/available", availableDriversHandler(a.drivers))
	v1.GET("/drivers/:id", getDriverHandler(a.drivers))
	v1.PATCH("/drivers/:id", setDriverFlagsHandler(a.drivers))
	v1.PUT("/drivers/:id/position", driverPositionHandler(a.drivers))
	v1.GET("/drivers/:id/notifications", driverNotificationsHandler(a.notes))
	v1.GET("/drivers/:id/earnings", driverEarningsHandler(a.earnings))
	v1.GET("/earnings", earningsReportHandler(a.earnings))

	v1.POST("/cashier/cart", priceCartHandler(a.cashier))
	v1.POST("/cashier/checkout", checkoutHandler(a.cashier, a.drafts))
	v1.GET("/cashier/drafts/:terminal", getDraftHandler(a.drafts))
	v1.PUT("/cashier/drafts/:terminal", saveDraftHandler(a.drafts))
	v1.POST("/cashier/drafts/:terminal/resolve", resolveDraftHandler(a.drafts))

	v1.GET("/menu/items", listMenuHandler(a.menu))
	v1.POST("/menu/items", createMenuItemHandler(a.menu))
	v1.GET("/menu/items/:id", getMenuItemHandler(a.menu))
	v1.PUT("/menu/items/:id", updateMenuItemHandler(a.menu))
	v1.PUT("/menu/items/:id/availability", menuItemAvailabilityHandler(a.menu))
	v1.POST("/menu/items/:id/supplements", createSupplementHandler(a.menu))
	v1.PUT("/menu/supplements/:id/availability", supplementAvailabilityHandler(a.menu))
	v1.GET("/menu/categories", listCategoriesHandler(a.menu))
	v1.POST("/menu/categories", createCategoryHandler(a.menu))

	v1.GET("/customers", listCustomersHandler(a.customers))
	v1.POST("/customers", createCustomerHandler(a.customers))
	v1.GET("/customers/:id", getCustomerHandler(a.customers))
	v1.PUT("/customers/:id", updateCustomerHandler(a.customers))
	v1.DELETE("/customers/:id", deactivateCustomerHandler(a.customers))

	return r
}

func readyHandler(check func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpx.HTTPError{Error: "database unreachable"})
				return
			}
		}
		c.String(http.StatusOK, "ready")
	}
}

// page reads limit/offset, clamped to 1..100 and >= 0.
func page(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// bind decodes the JSON body and runs struct validation.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		httpx.BadRequest(c, "invalid json: "+err.Error())
		return false
	}
	if err := validation.Struct(v); err != nil {
		httpx.Fail(c, err)
		return false
	}
	return true
}
