package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/backoffice-resto/internal/delivery"
	"github.com/MikeMC777/backoffice-resto/internal/driver"
	"github.com/MikeMC777/backoffice-resto/internal/httpx"
	"github.com/MikeMC777/backoffice-resto/internal/notify"
	"github.com/MikeMC777/backoffice-resto/internal/order"
	"github.com/MikeMC777/backoffice-resto/internal/tracking"
)

var orderErrors = []httpx.Mapping{
	{Err: order.ErrNotFound, Status: http.StatusNotFound},
	{Err: order.ErrUnknownStatus, Status: http.StatusBadRequest},
	{Err: order.ErrInvalidTransition, Status: http.StatusUnprocessableEntity},
	{Err: order.ErrDriverRequired, Status: http.StatusUnprocessableEntity},
}

func parseTime(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// GET /orders?status=pending,accepted&type=delivery&q=&from=&to=&limit=&offset=
func listOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := page(c)
		f := order.Filter{Q: strings.TrimSpace(c.Query("q")), Limit: limit, Offset: offset}

		if raw := c.Query("status"); raw != "" {
			for _, s := range strings.Split(raw, ",") {
				st, err := order.ParseStatus(strings.TrimSpace(s))
				if err != nil {
					httpx.BadRequest(c, err.Error())
					return
				}
				f.Statuses = append(f.Statuses, st)
			}
		}
		if t := c.Query("type"); t != "" {
			f.Type = order.Type(t)
		}
		var ok bool
		if f.From, ok = parseTime(c.Query("from")); !ok {
			httpx.BadRequest(c, "from must be a date or RFC3339 time")
			return
		}
		if f.To, ok = parseTime(c.Query("to")); !ok {
			httpx.BadRequest(c, "to must be a date or RFC3339 time")
			return
		}

		items, err := svc.List(c.Request.Context(), f)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
	}
}

func getOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")
		o, items, err := svc.Get(ctx, id)
		if err != nil {
			httpx.Fail(c, err, orderErrors...)
			return
		}
		a, err := svc.Assignment(ctx, id)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o, "items": items, "assignment": a})
	}
}

func orderItemsHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.Items(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err, orderErrors...)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func orderActionsHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actions, err := svc.Actions(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err, orderErrors...)
			return
		}
		c.JSON(http.StatusOK, gin.H{"actions": actions})
	}
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

// POST /orders/:id/status
func transitionHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transitionRequest
		if !bind(c, &req) {
			return
		}
		to, err := order.ParseStatus(req.Status)
		if err != nil {
			httpx.Fail(c, err, orderErrors...)
			return
		}
		o, err := svc.Transition(c.Request.Context(), c.Param("id"), to, strings.TrimSpace(req.Note))
		if err != nil {
			httpx.Fail(c, err, orderErrors...)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func orderNotificationsHandler(repo notify.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.ListForOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

type assignRequest struct {
	DriverID string `json:"driver_id" validate:"required"`
}

var assignErrors = []httpx.Mapping{
	{Err: order.ErrNotFound, Status: http.StatusNotFound},
	{Err: driver.ErrNotFound, Status: http.StatusNotFound},
	{Err: driver.ErrDriverUnavailable, Status: http.StatusConflict},
	{Err: driver.ErrDriverBusy, Status: http.StatusConflict},
	{Err: driver.ErrOrderAssigned, Status: http.StatusConflict},
	{Err: driver.ErrOrderNotAssignable, Status: http.StatusConflict},
}

// POST /orders/:id/driver
func assignDriverHandler(svc *driver.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assignRequest
		if !bind(c, &req) {
			return
		}
		a, err := svc.Assign(c.Request.Context(), c.Param("id"), req.DriverID)
		if err != nil {
			httpx.Fail(c, err, assignErrors...)
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

var codeErrors = []httpx.Mapping{
	{Err: order.ErrNotFound, Status: http.StatusNotFound},
	{Err: delivery.ErrOrderNotFound, Status: http.StatusNotFound},
	{Err: delivery.ErrNotDeliverable, Status: http.StatusConflict},
	{Err: delivery.ErrNoCode, Status: http.StatusConflict},
	{Err: delivery.ErrCodeExpired, Status: http.StatusConflict},
	{Err: delivery.ErrAlreadyConfirmed, Status: http.StatusConflict},
	{Err: delivery.ErrCodeMismatch, Status: http.StatusUnprocessableEntity},
}

func codeStatusHandler(svc *delivery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := svc.Status(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err, codeErrors...)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// POST /orders/:id/delivery-code. The plaintext code is only ever returned here.
func generateCodeHandler(svc *delivery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, v, err := svc.Generate(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err, codeErrors...)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"code": code, "delivery_code": v})
	}
}

type confirmRequest struct {
	Code        string `json:"code" validate:"required,numeric,min=4,max=9"`
	ConfirmedBy string `json:"confirmed_by" validate:"required,max=120"`
}

func confirmCodeHandler(svc *delivery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req confirmRequest
		if !bind(c, &req) {
			return
		}
		v, err := svc.Confirm(c.Request.Context(), c.Param("id"), req.Code, strings.TrimSpace(req.ConfirmedBy))
		if err != nil {
			httpx.Fail(c, err, codeErrors...)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// GET /orders/:id/tracking returns the current session state. A session opened
// just for this request is released afterwards.
func trackingViewHandler(m *tracking.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		s, err := m.Open(c.Request.Context(), id)
		if err != nil {
			httpx.Fail(c, err, orderErrors...)
			return
		}
		defer m.Release(id)
		c.JSON(http.StatusOK, s.View())
	}
}
