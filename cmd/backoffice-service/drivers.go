package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/backoffice-resto/internal/driver"
	"github.com/MikeMC777/backoffice-resto/internal/earnings"
	"github.com/MikeMC777/backoffice-resto/internal/httpx"
	"github.com/MikeMC777/backoffice-resto/internal/notify"
)

var driverErrors = []httpx.Mapping{
	{Err: driver.ErrNotFound, Status: http.StatusNotFound},
	{Err: driver.ErrInvalidPosition, Status: http.StatusBadRequest},
}

func listDriversHandler(svc *driver.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.Active(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// GET /drivers/available: active, available and not on an open assignment.
func availableDriversHandler(svc *driver.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.Available(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func getDriverHandler(svc *driver.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err, driverErrors...)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

type createDriverRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Phone string `json:"phone" validate:"max=40"`
}

func createDriverHandler(svc *driver.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createDriverRequest
		if !bind(c, &req) {
			return
		}
		d, err := svc.Create(c.Request.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	}
}

// PATCH /drivers/:id {"active": bool?, "available": bool?}
func setDriverFlagsHandler(svc *driver.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f driver.Flags
		if !bind(c, &f) {
			return
		}
		if f.Active == nil && f.Available == nil {
			httpx.BadRequest(c, "nothing to update")
			return
		}
		d, err := svc.SetFlags(c.Request.Context(), c.Param("id"), f)
		if err != nil {
			httpx.Fail(c, err, driverErrors...)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

type positionRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

func driverPositionHandler(svc *driver.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req positionRequest
		if !bind(c, &req) {
			return
		}
		if err := svc.UpdatePosition(c.Request.Context(), c.Param("id"), *req.Lat, *req.Lng); err != nil {
			httpx.Fail(c, err, driverErrors...)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func driverNotificationsHandler(repo notify.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		items, err := repo.ListForDriver(c.Request.Context(), c.Param("id"), limit)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func earningsReportHandler(svc *earnings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := svc.Report(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func driverEarningsHandler(svc *earnings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := svc.ForDriver(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err, httpx.Mapping{Err: earnings.ErrNotFound, Status: http.StatusNotFound})
			return
		}
		c.JSON(http.StatusOK, e)
	}
}
