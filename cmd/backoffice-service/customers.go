package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeMC777/backoffice-resto/internal/customer"
	"github.com/MikeMC777/backoffice-resto/internal/httpx"
)

var customerErrors = []httpx.Mapping{{Err: customer.ErrNotFound, Status: http.StatusNotFound}}

// GET /customers?q=&inactive=true&limit=&offset=
func listCustomersHandler(repo customer.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := page(c)
		q := strings.TrimSpace(c.Query("q"))
		items, err := repo.List(c.Request.Context(), customer.Query{
			Q:               q,
			IncludeInactive: c.Query("inactive") == "true",
			Limit:           limit,
			Offset:          offset,
		})
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"q": q, "items": items, "limit": limit, "offset": offset})
	}
}

func getCustomerHandler(repo customer.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err, customerErrors...)
			return
		}
		c.JSON(http.StatusOK, cu)
	}
}

type customerRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Phone   string `json:"phone" validate:"max=40"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=300"`
}

func createCustomerHandler(repo customer.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req customerRequest
		if !bind(c, &req) {
			return
		}
		cu := &customer.Customer{
			ID:      uuid.NewString(),
			Name:    strings.TrimSpace(req.Name),
			Phone:   strings.TrimSpace(req.Phone),
			Email:   strings.TrimSpace(req.Email),
			Address: strings.TrimSpace(req.Address),
			Active:  true,
		}
		if err := repo.Create(c.Request.Context(), cu); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, cu)
	}
}

type updateCustomerRequest struct {
	Name    string `json:"name" validate:"omitempty,min=2,max=120"`
	Phone   string `json:"phone" validate:"max=40"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=300"`
}

// PUT /customers/:id only changes the fields that are sent non-empty.
func updateCustomerHandler(repo customer.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateCustomerRequest
		if !bind(c, &req) {
			return
		}
		ctx := c.Request.Context()
		cu := &customer.Customer{
			ID:      c.Param("id"),
			Name:    strings.TrimSpace(req.Name),
			Phone:   strings.TrimSpace(req.Phone),
			Email:   strings.TrimSpace(req.Email),
			Address: strings.TrimSpace(req.Address),
		}
		if err := repo.Update(ctx, cu); err != nil {
			httpx.Fail(c, err, customerErrors...)
			return
		}
		updated, err := repo.GetByID(ctx, cu.ID)
		if err != nil {
			httpx.Fail(c, err, customerErrors...)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DELETE /customers/:id deactivates; past orders keep their customer.
func deactivateCustomerHandler(repo customer.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := repo.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
			httpx.Fail(c, err, customerErrors...)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
