package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/backoffice-resto/internal/catalog"
	"github.com/MikeMC777/backoffice-resto/internal/httpx"
)

var catalogErrors = []httpx.Mapping{
	{Err: catalog.ErrNotFound, Status: http.StatusNotFound},
	{Err: catalog.ErrCategoryNotFound, Status: http.StatusNotFound},
	{Err: catalog.ErrSupplementNotFound, Status: http.StatusNotFound},
}

// GET /menu/items?q=&category_id=&available=true&limit=&offset=
// q, when given, must have at least 2 characters.
func listMenuHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := page(c)
		q := strings.TrimSpace(c.Query("q"))
		if q != "" && len([]rune(q)) < 2 {
			httpx.BadRequest(c, "q must have at least 2 characters")
			return
		}
		items, err := repo.ListItems(c.Request.Context(), catalog.Query{
			Q:             q,
			CategoryID:    c.Query("category_id"),
			AvailableOnly: c.Query("available") == "true",
			Limit:         limit,
			Offset:        offset,
		})
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"q": q, "items": items, "limit": limit, "offset": offset})
	}
}

func getMenuItemHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		m, err := repo.GetItem(ctx, c.Param("id"))
		if err != nil {
			httpx.Fail(c, err, catalogErrors...)
			return
		}
		sups, err := repo.Supplements(ctx, m.ID)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": m, "supplements": sups})
	}
}

type menuItemRequest struct {
	CategoryID  *string `json:"category_id" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Description string  `json:"description" validate:"max=500"`
	Price       string  `json:"price" validate:"required,numeric"`
	Stock       *int    `json:"stock" validate:"omitempty,min=0"`
	Available   *bool   `json:"available"`
}

func parsePrice(c *gin.Context, raw string) (decimal.Decimal, bool) {
	p, err := decimal.NewFromString(raw)
	if err != nil || p.IsNegative() {
		httpx.BadRequest(c, "price must be a non-negative number")
		return decimal.Zero, false
	}
	return p, true
}

func createMenuItemHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req menuItemRequest
		if !bind(c, &req) {
			return
		}
		price, ok := parsePrice(c, req.Price)
		if !ok {
			return
		}
		m := &catalog.MenuItem{
			ID:          uuid.NewString(),
			CategoryID:  req.CategoryID,
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Price:       price,
			Stock:       req.Stock,
			Available:   req.Available == nil || *req.Available,
		}
		if err := repo.CreateItem(c.Request.Context(), m); err != nil {
			httpx.Fail(c, err, catalogErrors...)
			return
		}
		c.JSON(http.StatusCreated, m)
	}
}

type updateMenuItemRequest struct {
	Name        string  `json:"name" validate:"omitempty,min=2,max=120"`
	Description string  `json:"description" validate:"max=500"`
	Price       *string `json:"price" validate:"omitempty,numeric"`
	Stock       *int    `json:"stock" validate:"omitempty,min=0"`
	// ClearStock stops stock tracking for the item.
	ClearStock bool `json:"clear_stock"`
}

// PUT /menu/items/:id is partial: the price only changes when sent, and an
// omitted stock keeps the current one.
func updateMenuItemHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateMenuItemRequest
		if !bind(c, &req) {
			return
		}
		ctx := c.Request.Context()
		cur, err := repo.GetItem(ctx, c.Param("id"))
		if err != nil {
			httpx.Fail(c, err, catalogErrors...)
			return
		}
		m := &catalog.MenuItem{
			ID:          cur.ID,
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Stock:       cur.Stock,
		}
		if req.Stock != nil {
			m.Stock = req.Stock
		}
		if req.ClearStock {
			m.Stock = nil
		}
		updatePrice := req.Price != nil
		if updatePrice {
			p, ok := parsePrice(c, *req.Price)
			if !ok {
				return
			}
			m.Price = p
		}
		if err := repo.UpdateItem(ctx, m, updatePrice); err != nil {
			httpx.Fail(c, err, catalogErrors...)
			return
		}
		updated, err := repo.GetItem(ctx, cur.ID)
		if err != nil {
			httpx.Fail(c, err, catalogErrors...)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

type availabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

func menuItemAvailabilityHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req availabilityRequest
		if !bind(c, &req) {
			return
		}
		if err := repo.SetItemAvailable(c.Request.Context(), c.Param("id"), *req.Available); err != nil {
			httpx.Fail(c, err, catalogErrors...)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type supplementRequest struct {
	Name       string       `json:"name" validate:"required,max=120"`
	Kind       catalog.Kind `json:"kind" validate:"required,oneof=extra garniture"`
	Price      string       `json:"price" validate:"required,numeric"`
	Obligatory bool         `json:"obligatory"`
}

func createSupplementHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req supplementRequest
		if !bind(c, &req) {
			return
		}
		price, ok := parsePrice(c, req.Price)
		if !ok {
			return
		}
		s := &catalog.Supplement{
			ID:         uuid.NewString(),
			MenuItemID: c.Param("id"),
			Name:       strings.TrimSpace(req.Name),
			Kind:       req.Kind,
			Price:      price,
			Obligatory: req.Obligatory,
			Available:  true,
		}
		if err := repo.CreateSupplement(c.Request.Context(), s); err != nil {
			httpx.Fail(c, err, catalogErrors...)
			return
		}
		c.JSON(http.StatusCreated, s)
	}
}

func supplementAvailabilityHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req availabilityRequest
		if !bind(c, &req) {
			return
		}
		if err := repo.SetSupplementAvailable(c.Request.Context(), c.Param("id"), *req.Available); err != nil {
			httpx.Fail(c, err, catalogErrors...)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func listCategoriesHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.ListCategories(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

type categoryRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	Position int    `json:"position" validate:"min=0"`
}

func createCategoryHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req categoryRequest
		if !bind(c, &req) {
			return
		}
		cat := &catalog.Category{ID: uuid.NewString(), Name: strings.TrimSpace(req.Name), Position: req.Position, Available: true}
		if err := repo.CreateCategory(c.Request.Context(), cat); err != nil {
			httpx.Fail(c, err, catalogErrors...)
			return
		}
		c.JSON(http.StatusCreated, cat)
	}
}
