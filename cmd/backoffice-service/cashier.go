package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/backoffice-resto/internal/cashier"
	"github.com/MikeMC777/backoffice-resto/internal/catalog"
	"github.com/MikeMC777/backoffice-resto/internal/httpx"
	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/order"
)

var cashierErrors = []httpx.Mapping{
	{Err: catalog.ErrNotFound, Status: http.StatusNotFound},
	{Err: catalog.ErrItemUnavailable, Status: http.StatusConflict},
	{Err: catalog.ErrSupplementUnavailable, Status: http.StatusConflict},
	{Err: catalog.ErrUnknownSupplement, Status: http.StatusBadRequest},
	{Err: catalog.ErrMissingObligatory, Status: http.StatusBadRequest},
	{Err: cashier.ErrEmptyCart, Status: http.StatusBadRequest},
	{Err: cashier.ErrMissingAddress, Status: http.StatusBadRequest},
	{Err: cashier.ErrUnknownType, Status: http.StatusBadRequest},
	{Err: cashier.ErrInvalidQuantity, Status: http.StatusBadRequest},
	{Err: cashier.ErrNegativePrice, Status: http.StatusBadRequest},
	{Err: cashier.ErrInsufficientCash, Status: http.StatusBadRequest},
	{Err: cashier.ErrMissingReference, Status: http.StatusBadRequest},
	{Err: cashier.ErrUnknownMethod, Status: http.StatusBadRequest},
}

type cartRequest struct {
	Lines []cashier.LineRequest `json:"lines" validate:"required,min=1,dive"`
	Type  order.Type            `json:"order_type"`
}

type cartResponse struct {
	Cart     cashier.Cart `json:"cart"`
	Subtotal string       `json:"subtotal"`
	Fee      string       `json:"delivery_fee"`
	Total    string       `json:"total"`
}

// POST /cashier/cart prices lines from the current menu.
func priceCartHandler(svc *cashier.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartRequest
		if !bind(c, &req) {
			return
		}
		cart, err := svc.BuildCart(c.Request.Context(), req.Lines)
		if err != nil {
			httpx.Fail(c, err, cashierErrors...)
			return
		}
		sub := cart.Total()
		fee := svc.FeeFor(req.Type)
		c.JSON(http.StatusOK, cartResponse{
			Cart:     cart,
			Subtotal: sub.String(),
			Fee:      fee.String(),
			Total:    sub.Add(fee).String(),
		})
	}
}

type checkoutRequest struct {
	CustomerID    *string               `json:"customer_id" validate:"omitempty,uuid"`
	CustomerName  string                `json:"customer_name" validate:"max=120"`
	CustomerPhone string                `json:"customer_phone" validate:"max=40"`
	Type          order.Type            `json:"order_type" validate:"required,oneof=delivery pickup dine_in"`
	Address       string                `json:"address" validate:"max=300"`
	Lat           *float64              `json:"lat" validate:"omitempty,latitude"`
	Lng           *float64              `json:"lng" validate:"omitempty,longitude"`
	Lines         []cashier.LineRequest `json:"lines" validate:"required,min=1,dive"`
	Payment       cashier.Payment       `json:"payment"`
	Notes         string                `json:"notes" validate:"max=500"`
	TerminalID    string                `json:"terminal_id"`
}

// POST /cashier/checkout re-prices the lines from the menu, checks payment and
// writes the order in one transaction. The terminal's draft is dropped on
// success.
func checkoutHandler(svc *cashier.Service, drafts *cashier.Drafts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutRequest
		if !bind(c, &req) {
			return
		}
		ctx := c.Request.Context()
		cart, err := svc.BuildCart(ctx, req.Lines)
		if err != nil {
			httpx.Fail(c, err, cashierErrors...)
			return
		}
		r, err := svc.Checkout(ctx, cashier.CheckoutRequest{
			CustomerID:    req.CustomerID,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			Type:          req.Type,
			Address:       req.Address,
			Lat:           req.Lat,
			Lng:           req.Lng,
			Cart:          cart,
			Payment:       req.Payment,
			Notes:         req.Notes,
		})
		if err != nil {
			httpx.Fail(c, err, cashierErrors...)
			return
		}
		if drafts != nil && req.TerminalID != "" {
			if _, err := drafts.Resolve(ctx, req.TerminalID, cashier.DecisionDiscard); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("terminal_id", req.TerminalID).Msg("drop draft after checkout")
			}
		}
		c.JSON(http.StatusCreated, r)
	}
}

var draftErrors = []httpx.Mapping{
	{Err: cashier.ErrNoDraft, Status: http.StatusNotFound},
	{Err: cashier.ErrDraftPending, Status: http.StatusConflict},
	{Err: cashier.ErrUnknownDecision, Status: http.StatusBadRequest},
}

func getDraftHandler(drafts *cashier.Drafts) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := drafts.Pending(c.Request.Context(), c.Param("terminal"))
		if err != nil {
			httpx.Fail(c, err, draftErrors...)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// PUT /cashier/drafts/:terminal?replace=true
func saveDraftHandler(drafts *cashier.Drafts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var d cashier.Draft
		if err := c.ShouldBindJSON(&d); err != nil {
			httpx.BadRequest(c, "invalid json: "+err.Error())
			return
		}
		d.TerminalID = c.Param("terminal")
		if err := drafts.Save(c.Request.Context(), &d, c.Query("replace") == "true"); err != nil {
			httpx.Fail(c, err, draftErrors...)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

type resolveRequest struct {
	Decision string `json:"decision" validate:"required,oneof=resume discard"`
}

func resolveDraftHandler(drafts *cashier.Drafts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resolveRequest
		if !bind(c, &req) {
			return
		}
		d, err := drafts.Resolve(c.Request.Context(), c.Param("terminal"), cashier.Decision(strings.ToLower(req.Decision)))
		if err != nil {
			httpx.Fail(c, err, draftErrors...)
			return
		}
		if d == nil {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}
