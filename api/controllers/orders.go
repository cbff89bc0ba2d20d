package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commerce-core/api/responses"
	"github.com/angelmondragon/commerce-core/api/validators"
	"github.com/angelmondragon/commerce-core/internal/orders"
	"github.com/angelmondragon/commerce-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/logger"
)

type orderResponse struct {
	ID          int64             `json:"id"`
	Number      string            `json:"number"`
	Reference   *string           `json:"reference,omitempty"`
	Email       string            `json:"email"`
	IsCompleted bool              `json:"is_completed"`
	DateOrdered *time.Time        `json:"date_ordered,omitempty"`
	DatePaid    *time.Time        `json:"date_paid,omitempty"`
	Totals      orders.Totals     `json:"totals"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

func toOrderResponse(r *http.Request, o *orders.Order, attrs []enums.OrderAttribute) orderResponse {
	totals := o.Totals(r.Context())
	out := orderResponse{
		ID:          o.ID,
		Number:      o.Number,
		Reference:   o.Reference,
		Email:       o.Email,
		IsCompleted: o.IsCompleted,
		DateOrdered: o.DateOrdered,
		DatePaid:    o.DatePaid,
		Totals:      totals,
	}
	if len(attrs) > 0 {
		out.Attributes = o.AttributeValues(totals, attrs...)
	}
	return out
}

// parseAttributes reads the comma separated attributes query parameter.
func parseAttributes(r *http.Request) ([]enums.OrderAttribute, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("attributes"))
	if raw == "" {
		return nil, nil
	}
	var attrs []enums.OrderAttribute
	for _, name := range strings.Split(raw, ",") {
		attr, err := enums.ParseOrderAttribute(strings.TrimSpace(name))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order attribute").
				WithDetails(map[string]any{"field": "attributes", "value": name})
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attrs, err := parseAttributes(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithOrderID(r.Context(), id)
		order, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(r.WithContext(ctx), order, attrs))
	}
}

func GetOrderTotals(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithOrderID(r.Context(), id)
		totals, err := svc.GetTotals(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, totals)
	}
}

func CompleteOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithOrderID(r.Context(), id)
		order, err := svc.Complete(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(r.WithContext(ctx), order, nil))
	}
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func RecordOrderPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload paymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").WithDetails(map[string]any{"field": "amount"}))
			return
		}
		ctx := logg.WithOrderID(r.Context(), id)
		order, err := svc.RecordPayment(ctx, id, payload.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(r.WithContext(ctx), order, nil))
	}
}

type lineItemRequest struct {
	PurchasableID int64           `json:"purchasable_id" validate:"gte=0"`
	Description   string          `json:"description" validate:"max=255"`
	SKU           string          `json:"sku" validate:"max=255"`
	Qty           int             `json:"qty" validate:"gte=1"`
	Price         decimal.Decimal `json:"price"`
	SaleAmount    decimal.Decimal `json:"sale_amount"`
	Weight        decimal.Decimal `json:"weight"`
	Length        decimal.Decimal `json:"length"`
	Width         decimal.Decimal `json:"width"`
	Height        decimal.Decimal `json:"height"`
	Note          string          `json:"note"`
}

type adjustmentRequest struct {
	LineItemIndex *int            `json:"line_item_index,omitempty" validate:"omitempty,gte=0"`
	Type          string          `json:"type" validate:"required"`
	Name          string          `json:"name" validate:"max=255"`
	Description   string          `json:"description" validate:"max=255"`
	Amount        decimal.Decimal `json:"amount"`
	Included      bool            `json:"included"`
}

type childrenRequest struct {
	LineItems   []lineItemRequest   `json:"line_items" validate:"dive"`
	Adjustments []adjustmentRequest `json:"adjustments" validate:"dive"`
}

// toChildren maps the payload. New items have no ids yet, so each gets a
// negative placeholder that adjustments reference and the store remaps on insert.
func (c childrenRequest) toChildren() ([]orders.LineItem, []orders.Adjustment, error) {
	items := make([]orders.LineItem, 0, len(c.LineItems))
	for i, li := range c.LineItems {
		items = append(items, orders.LineItem{
			ID:            placeholderID(i),
			PurchasableID: li.PurchasableID,
			Description:   li.Description,
			SKU:           li.SKU,
			Qty:           li.Qty,
			Price:         li.Price,
			SaleAmount:    li.SaleAmount,
			Weight:        li.Weight,
			Length:        li.Length,
			Width:         li.Width,
			Height:        li.Height,
			Note:          li.Note,
		})
	}
	adjustments := make([]orders.Adjustment, 0, len(c.Adjustments))
	for i, a := range c.Adjustments {
		kind, err := enums.ParseAdjustmentType(strings.ToLower(strings.TrimSpace(a.Type)))
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid adjustment type").
				WithDetails(map[string]any{"field": "adjustments", "index": i})
		}
		adj := orders.Adjustment{
			Type:        kind,
			Name:        a.Name,
			Description: a.Description,
			Amount:      a.Amount,
			Included:    a.Included,
		}
		if a.LineItemIndex != nil {
			if *a.LineItemIndex >= len(items) {
				return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "line_item_index out of range").
					WithDetails(map[string]any{"field": "adjustments", "index": i})
			}
			ref := placeholderID(*a.LineItemIndex)
			adj.LineItemID = &ref
		}
		adjustments = append(adjustments, adj)
	}
	return items, adjustments, nil
}

func placeholderID(index int) int64 {
	return -int64(index + 1)
}

// ReplaceOrderChildren swaps every line item and adjustment of an open order.
func ReplaceOrderChildren(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload childrenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, adjustments, err := payload.toChildren()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithOrderID(r.Context(), id)
		order, err := svc.ReplaceChildren(ctx, id, items, adjustments)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(r.WithContext(ctx), order, nil))
	}
}
