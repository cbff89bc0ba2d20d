package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/pkg/db"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/metrics"
	"github.com/angelmondragon/commerce-core/pkg/outbox"
	"github.com/angelmondragon/commerce-core/pkg/outbox/payloads"
	"github.com/angelmondragon/commerce-core/pkg/tracing"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order-level operations on top of the totals aggregate.
type Service interface {
	Get(ctx context.Context, orderID int64) (*Order, error)
	GetTotals(ctx context.Context, orderID int64) (*Totals, error)
	Complete(ctx context.Context, orderID int64) (*Order, error)
	RecordPayment(ctx context.Context, orderID int64, amount decimal.Decimal) (*Order, error)
	ReplaceChildren(ctx context.Context, orderID int64, items []LineItem, adjustments []Adjustment) (*Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

// NewService builds an order service with the required dependencies. logg and
// m may be nil.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outbox,
		logg:    logg,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) aggregate(row *models.Order, source ChildSource) *Order {
	return NewOrder(orderFields(*row), source, WithLogger(s.logg), WithMetrics(s.metrics))
}

func (s *service) Get(ctx context.Context, orderID int64) (*Order, error) {
	row, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapFindError(err)
	}
	return s.aggregate(row, s.repo), nil
}

func (s *service) GetTotals(ctx context.Context, orderID int64) (totals *Totals, err error) {
	ctx, span := tracing.Start(ctx, "orders.GetTotals", attribute.Int64("order.id", orderID))
	defer func() { tracing.End(span, err) }()

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.Load(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order children")
	}
	t := order.Totals(ctx)
	return &t, nil
}

func (s *service) Complete(ctx context.Context, orderID int64) (result *Order, err error) {
	ctx, span := tracing.Start(ctx, "orders.Complete", attribute.Int64("order.id", orderID))
	defer func() { tracing.End(span, err) }()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapFindError(err)
		}
		if row.IsCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already completed")
		}

		order := s.aggregate(row, repo)
		if err := order.Load(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order children")
		}
		if order.IsEmpty(ctx) {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot complete an empty cart")
		}

		now := s.now()
		itemTotal := order.ItemSubtotal(ctx)
		totalPrice := itemTotal.Add(order.AdjustmentSubtotal(ctx))
		if err := repo.Update(ctx, orderID, map[string]any{
			"is_completed": true,
			"item_total":   itemTotal,
			"total_price":  totalPrice,
			"date_ordered": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		order.IsCompleted = true
		order.ItemTotal = itemTotal
		order.TotalPrice = totalPrice
		order.DateOrdered = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: payloads.OrderCompletedEvent{
				OrderID:     orderID,
				Number:      order.Number,
				ItemTotal:   itemTotal.StringFixed(order.Currency.MinorUnits()),
				TotalPrice:  totalPrice.StringFixed(order.Currency.MinorUnits()),
				DateOrdered: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order completed")
		}
		order.source = s.repo
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition("completed")
	s.info(ctx, orderID, "order completed")
	return result, nil
}

func (s *service) RecordPayment(ctx context.Context, orderID int64, amount decimal.Decimal) (result *Order, err error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	ctx, span := tracing.Start(ctx, "orders.RecordPayment", attribute.Int64("order.id", orderID))
	defer func() { tracing.End(span, err) }()

	var becamePaid bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapFindError(err)
		}

		order := s.aggregate(row, repo)
		wasPaid := order.IsPaid()
		order.TotalPaid = order.TotalPaid.Add(amount)

		updates := map[string]any{"total_paid": order.TotalPaid}
		if !wasPaid && order.IsPaid() {
			now := s.now()
			order.DatePaid = &now
			updates["date_paid"] = now
			becamePaid = true
		}
		if err := repo.Update(ctx, orderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}

		if becamePaid {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Data: payloads.OrderPaidEvent{
					OrderID:   orderID,
					Number:    order.Number,
					TotalPaid: order.TotalPaid.StringFixed(order.Currency.MinorUnits()),
					DatePaid:  *order.DatePaid,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid")
			}
		}
		order.source = s.repo
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if becamePaid {
		s.metrics.IncTransition("paid")
		s.info(ctx, orderID, "order paid in full")
	}
	return result, nil
}

func (s *service) ReplaceChildren(ctx context.Context, orderID int64, items []LineItem, adjustments []Adjustment) (*Order, error) {
	if err := validateChildren(items, adjustments); err != nil {
		return nil, err
	}

	var result *Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapFindError(err)
		}
		if row.IsCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "completed orders cannot change their items")
		}
		if err := repo.ReplaceChildren(ctx, orderID, items, adjustments); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order children")
		}
		storedItems, storedAdjustments, err := repo.FetchByOrderID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order children")
		}

		result = s.aggregate(row, s.repo)
		result.SetLineItems(storedItems)
		result.SetAdjustments(storedAdjustments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateChildren(items []LineItem, adjustments []Adjustment) error {
	seen := make(map[int64]struct{}, len(items))
	for i, li := range items {
		if li.Qty < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item qty must be >= 0").
				WithDetails(map[string]any{"index": i})
		}
		if _, dup := seen[li.PurchasableID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate purchasable on order").
				WithDetails(map[string]any{"purchasable_id": li.PurchasableID})
		}
		seen[li.PurchasableID] = struct{}{}
	}
	for i, a := range adjustments {
		if !a.Type.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid adjustment type").
				WithDetails(map[string]any{"index": i, "type": a.Type})
		}
	}
	return nil
}

func mapFindError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func (s *service) info(ctx context.Context, orderID int64, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID), msg)
}
