package orders

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/commerce-core/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for the rest of the transaction. SQLite
// ignores the locking clause.
func (r *repository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FetchByOrderID(ctx context.Context, orderID int64) ([]LineItem, []Adjustment, error) {
	var itemRows []models.LineItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&itemRows).Error; err != nil {
		return nil, nil, err
	}

	var adjustmentRows []models.OrderAdjustment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&adjustmentRows).Error; err != nil {
		return nil, nil, err
	}

	items := make([]LineItem, 0, len(itemRows))
	for _, row := range itemRows {
		items = append(items, lineItemFromModel(row))
	}
	adjustments := make([]Adjustment, 0, len(adjustmentRows))
	for _, row := range adjustmentRows {
		adjustments = append(adjustments, adjustmentFromModel(row))
	}
	return items, adjustments, nil
}

// ReplaceChildren deletes the stored children and inserts the given ones.
// Call it inside a transaction.
func (r *repository) ReplaceChildren(ctx context.Context, orderID int64, items []LineItem, adjustments []Adjustment) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", orderID).Delete(&models.OrderAdjustment{}).Error; err != nil {
		return err
	}
	if err := db.Where("order_id = ?", orderID).Delete(&models.LineItem{}).Error; err != nil {
		return err
	}

	// line item ids change on re-insert; adjustments follow their item
	newIDs := make(map[int64]int64, len(items))
	if len(items) > 0 {
		rows := make([]models.LineItem, 0, len(items))
		for _, li := range items {
			rows = append(rows, lineItemToModel(orderID, li))
		}
		if err := db.Create(&rows).Error; err != nil {
			return err
		}
		for i, li := range items {
			if li.ID != 0 {
				newIDs[li.ID] = rows[i].ID
			}
		}
	}

	if len(adjustments) > 0 {
		rows := make([]models.OrderAdjustment, 0, len(adjustments))
		for _, a := range adjustments {
			row := adjustmentToModel(orderID, a)
			if a.LineItemID != nil {
				row.LineItemID = nil
				if id, ok := newIDs[*a.LineItemID]; ok {
					row.LineItemID = &id
				}
			}
			rows = append(rows, row)
		}
		if err := db.Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}
