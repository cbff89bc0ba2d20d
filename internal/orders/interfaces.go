package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/pkg/db/models"
)

// Repository defines persistence operations for orders and their children.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Order, error)
	FetchByOrderID(ctx context.Context, orderID int64) ([]LineItem, []Adjustment, error)
	ReplaceChildren(ctx context.Context, orderID int64, items []LineItem, adjustments []Adjustment) error
	Update(ctx context.Context, id int64, updates map[string]any) error
}
