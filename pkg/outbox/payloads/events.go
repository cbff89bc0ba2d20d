package payloads

import "time"

// ProductTypeSavedEvent is emitted when a product type save commits.
type ProductTypeSavedEvent struct {
	ProductTypeID int64    `json:"product_type_id"`
	Handle        string   `json:"handle"`
	IsNew         bool     `json:"is_new"`
	Cascades      []string `json:"cascades,omitempty"`
	AffectedCount int      `json:"affected_count"`
}

// ProductTypeDeletedEvent is emitted when a product type and its products are removed.
type ProductTypeDeletedEvent struct {
	ProductTypeID   int64  `json:"product_type_id"`
	Handle          string `json:"handle"`
	DeletedProducts int    `json:"deleted_products"`
}

// OrderCompletedEvent marks the transition from cart to order.
type OrderCompletedEvent struct {
	OrderID     int64     `json:"order_id"`
	Number      string    `json:"number"`
	ItemTotal   string    `json:"item_total"`
	TotalPrice  string    `json:"total_price"`
	DateOrdered time.Time `json:"date_ordered"`
}

// OrderPaidEvent is emitted once, when the outstanding balance reaches zero.
type OrderPaidEvent struct {
	OrderID   int64     `json:"order_id"`
	Number    string    `json:"number"`
	TotalPaid string    `json:"total_paid"`
	DatePaid  time.Time `json:"date_paid"`
}
