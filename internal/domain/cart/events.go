package cart

import "time"

// OrderPlacedEvent is emitted once a cart has been closed as an order.
type OrderPlacedEvent struct {
	OrderID    string    `json:"orderId"`
	OwnerID    string    `json:"ownerId"`
	Branch     string    `json:"branch"`
	TotalPrice string    `json:"totalPrice"`
	Currency   string    `json:"currency"`
	LineCount  int       `json:"lineCount"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func (e OrderPlacedEvent) AggregateID() string { return e.OrderID }

func NewOrderPlacedEvent(c *Cart) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:    c.ID,
		OwnerID:    c.OwnerID,
		Branch:     c.Branch,
		TotalPrice: c.Total.Amount.String(),
		Currency:   c.Currency.String(),
		LineCount:  len(c.Lines),
		OccurredAt: time.Now().UTC(),
	}
}
