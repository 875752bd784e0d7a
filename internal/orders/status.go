package orders

import "github.com/essence-atelier/perfume_shop/internal/models"

// transitions is the closed order state machine:
// pending -> paid -> {processing -> shipped -> delivered} | cancelled.
// Materialization only ever enters paid; everything after that belongs to the
// back office.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:    {models.OrderPaid, models.OrderCancelled},
	models.OrderPaid:       {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered},
	models.OrderDelivered:  {},
	models.OrderCancelled:  {},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidStatus(s models.OrderStatus) bool {
	_, ok := transitions[s]
	return ok
}
