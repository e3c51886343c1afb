package domain

import (
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

// transition defines a single valid status change.
type transition struct {
	From models.OrderStatus
	To   models.OrderStatus
}

// validTransitions is the authoritative lifecycle definition: a fixed forward
// sequence plus cancellation from the two earliest states only.
var validTransitions = []transition{
	{From: models.StatusCreated, To: models.StatusAccepted},
	{From: models.StatusAccepted, To: models.StatusInDelivery},
	{From: models.StatusInDelivery, To: models.StatusDelivered},
	{From: models.StatusCreated, To: models.StatusCancelled},
	{From: models.StatusAccepted, To: models.StatusCancelled},
}

var transitionSet = func() map[transition]bool {
	m := make(map[transition]bool, len(validTransitions))
	for _, t := range validTransitions {
		m[t] = true
	}
	return m
}()

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to models.OrderStatus) error {
	if transitionSet[transition{From: from, To: to}] {
		return nil
	}
	return InvalidTransition("order cannot go from %s to %s", from, to)
}

// NextStatuses returns all statuses reachable from the given one.
func NextStatuses(from models.OrderStatus) []models.OrderStatus {
	var next []models.OrderStatus
	for _, t := range validTransitions {
		if t.From == from {
			next = append(next, t.To)
		}
	}
	return next
}
