package session

import (
	"crateworks/internal/app/ports"
	"crateworks/internal/domain/world"
)

type JoinRequest struct {
	Observer world.ObserverID `json:"observer"`
	Position world.Position   `json:"position"`
}

type JoinResponse struct {
	Observer  world.ObserverID       `json:"observer"`
	Delivered []ports.DeliveryRecord `json:"delivered"`
	Pending   int                    `json:"pending"`
}

type MoveRequest struct {
	Observer world.ObserverID `json:"observer"`
	Position world.Position   `json:"position"`
}

type ChatRequest struct {
	Observer world.ObserverID `json:"observer"`
	Text     string           `json:"text"`
}

type ChatResponse struct {
	Handled bool `json:"handled"`
}
