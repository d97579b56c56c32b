package keys

import (
	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

type CreateKeyRequest struct {
	Name string     `json:"name"`
	Item crate.Item `json:"item"`
	Slot *int       `json:"slot,omitempty"`
}

type GiveRequest struct {
	Observer world.ObserverID `json:"observer"`
	Key      string           `json:"key"`
	Amount   int              `json:"amount"`
	Virtual  bool             `json:"virtual"`
}

type GiveResponse struct {
	ToInventory int `json:"to_inventory"`
	ToBank      int `json:"to_bank"`
}

type TransferRequest struct {
	Observer world.ObserverID `json:"observer"`
	Key      string           `json:"key"`
	Amount   int              `json:"amount"`
}

type BalanceResponse struct {
	Observer world.ObserverID   `json:"observer"`
	Banked   []ports.BankedKeys `json:"banked"`
}
