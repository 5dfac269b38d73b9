package models

// OrderKind discriminates agent orders.
type OrderKind string

const (
	OrderMove         OrderKind = "move"
	OrderAttackMove   OrderKind = "attack_move"
	OrderAttackTarget OrderKind = "attack_target"
	OrderDeploy       OrderKind = "deploy"
	OrderBuild        OrderKind = "build"
	OrderTrain        OrderKind = "train"
	OrderSell         OrderKind = "sell"
	OrderRepair       OrderKind = "repair"
	OrderSetRally     OrderKind = "set_rally"
	OrderStop         OrderKind = "stop"
	OrderScatter      OrderKind = "scatter"
	OrderGuard        OrderKind = "guard"
	OrderPatrol       OrderKind = "patrol"
)

// IsValid reports whether the kind is in the allowed enumeration.
func (k OrderKind) IsValid() bool {
	switch k {
	case OrderMove, OrderAttackMove, OrderAttackTarget, OrderDeploy,
		OrderBuild, OrderTrain, OrderSell, OrderRepair, OrderSetRally,
		OrderStop, OrderScatter, OrderGuard, OrderPatrol:
		return true
	}
	return false
}

// Order is one agent command. The subject set is UnitIDs and/or
// BuildingID; the target is a cell, an entity id, or a type name,
// depending on the kind.
type Order struct {
	Kind       OrderKind `json:"kind"`
	UnitIDs    []int     `json:"unit_ids,omitempty"`
	BuildingID int       `json:"building_id,omitempty"`
	TargetCell *Cell     `json:"target_cell,omitempty"`
	TargetID   int       `json:"target_id,omitempty"`
	TargetType string    `json:"target_type,omitempty"`
	Queued     bool      `json:"queued,omitempty"`
	Count      int       `json:"count,omitempty"`
}

// SubjectCount returns the number of units the order commands.
func (o *Order) SubjectCount() int {
	return len(o.UnitIDs)
}

// ForwardedOrder is an admitted order tagged with its submitting player,
// as relayed to the simulator.
type ForwardedOrder struct {
	PlayerID string `json:"player_id"`
	Order    Order  `json:"order"`
}
