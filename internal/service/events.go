package service

import (
	"fmt"

	"go-stock-resi/internal/model"
	"go-stock-resi/internal/ws"

	"github.com/google/uuid"
)

const eventType = "stock_update"

func productEvent(action string, p model.Product, user, message string) ws.Event {
	return ws.Event{
		Type:      eventType,
		Action:    action,
		Product:   p,
		ProductID: p.ID.String(),
		User:      user,
		Message:   message,
	}
}

func movementEvent(txn model.Transaction, p model.Product) ws.Event {
	verb := "added"
	if txn.Type == model.TxOut {
		verb = "took"
	}
	return ws.Event{
		Type:        eventType,
		Action:      "movement_recorded",
		Product:     p,
		Transaction: txn,
		ProductID:   p.ID.String(),
		User:        txn.User,
		Message:     fmt.Sprintf("%s %s %d %s of '%s'", txn.User, verb, txn.Quantity, p.Unit, p.Name),
	}
}

// syncEvent describes a change that arrived from another writer.
func syncEvent(entity, kind string, id uuid.UUID, row interface{}) ws.Event {
	evt := ws.Event{
		Type:   eventType,
		Action: entity + "_" + kind,
	}
	switch v := row.(type) {
	case model.Product:
		evt.ProductID = id.String()
		if kind != string(model.ChangeDeleted) {
			evt.Product = v
		}
	case model.Transaction:
		if kind != string(model.ChangeDeleted) {
			evt.Transaction = v
			evt.ProductID = v.ProductID.String()
		}
	}
	return evt
}
