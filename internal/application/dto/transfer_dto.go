package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// ScheduleTransferRequest cuerpo para programar un traslado diferido.
type ScheduleTransferRequest struct {
	ItemID          string          `json:"item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	FromWarehouseID string          `json:"from_warehouse_id"`
	ToWarehouseID   string          `json:"to_warehouse_id"`
	ExecuteAt       time.Time       `json:"execute_at"`
	Origin          string          `json:"origin,omitempty"` // MANUAL (defecto) | AUTO
}

// ScheduledTransferDTO representación HTTP de un traslado programado.
type ScheduledTransferDTO struct {
	ID              string          `json:"id"`
	ItemID          string          `json:"item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	FromWarehouseID string          `json:"from_warehouse_id"`
	ToWarehouseID   string          `json:"to_warehouse_id"`
	ExecuteAt       time.Time       `json:"execute_at"`
	Status          string          `json:"status"`
	Origin          string          `json:"origin"`
	Attempts        int             `json:"attempts"`
	LastError       string          `json:"last_error,omitempty"`
	TransferID      *string         `json:"transfer_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FromScheduledTransfer mapea la entidad al DTO de respuesta.
func FromScheduledTransfer(st *entity.ScheduledTransfer) ScheduledTransferDTO {
	return ScheduledTransferDTO{
		ID:              st.ID,
		ItemID:          st.ItemID,
		Quantity:        st.Quantity,
		FromWarehouseID: st.FromWarehouseID,
		ToWarehouseID:   st.ToWarehouseID,
		ExecuteAt:       st.ExecuteAt,
		Status:          st.Status,
		Origin:          st.Origin,
		Attempts:        st.Attempts,
		LastError:       st.LastError,
		TransferID:      st.TransferID,
		CreatedAt:       st.CreatedAt,
		UpdatedAt:       st.UpdatedAt,
	}
}
