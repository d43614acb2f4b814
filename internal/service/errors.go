package service

import "errors"

// Errores de negocio exportados (los usa el controller)
var (
	ErrUnauthorized = errors.New("el actor no coincide con el pedido")
	// Precondición de estado no satisfecha; no se muta nada
	ErrPreconditionFailed = errors.New("el estado del pedido no permite la operación")
	ErrConflict           = errors.New("operación en conflicto con otra escritura")
	ErrUnpaidOrder        = errors.New("no se puede entregar un pedido sin pagar")
	ErrAlreadyPaid        = errors.New("el pedido ya fue pagado")
	ErrNoCard             = errors.New("el usuario no tiene tarjeta registrada")
	ErrNoPayoutAccount    = errors.New("el proveedor no tiene cuenta de cobro")
	ErrBadItems           = errors.New("items de validación no coinciden con el pedido")
	ErrAlertExists        = errors.New("ya existe una alarma para esa referencia")
	ErrChargeFailed       = errors.New("el cobro no fue aceptado")
)
