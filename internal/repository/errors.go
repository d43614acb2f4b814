package repository

import "errors"

var (
	ErrNotFound = errors.New("documento no encontrado")
	// ErrConflict: perdimos la carrera en una actualización condicional
	ErrConflict = errors.New("conflicto de escritura concurrente")
)
