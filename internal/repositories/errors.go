package repositories

import (
	"errors"
	"math"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert or update violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
)

// roundRating rounds an average to one decimal place.
func roundRating(avg *float64) *float64 {
	if avg == nil {
		return nil
	}
	rounded := math.Round(*avg*10) / 10
	return &rounded
}
