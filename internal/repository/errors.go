package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup by identifier finds nothing.
var ErrNotFound = errors.New("record not found")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
