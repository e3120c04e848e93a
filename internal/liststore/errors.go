package liststore

import (
	"errors"
	"fmt"

	"storevec/internal/model"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrDuplicateID  = errors.New("duplicate item id")
)

type NotFoundError struct {
	ID model.ItemID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item not found: %s", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrItemNotFound }

type DuplicateIDError struct {
	ID model.ItemID
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate item id: %s", e.ID)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }
