package model

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	// PlaceholderValue is the value given to rows created by Add.
	PlaceholderValue = "Value"
	// MutatedValue is written by the "Mutate n-1" action.
	MutatedValue = "Mutated"
)

var ErrInvalidItemID = errors.New("invalid item id")

// ItemID is a 128-bit row key. It is a plain comparable value so it can be
// copied out of a rendered row before the list it came from is rewritten.
type ItemID uuid.UUID

// NilItemID is the zero id. It is never assigned to an item.
var NilItemID ItemID

// NewItemID returns a random (v4) id.
func NewItemID() ItemID {
	return ItemID(uuid.New())
}

// ParseItemID accepts the canonical UUID form and the bare 32 hex digit form.
func ParseItemID(s string) (ItemID, error) {
	s = strings.TrimSpace(s)
	if len(s) == 32 {
		var b [16]byte
		if _, err := hex.Decode(b[:], []byte(s)); err != nil {
			return NilItemID, ErrInvalidItemID
		}
		return ItemID(b), nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return NilItemID, ErrInvalidItemID
	}
	return ItemID(u), nil
}

func (id ItemID) String() string { return uuid.UUID(id).String() }

func (id ItemID) IsZero() bool { return id == NilItemID }

// DOMID is the element id used for the row in HTML views.
func (id ItemID) DOMID() string { return "item-" + id.String() }

func (id ItemID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ItemID) UnmarshalText(b []byte) error {
	parsed, err := ParseItemID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

type Item struct {
	// ID identifies the row in keyed views. It never changes after creation.
	ID    ItemID `json:"id"`
	Value string `json:"value"`
}

// CloneItems returns an independent copy of items.
func CloneItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// SampleItems is the fixed list served by the sample data source. Ids are
// fresh on every call.
func SampleItems() []Item {
	return []Item{
		{ID: NewItemID(), Value: "great"},
		{ID: NewItemID(), Value: "amasing"},
	}
}
