package model

import (
	"encoding/json"
	"fmt"
)

// Slot is one of the canonical equipment slots.
type Slot int

// Canonical slots in display order.
const (
	SlotHead Slot = iota
	SlotNeck
	SlotShoulder
	SlotBack
	SlotChest
	SlotWrist
	SlotHands
	SlotWaist
	SlotLegs
	SlotFeet
	SlotRing1
	SlotRing2
	SlotTrinket1
	SlotTrinket2
	SlotMainHand
	SlotOffHand

	// SlotCount is the number of canonical slots.
	SlotCount = 16
)

var slotNames = [SlotCount]string{
	"head", "neck", "shoulder", "back", "chest", "wrist", "hands", "waist",
	"legs", "feet", "ring1", "ring2", "trinket1", "trinket2", "main_hand", "off_hand",
}

// String returns the canonical slot name.
func (s Slot) String() string {
	if s < 0 || int(s) >= SlotCount {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

// ParseSlot looks up a canonical slot name.
func ParseSlot(name string) (Slot, bool) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), true
		}
	}
	return 0, false
}

// Slots returns every canonical slot in order.
func Slots() []Slot {
	out := make([]Slot, SlotCount)
	for i := range out {
		out[i] = Slot(i)
	}
	return out
}

// DefaultQuality is the quality recorded for an empty slot.
const DefaultQuality = "COMMON"

// GearItem is the parsed state of one equipment slot.
type GearItem struct {
	Ilvl      int    `json:"ilvl"`
	ItemID    int    `json:"item_id"`
	Name      string `json:"name"`
	Quality   string `json:"quality"`
	Sockets   int    `json:"sockets"`
	Enchanted bool   `json:"enchanted"`
	Track     string `json:"track,omitempty"`
	IconURL   string `json:"icon_url"`
}

// EmptyItem returns the value of an unfilled slot.
func EmptyItem() GearItem {
	return GearItem{Quality: DefaultQuality}
}

// Gear is a complete 16-slot equipment record. Being array-backed it can never
// be partial.
type Gear [SlotCount]GearItem

// EmptyGear returns a record with every slot empty.
func EmptyGear() Gear {
	var g Gear
	for i := range g {
		g[i] = EmptyItem()
	}
	return g
}

// Get returns the item in slot s.
func (g *Gear) Get(s Slot) GearItem { return g[s] }

// MarshalJSON encodes the record as an object keyed by slot name.
func (g Gear) MarshalJSON() ([]byte, error) {
	m := make(map[string]GearItem, SlotCount)
	for i, item := range g {
		m[slotNames[i]] = item
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an object keyed by slot name. Missing or unknown keys
// leave the affected slots empty.
func (g *Gear) UnmarshalJSON(data []byte) error {
	var m map[string]GearItem
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*g = EmptyGear()
	for name, item := range m {
		if s, ok := ParseSlot(name); ok {
			g[s] = item
		}
	}
	return nil
}
