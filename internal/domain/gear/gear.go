// Package gear turns an equipped-items payload into the canonical 16-slot
// gear record.
package gear

import (
	"math"
	"strings"

	"github.com/okian/vaultsync/internal/domain/model"
)

var slotTypes = map[string]model.Slot{
	"HEAD":      model.SlotHead,
	"NECK":      model.SlotNeck,
	"SHOULDER":  model.SlotShoulder,
	"BACK":      model.SlotBack,
	"CHEST":     model.SlotChest,
	"WRIST":     model.SlotWrist,
	"HANDS":     model.SlotHands,
	"WAIST":     model.SlotWaist,
	"LEGS":      model.SlotLegs,
	"FEET":      model.SlotFeet,
	"FINGER_1":  model.SlotRing1,
	"FINGER_2":  model.SlotRing2,
	"TRINKET_1": model.SlotTrinket1,
	"TRINKET_2": model.SlotTrinket2,
	"MAIN_HAND": model.SlotMainHand,
	"OFF_HAND":  model.SlotOffHand,
}

// SlotForType maps an upstream slot type onto a canonical slot.
func SlotForType(slotType string) (model.Slot, bool) {
	s, ok := slotTypes[strings.ToUpper(strings.TrimSpace(slotType))]
	return s, ok
}

// tracks is matched in order; the first hit wins.
var tracks = []struct {
	needle string
	name   string
}{
	{"myth", "Myth"},
	{"hero", "Hero"},
	{"champion", "Champion"},
	{"veteran", "Veteran"},
	{"explorer", "Explorer"},
	{"adventurer", "Adventurer"},
}

// ParseTrack extracts the upgrade track from a display string. It returns ""
// when no track is named.
func ParseTrack(display string) string {
	lower := strings.ToLower(display)
	for _, t := range tracks {
		if strings.Contains(lower, t.needle) {
			return t.name
		}
	}
	return ""
}

var twoHandTags = []string{"TWOHWEAPON", "TWO_HAND", "TWOHAND", "RANGED"}

// IsTwoHanded reports whether an inventory type occupies both hands.
func IsTwoHanded(inventoryType string) bool {
	upper := strings.ToUpper(inventoryType)
	for _, tag := range twoHandTags {
		if strings.Contains(upper, tag) {
			return true
		}
	}
	return false
}

// Empty returns a gear record with every slot empty.
func Empty() model.Gear {
	return model.EmptyGear()
}

// Parse applies an equipment payload to the previous gear record and returns
// the new record. previous is not modified.
func Parse(items []model.EquippedItem, previous model.Gear) model.Gear {
	next := previous

	off := next[model.SlotOffHand]
	off.Ilvl = 0
	off.Name = ""
	off.ItemID = 0
	next[model.SlotOffHand] = off

	var mainHand *model.EquippedItem
	offHandSeen := false
	for i := range items {
		item := items[i]
		slot, ok := SlotForType(item.SlotType)
		if !ok {
			continue
		}

		icon := ""
		if previous[slot].ItemID == item.ItemID {
			icon = previous[slot].IconURL
		}
		quality := item.Quality
		if quality == "" {
			quality = model.DefaultQuality
		}
		next[slot] = model.GearItem{
			Ilvl:      item.Level,
			ItemID:    item.ItemID,
			Name:      item.Name,
			Quality:   quality,
			Sockets:   item.Sockets,
			Enchanted: item.Enchantments > 0,
			Track:     ParseTrack(item.DisplayString),
			IconURL:   icon,
		}
		switch slot {
		case model.SlotMainHand:
			mainHand = &items[i]
		case model.SlotOffHand:
			offHandSeen = true
		}
	}

	// A real off-hand item, e.g. a second two-hander, wins over the copy.
	if mainHand != nil && !offHandSeen && IsTwoHanded(mainHand.InventoryType) {
		mh := next[model.SlotMainHand]
		off := next[model.SlotOffHand]
		off.Ilvl = mh.Ilvl
		off.Name = "(2H: " + mh.Name + ")"
		off.ItemID = mh.ItemID
		off.Quality = mh.Quality
		next[model.SlotOffHand] = off
	}
	return next
}

// AverageIlvl divides the summed slot levels by 16, counting empty slots as 0,
// and rounds to one decimal place.
func AverageIlvl(g model.Gear) float64 {
	total := 0
	for _, item := range g {
		total += item.Ilvl
	}
	return math.Round(float64(total)/model.SlotCount*10) / 10
}

// ApplyIcons fills empty icon references from icons published for the same
// item id. It returns the updated record and the slots still missing an icon.
func ApplyIcons(g model.Gear, icons map[model.Slot]model.IconRef) (model.Gear, []model.Slot) {
	var missing []model.Slot
	for _, s := range model.Slots() {
		item := g[s]
		if item.ItemID == 0 || item.IconURL != "" {
			continue
		}
		if ref, ok := icons[s]; ok && ref.ItemID == item.ItemID && ref.URL != "" {
			item.IconURL = ref.URL
			g[s] = item
			continue
		}
		missing = append(missing, s)
	}
	return g, missing
}
