package blizzard

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/okian/vaultsync/internal/adapters/upstream"
	"github.com/okian/vaultsync/internal/domain/model"
)

// ParseEquipment decodes an equipment document.
func ParseEquipment(body []byte) ([]model.EquippedItem, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s equipment: %w", Source, upstream.ErrMalformed)
	}
	rows := gjson.GetBytes(body, "equipped_items").Array()
	items := make([]model.EquippedItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, model.EquippedItem{
			SlotType:      r.Get("slot.type").String(),
			Level:         level(r.Get("level")),
			ItemID:        int(r.Get("item.id").Int()),
			Name:          r.Get("name").String(),
			Quality:       r.Get("quality.type").String(),
			Sockets:       len(r.Get("sockets").Array()),
			Enchantments:  len(r.Get("enchantments").Array()),
			InventoryType: r.Get("inventory_type.type").String(),
			DisplayString: r.Get("name_description.display_string").String(),
		})
	}
	return items, nil
}

// level accepts both a bare number and {"value": n}.
func level(v gjson.Result) int {
	if v.IsObject() {
		return int(v.Get("value").Int())
	}
	return int(v.Int())
}

// ParseEncounters flattens an encounters/raids document into one record per
// instance, difficulty and boss.
func ParseEncounters(body []byte) ([]model.EncounterRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s encounters: %w", Source, upstream.ErrMalformed)
	}
	var out []model.EncounterRecord
	for _, exp := range gjson.GetBytes(body, "expansions").Array() {
		for _, inst := range exp.Get("instances").Array() {
			name := inst.Get("instance.name").String()
			for _, mode := range inst.Get("modes").Array() {
				diff := mode.Get("difficulty.type").String()
				for _, enc := range mode.Get("progress.encounters").Array() {
					out = append(out, model.EncounterRecord{
						Instance:          name,
						Difficulty:        diff,
						Boss:              enc.Get("encounter.name").String(),
						CompletedCount:    int(enc.Get("completed_count").Int()),
						LastKillTimestamp: enc.Get("last_kill_timestamp").Int(),
					})
				}
			}
		}
	}
	return out, nil
}
