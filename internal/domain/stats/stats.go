// Package stats parses the character statistics payload.
package stats

import (
	"errors"

	"github.com/tidwall/gjson"

	"github.com/okian/vaultsync/internal/domain/model"
)

// ErrEmptyPayload is returned when there is nothing to parse.
var ErrEmptyPayload = errors.New("empty stats payload")

// Parse reads primary stats, secondary ratings and armor from a raw
// statistics document. Missing fields default to zero.
func Parse(raw []byte) (model.CharacterStats, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return model.CharacterStats{}, ErrEmptyPayload
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return model.CharacterStats{}, ErrEmptyPayload
	}

	crit := first(doc, "melee_crit", "spell_crit", "ranged_crit")
	haste := first(doc, "melee_haste", "spell_haste", "ranged_haste")
	return model.CharacterStats{
		Strength:           int(doc.Get("strength.effective").Int()),
		Agility:            int(doc.Get("agility.effective").Int()),
		Intellect:          int(doc.Get("intellect.effective").Int()),
		Stamina:            int(doc.Get("stamina.effective").Int()),
		CritRating:         int(crit.Get("rating").Int()),
		CritPercent:        crit.Get("value").Float(),
		HasteRating:        int(haste.Get("rating").Int()),
		HastePercent:       haste.Get("value").Float(),
		MasteryRating:      int(doc.Get("mastery.rating").Int()),
		MasteryPercent:     doc.Get("mastery.value").Float(),
		Versatility:        int(number(doc.Get("versatility"))),
		VersatilityPercent: number(doc.Get("versatility_damage_done_bonus")),
		Armor:              int(doc.Get("armor.effective").Int()),
	}, nil
}

// first returns the first of keys present in doc.
func first(doc gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := doc.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func number(r gjson.Result) float64 {
	if r.Type != gjson.Number {
		return 0
	}
	return r.Float()
}
