// Package combatlog counts the bosses a combat-log source saw killed inside a
// time window.
package combatlog

import (
	"time"

	"github.com/okian/vaultsync/internal/domain/model"
)

// Attribute counts unique boss names per difficulty killed within
// [start, end]. Rows without a timestamp only count when the report was
// already limited to the window by the source.
func Attribute(report model.CombatLogReport, start, end time.Time) model.KillCounts {
	from, to := start.UnixMilli(), end.UnixMilli()
	seen := make(map[model.Difficulty]map[string]struct{}, 4)
	var out model.KillCounts
	for _, k := range report.Kills {
		d, ok := model.ParseDifficulty(k.Difficulty)
		if !ok || k.Boss == "" {
			continue
		}
		if k.Timestamp == 0 {
			if !report.Ranged {
				continue
			}
		} else if k.Timestamp < from || k.Timestamp > to {
			continue
		}
		if seen[d] == nil {
			seen[d] = map[string]struct{}{}
		}
		if _, dup := seen[d][k.Boss]; dup {
			continue
		}
		seen[d][k.Boss] = struct{}{}
		out.Add(d, 1)
	}
	return out
}
