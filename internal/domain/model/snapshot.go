package model

// BossKills is the cumulative kill record of a single boss.
type BossKills struct {
	Kills int `json:"kills"`
	// LastKillTimestamp is Unix milliseconds, 0 when unknown.
	LastKillTimestamp int64 `json:"last_kill_timestamp"`
}

// Snapshot is a point-in-time cumulative kill record per difficulty and boss.
type Snapshot map[Difficulty]map[string]BossKills

// NewSnapshot returns a snapshot with an empty boss map for every difficulty.
func NewSnapshot() Snapshot {
	s := make(Snapshot, len(Difficulties()))
	for _, d := range Difficulties() {
		s[d] = map[string]BossKills{}
	}
	return s
}

// Record stores the kill record for boss at difficulty d.
func (s Snapshot) Record(d Difficulty, boss string, k BossKills) {
	if s[d] == nil {
		s[d] = map[string]BossKills{}
	}
	s[d][boss] = k
}

// Total returns the summed cumulative kills at difficulty d.
func (s Snapshot) Total(d Difficulty) int {
	total := 0
	for _, b := range s[d] {
		total += b.Kills
	}
	return total
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for d, bosses := range s {
		m := make(map[string]BossKills, len(bosses))
		for name, k := range bosses {
			m[name] = k
		}
		out[d] = m
	}
	return out
}
