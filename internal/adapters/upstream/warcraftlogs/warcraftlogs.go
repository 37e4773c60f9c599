// Package warcraftlogs is the combat-log client. It reads timestamped boss
// kills from recent reports and per-boss parse percentiles from zone
// rankings.
package warcraftlogs

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/okian/vaultsync/internal/adapters/upstream"
	"github.com/okian/vaultsync/internal/domain/model"
)

// Source is the metrics and log name of this client.
const Source = "warcraftlogs"

// Defaults.
const (
	DefaultEndpoint    = "https://www.warcraftlogs.com/api/v2/client"
	DefaultZoneID      = 42
	DefaultReportLimit = 10
)

const killsQuery = `query CharacterKills($name: String!, $serverSlug: String!, $serverRegion: String!, $zoneID: Int!, $limit: Int!) {
  characterData {
    character(name: $name, serverSlug: $serverSlug, serverRegion: $serverRegion) {
      recentReports(limit: $limit) {
        data {
          code
          startTime
          zone { id }
          fights(killType: Kills) { encounterID name difficulty kill endTime }
        }
      }
      normal: zoneRankings(zoneID: $zoneID, difficulty: 3)
      heroic: zoneRankings(zoneID: $zoneID, difficulty: 4)
      mythic: zoneRankings(zoneID: $zoneID, difficulty: 5)
    }
  }
}`

const parsesQuery = `query CharacterParses($name: String!, $serverSlug: String!, $serverRegion: String!, $zoneID: Int!) {
  characterData {
    character(name: $name, serverSlug: $serverSlug, serverRegion: $serverRegion) {
      heroic: zoneRankings(zoneID: $zoneID, difficulty: 4)
      mythic: zoneRankings(zoneID: $zoneID, difficulty: 5)
    }
  }
}`

// difficultyIDs maps raid difficulty ids onto difficulties.
var difficultyIDs = map[int64]model.Difficulty{
	1: model.DifficultyLFR,
	3: model.DifficultyNormal,
	4: model.DifficultyHeroic,
	5: model.DifficultyMythic,
}

// Client queries the combat-log GraphQL API.
type Client struct {
	http        *upstream.Client
	tokens      upstream.TokenSource
	endpoint    string
	zoneID      int
	reportLimit int
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets the GraphQL endpoint.
func WithEndpoint(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.endpoint = u
		}
	}
}

// WithZoneID sets the raid zone queried for kills and parses.
func WithZoneID(id int) Option {
	return func(c *Client) {
		if id > 0 {
			c.zoneID = id
		}
	}
}

// WithReportLimit sets how many recent reports are scanned for kills.
func WithReportLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.reportLimit = n
		}
	}
}

// New creates a Client on top of a shared retrying HTTP client.
func New(hc *upstream.Client, tokens upstream.TokenSource, opts ...Option) *Client {
	c := &Client{
		http:        hc,
		tokens:      tokens,
		endpoint:    DefaultEndpoint,
		zoneID:      DefaultZoneID,
		reportLimit: DefaultReportLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kills returns the boss kills found in the character's recent reports of
// the configured zone. Each row carries the kill time, so the report is not
// range-restricted; zone totals and best parse are attached where known.
func (c *Client) Kills(ctx context.Context, key model.CharacterKey) upstream.Result[model.CombatLogReport] {
	vars := map[string]interface{}{"limit": c.reportLimit}
	char, err := c.query(ctx, key, killsQuery, vars)
	if err != nil {
		return upstream.ResultFor[model.CombatLogReport](err)
	}
	if !char.Exists() || char.Type == gjson.Null {
		return upstream.NoData[model.CombatLogReport]()
	}
	return upstream.OK(ParseKills(char, c.zoneID))
}

// Parses returns per-boss parse summaries keyed "Boss (Heroic)".
func (c *Client) Parses(ctx context.Context, key model.CharacterKey) upstream.Result[map[string]model.BossParse] {
	char, err := c.query(ctx, key, parsesQuery, nil)
	if err != nil {
		return upstream.ResultFor[map[string]model.BossParse](err)
	}
	parses := ParseRankings(char)
	if len(parses) == 0 {
		return upstream.NoData[map[string]model.BossParse]()
	}
	return upstream.OK(parses)
}

// query posts a character query and returns the character node.
func (c *Client) query(ctx context.Context, key model.CharacterKey, q string, extra map[string]interface{}) (gjson.Result, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", Source, err)
	}
	body, err := Body(q, key, c.zoneID, extra)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: build query: %w", Source, err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok)
	resp, err := c.http.Post(ctx, c.endpoint, []byte(body), header)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(resp) {
		return gjson.Result{}, fmt.Errorf("%s: %w", Source, upstream.ErrMalformed)
	}
	if errs := gjson.GetBytes(resp, "errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return gjson.Result{}, fmt.Errorf("%s: %w: %s", Source, upstream.ErrUnavailable, errs.Get("0.message").String())
	}
	return gjson.GetBytes(resp, "data.characterData.character"), nil
}

// Body builds the GraphQL request document for a character query.
func Body(q string, key model.CharacterKey, zoneID int, extra map[string]interface{}) (string, error) {
	body, err := sjson.Set(`{}`, "query", q)
	if err != nil {
		return "", err
	}
	vars := map[string]interface{}{
		"name":         key.Name,
		"serverSlug":   upstream.RealmSlug(key.Realm),
		"serverRegion": strings.ToUpper(string(model.ParseRegion(string(key.Region)))),
		"zoneID":       zoneID,
	}
	for k, v := range extra {
		vars[k] = v
	}
	for k, v := range vars {
		if body, err = sjson.Set(body, "variables."+k, v); err != nil {
			return "", err
		}
	}
	return body, nil
}

// ParseKills flattens kill fights of zone reports into kill rows.
func ParseKills(char gjson.Result, zoneID int) model.CombatLogReport {
	totals := rankingTotals(char)
	var report model.CombatLogReport
	for _, r := range char.Get("recentReports.data").Array() {
		if z := r.Get("zone.id"); z.Exists() && int(z.Int()) != zoneID {
			continue
		}
		start := r.Get("startTime").Int()
		for _, f := range r.Get("fights").Array() {
			if !f.Get("kill").Bool() {
				continue
			}
			diff, ok := difficultyIDs[f.Get("difficulty").Int()]
			if !ok {
				continue
			}
			boss := f.Get("name").String()
			t := totals[rowKey(boss, diff)]
			report.Kills = append(report.Kills, model.CombatLogKill{
				Boss:       boss,
				Difficulty: string(diff),
				Timestamp:  start + f.Get("endTime").Int(),
				TotalKills: t.Kills,
				Parse:      t.Best,
			})
		}
	}
	return report
}

func rowKey(boss string, d model.Difficulty) string {
	return boss + "|" + string(d)
}

func rankingTotals(char gjson.Result) map[string]model.BossParse {
	out := map[string]model.BossParse{}
	for _, d := range []model.Difficulty{model.DifficultyNormal, model.DifficultyHeroic, model.DifficultyMythic} {
		for _, r := range char.Get(string(d) + ".rankings").Array() {
			out[rowKey(r.Get("encounter.name").String(), d)] = model.BossParse{
				Best:  r.Get("rankPercent").Float(),
				Kills: int(r.Get("totalKills").Int()),
			}
		}
	}
	return out
}

// ParseRankings reads heroic and mythic zone rankings into parse summaries.
func ParseRankings(char gjson.Result) map[string]model.BossParse {
	out := map[string]model.BossParse{}
	for _, d := range []model.Difficulty{model.DifficultyHeroic, model.DifficultyMythic} {
		label := strings.ToUpper(string(d[:1])) + string(d[1:])
		for _, r := range char.Get(string(d) + ".rankings").Array() {
			boss := r.Get("encounter.name").String()
			if boss == "" {
				boss = "Unknown"
			}
			spec := r.Get("bestSpec").String()
			if spec == "" {
				spec = r.Get("spec").String()
			}
			out[fmt.Sprintf("%s (%s)", boss, label)] = model.BossParse{
				Best:   r.Get("rankPercent").Float(),
				Median: r.Get("medianPercent").Float(),
				Kills:  int(r.Get("totalKills").Int()),
				Spec:   spec,
			}
		}
	}
	return out
}
