// Package raiderio is the leaderboard client: rating, raid progression,
// weekly key runs and published gear icons.
package raiderio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/okian/vaultsync/internal/adapters/upstream"
	"github.com/okian/vaultsync/internal/domain/model"
)

// Source is the metrics and log name of this client.
const Source = "raiderio"

// Defaults.
const (
	DefaultBaseURL     = "https://raider.io"
	DefaultIconBaseURL = "https://wow.zamimg.com/images/wow/icons/large"

	profileFields = "mythic_plus_scores_by_season:current,raid_progression,mythic_plus_weekly_highest_level_runs,gear"
)

// Client fetches leaderboard profiles.
type Client struct {
	http        *upstream.Client
	baseURL     string
	iconBaseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithIconBaseURL sets the root used to build icon URLs from icon names.
func WithIconBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.iconBaseURL = strings.TrimRight(u, "/")
		}
	}
}

// NewHTTPClient returns a retrying client that treats 400 as an unknown
// character, which is how the leaderboard answers for missing profiles.
func NewHTTPClient(opts ...upstream.Option) *upstream.Client {
	opts = append(opts, upstream.WithNotFoundCodes(http.StatusBadRequest, http.StatusNotFound))
	return upstream.NewClient(Source, opts...)
}

// New creates a Client. Use NewHTTPClient for hc.
func New(hc *upstream.Client, opts ...Option) *Client {
	c := &Client{
		http:        hc,
		baseURL:     DefaultBaseURL,
		iconBaseURL: DefaultIconBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Profile returns the leaderboard profile of a character.
func (c *Client) Profile(ctx context.Context, key model.CharacterKey) upstream.Result[model.LeaderboardProfile] {
	q := url.Values{}
	q.Set("region", string(model.ParseRegion(string(key.Region))))
	q.Set("realm", key.Realm)
	q.Set("name", key.Name)
	q.Set("fields", profileFields)

	body, err := c.http.Get(ctx, c.baseURL+"/api/v1/characters/profile?"+q.Encode(), nil)
	if err != nil {
		return upstream.ResultFor[model.LeaderboardProfile](err)
	}
	p, err := ParseProfile(body, c.iconBaseURL)
	if err != nil {
		return upstream.Failed[model.LeaderboardProfile](err)
	}
	return upstream.OK(p)
}

// gearSlots maps leaderboard gear keys onto slots.
var gearSlots = map[string]model.Slot{
	"head":     model.SlotHead,
	"neck":     model.SlotNeck,
	"shoulder": model.SlotShoulder,
	"back":     model.SlotBack,
	"chest":    model.SlotChest,
	"wrist":    model.SlotWrist,
	"hands":    model.SlotHands,
	"waist":    model.SlotWaist,
	"legs":     model.SlotLegs,
	"feet":     model.SlotFeet,
	"finger1":  model.SlotRing1,
	"finger2":  model.SlotRing2,
	"trinket1": model.SlotTrinket1,
	"trinket2": model.SlotTrinket2,
	"mainhand": model.SlotMainHand,
	"offhand":  model.SlotOffHand,
}

// ParseProfile decodes a profile document. Icon names are turned into URLs
// under iconBase.
func ParseProfile(body []byte, iconBase string) (model.LeaderboardProfile, error) {
	if !gjson.ValidBytes(body) {
		return model.LeaderboardProfile{}, fmt.Errorf("%s profile: %w", Source, upstream.ErrMalformed)
	}
	doc := gjson.ParseBytes(body)
	p := model.LeaderboardProfile{
		MythicPlusScore: doc.Get("mythic_plus_scores_by_season.0.scores.all").Float(),
		RaidProgression: map[string]model.RaidProgress{},
		GearIcons:       map[model.Slot]model.IconRef{},
	}

	doc.Get("raid_progression").ForEach(func(slug, v gjson.Result) bool {
		p.RaidProgression[slug.String()] = model.RaidProgress{
			Summary:      v.Get("summary").String(),
			TotalBosses:  int(v.Get("total_bosses").Int()),
			NormalKilled: int(v.Get("normal_bosses_killed").Int()),
			HeroicKilled: int(v.Get("heroic_bosses_killed").Int()),
			MythicKilled: int(v.Get("mythic_bosses_killed").Int()),
		}
		return true
	})

	for _, r := range doc.Get("mythic_plus_weekly_highest_level_runs").Array() {
		run := model.KeyRun{
			Dungeon: r.Get("dungeon").String(),
			Level:   int(r.Get("mythic_level").Int()),
		}
		if ts, err := time.Parse(time.RFC3339, r.Get("completed_at").String()); err == nil {
			run.CompletedAt = ts.UTC()
		}
		p.WeeklyRuns = append(p.WeeklyRuns, run)
	}

	doc.Get("gear.items").ForEach(func(k, v gjson.Result) bool {
		slot, ok := gearSlots[k.String()]
		icon := v.Get("icon").String()
		if !ok || icon == "" {
			return true
		}
		p.GearIcons[slot] = model.IconRef{
			ItemID: int(v.Get("item_id").Int()),
			URL:    iconBase + "/" + icon + ".jpg",
		}
		return true
	})
	return p, nil
}
