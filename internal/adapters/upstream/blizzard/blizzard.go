// Package blizzard is the profile API client: equipment, raid encounter
// totals, character statistics and item media.
package blizzard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/vaultsync/internal/adapters/upstream"
	"github.com/okian/vaultsync/internal/domain/model"
	"github.com/okian/vaultsync/internal/domain/stats"
)

// Source is the metrics and log name of this client.
const Source = "blizzard"

// Defaults.
const (
	DefaultBaseURL = "https://{region}.api.blizzard.com"
	DefaultLocale  = "en_US"
)

// Client fetches character data from the profile API.
type Client struct {
	http    *upstream.Client
	tokens  upstream.TokenSource
	baseURL string
	locale  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root. A {region} placeholder is substituted per
// call.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithLocale sets the response locale.
func WithLocale(l string) Option {
	return func(c *Client) {
		if l != "" {
			c.locale = l
		}
	}
}

// New creates a Client on top of a shared retrying HTTP client.
func New(hc *upstream.Client, tokens upstream.TokenSource, opts ...Option) *Client {
	c := &Client{
		http:    hc,
		tokens:  tokens,
		baseURL: DefaultBaseURL,
		locale:  DefaultLocale,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Equipment returns the equipped items of a character.
func (c *Client) Equipment(ctx context.Context, key model.CharacterKey) upstream.Result[[]model.EquippedItem] {
	body, err := c.profile(ctx, key, "equipment")
	if err != nil {
		return upstream.ResultFor[[]model.EquippedItem](err)
	}
	items, err := ParseEquipment(body)
	if err != nil {
		return upstream.Failed[[]model.EquippedItem](err)
	}
	if len(items) == 0 {
		return upstream.NoData[[]model.EquippedItem]()
	}
	return upstream.OK(items)
}

// Encounters returns cumulative raid encounter totals of a character.
func (c *Client) Encounters(ctx context.Context, key model.CharacterKey) upstream.Result[[]model.EncounterRecord] {
	body, err := c.profile(ctx, key, "encounters/raids")
	if err != nil {
		return upstream.ResultFor[[]model.EncounterRecord](err)
	}
	records, err := ParseEncounters(body)
	if err != nil {
		return upstream.Failed[[]model.EncounterRecord](err)
	}
	if len(records) == 0 {
		return upstream.NoData[[]model.EncounterRecord]()
	}
	return upstream.OK(records)
}

// Statistics returns primary and secondary stats of a character.
func (c *Client) Statistics(ctx context.Context, key model.CharacterKey) upstream.Result[model.CharacterStats] {
	body, err := c.profile(ctx, key, "statistics")
	if err != nil {
		return upstream.ResultFor[model.CharacterStats](err)
	}
	st, err := stats.Parse(body)
	if err != nil {
		return upstream.Failed[model.CharacterStats](fmt.Errorf("%s statistics: %w: %v", Source, upstream.ErrMalformed, err))
	}
	return upstream.OK(st)
}

// ItemIcon returns the icon URL of an item.
func (c *Client) ItemIcon(ctx context.Context, region model.Region, itemID int) upstream.Result[string] {
	if itemID <= 0 {
		return upstream.NoData[string]()
	}
	u := fmt.Sprintf("%s/data/wow/media/item/%d?%s", c.root(region), itemID, c.query("static", region))
	body, err := c.get(ctx, u)
	if err != nil {
		return upstream.ResultFor[string](err)
	}
	if !gjson.ValidBytes(body) {
		return upstream.Failed[string](fmt.Errorf("%s media: %w", Source, upstream.ErrMalformed))
	}
	for _, a := range gjson.GetBytes(body, "assets").Array() {
		if a.Get("key").String() == "icon" {
			if v := a.Get("value").String(); v != "" {
				return upstream.OK(v)
			}
		}
	}
	return upstream.NoData[string]()
}

func (c *Client) profile(ctx context.Context, key model.CharacterKey, resource string) ([]byte, error) {
	region := model.ParseRegion(string(key.Region))
	u := fmt.Sprintf("%s/profile/wow/character/%s/%s/%s?%s",
		c.root(region),
		url.PathEscape(upstream.RealmSlug(key.Realm)),
		url.PathEscape(strings.ToLower(key.Name)),
		resource,
		c.query("profile", region))
	return c.get(ctx, u)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Source, err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok)
	return c.http.Get(ctx, u, header)
}

func (c *Client) root(region model.Region) string {
	return strings.ReplaceAll(c.baseURL, "{region}", string(region))
}

func (c *Client) query(namespace string, region model.Region) string {
	q := url.Values{}
	q.Set("namespace", namespace+"-"+string(region))
	q.Set("locale", c.locale)
	return q.Encode()
}
