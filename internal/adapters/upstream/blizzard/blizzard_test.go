package blizzard_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/vaultsync/internal/adapters/upstream"
	"github.com/okian/vaultsync/internal/adapters/upstream/blizzard"
	"github.com/okian/vaultsync/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

const equipmentJSON = `{
  "equipped_items": [
    {"slot": {"type": "HEAD"}, "item": {"id": 212000}, "name": "Crown",
     "quality": {"type": "EPIC"}, "level": {"value": 639},
     "sockets": [{}], "inventory_type": {"type": "HEAD"},
     "name_description": {"display_string": "Hero 4/6"}},
    {"slot": {"type": "MAIN_HAND"}, "item": {"id": 222000}, "name": "Big Axe",
     "quality": {"type": "EPIC"}, "level": 645,
     "enchantments": [{}, {}], "inventory_type": {"type": "TWOHWEAPON"}}
  ]
}`

const encountersJSON = `{
  "expansions": [{
    "instances": [{
      "instance": {"name": "Liberation of Undermine"},
      "modes": [{
        "difficulty": {"type": "HEROIC"},
        "progress": {"encounters": [
          {"encounter": {"name": "Vexie"}, "completed_count": 4, "last_kill_timestamp": 1741700000000},
          {"encounter": {"name": "Cauldron"}, "completed_count": 2}
        ]}
      }]
    }]
  }]
}`

type request struct {
	path, namespace, auth string
}

type recorder struct {
	mu   sync.Mutex
	last request
}

func (r *recorder) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = request{
		path:      req.URL.Path,
		namespace: req.URL.Query().Get("namespace"),
		auth:      req.Header.Get("Authorization"),
	}
}

func (r *recorder) get() request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func newClient(srv *httptest.Server, token string) *blizzard.Client {
	hc := upstream.NewClient(blizzard.Source,
		upstream.WithRetryMax(0),
		upstream.WithRetryWait(time.Millisecond, time.Millisecond))
	return blizzard.New(hc, upstream.StaticToken(token), blizzard.WithBaseURL(srv.URL+"/{region}"))
}

func TestProfileEndpoints(t *testing.T) {
	convey.Convey("Given a profile API", t, func() {
		seen := &recorder{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen.record(r)
			switch r.URL.Path {
			case "/eu/profile/wow/character/twisting-nether/thrall/equipment":
				_, _ = w.Write([]byte(equipmentJSON))
			case "/eu/profile/wow/character/twisting-nether/thrall/encounters/raids":
				_, _ = w.Write([]byte(encountersJSON))
			case "/eu/profile/wow/character/twisting-nether/thrall/statistics":
				_, _ = w.Write([]byte(`{"strength":{"effective":900},"melee_crit":{"rating":400,"value":12.5}}`))
			case "/eu/data/wow/media/item/212000":
				_, _ = w.Write([]byte(`{"assets":[{"key":"icon","value":"https://render/crown.jpg"}]}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		key := model.CharacterKey{Name: "Thrall", Realm: "Twisting Nether", Region: model.RegionEU}
		c := newClient(srv, "tok")
		ctx := context.Background()

		convey.Convey("When fetching equipment", func() {
			res := c.Equipment(ctx, key)

			convey.Convey("Then both level shapes decode", func() {
				convey.So(res.Ok(), convey.ShouldBeTrue)
				convey.So(seen.get().namespace, convey.ShouldEqual, "profile-eu")
				convey.So(seen.get().auth, convey.ShouldEqual, "Bearer tok")
				convey.So(res.Value, convey.ShouldHaveLength, 2)
				convey.So(res.Value[0].Level, convey.ShouldEqual, 639)
				convey.So(res.Value[0].Sockets, convey.ShouldEqual, 1)
				convey.So(res.Value[0].DisplayString, convey.ShouldEqual, "Hero 4/6")
				convey.So(res.Value[1].Level, convey.ShouldEqual, 645)
				convey.So(res.Value[1].Enchantments, convey.ShouldEqual, 2)
				convey.So(res.Value[1].InventoryType, convey.ShouldEqual, "TWOHWEAPON")
			})
		})

		convey.Convey("When fetching encounters", func() {
			res := c.Encounters(ctx, key)

			convey.Convey("Then each boss becomes a record", func() {
				convey.So(res.Ok(), convey.ShouldBeTrue)
				convey.So(res.Value, convey.ShouldResemble, []model.EncounterRecord{
					{Instance: "Liberation of Undermine", Difficulty: "HEROIC", Boss: "Vexie", CompletedCount: 4, LastKillTimestamp: 1741700000000},
					{Instance: "Liberation of Undermine", Difficulty: "HEROIC", Boss: "Cauldron", CompletedCount: 2},
				})
			})
		})

		convey.Convey("When fetching statistics", func() {
			res := c.Statistics(ctx, key)
			convey.So(res.Ok(), convey.ShouldBeTrue)
			convey.So(res.Value.Strength, convey.ShouldEqual, 900)
			convey.So(res.Value.CritPercent, convey.ShouldEqual, 12.5)
		})

		convey.Convey("When fetching an item icon", func() {
			res := c.ItemIcon(ctx, model.RegionEU, 212000)
			convey.So(res.Value, convey.ShouldEqual, "https://render/crown.jpg")
			convey.So(seen.get().namespace, convey.ShouldEqual, "static-eu")
		})

		convey.Convey("When the character is unknown", func() {
			other := model.CharacterKey{Name: "Nobody", Realm: "Twisting Nether", Region: model.RegionEU}
			res := c.Equipment(ctx, other)

			convey.Convey("Then the result carries no data rather than an error", func() {
				convey.So(res.Status, convey.ShouldEqual, upstream.StatusNoData)
				convey.So(seen.get().path, convey.ShouldEqual, "/eu/profile/wow/character/twisting-nether/nobody/equipment")
			})
		})

		convey.Convey("When no token is configured", func() {
			res := newClient(srv, "").Encounters(ctx, key)
			convey.So(res.Status, convey.ShouldEqual, upstream.StatusError)
			convey.So(errors.Is(res.Err, upstream.ErrNotConfigured), convey.ShouldBeTrue)
		})
	})
}

func TestParseEquipment(t *testing.T) {
	convey.Convey("Malformed documents are rejected", t, func() {
		_, err := blizzard.ParseEquipment([]byte(`{"equipped_items": [`))
		convey.So(errors.Is(err, upstream.ErrMalformed), convey.ShouldBeTrue)
	})

	convey.Convey("Documents without items decode to nothing", t, func() {
		items, err := blizzard.ParseEquipment([]byte(`{}`))
		convey.So(err, convey.ShouldBeNil)
		convey.So(items, convey.ShouldBeEmpty)
	})
}
