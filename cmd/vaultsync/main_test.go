package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/vaultsync/internal/config"
	"github.com/okian/vaultsync/internal/domain/types"
	"github.com/okian/vaultsync/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const profileJSON = `{
  "mythic_plus_scores_by_season": [{"scores": {"all": 2875.4}}],
  "raid_progression": {"liberation-of-undermine": {"summary": "8/8 H"}},
  "mythic_plus_weekly_highest_level_runs": [
    {"dungeon": "Operation: Floodgate", "mythic_level": 12},
    {"dungeon": "Cinderbrew Meadery", "mythic_level": 10}
  ],
  "gear": {"items": {}}
}`

func testConfig(t *testing.T, leaderboardURL string) *config.Config {
	cfg := config.New()
	cfg.RaiderIO.BaseURL = leaderboardURL
	cfg.RetryMax = 0
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = time.Millisecond
	cfg.Roster = "Thrall-Draenor-eu"
	cfg.StateFile = filepath.Join(t.TempDir(), "state.cbor")
	return cfg
}

func TestRun(t *testing.T) {
	convey.Convey("Given a roster and only the leaderboard source reachable", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("name") != "Thrall" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(profileJSON))
		}))
		defer srv.Close()

		cfg := testConfig(t, srv.URL)
		cfg.MetricsTextfile = filepath.Join(t.TempDir(), "vaultsync.prom")
		ctx := context.Background()

		convey.Convey("When the batch runs", func() {
			var out bytes.Buffer
			err := run(ctx, cfg, logger.Nop(), &out)
			convey.So(err, convey.ShouldBeNil)

			var batch types.BatchReport
			convey.So(json.Unmarshal(out.Bytes(), &batch), convey.ShouldBeNil)

			convey.Convey("Then the report covers the character", func() {
				convey.So(batch.Succeeded, convey.ShouldEqual, 1)
				convey.So(batch.Reports, convey.ShouldHaveLength, 1)
				rep := batch.Reports[0]
				convey.So(rep.Character, convey.ShouldEqual, "thrall-draenor-eu")
				convey.So(rep.MythicPlusScore, convey.ShouldEqual, 2875.4)
				convey.So(rep.KeyLevels, convey.ShouldResemble, []int{12, 10})
				convey.So(rep.Vault.Dungeon[0].Source, convey.ShouldEqual, "+12")
			})

			convey.Convey("Then sources without credentials are disabled", func() {
				rep := batch.Reports[0]
				convey.So(rep.Sources["leaderboard"], convey.ShouldEqual, types.SourceOK)
				convey.So(rep.Sources["gear"], convey.ShouldEqual, types.SourceDisabled)
				convey.So(rep.Sources["encounters"], convey.ShouldEqual, types.SourceDisabled)
				convey.So(rep.Sources["combat_log"], convey.ShouldEqual, types.SourceDisabled)
			})

			convey.Convey("Then the state and metrics files are written", func() {
				_, err := os.Stat(cfg.StateFile)
				convey.So(err, convey.ShouldBeNil)
				_, err = os.Stat(cfg.MetricsTextfile)
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a character is unknown upstream", func() {
			cfg.Roster = "Nobody-Draenor-eu"
			var out bytes.Buffer
			err := run(ctx, cfg, logger.Nop(), &out)

			convey.Convey("Then the sync succeeds with no leaderboard data", func() {
				convey.So(err, convey.ShouldBeNil)
				var batch types.BatchReport
				convey.So(json.Unmarshal(out.Bytes(), &batch), convey.ShouldBeNil)
				convey.So(batch.Reports[0].Sources["leaderboard"], convey.ShouldEqual, types.SourceNoData)
			})
		})

		convey.Convey("When the roster is empty", func() {
			cfg.Roster = ""
			err := run(ctx, cfg, logger.Nop(), &bytes.Buffer{})
			convey.So(errors.Is(err, errNoCharacters), convey.ShouldBeTrue)
		})

		convey.Convey("When the roster is malformed", func() {
			cfg.Roster = "Thrall"
			err := run(ctx, cfg, logger.Nop(), &bytes.Buffer{})
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given credentials for every source", t, func() {
		cfg := testConfig(t, "http://127.0.0.1:0")
		cfg.Blizzard.Token = "bz"
		cfg.WarcraftLogs.Token = "wcl"

		convey.Convey("Then the service should be creatable", func() {
			convey.So(buildService(cfg, logger.Nop()), convey.ShouldNotBeNil)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the metrics registry", t, func() {
		convey.Convey("Then system metrics update without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
