package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/okian/vaultsync/internal/adapters/repository"
	"github.com/okian/vaultsync/internal/adapters/upstream"
	service "github.com/okian/vaultsync/internal/app"
	"github.com/okian/vaultsync/internal/domain/inflight"
	"github.com/okian/vaultsync/internal/domain/model"
	"github.com/okian/vaultsync/internal/domain/types"
	"github.com/okian/vaultsync/internal/domain/vault"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Thursday of week 1; the US reset was Tuesday 2026-03-17 15:00 UTC.
var weekOneThursday = time.Date(2026, 3, 19, 12, 0, 0, 0, time.UTC)

func ms(t time.Time) int64 { return t.UnixMilli() }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeBlizzard struct {
	mu         sync.Mutex
	equipment  upstream.Result[[]model.EquippedItem]
	encounters upstream.Result[[]model.EncounterRecord]
	stats      upstream.Result[model.CharacterStats]
	icon       upstream.Result[string]
	calls      map[string]int
	block      chan struct{}
	entered    chan struct{}
}

func (f *fakeBlizzard) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeBlizzard) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBlizzard) Equipment(_ context.Context, _ model.CharacterKey) upstream.Result[[]model.EquippedItem] {
	f.count("equipment")
	if f.block != nil {
		f.entered <- struct{}{}
		<-f.block
	}
	return f.equipment
}

func (f *fakeBlizzard) Encounters(_ context.Context, _ model.CharacterKey) upstream.Result[[]model.EncounterRecord] {
	f.count("encounters")
	return f.encounters
}

func (f *fakeBlizzard) Statistics(_ context.Context, _ model.CharacterKey) upstream.Result[model.CharacterStats] {
	f.count("statistics")
	return f.stats
}

func (f *fakeBlizzard) ItemIcon(_ context.Context, _ model.Region, _ int) upstream.Result[string] {
	f.count("icon")
	return f.icon
}

type fakeLeaderboard struct {
	profile upstream.Result[model.LeaderboardProfile]
	calls   int
}

func (f *fakeLeaderboard) Profile(_ context.Context, _ model.CharacterKey) upstream.Result[model.LeaderboardProfile] {
	f.calls++
	return f.profile
}

type fakeCombatLog struct {
	kills  upstream.Result[model.CombatLogReport]
	parses upstream.Result[map[string]model.BossParse]
	calls  int
}

func (f *fakeCombatLog) Kills(_ context.Context, _ model.CharacterKey) upstream.Result[model.CombatLogReport] {
	f.calls++
	return f.kills
}

func (f *fakeCombatLog) Parses(_ context.Context, _ model.CharacterKey) upstream.Result[map[string]model.BossParse] {
	return f.parses
}

const raid = "Liberation of Undermine"

func fixtures() (*fakeBlizzard, *fakeLeaderboard, *fakeCombatLog) {
	inWeek := time.Date(2026, 3, 18, 20, 0, 0, 0, time.UTC)
	lastWeek := time.Date(2026, 3, 12, 20, 0, 0, 0, time.UTC)

	bz := &fakeBlizzard{
		equipment: upstream.OK([]model.EquippedItem{
			{SlotType: "HEAD", Level: 639, ItemID: 1, Name: "Crown", Quality: "EPIC", DisplayString: "Hero 4/6"},
			{SlotType: "MAIN_HAND", Level: 645, ItemID: 2, Name: "Big Axe", Quality: "EPIC", InventoryType: "TWOHWEAPON"},
		}),
		encounters: upstream.OK([]model.EncounterRecord{
			{Instance: raid, Difficulty: "HEROIC", Boss: "Vexie", CompletedCount: 4, LastKillTimestamp: ms(inWeek)},
			{Instance: raid, Difficulty: "HEROIC", Boss: "Cauldron", CompletedCount: 2, LastKillTimestamp: ms(lastWeek)},
			{Instance: "Nerub-ar Palace", Difficulty: "MYTHIC", Boss: "Ansurek", CompletedCount: 9, LastKillTimestamp: ms(inWeek)},
		}),
		stats: upstream.OK(model.CharacterStats{Strength: 900, CritPercent: 12.5}),
		icon:  upstream.OK("https://media/axe.jpg"),
	}
	lb := &fakeLeaderboard{profile: upstream.OK(model.LeaderboardProfile{
		MythicPlusScore: 2875.4,
		RaidProgression: map[string]model.RaidProgress{"liberation-of-undermine": {Summary: "8/8 H"}},
		WeeklyRuns:      []model.KeyRun{{Dungeon: "Floodgate", Level: 12}, {Dungeon: "Meadery", Level: 10}},
		GearIcons:       map[model.Slot]model.IconRef{model.SlotHead: {ItemID: 1, URL: "https://icons/crown.jpg"}},
	})}
	cl := &fakeCombatLog{
		kills: upstream.OK(model.CombatLogReport{Kills: []model.CombatLogKill{
			{Boss: "Vexie", Difficulty: "heroic", Timestamp: ms(inWeek)},
			{Boss: "Vexie", Difficulty: "heroic", Timestamp: ms(inWeek.Add(time.Hour))},
			{Boss: "Rik", Difficulty: "heroic", Timestamp: ms(inWeek)},
			{Boss: "Stix", Difficulty: "heroic", Timestamp: ms(lastWeek)},
		}}),
		parses: upstream.OK(map[string]model.BossParse{"Vexie (Heroic)": {Best: 91.5, Kills: 4}}),
	}
	return bz, lb, cl
}

func newService(c *clock, store repository.Store, bz *fakeBlizzard, lb *fakeLeaderboard, cl *fakeCombatLog, extra ...service.Option) *service.Service {
	opts := []service.Option{
		service.WithClock(c.Now),
		service.WithStore(store),
		service.WithGearSource(bz),
		service.WithEncounterSource(bz),
		service.WithStatsSource(bz),
		service.WithIconSource(bz),
		service.WithLeaderboardSource(lb),
		service.WithCombatLogSource(cl),
	}
	return service.New(append(opts, extra...)...)
}

var thrall = model.CharacterKey{Name: "Thrall", Realm: "Area 52", Region: model.RegionUS}

func TestSyncCharacter(t *testing.T) {
	Convey("Given a character synced for the first time on week 1", t, func() {
		ctx := context.Background()
		c := &clock{now: weekOneThursday}
		store := repository.NewMemoryStore()
		bz, lb, cl := fixtures()
		svc := newService(c, store, bz, lb, cl)

		res, err := svc.SyncCharacter(ctx, thrall)
		So(err, ShouldBeNil)

		Convey("Then every source is fetched", func() {
			So(res.RunID, ShouldNotBeEmpty)
			So(res.Week, ShouldEqual, 1)
			for _, src := range []string{"gear", "leaderboard", "encounters", "combat_log", "parses", "stats"} {
				So(res.Sources[src], ShouldEqual, types.SourceOK)
			}
		})

		Convey("Then gear, icons and stats are stored", func() {
			st := res.State
			So(st.ParsedGear[model.SlotHead].Track, ShouldEqual, "Hero")
			So(st.ParsedGear[model.SlotHead].IconURL, ShouldEqual, "https://icons/crown.jpg")
			So(st.ParsedGear[model.SlotMainHand].IconURL, ShouldEqual, "https://media/axe.jpg")
			So(st.ParsedGear[model.SlotOffHand].Name, ShouldEqual, "(2H: Big Axe)")
			So(st.CurrentIlvl, ShouldEqual, 120.6)
			So(st.Stats.Strength, ShouldEqual, 900)
			So(st.MythicPlusScore, ShouldEqual, 2875.4)
			So(st.Parses["Vexie (Heroic)"].Best, ShouldEqual, 91.5)
		})

		Convey("Then the first-sync heuristic and the combat log are reconciled", func() {
			So(res.SnapshotCase, ShouldEqual, "first_sync")
			So(res.Entry.EncounterKills, ShouldResemble, model.KillCounts{Heroic: 1})
			So(res.Entry.CombatLogKills, ShouldResemble, model.KillCounts{Heroic: 2})
			So(res.Entry.RaidKills, ShouldResemble, model.KillCounts{Heroic: 2})
			So(*res.State.RaidSnapshotWeek, ShouldEqual, 1)
			So(res.State.RaidSnapshot.Total(model.DifficultyMythic), ShouldEqual, 0)
		})

		Convey("Then the vault reflects raid and dungeon activity", func() {
			So(res.Vault.Raid[0], ShouldResemble, model.RewardSlot{Unlocked: true, RewardIlvl: 265, Source: "heroic"})
			So(res.Vault.Raid[1].Unlocked, ShouldBeFalse)
			So(res.Vault.Dungeon[0], ShouldResemble, model.RewardSlot{Unlocked: true, RewardIlvl: 278, Source: "+12"})
			So(res.Vault.Dungeon[1].Unlocked, ShouldBeFalse)
			So(res.Vault.World[0], ShouldResemble, model.RewardSlot{Source: "delve"})

			rep := res.Report()
			So(rep.Character, ShouldEqual, "thrall-area 52-us")
			So(rep.TargetItemLevel, ShouldEqual, 250)
			So(rep.KeyLevels, ShouldResemble, []int{12, 10})
		})

		Convey("When syncing again within the cache window", func() {
			c.Advance(30 * time.Minute)
			again, err := svc.SyncCharacter(ctx, thrall)
			So(err, ShouldBeNil)

			Convey("Then cached sources are skipped and their contribution kept", func() {
				So(again.Sources["gear"], ShouldEqual, types.SourceOK)
				So(again.Sources["encounters"], ShouldEqual, types.SourceSkipped)
				So(again.Sources["combat_log"], ShouldEqual, types.SourceSkipped)
				So(again.Sources["leaderboard"], ShouldEqual, types.SourceSkipped)
				So(bz.Calls("encounters"), ShouldEqual, 1)
				So(cl.calls, ShouldEqual, 1)
				So(lb.calls, ShouldEqual, 1)
				So(again.Entry.RaidKills, ShouldResemble, model.KillCounts{Heroic: 2})
				So(again.Vault, ShouldResemble, res.Vault)
			})

			Convey("Then icons already resolved are not looked up again", func() {
				So(bz.Calls("icon"), ShouldEqual, 2)
			})
		})

		Convey("When new kills appear later the same week", func() {
			c.Advance(2 * time.Hour)
			later := c.Now().Add(-10 * time.Minute)
			bz.encounters = upstream.OK([]model.EncounterRecord{
				{Instance: raid, Difficulty: "HEROIC", Boss: "Vexie", CompletedCount: 5, LastKillTimestamp: ms(later)},
				{Instance: raid, Difficulty: "HEROIC", Boss: "Cauldron", CompletedCount: 2},
				{Instance: raid, Difficulty: "HEROIC", Boss: "Rik", CompletedCount: 1, LastKillTimestamp: ms(later)},
				{Instance: raid, Difficulty: "NORMAL", Boss: "Vexie", CompletedCount: 1, LastKillTimestamp: ms(later)},
			})
			cl.kills = upstream.OK(model.CombatLogReport{})

			again, err := svc.SyncCharacter(ctx, thrall)
			So(err, ShouldBeNil)

			Convey("Then kills are diffed against the stored baseline", func() {
				So(again.SnapshotCase, ShouldEqual, "same_week")
				So(again.Entry.EncounterKills, ShouldResemble, model.KillCounts{Heroic: 2, Normal: 1})
				So(again.Entry.CombatLogKills, ShouldResemble, model.KillCounts{})
				So(again.Entry.RaidKills, ShouldResemble, model.KillCounts{Heroic: 2, Normal: 1})
				So(again.Vault.Raid[1], ShouldResemble, model.RewardSlot{})
			})
		})

		Convey("When the next week starts", func() {
			c.Advance(7 * 24 * time.Hour)
			bz.encounters = upstream.OK([]model.EncounterRecord{
				{Instance: raid, Difficulty: "HEROIC", Boss: "Vexie", CompletedCount: 5, LastKillTimestamp: ms(c.Now())},
				{Instance: raid, Difficulty: "HEROIC", Boss: "Cauldron", CompletedCount: 2},
			})
			cl.kills = upstream.OK(model.CombatLogReport{})
			lb.profile = upstream.OK(model.LeaderboardProfile{})

			next, err := svc.SyncCharacter(ctx, thrall)
			So(err, ShouldBeNil)

			Convey("Then the baseline rolls to the new week", func() {
				So(next.Week, ShouldEqual, 2)
				So(next.SnapshotCase, ShouldEqual, "new_week")
				So(next.Entry.EncounterKills, ShouldResemble, model.KillCounts{Heroic: 1})
				So(*next.State.RaidSnapshotWeek, ShouldEqual, 2)
			})

			Convey("Then last week's key runs are not carried over", func() {
				So(next.Entry.MythicPlusRuns, ShouldBeEmpty)
				So(next.Vault.Dungeon[0].Unlocked, ShouldBeFalse)
				old, err := store.Entry(ctx, thrall, 1)
				So(err, ShouldBeNil)
				So(old.MythicPlusRuns, ShouldResemble, []int{12, 10})
			})
		})

		Convey("When sources fail on a later sync", func() {
			c.Advance(7 * time.Hour)
			bz.encounters = upstream.Failed[[]model.EncounterRecord](upstream.ErrUnavailable)
			lb.profile = upstream.Failed[model.LeaderboardProfile](upstream.ErrRateLimited)

			again, err := svc.SyncCharacter(ctx, thrall)

			Convey("Then the sync still succeeds with previous contributions", func() {
				So(err, ShouldBeNil)
				So(again.Sources["encounters"], ShouldEqual, types.SourceError)
				So(again.Sources["leaderboard"], ShouldEqual, types.SourceError)
				So(again.Entry.EncounterKills, ShouldResemble, model.KillCounts{Heroic: 1})
				So(again.Entry.MythicPlusRuns, ShouldResemble, []int{12, 10})
				So(again.State.MythicPlusScore, ShouldEqual, 2875.4)
				So(again.Report().Degraded(), ShouldBeTrue)
			})
		})
	})
}

func TestSyncCharacterWithoutSources(t *testing.T) {
	Convey("Given a service with no sources configured", t, func() {
		c := &clock{now: weekOneThursday}
		svc := service.New(service.WithClock(c.Now))

		res, err := svc.SyncCharacter(context.Background(), model.CharacterKey{Name: "Jaina", Realm: "Proudmoore"})

		Convey("Then every source is disabled and the vault is empty", func() {
			So(err, ShouldBeNil)
			So(res.Key.Region, ShouldEqual, model.RegionUS)
			for _, st := range res.Sources {
				So(st, ShouldEqual, types.SourceDisabled)
			}
			So(res.Vault, ShouldResemble, vault.Calculate(model.NewWeeklyVaultEntry(res.Key, res.Week)))
			So(res.State.CurrentIlvl, ShouldEqual, 0)
		})
	})
}

func TestSyncCharacterKeyRunsAcrossReset(t *testing.T) {
	Convey("Given a new week that has started on the calendar but not yet reset", t, func() {
		ctx := context.Background()
		beforeReset := time.Date(2026, 3, 24, 10, 0, 0, 0, time.UTC)
		lastWeekRun := model.KeyRun{Dungeon: "Floodgate", Level: 10, CompletedAt: time.Date(2026, 3, 22, 20, 0, 0, 0, time.UTC)}

		c := &clock{now: beforeReset}
		bz, lb, cl := fixtures()
		lb.profile = upstream.OK(model.LeaderboardProfile{WeeklyRuns: []model.KeyRun{lastWeekRun}})
		svc := newService(c, repository.NewMemoryStore(), bz, lb, cl)

		res, err := svc.SyncCharacter(ctx, thrall)
		So(err, ShouldBeNil)

		Convey("Then last week's runs are not credited to the new week", func() {
			So(res.Week, ShouldEqual, 2)
			So(res.Entry.MythicPlusRuns, ShouldBeEmpty)
			So(res.Vault.Dungeon[0].Unlocked, ShouldBeFalse)
		})

		Convey("When the leaderboard is empty after the reset", func() {
			c.Advance(7 * time.Hour)
			lb.profile = upstream.OK(model.LeaderboardProfile{})

			after, err := svc.SyncCharacter(ctx, thrall)

			Convey("Then the dungeon slots stay locked", func() {
				So(err, ShouldBeNil)
				So(after.Sources["leaderboard"], ShouldEqual, types.SourceOK)
				So(after.Entry.MythicPlusRuns, ShouldBeEmpty)
				So(after.Vault.Dungeon[0].Unlocked, ShouldBeFalse)
			})
		})

		Convey("When a run is completed after the reset", func() {
			c.Advance(7 * time.Hour)
			fresh := model.KeyRun{Dungeon: "Meadery", Level: 11, CompletedAt: time.Date(2026, 3, 24, 16, 0, 0, 0, time.UTC)}
			lb.profile = upstream.OK(model.LeaderboardProfile{WeeklyRuns: []model.KeyRun{fresh, lastWeekRun}})

			after, err := svc.SyncCharacter(ctx, thrall)

			Convey("Then only that run counts", func() {
				So(err, ShouldBeNil)
				So(after.Entry.MythicPlusRuns, ShouldResemble, []int{11})
				So(after.Vault.Dungeon[0], ShouldResemble, model.RewardSlot{Unlocked: true, RewardIlvl: 278, Source: "+11"})
			})
		})
	})
}

func TestSyncCharacterBossCap(t *testing.T) {
	Convey("Given a combat log that over-reports and a boss cap", t, func() {
		c := &clock{now: weekOneThursday}
		bz, lb, cl := fixtures()
		kills := make([]model.CombatLogKill, 0, 12)
		for _, b := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
			kills = append(kills, model.CombatLogKill{Boss: b, Difficulty: "normal", Timestamp: ms(weekOneThursday.Add(-time.Hour))})
		}
		cl.kills = upstream.OK(model.CombatLogReport{Kills: kills})
		svc := newService(c, repository.NewMemoryStore(), bz, lb, cl,
			service.WithReconciler(vault.NewReconciler(vault.WithBossCap(8))))

		res, err := svc.SyncCharacter(context.Background(), thrall)

		Convey("Then the merged count is clamped", func() {
			So(err, ShouldBeNil)
			So(res.Entry.CombatLogKills.Normal, ShouldEqual, 12)
			So(res.Entry.RaidKills.Normal, ShouldEqual, 8)
		})
	})
}

func TestSyncCharacterInFlight(t *testing.T) {
	Convey("Given a sync blocked inside a source", t, func() {
		c := &clock{now: weekOneThursday}
		bz, lb, cl := fixtures()
		bz.block = make(chan struct{})
		bz.entered = make(chan struct{}, 1)
		svc := newService(c, repository.NewMemoryStore(), bz, lb, cl,
			service.WithGuard(inflight.NewInMemoryGuard()))

		var wg sync.WaitGroup
		var firstErr error
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, firstErr = svc.SyncCharacter(context.Background(), thrall)
		}()
		<-bz.entered

		Convey("When the same character is synced concurrently", func() {
			_, err := svc.SyncCharacter(context.Background(), thrall)
			close(bz.block)
			wg.Wait()

			Convey("Then the second sync is rejected and the first completes", func() {
				So(errors.Is(err, inflight.ErrSyncInProgress), ShouldBeTrue)
				So(firstErr, ShouldBeNil)
			})
		})
	})
}

func TestSyncBatch(t *testing.T) {
	Convey("Given a roster of two characters", t, func() {
		c := &clock{now: weekOneThursday}
		bz, lb, cl := fixtures()
		store := repository.NewMemoryStore()
		svc := newService(c, store, bz, lb, cl)
		roster := []model.CharacterKey{thrall, {Name: "Jaina", Realm: "Draenor", Region: model.RegionEU}}

		Convey("When the batch runs", func() {
			batch, err := svc.SyncBatch(context.Background(), roster)

			Convey("Then both are synced in order", func() {
				So(err, ShouldBeNil)
				So(batch.Succeeded, ShouldEqual, 2)
				So(batch.Reports[0].Character, ShouldEqual, "thrall-area 52-us")
				So(batch.Reports[1].Character, ShouldEqual, "jaina-draenor-eu")
				So(store.Count(context.Background()), ShouldEqual, 2)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			batch, err := svc.SyncBatch(ctx, roster)

			Convey("Then nothing is synced", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(batch.Reports, ShouldBeEmpty)
			})
		})
	})
}

func TestRecordDelves(t *testing.T) {
	Convey("Given a character with recorded delves", t, func() {
		c := &clock{now: weekOneThursday}
		bz, lb, cl := fixtures()
		svc := newService(c, repository.NewMemoryStore(), bz, lb, cl)
		ctx := context.Background()

		result, err := svc.RecordDelves(ctx, thrall, 5, 8, 0, 3)
		So(err, ShouldBeNil)

		Convey("Then the world slot uses the highest tier", func() {
			So(result.World[0], ShouldResemble, model.RewardSlot{Unlocked: true, RewardIlvl: 255, Source: "Delve T8"})
		})

		Convey("Then a later sync keeps the delves", func() {
			res, err := svc.SyncCharacter(ctx, thrall)
			So(err, ShouldBeNil)
			So(res.Entry.DelveRuns, ShouldResemble, []int{5, 8, 3})
			So(res.Vault.World[0].Source, ShouldEqual, "Delve T8")
		})
	})
}

func TestStartStop(t *testing.T) {
	Convey("Given a service backed by a state file", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "state.cbor")
		c := &clock{now: weekOneThursday}
		bz, lb, cl := fixtures()

		svc := newService(c, repository.NewMemoryStore(repository.WithStateFile(path)), bz, lb, cl)
		So(svc.Start(ctx), ShouldBeNil)
		_, err := svc.SyncCharacter(ctx, thrall)
		So(err, ShouldBeNil)
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("When a new process starts from the same file", func() {
			c.Advance(time.Hour + time.Minute)
			bz2, lb2, cl2 := fixtures()
			restarted := newService(c, repository.NewMemoryStore(repository.WithStateFile(path)), bz2, lb2, cl2)
			So(restarted.Start(ctx), ShouldBeNil)
			defer func() { _ = restarted.Stop(ctx) }()

			res, err := restarted.SyncCharacter(ctx, thrall)

			Convey("Then the stored baseline is diffed instead of re-estimated", func() {
				So(err, ShouldBeNil)
				So(res.SnapshotCase, ShouldEqual, "same_week")
				So(res.Entry.EncounterKills, ShouldResemble, model.KillCounts{})
				So(res.Entry.RaidKills, ShouldResemble, model.KillCounts{Heroic: 2})
			})
		})
	})
}
