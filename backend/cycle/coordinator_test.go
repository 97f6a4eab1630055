package cycle

import (
	"cactus/backend/models"
	"cactus/backend/store"
	"cactus/backend/utils"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store store.Store
	clock *ManualClock
	coord *Coordinator
}

func newFixture(t *testing.T, s store.Store) *fixture {
	t.Helper()
	clock := NewManualClock(start)
	return &fixture{
		store: s,
		clock: clock,
		coord: NewCoordinator(s, clock, Options{AllowTestReset: true}),
	}
}

// seedProgress creates the user's record at start with the given standing.
func (f *fixture) seedProgress(t *testing.T, moodScore, streak int) {
	t.Helper()
	ctx := context.Background()
	_, _, err := f.store.EnsureProgress(ctx, "u1", "u1@example.com", start)
	require.NoError(t, err)
	require.NoError(t, f.store.Transact(ctx, func(tx store.Tx) error {
		p, err := tx.GetProgress(ctx, "u1")
		if err != nil {
			return err
		}
		p.MoodScore = moodScore
		p.AllTimeCompletedCount = moodScore
		p.CurrentStreakCount = streak
		p.LongestStreakCount = streak
		mood := models.MoodTired
		p.CurrentMood = &mood
		p.DailyMoodChecks = 2
		p.DailyAISplits = 4
		p.AIScheduleUses = 1
		p.IsLocked = true
		return tx.SaveProgress(ctx, p)
	}))
}

func (f *fixture) addTask(t *testing.T, title string, offset time.Duration, completed bool) models.Task {
	t.Helper()
	ctx := context.Background()
	task := models.Task{UserID: "u1", Title: title, CreatedAt: start.Add(offset)}
	require.NoError(t, f.store.CreateTask(ctx, &task))
	if completed {
		_, err := f.store.CompleteTask(ctx, "u1", task.ID, start.Add(offset+time.Minute))
		require.NoError(t, err)
		// completing bumps the score; the fixtures set scores explicitly
		require.NoError(t, f.store.Transact(ctx, func(tx store.Tx) error {
			p, err := tx.GetProgress(ctx, "u1")
			if err != nil {
				return err
			}
			p.MoodScore--
			return tx.SaveProgress(ctx, p)
		}))
	}
	return task
}

func stores() map[string]func(t *testing.T) store.Store {
	return map[string]func(t *testing.T) store.Store{
		"memory": func(*testing.T) store.Store { return store.NewMemoryStore() },
		"gorm": func(t *testing.T) store.Store {
			db, err := utils.OpenTestDB(uuid.NewString())
			require.NoError(t, err)
			return store.NewGormStore(db)
		},
	}
}

func TestCheckAndResetFirstRunCreatesRecord(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore())

	res, err := f.coord.CheckAndReset(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, res.ResetPerformed)
	assert.True(t, res.NextCycleStart.Equal(start.Add(24*time.Hour)))

	p, err := f.store.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, p.CycleStart.Equal(start))
}

func TestCheckAndResetNotDueYet(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore())
	f.seedProgress(t, 10, 2)
	f.clock.Advance(23*time.Hour + 59*time.Minute)

	res, err := f.coord.CheckAndReset(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, res.ResetPerformed)
	assert.Nil(t, res.Summary)
	assert.True(t, res.NextCycleStart.Equal(start.Add(24*time.Hour)))
}

func TestCheckAndResetScenarios(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name+"/mixed cycle", func(t *testing.T) {
			f := newFixture(t, newStore(t))
			f.seedProgress(t, 20, 4)
			var completed []models.Task
			for _, title := range []string{"run", "read", "cook"} {
				completed = append(completed, f.addTask(t, title, time.Hour, true))
			}
			incomplete := []models.Task{
				f.addTask(t, "taxes", 2*time.Hour, false),
				f.addTask(t, "dentist", 3*time.Hour, false),
			}
			f.clock.Advance(24 * time.Hour)

			res, err := f.coord.CheckAndReset(context.Background(), "u1")
			require.NoError(t, err)
			require.True(t, res.ResetPerformed)
			require.NotNil(t, res.Summary)
			assert.Equal(t, 5, res.Summary.TotalTasks)
			assert.Equal(t, 3, res.Summary.CompletedCount)
			assert.ElementsMatch(t, []string{"taxes", "dentist"}, res.Summary.IncompleteTitles)
			assert.Equal(t, "u1@example.com", res.Email)

			p, err := f.store.GetProgress(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, 18, p.MoodScore)
			assert.Equal(t, models.TierHigh, DefaultTiers.TierFor(p.MoodScore))
			assert.Equal(t, 5, p.CurrentStreakCount)
			assert.Equal(t, 5, p.LongestStreakCount)
			assertCountersCleared(t, p)
			assert.True(t, p.CycleStart.Equal(f.clock.Now()))

			tasks, err := f.store.ListTasks(context.Background(), "u1", true)
			require.NoError(t, err)
			byID := map[string]models.Task{}
			for _, task := range tasks {
				byID[task.ID] = task
			}
			for _, task := range completed {
				require.Contains(t, byID, task.ID)
				assert.True(t, byID[task.ID].Archived)
				assert.True(t, models.HasArchiveMarker(byID[task.ID].Title))
			}
			for _, task := range incomplete {
				assert.NotContains(t, byID, task.ID)
			}
		})

		t.Run(name+"/broken streak", func(t *testing.T) {
			f := newFixture(t, newStore(t))
			f.seedProgress(t, 6, 10)
			f.addTask(t, "inbox zero", time.Hour, false)
			f.clock.Advance(30 * time.Hour)

			res, err := f.coord.CheckAndReset(context.Background(), "u1")
			require.NoError(t, err)
			require.True(t, res.ResetPerformed)

			p, err := f.store.GetProgress(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, 5, p.MoodScore)
			assert.Equal(t, models.TierMid, DefaultTiers.TierFor(p.MoodScore))
			assert.Equal(t, 0, p.CurrentStreakCount)
			assert.Equal(t, 10, p.LongestStreakCount)

			tasks, err := f.store.ListTasks(context.Background(), "u1", true)
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}

func TestCheckAndResetTwiceResetsOnce(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, newStore(t))
			f.seedProgress(t, 8, 1)
			f.addTask(t, "walk", time.Hour, true)
			f.clock.Advance(26 * time.Hour)

			first, err := f.coord.CheckAndReset(context.Background(), "u1")
			require.NoError(t, err)
			second, err := f.coord.CheckAndReset(context.Background(), "u1")
			require.NoError(t, err)

			assert.True(t, first.ResetPerformed)
			assert.False(t, second.ResetPerformed)
			assert.True(t, first.NextCycleStart.Equal(second.NextCycleStart))

			p, err := f.store.GetProgress(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, 2, p.CurrentStreakCount)
		})
	}
}

func TestConcurrentTriggersResetOnce(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore())
	f.seedProgress(t, 12, 3)
	f.addTask(t, "done", time.Hour, true)
	f.addTask(t, "not done", time.Hour, false)
	f.clock.Advance(24 * time.Hour)

	const callers = 16
	results := make([]Result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.coord.CheckAndReset(context.Background(), "u1")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	performed := 0
	for _, res := range results {
		if res.ResetPerformed {
			performed++
		}
		assert.True(t, res.NextCycleStart.Equal(f.clock.Now().Add(24*time.Hour)))
	}
	assert.Equal(t, 1, performed)

	p, err := f.store.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, p.CurrentStreakCount)
	assert.Equal(t, 11, p.MoodScore, "penalty applied exactly once")
}

// failingStore fails SaveProgress inside transactions while failSave is set.
type failingStore struct {
	store.Store
	failSave bool
}

type failingTx struct {
	store.Tx
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) Transact(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.Transact(ctx, func(tx store.Tx) error {
		if s.failSave {
			return fn(failingTx{tx})
		}
		return fn(tx)
	})
}

func (failingTx) SaveProgress(context.Context, *models.UserProgress) error {
	return errDiskFull
}

func TestFailedResetLeavesNothingBehindAndRetries(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			fs := &failingStore{Store: newStore(t)}
			f := newFixture(t, fs)
			f.seedProgress(t, 9, 2)
			done := f.addTask(t, "done", time.Hour, true)
			f.addTask(t, "open", time.Hour, false)
			f.clock.Advance(25 * time.Hour)

			fs.failSave = true
			res, err := f.coord.CheckAndReset(context.Background(), "u1")
			assert.ErrorIs(t, err, errDiskFull)
			assert.False(t, res.ResetPerformed)

			p, err := fs.GetProgress(context.Background(), "u1")
			require.NoError(t, err)
			assert.True(t, p.CycleStart.Equal(start), "claim rolled back")
			assert.Equal(t, 2, p.CurrentStreakCount)
			tasks, err := fs.ListTasks(context.Background(), "u1", true)
			require.NoError(t, err)
			assert.Len(t, tasks, 2)
			for _, task := range tasks {
				assert.False(t, task.Archived)
			}

			fs.failSave = false
			res, err = f.coord.CheckAndReset(context.Background(), "u1")
			require.NoError(t, err)
			assert.True(t, res.ResetPerformed)

			tasks, err = fs.ListTasks(context.Background(), "u1", true)
			require.NoError(t, err)
			require.Len(t, tasks, 1)
			assert.Equal(t, done.ID, tasks[0].ID)
			assert.True(t, tasks[0].Archived)
		})
	}
}

func TestTaskCreatedAfterClaimStaysInNewCycle(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore())
	f.seedProgress(t, 0, 0)
	f.clock.Advance(24 * time.Hour)
	late := f.addTask(t, "tomorrow", 24*time.Hour, false)

	res, err := f.coord.CheckAndReset(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, res.ResetPerformed)
	assert.Equal(t, 0, res.Summary.TotalTasks)

	tasks, err := f.store.ListTasks(context.Background(), "u1", false)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, late.ID, tasks[0].ID)
}

func TestResetNow(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore())
	f.seedProgress(t, 5, 1)
	f.addTask(t, "quick win", time.Hour, true)
	f.clock.Advance(2 * time.Hour)

	res, err := f.coord.ResetNow(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, res.ResetPerformed)
	assert.Equal(t, 1, res.Summary.CompletedCount)

	disabled := NewCoordinator(f.store, f.clock, Options{})
	_, err = disabled.ResetNow(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrTestResetDisabled)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore())
	f.seedProgress(t, 16, 3)
	f.clock.Advance(18 * time.Hour)

	st, err := f.coord.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, st.Due)
	assert.Equal(t, 6.0, st.HoursRemaining)
	assert.Equal(t, models.TierHigh, st.MoodTier)
	assert.Equal(t, "happy", st.Face)

	f.clock.Advance(7 * time.Hour)
	st, err = f.coord.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, st.Due)
	assert.Equal(t, 0.0, st.HoursRemaining)
}

func TestSweepResetsOnlyDueUsers(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	clock := NewManualClock(start)
	coord := NewCoordinator(s, clock, Options{})

	_, _, err := s.EnsureProgress(ctx, "early", "", start)
	require.NoError(t, err)
	_, _, err = s.EnsureProgress(ctx, "late", "", start.Add(12*time.Hour))
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)

	performed, err := coord.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, performed, 1)
	assert.Equal(t, "early", performed[0].UserID)
}

func assertCountersCleared(t *testing.T, p *models.UserProgress) {
	t.Helper()
	assert.Nil(t, p.CurrentMood)
	assert.Zero(t, p.DailyMoodChecks)
	assert.Zero(t, p.DailyAISplits)
	assert.Zero(t, p.AIScheduleUses)
	assert.False(t, p.IsLocked)
	require.NotNil(t, p.LastResetAt)
}

func TestStrayTaskIsClosedByNextReset(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, newStore(t))
			f.seedProgress(t, 3, 0)
			f.clock.Advance(24 * time.Hour)

			res, err := f.coord.CheckAndReset(context.Background(), "u1")
			require.NoError(t, err)
			require.True(t, res.ResetPerformed)

			// stamped before the claim, committed after the reset read the cycle
			stray := f.addTask(t, "slow insert", 24*time.Hour-time.Second, false)
			f.clock.Advance(24 * time.Hour)

			res, err = f.coord.CheckAndReset(context.Background(), "u1")
			require.NoError(t, err)
			require.True(t, res.ResetPerformed)
			assert.Equal(t, []string{stray.Title}, res.Summary.IncompleteTitles)

			tasks, err := f.store.ListTasks(context.Background(), "u1", true)
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}
