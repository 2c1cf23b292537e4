package app

import (
	"time"

	"github.com/greeeen013/QuizApp/internal/domain"
	"github.com/greeeen013/QuizApp/internal/store"
)

const dayFormat = "2006-01-02"

// Streak maintains the daily-completion streak, including freezer-based gap
// recovery. All accounting is in local calendar days.
type Streak struct {
	store *store.Store
	clock func() time.Time
}

// StreakOption configures a Streak.
type StreakOption func(*Streak)

// WithStreakClock injects a deterministic clock for tests.
func WithStreakClock(now func() time.Time) StreakOption {
	return func(s *Streak) { s.clock = now }
}

func NewStreak(st *store.Store, opts ...StreakOption) *Streak {
	s := &Streak{store: st, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func dayString(t time.Time) string {
	return t.Format(dayFormat)
}

func parseDay(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(dayFormat, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Complete records a quiz completion for today. Completing twice on the same
// calendar day is a no-op, so the streak never double-increments.
func (s *Streak) Complete() error {
	now := s.clock()
	today := dayString(now)
	yesterday := dayString(now.AddDate(0, 0, -1))
	return s.store.Update(func(st *domain.State) {
		streak := &st.Streak
		if streak.LastCompletedDate == today {
			return
		}
		if streak.LastCompletedDate == yesterday {
			streak.CurrentStreak++
		} else {
			streak.CurrentStreak = 1
		}
		streak.LastCompletedDate = today
		if streak.History == nil {
			streak.History = map[string]domain.DayStatus{}
		}
		streak.History[today] = domain.DayCompleted
	})
}

// CheckGap runs the initialization gap check. If the last completion is older
// than yesterday it walks every missed day in the gap: enough freezers cover
// the whole gap (one per day, each day marked freezed, lastCompletedDate
// advanced to yesterday); otherwise the streak is lost and freezers are kept.
// The app may stay closed for several days, so the walk covers arbitrarily
// long gaps, never a one-day lookback.
func (s *Streak) CheckGap() error {
	now := s.clock()
	today := dayString(now)
	yesterday := dayString(now.AddDate(0, 0, -1))
	return s.store.Update(func(st *domain.State) {
		streak := &st.Streak
		if streak.LastCompletedDate == "" || streak.LastCompletedDate == today || streak.LastCompletedDate == yesterday {
			return
		}
		last, ok := parseDay(streak.LastCompletedDate)
		if !ok {
			return
		}

		// Count the full calendar days strictly between last and today by
		// stepping day-by-day; date arithmetic stays DST-safe this way.
		var missed []string
		for d := last.AddDate(0, 0, 1); d.Before(now) && dayString(d) != today; d = d.AddDate(0, 0, 1) {
			missed = append(missed, dayString(d))
		}
		if len(missed) == 0 {
			return
		}

		if streak.Freezers >= len(missed) {
			streak.Freezers -= len(missed)
			if streak.History == nil {
				streak.History = map[string]domain.DayStatus{}
			}
			for _, day := range missed {
				streak.History[day] = domain.DayFreezed
			}
			streak.LastCompletedDate = yesterday
		} else {
			streak.CurrentStreak = 0
		}
	})
}

// PurchaseFreezer debits the fixed diamond cost and adds one freezer.
func (s *Streak) PurchaseFreezer() error {
	var opErr error
	err := s.store.Update(func(st *domain.State) {
		if st.Streak.Freezers >= domain.FreezerCap {
			opErr = domain.ErrFreezersFull
			return
		}
		if st.Diamonds < domain.FreezerCost {
			opErr = domain.ErrNotEnoughDiamonds
			return
		}
		st.Diamonds -= domain.FreezerCost
		st.Streak.Freezers++
	})
	if err != nil {
		return err
	}
	return opErr
}

// Data returns the current streak record for read-only collaborators such as
// the reminder scheduler.
func (s *Streak) Data() (domain.StreakData, error) {
	var out domain.StreakData
	err := s.store.View(func(st *domain.State) {
		out = st.Streak
		out.History = make(map[string]domain.DayStatus, len(st.Streak.History))
		for k, v := range st.Streak.History {
			out.History[k] = v
		}
	})
	return out, err
}
