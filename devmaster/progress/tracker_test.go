package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStreakTransition(t *testing.T) {
	monday := date(2025, 6, 2)

	tests := []struct {
		name        string
		current     int
		longest     int
		last        *time.Time
		day         time.Time
		wantCurrent int
		wantLongest int
		wantChanged bool
	}{
		{
			name:        "first ever completion",
			day:         monday,
			wantCurrent: 1,
			wantLongest: 1,
			wantChanged: true,
		},
		{
			name:        "second completion same day",
			current:     1,
			longest:     1,
			last:        &monday,
			day:         monday.Add(6 * time.Hour),
			wantCurrent: 1,
			wantLongest: 1,
			wantChanged: false,
		},
		{
			name:        "consecutive day extends",
			current:     1,
			longest:     1,
			last:        &monday,
			day:         date(2025, 6, 3),
			wantCurrent: 2,
			wantLongest: 2,
			wantChanged: true,
		},
		{
			name:        "gap resets but keeps longest",
			current:     4,
			longest:     4,
			last:        &monday,
			day:         date(2025, 6, 5),
			wantCurrent: 1,
			wantLongest: 4,
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest, changed := streakTransition(tt.current, tt.longest, tt.last, tt.day)
			assert.Equal(t, tt.wantCurrent, current)
			assert.Equal(t, tt.wantLongest, longest)
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

func TestStreakTransitionSequence(t *testing.T) {
	var last *time.Time
	current, longest := 0, 0

	apply := func(day time.Time) {
		var changed bool
		current, longest, changed = streakTransition(current, longest, last, day)
		if changed {
			d := day
			last = &d
		}
	}

	apply(date(2025, 6, 2))
	apply(date(2025, 6, 3))
	apply(date(2025, 6, 6))

	assert.Equal(t, 1, current)
	assert.Equal(t, 2, longest)
}
