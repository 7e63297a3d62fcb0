package feeparam

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/tickets"
)

func TestKeyString(t *testing.T) {
	key := Key{Program: event.ProgramSalsation, Category: event.CategoryWorkshops, Venue: "Online", Attendance: tickets.AttendanceAttended}
	assert.Equal(t, "Salsation-Workshops-Online-Attended", key.String())
}

func TestResolveIsExactAndCaseSensitive(t *testing.T) {
	snap := NewSnapshot([]FeeParam{
		{Key: "Salsation-Workshops-Online-Attended", Percent: decimal.NewFromInt(70)},
	})

	pct, ok := snap.Resolve(Key{Program: event.ProgramSalsation, Category: event.CategoryWorkshops, Venue: "Online", Attendance: tickets.AttendanceAttended})
	require.True(t, ok)
	assert.True(t, pct.Equal(decimal.NewFromInt(70)))

	pct, ok = snap.Resolve(Key{Program: event.ProgramSalsation, Category: event.CategoryWorkshops, Venue: "online", Attendance: tickets.AttendanceAttended})
	assert.False(t, ok)
	assert.True(t, pct.IsZero())
}

func TestResolveIsPure(t *testing.T) {
	snap := NewSnapshot([]FeeParam{{Key: "Kid-Seminar-Berlin-Attended", Percent: decimal.RequireFromString("55.5")}})
	key := Key{Program: event.ProgramKid, Category: event.CategorySeminar, Venue: "Berlin", Attendance: tickets.AttendanceAttended}

	first, _ := snap.Resolve(key)
	for i := 0; i < 10; i++ {
		again, ok := snap.Resolve(key)
		require.True(t, ok)
		assert.True(t, first.Equal(again))
	}
}

func TestResolverApplyReportsMisses(t *testing.T) {
	var missing []string
	resolver := Resolver{
		Snapshot:  NewSnapshot([]FeeParam{{Key: "Salsation-Instructor training-Madrid-Attended", Percent: decimal.NewFromInt(70)}}),
		OnMissing: func(k Key) { missing = append(missing, k.String()) },
	}
	ev := event.Event{ProdName: "Salsation Instructor Training", Venue: "Madrid"}
	buckets := []tickets.Bucket{
		{Attendance: tickets.AttendanceAttended},
		{Attendance: tickets.AttendanceUnattended},
	}

	resolver.Apply(ev, buckets)

	assert.Equal(t, "0.7", buckets[0].TrainerFeePct.String())
	assert.True(t, buckets[1].TrainerFeePct.IsZero())
	assert.Equal(t, []string{"Salsation-Instructor training-Madrid-Unattended"}, missing)
}

func TestSnapshotParamsAreOrderedByKey(t *testing.T) {
	snap := NewSnapshot([]FeeParam{
		{Key: "Salsation-Workshops-Online-Attended", Percent: decimal.NewFromInt(70)},
		{Key: "Kid-Seminar-Berlin-Attended", Percent: decimal.NewFromInt(50)},
	})

	params := snap.Params()

	require.Len(t, params, 2)
	assert.Equal(t, "Kid-Seminar-Berlin-Attended", params[0].Key)
	assert.Equal(t, "Salsation-Workshops-Online-Attended", params[1].Key)
}
