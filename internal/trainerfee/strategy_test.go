package trainerfee

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salsation/eventfin/internal/tickets"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func bucket(att tickets.Attendance, total, pct string) tickets.Bucket {
	return tickets.Bucket{Attendance: att, PriceTotal: dec(total), TrainerFeePct: dec(pct)}
}

func TestSelect(t *testing.T) {
	assert.Equal(t, StrategyLeadTrainer, Select("Alejandro Angulo", Options{}).Name())
	assert.Equal(t, StrategyStandard, Select("Maria", Options{}).Name())
	assert.Equal(t, StrategyStandard, Select("", Options{}).Name())
}

func TestWeightedAttendedPercentage(t *testing.T) {
	buckets := []tickets.Bucket{
		bucket(tickets.AttendanceAttended, "100", "0.7"),
		bucket(tickets.AttendanceAttended, "300", "0.5"),
		bucket(tickets.AttendanceUnattended, "1000", "0.9"),
	}
	// (100*0.7 + 300*0.5) / 400 * 100
	assert.Equal(t, "55", WeightedAttendedPercentage(buckets).String())
}

func TestWeightedAttendedPercentageDefaultsTo100(t *testing.T) {
	assert.Equal(t, "100", WeightedAttendedPercentage(nil).String())
	buckets := []tickets.Bucket{
		bucket(tickets.AttendanceUnattended, "250", "0.5"),
		bucket(tickets.AttendanceAttended, "0", "0.5"),
	}
	assert.Equal(t, "100", WeightedAttendedPercentage(buckets).String())
}

func TestStandardMarginIdentity(t *testing.T) {
	buckets := []tickets.Bucket{
		bucket(tickets.AttendanceAttended, "2400", "0.7"),
		bucket(tickets.AttendanceAttended, "130", "0.7"),
		bucket(tickets.AttendanceFreeTicket, "0", "0"),
	}

	res := Standard{}.Compute(buckets, decimal.Zero)

	assert.Equal(t, StrategyStandard, res.Strategy)
	assert.True(t, res.OriginalFee.Equal(dec("1771")))
	assert.True(t, res.AdjustedFee.Equal(res.OriginalFee))
	assert.True(t, res.Margin.Equal(res.OriginalFee))
	assert.Equal(t, "70", res.FeePercentage.String())
}

func TestStandardDeductsExpensesAfterPercentage(t *testing.T) {
	buckets := []tickets.Bucket{bucket(tickets.AttendanceAttended, "1000", "0.5")}

	res := Standard{}.Compute(buckets, dec("100"))

	assert.Equal(t, "500", res.OriginalFee.String())
	assert.Equal(t, "400", res.Margin.String())
	assert.Equal(t, "400", res.AdjustedFee.String())
}

func TestStandardTicketFeeOverride(t *testing.T) {
	flat := func(b tickets.Bucket) decimal.Decimal {
		if b.Attended() {
			return dec("10")
		}
		return decimal.Zero
	}
	strategy := Select("Maria", Options{TicketFee: flat})
	buckets := []tickets.Bucket{
		bucket(tickets.AttendanceAttended, "100", "0.7"),
		bucket(tickets.AttendanceAttended, "100", "0.7"),
		bucket(tickets.AttendanceUnattended, "100", "0.7"),
	}

	res := strategy.Compute(buckets, decimal.Zero)

	assert.Equal(t, "20", res.OriginalFee.String())
}

func TestStandardZeroRevenue(t *testing.T) {
	res := Standard{}.Compute(nil, decimal.Zero)
	assert.True(t, res.FeePercentage.IsZero())
	assert.True(t, res.AdjustedFee.IsZero())
}

func TestLeadTrainerAppliesPercentageToMargin(t *testing.T) {
	buckets := []tickets.Bucket{
		bucket(tickets.AttendanceAttended, "100", "0.7"),
		bucket(tickets.AttendanceAttended, "300", "0.5"),
		bucket(tickets.AttendanceUnattended, "100", "0.5"),
	}

	res := LeadTrainer{}.Compute(buckets, dec("100"))

	require.Equal(t, StrategyLeadTrainer, res.Strategy)
	assert.Equal(t, "500", res.OriginalFee.String())
	assert.Equal(t, "55", res.FeePercentage.String())
	assert.Equal(t, "400", res.Margin.String())
	assert.Equal(t, "220", res.AdjustedFee.String())
}

func TestLeadTrainerWithoutAttendedTickets(t *testing.T) {
	buckets := []tickets.Bucket{bucket(tickets.AttendanceUnattended, "200", "0.5")}

	res := LeadTrainer{}.Compute(buckets, dec("50"))

	assert.Equal(t, "100", res.FeePercentage.String())
	assert.Equal(t, "150", res.AdjustedFee.String())
}
