package tickets

import (
	"strings"

	"github.com/shopspring/decimal"
)

// bucketKey separates an absent tier from an explicit "Standard" one: only the latter is
// eligible for grace price conversion.
type bucketKey struct {
	attendance Attendance
	payment    PaymentMethod
	tier       string
	hasTier    bool
	price      string
}

func keyOf(row RawTicketRow) bucketKey {
	k := bucketKey{
		attendance: row.Attendance,
		payment:    row.PaymentMethod,
		price:      row.UnitPrice.Round(2).StringFixed(2),
	}
	if row.TierLevel != nil {
		k.tier = *row.TierLevel
		k.hasTier = true
	}
	return k
}

// Aggregate groups rows into buckets, preserving the order in which each key first appears.
// The unit price of a bucket is the one on its first row.
func Aggregate(rows []RawTicketRow) []Bucket {
	buckets := make([]Bucket, 0)
	index := make(map[bucketKey]int, len(rows))
	for _, row := range rows {
		key := keyOf(row)
		if i, ok := index[key]; ok {
			buckets[i].Quantity += row.Quantity
			continue
		}
		index[key] = len(buckets)
		buckets = append(buckets, Bucket{
			Attendance:    row.Attendance,
			PaymentMethod: row.PaymentMethod,
			TierLevel:     cloneTier(row.TierLevel),
			UnitPrice:     row.UnitPrice,
			Quantity:      row.Quantity,
			TrainerFeePct: decimal.Zero,
			Currency:      CurrencyEUR,
		})
	}
	for i := range buckets {
		buckets[i].Reprice(buckets[i].UnitPrice, buckets[i].Currency)
	}
	return buckets
}

func cloneTier(tier *string) *string {
	if tier == nil {
		return nil
	}
	v := strings.Clone(*tier)
	return &v
}

// Revenue sums PriceTotal across buckets.
func Revenue(buckets []Bucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.PriceTotal)
	}
	return total
}
