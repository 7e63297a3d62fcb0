package expenses

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows  map[int64]map[int64]Expense
	calls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[int64]map[int64]Expense)}
}

func (f *fakeStore) ListByEvent(_ context.Context, prodID int64) ([]Expense, error) {
	out := make([]Expense, 0)
	for _, e := range f.rows[prodID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowID < out[j].RowID })
	return out, nil
}

func (f *fakeStore) Upsert(_ context.Context, e Expense) (Expense, error) {
	f.calls++
	if f.rows[e.ProdID] == nil {
		f.rows[e.ProdID] = make(map[int64]Expense)
	}
	f.rows[e.ProdID][e.RowID] = e
	return e, nil
}

func (f *fakeStore) Delete(_ context.Context, prodID, rowID int64) error {
	if _, ok := f.rows[prodID][rowID]; !ok {
		return ErrNotFound
	}
	delete(f.rows[prodID], rowID)
	return nil
}

type recordingNotifier struct {
	prodIDs []int64
	err     error
}

func (r *recordingNotifier) Invalidate(_ context.Context, prodID int64) error {
	r.prodIDs = append(r.prodIDs, prodID)
	return r.err
}

func TestTotalSumsAmounts(t *testing.T) {
	rows := []Expense{
		{Amount: decimal.RequireFromString("120.50")},
		{Amount: decimal.RequireFromString("79.50")},
	}
	assert.Equal(t, "200", Total(rows).String())
	assert.True(t, Total(nil).IsZero())
}

func TestServiceSaveIsLastWriteWins(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := NewService(store, nil, notifier)
	ctx := context.Background()

	_, err := svc.Save(ctx, Expense{ProdID: 7, RowID: 1, Description: "Venue", Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = svc.Save(ctx, Expense{ProdID: 7, RowID: 1, Description: "Venue hire", Amount: decimal.NewFromInt(150)})
	require.NoError(t, err)
	_, err = svc.Save(ctx, Expense{ProdID: 7, RowID: 2, Description: "Flights", Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)

	rows, err := svc.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Venue hire", rows[0].Description)

	assert.Equal(t, "200", Total(rows).String())
	assert.Equal(t, []int64{7, 7, 7}, notifier.prodIDs)
}

func TestServiceSaveRejectsInvalidRows(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	cases := map[string]Expense{
		"missing prod":     {RowID: 1, Amount: decimal.NewFromInt(1)},
		"missing row":      {ProdID: 1, Amount: decimal.NewFromInt(1)},
		"long description": {ProdID: 1, RowID: 1, Description: strings.Repeat("x", 256)},
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Save(ctx, e)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
	assert.Zero(t, store.calls)
}

func TestServiceDeleteMissingRow(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewService(newFakeStore(), nil, notifier)

	err := svc.Delete(context.Background(), 1, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, notifier.prodIDs)
}

func TestServiceNotifierFailureDoesNotFailSave(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("redis down")}
	svc := NewService(newFakeStore(), nil, notifier)

	_, err := svc.Save(context.Background(), Expense{ProdID: 3, RowID: 1, Amount: decimal.NewFromInt(10)})
	assert.NoError(t, err)
}
