package stats

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersense/ledgersense/internal/profile"
	"github.com/ledgersense/ledgersense/server/internal/errors"
	"github.com/ledgersense/ledgersense/store"
)

type stubDriver struct {
	store.Driver

	transactions []*store.Transaction
	listCalls    int
}

func (s *stubDriver) GetDB() *sql.DB { return nil }
func (s *stubDriver) Close() error   { return nil }

func (s *stubDriver) ListTransactions(ctx context.Context, find *store.FindTransaction) ([]*store.Transaction, error) {
	s.listCalls++

	list := []*store.Transaction{}
	for _, txn := range s.transactions {
		if txn.UserID != find.UserID {
			continue
		}
		if find.DateFrom != nil && txn.Date.Before(*find.DateFrom) {
			continue
		}
		if find.DateTo != nil && txn.Date.After(*find.DateTo) {
			continue
		}
		list = append(list, txn)
	}
	return list, nil
}

func newTestAggregator(transactions []*store.Transaction) (*Aggregator, *stubDriver) {
	driver := &stubDriver{transactions: transactions}
	prof := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: ":memory:"}
	return NewAggregator(store.New(driver, prof)), driver
}

func sampleTransactions() []*store.Transaction {
	july := time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)
	august := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)
	return []*store.Transaction{
		{ID: "a", UserID: 1, Date: july, AmountCents: -1000, Category: "dining", MerchantName: "Cafe Uno"},
		{ID: "b", UserID: 1, Date: july.AddDate(0, 0, 1), AmountCents: -3000, Category: "dining", MerchantName: "Cafe Uno"},
		{ID: "c", UserID: 1, Date: august, AmountCents: -5000, Category: "groceries", MerchantName: "Market"},
		{ID: "d", UserID: 1, Date: august.AddDate(0, 0, 2), AmountCents: 200000, Category: "income", MerchantName: "Payroll"},
	}
}

func TestAggregateByCategory(t *testing.T) {
	agg, _ := newTestAggregator(sampleTransactions())

	result, err := agg.Aggregate(context.Background(), &AggregateRequest{
		UserID:      1,
		Granularity: GranularityCategory,
	})
	require.NoError(t, err)
	require.Len(t, result.Buckets, 3)

	// Ordered by absolute sum descending.
	assert.Equal(t, "income", result.Buckets[0].Key)
	assert.Equal(t, int64(200000), result.Buckets[0].SumCents)

	byKey := map[string]Bucket{}
	for _, b := range result.Buckets {
		byKey[b.Key] = b
	}
	dining := byKey["dining"]
	assert.Equal(t, 2, dining.Count)
	assert.Equal(t, int64(-4000), dining.SumCents)
	assert.Equal(t, int64(-2000), dining.AvgCents)

	require.Len(t, result.Timeline, 2)
	assert.Equal(t, "2026-07", result.Timeline[0].Month)
	assert.Equal(t, int64(-4000), result.Timeline[0].SumCents)
	assert.Equal(t, "2026-08", result.Timeline[1].Month)
	assert.Equal(t, 2, result.Timeline[1].Count)
}

func TestAggregateByMerchantAndMonth(t *testing.T) {
	agg, _ := newTestAggregator(sampleTransactions())

	t.Run("merchant", func(t *testing.T) {
		result, err := agg.Aggregate(context.Background(), &AggregateRequest{
			UserID:      1,
			Granularity: GranularityMerchant,
		})
		require.NoError(t, err)
		assert.Len(t, result.Buckets, 3)
		assert.Equal(t, "Payroll", result.Buckets[0].Key)
	})

	t.Run("month", func(t *testing.T) {
		result, err := agg.Aggregate(context.Background(), &AggregateRequest{
			UserID:      1,
			Granularity: GranularityMonth,
		})
		require.NoError(t, err)
		require.Len(t, result.Buckets, 2)
		for _, b := range result.Buckets {
			assert.Contains(t, []string{"2026-07", "2026-08"}, b.Key)
		}
	})
}

func TestAggregateDateRangeFilter(t *testing.T) {
	agg, _ := newTestAggregator(sampleTransactions())

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	result, err := agg.Aggregate(context.Background(), &AggregateRequest{
		UserID:      1,
		DateFrom:    &from,
		DateTo:      &to,
		Granularity: GranularityCategory,
	})
	require.NoError(t, err)
	assert.Len(t, result.Buckets, 2)
	require.Len(t, result.Timeline, 1)
	assert.Equal(t, "2026-08", result.Timeline[0].Month)
}

func TestAggregateInvalidGranularityRejectedBeforeStoreAccess(t *testing.T) {
	agg, driver := newTestAggregator(sampleTransactions())

	_, err := agg.Aggregate(context.Background(), &AggregateRequest{
		UserID:      1,
		Granularity: Granularity("weekly"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidFilter))
	assert.Zero(t, driver.listCalls)
}

func TestAggregateEmptyRange(t *testing.T) {
	agg, _ := newTestAggregator(nil)

	result, err := agg.Aggregate(context.Background(), &AggregateRequest{
		UserID:      9,
		Granularity: GranularityCategory,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Buckets)
	assert.Empty(t, result.Timeline)
}
