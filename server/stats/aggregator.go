// Package stats buckets transactions by category, merchant or month for the
// assistant aggregate endpoint. Pure computation over store rows; independent
// of the row-compression path.
package stats

import (
	"context"
	"sort"
	"time"

	"github.com/ledgersense/ledgersense/server/internal/errors"
	"github.com/ledgersense/ledgersense/store"
)

// Granularity selects the bucketing dimension.
type Granularity string

const (
	GranularityCategory Granularity = "category"
	GranularityMerchant Granularity = "merchant"
	GranularityMonth    Granularity = "month"
)

// monthKeyLayout buckets timeline entries by calendar month.
const monthKeyLayout = "2006-01"

// Aggregator answers aggregate queries over the transaction store.
type Aggregator struct {
	store *store.Store
}

// NewAggregator creates an aggregator.
func NewAggregator(st *store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// AggregateRequest carries one aggregate call.
type AggregateRequest struct {
	UserID      int32
	DateFrom    *time.Time
	DateTo      *time.Time
	Granularity Granularity
}

// Bucket is one aggregation group.
type Bucket struct {
	Key      string `json:"key"`
	Count    int    `json:"count"`
	SumCents int64  `json:"sumCents"`
	AvgCents int64  `json:"avgCents"` // integer-truncated
}

// TimelinePoint is one month of the coarser timeline.
type TimelinePoint struct {
	Month    string `json:"month"`
	Count    int    `json:"count"`
	SumCents int64  `json:"sumCents"`
}

// AggregateResult is the bucketed response plus a monthly timeline.
type AggregateResult struct {
	Granularity Granularity     `json:"granularity"`
	Buckets     []Bucket        `json:"buckets"`
	Timeline    []TimelinePoint `json:"timeline"`
}

// Aggregate buckets the user's transactions in the date range. An unsupported
// granularity is rejected before any store access.
func (a *Aggregator) Aggregate(ctx context.Context, req *AggregateRequest) (*AggregateResult, error) {
	keyOf, err := bucketKeyFunc(req.Granularity)
	if err != nil {
		return nil, err
	}
	if req.DateFrom != nil && req.DateTo != nil && req.DateFrom.After(*req.DateTo) {
		return nil, errors.InvalidFilter("date range start is after end")
	}

	txns, err := a.store.ListTransactions(ctx, &store.FindTransaction{
		UserID:   req.UserID,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	})
	if err != nil {
		return nil, errors.StoreUnavailable("transaction listing failed", err)
	}

	buckets := map[string]*Bucket{}
	months := map[string]*TimelinePoint{}
	for _, txn := range txns {
		key := keyOf(txn)
		b, ok := buckets[key]
		if !ok {
			b = &Bucket{Key: key}
			buckets[key] = b
		}
		b.Count++
		b.SumCents += txn.AmountCents

		month := txn.Date.Format(monthKeyLayout)
		p, ok := months[month]
		if !ok {
			p = &TimelinePoint{Month: month}
			months[month] = p
		}
		p.Count++
		p.SumCents += txn.AmountCents
	}

	result := &AggregateResult{
		Granularity: req.Granularity,
		Buckets:     make([]Bucket, 0, len(buckets)),
		Timeline:    make([]TimelinePoint, 0, len(months)),
	}
	for _, b := range buckets {
		b.AvgCents = b.SumCents / int64(b.Count)
		result.Buckets = append(result.Buckets, *b)
	}
	// Largest absolute spend first; key breaks ties for a stable response.
	sort.Slice(result.Buckets, func(i, j int) bool {
		si, sj := abs64(result.Buckets[i].SumCents), abs64(result.Buckets[j].SumCents)
		if si != sj {
			return si > sj
		}
		return result.Buckets[i].Key < result.Buckets[j].Key
	})

	for _, p := range months {
		result.Timeline = append(result.Timeline, *p)
	}
	sort.Slice(result.Timeline, func(i, j int) bool {
		return result.Timeline[i].Month < result.Timeline[j].Month
	})

	return result, nil
}

func bucketKeyFunc(granularity Granularity) (func(*store.Transaction) string, error) {
	switch granularity {
	case GranularityCategory:
		return func(txn *store.Transaction) string {
			if txn.Category == "" {
				return "uncategorized"
			}
			return txn.Category
		}, nil
	case GranularityMerchant:
		return func(txn *store.Transaction) string {
			if txn.MerchantName != "" {
				return txn.MerchantName
			}
			if txn.MerchantID != "" {
				return txn.MerchantID
			}
			return "unknown"
		}, nil
	case GranularityMonth:
		return func(txn *store.Transaction) string {
			return txn.Date.Format(monthKeyLayout)
		}, nil
	default:
		return nil, errors.InvalidFilterf("unsupported granularity %q", granularity)
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
