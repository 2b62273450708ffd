// Package retrieval composes embedding, nearest-neighbor search, ranking,
// session deduplication and row compression into the assistant search cycle.
package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ledgersense/ledgersense/internal/profile"
	"github.com/ledgersense/ledgersense/plugin/ai/compress"
	"github.com/ledgersense/ledgersense/plugin/ai/embedding"
	"github.com/ledgersense/ledgersense/plugin/ai/rank"
	"github.com/ledgersense/ledgersense/plugin/ai/session"
	"github.com/ledgersense/ledgersense/server/internal/errors"
	"github.com/ledgersense/ledgersense/server/internal/observability"
	"github.com/ledgersense/ledgersense/store"
)

const (
	// maxRowCeiling is the absolute cap on returned rows, regardless of
	// configuration or the requested top-k.
	maxRowCeiling = 100

	// repairBatchLimit bounds how many transactions one repair pass will
	// re-index.
	repairBatchLimit = 200

	// repairConcurrency bounds concurrent embedding upserts during repair.
	repairConcurrency = 4

	endpointSearch = "assistant.search"
)

// Searcher runs the retrieval request/response cycle. It is the only
// component here with external I/O; everything it composes is pure.
type Searcher struct {
	store     *store.Store
	generator *embedding.Generator
	tracker   session.DiffTracker
	masker    compress.Masker
	profile   *profile.Profile
	logger    *slog.Logger
}

// NewSearcher creates a searcher over the given collaborators.
func NewSearcher(
	st *store.Store,
	generator *embedding.Generator,
	tracker session.DiffTracker,
	masker compress.Masker,
	prof *profile.Profile,
	logger *slog.Logger,
) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		store:     st,
		generator: generator,
		tracker:   tracker,
		masker:    masker,
		profile:   prof,
		logger:    logger,
	}
}

// SearchRequest carries one search call. Zero-value pointers mean "filter
// absent".
type SearchRequest struct {
	UserID     int32
	SessionID  string
	Query      string
	DateFrom   *time.Time
	DateTo     *time.Time
	Categories []string
	AmountMin  *int64
	AmountMax  *int64
	TopK       int
}

// Stats aggregates the rows actually included in a response.
type Stats struct {
	Count    int   `json:"count"`
	SumCents int64 `json:"sumCents"`
	AvgCents int64 `json:"avgCents"` // integer-truncated
}

// SearchResult is the compressed search payload.
type SearchResult struct {
	Rows       string            `json:"rows"`
	Merchants  map[string]string `json:"merchants"`
	Categories map[string]string `json:"categories"`
	Stats      Stats             `json:"stats"`
	TraceID    string            `json:"traceId"`
	SessionID  string            `json:"sessionId"`
}

// Search resolves a query into compressed, deduplicated rows. An empty result
// set is a normal outcome and yields a well-formed empty payload.
func (s *Searcher) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	reqCtx, ok := observability.FromContext(ctx)
	if !ok {
		reqCtx = observability.NewRequestContext(s.logger, endpointSearch, req.UserID, req.SessionID)
	}

	if err := validateFilters(req); err != nil {
		return nil, err
	}

	limit := s.clampLimit(req.TopK)
	hits := s.tracker.RecordHit(req.SessionID)

	var queryVec []float32
	if strings.TrimSpace(req.Query) != "" {
		queryVec = s.generator.Embed(ctx, req.Query)
	}

	matches, err := s.findNearest(ctx, req, queryVec, limit)
	if err != nil {
		return nil, errors.StoreUnavailable("nearest-neighbor query failed", err)
	}

	// Self-healing re-index, at most once per request. A second empty or
	// partially-indexed result is accepted as final.
	if needsRepair(matches) {
		reqCtx.Info("repair re-index triggered",
			slog.Int("matches", len(matches)))
		if err := s.reindex(ctx, req); err != nil {
			return nil, err
		}
		matches, err = s.findNearest(ctx, req, queryVec, limit)
		if err != nil {
			return nil, errors.StoreUnavailable("nearest-neighbor query failed after re-index", err)
		}
	}

	candidates, slices, err := s.resolve(ctx, req, matches)
	if err != nil {
		return nil, errors.StoreUnavailable("candidate resolution failed", err)
	}

	ranked := rank.Rank(candidates, rank.Query{
		Vector:      queryVec,
		AmountRange: amountRange(req),
		Now:         time.Now(),
	})

	// Stable codes feed the session diff; the full ranked list goes through
	// so freshly-seen rows are marked even when they fall past the cut.
	codes := make([]string, len(ranked))
	for i, sc := range ranked {
		codes[i] = compress.TransactionCode(sc.Candidate.TransactionID)
	}
	fresh := make(map[string]bool, len(codes))
	for _, code := range s.tracker.FilterNew(req.SessionID, codes) {
		fresh[code] = true
	}

	dict := compress.NewDictionary(s.masker)
	rows := []compress.CompactRow{}
	var sum int64
	for i, sc := range ranked {
		if len(rows) >= limit {
			break
		}
		if !fresh[codes[i]] {
			continue
		}
		slice := slices[sc.Candidate.TransactionID]
		rows = append(rows, compress.CompactRow{
			Code:         codes[i],
			Date:         slice.Date,
			MerchantCode: dict.MerchantCode(slice.MerchantID, slice.MerchantName),
			AmountCents:  slice.AmountCents,
			CategoryCode: dict.CategoryCode(slice.Category),
		})
		sum += slice.AmountCents
	}

	result := &SearchResult{
		Rows:       compress.Encode(rows),
		Merchants:  dict.Merchants(),
		Categories: dict.Categories(),
		TraceID:    reqCtx.TraceID,
		SessionID:  req.SessionID,
	}
	if len(rows) > 0 {
		result.Stats = Stats{
			Count:    len(rows),
			SumCents: sum,
			AvgCents: sum / int64(len(rows)),
		}
	}

	reqCtx.Info("search completed",
		slog.Int(observability.LogFieldRowCount, len(rows)),
		slog.Int("candidates", len(candidates)),
		slog.Int64("session_hits", hits),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	s.audit(reqCtx, len(rows), tokenEstimate(result.Rows))
	return result, nil
}

// clampLimit bounds the requested top-k by configuration and the absolute
// ceiling.
func (s *Searcher) clampLimit(topK int) int {
	limit := s.profile.MaxRows
	if topK > 0 && topK < limit {
		limit = topK
	}
	if limit > maxRowCeiling {
		limit = maxRowCeiling
	}
	return limit
}

// validateFilters rejects malformed ranges before any store access.
func validateFilters(req *SearchRequest) error {
	if req.DateFrom != nil && req.DateTo != nil && req.DateFrom.After(*req.DateTo) {
		return errors.InvalidFilter("date range start is after end")
	}
	if req.AmountMin != nil && req.AmountMax != nil && *req.AmountMin > *req.AmountMax {
		return errors.InvalidFilterf("amount range min %d exceeds max %d", *req.AmountMin, *req.AmountMax)
	}
	return nil
}

func (s *Searcher) findNearest(ctx context.Context, req *SearchRequest, queryVec []float32, limit int) ([]*store.TransactionMatch, error) {
	return s.store.FindNearestTransactions(ctx, &store.FindNearestTransactions{
		UserID:     req.UserID,
		Vector:     queryVec,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Categories: req.Categories,
		AmountMin:  req.AmountMin,
		AmountMax:  req.AmountMax,
		Limit:      limit,
	})
}

// needsRepair reports whether the match set warrants a re-index pass: either
// nothing came back, or some candidate was never indexed.
func needsRepair(matches []*store.TransactionMatch) bool {
	if len(matches) == 0 {
		return true
	}
	for _, m := range matches {
		if len(m.Embedding) == 0 {
			return true
		}
	}
	return false
}

// reindex fetches a larger batch of matching transactions and upserts an
// embedding for each.
func (s *Searcher) reindex(ctx context.Context, req *SearchRequest) error {
	txns, err := s.store.ListTransactions(ctx, &store.FindTransaction{
		UserID:     req.UserID,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Categories: req.Categories,
		AmountMin:  req.AmountMin,
		AmountMax:  req.AmountMax,
		Limit:      repairBatchLimit,
	})
	if err != nil {
		return errors.StoreUnavailable("transaction listing for re-index failed", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(repairConcurrency)
	for _, txn := range txns {
		txn := txn
		group.Go(func() error {
			now := time.Now().Unix()
			_, err := s.store.UpsertTransactionEmbedding(groupCtx, &store.TransactionEmbedding{
				TransactionID: txn.ID,
				UserID:        txn.UserID,
				PeriodKey:     txn.Date.Format("2006-01"),
				Category:      txn.Category,
				AmountCents:   txn.AmountCents,
				MerchantID:    txn.MerchantID,
				MerchantName:  strings.ToLower(strings.TrimSpace(txn.MerchantName)),
				Embedding:     s.generator.Embed(groupCtx, IndexText(txn)),
				CreatedTs:     now,
				UpdatedTs:     now,
			})
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return errors.StoreUnavailable("embedding upsert failed", err)
	}
	return nil
}

// IndexText is the canonical text a transaction is indexed under. The repair
// path and the backfill runner must embed identical text, or the same
// transaction would land at different points in vector space.
func IndexText(txn *store.Transaction) string {
	parts := []string{}
	for _, p := range []string{txn.MerchantName, txn.Description, txn.Category} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// resolve loads full transaction slices for the matched ids, preserving the
// store's order and keeping each candidate's stored embedding. Matches whose
// slice no longer exists are silently dropped, as are matches outside the
// exact date range: the vector index keys dates by month only, so a
// mid-month filter admits whole-month candidates that must be re-checked
// against the full date here.
func (s *Searcher) resolve(ctx context.Context, req *SearchRequest, matches []*store.TransactionMatch) ([]rank.Candidate, map[string]*store.Transaction, error) {
	if len(matches) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.TransactionID
	}
	txns, err := s.store.ListTransactions(ctx, &store.FindTransaction{
		UserID: req.UserID,
		IDs:    ids,
	})
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string]*store.Transaction, len(txns))
	for _, txn := range txns {
		byID[txn.ID] = txn
	}

	candidates := []rank.Candidate{}
	for _, m := range matches {
		txn, ok := byID[m.TransactionID]
		if !ok {
			continue
		}
		if req.DateFrom != nil && txn.Date.Before(*req.DateFrom) {
			continue
		}
		if req.DateTo != nil && txn.Date.After(*req.DateTo) {
			continue
		}
		candidates = append(candidates, rank.Candidate{
			TransactionID: txn.ID,
			Date:          txn.Date,
			AmountCents:   txn.AmountCents,
			Embedding:     m.Embedding,
		})
	}
	return candidates, byID, nil
}

func amountRange(req *SearchRequest) *rank.AmountRange {
	if req.AmountMin == nil || req.AmountMax == nil {
		return nil
	}
	return &rank.AmountRange{MinCents: *req.AmountMin, MaxCents: *req.AmountMax}
}

// audit emits the fire-and-forget audit record. Failures are logged only.
func (s *Searcher) audit(reqCtx *observability.RequestContext, rowCount, tokens int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := s.store.CreateAuditLog(ctx, &store.AuditLog{
			Endpoint:      reqCtx.Endpoint,
			UserID:        reqCtx.UserID,
			SessionID:     reqCtx.SessionID,
			TraceID:       reqCtx.TraceID,
			RowCount:      rowCount,
			TokenEstimate: tokens,
			CreatedTs:     time.Now().Unix(),
		})
		if err != nil {
			reqCtx.Error("audit record failed", err)
		}
	}()
}

// tokenEstimate approximates the LLM token cost of a payload, at roughly four
// characters per token.
func tokenEstimate(payload string) int {
	return (len(payload) + 3) / 4
}
