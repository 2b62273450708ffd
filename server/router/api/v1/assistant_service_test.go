package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersense/ledgersense/internal/profile"
	"github.com/ledgersense/ledgersense/plugin/ai/embedding"
	"github.com/ledgersense/ledgersense/store"
)

// memoryDriver backs the handlers with in-process state.
type memoryDriver struct {
	transactions []*store.Transaction
	embeddings   map[string]*store.TransactionEmbedding
}

func newMemoryDriver() *memoryDriver {
	return &memoryDriver{embeddings: map[string]*store.TransactionEmbedding{}}
}

func (m *memoryDriver) GetDB() *sql.DB { return nil }
func (m *memoryDriver) Close() error   { return nil }

func (m *memoryDriver) IsInitialized(ctx context.Context) (bool, error) {
	return true, nil
}

func (m *memoryDriver) CreateTransaction(ctx context.Context, create *store.Transaction) (*store.Transaction, error) {
	m.transactions = append(m.transactions, create)
	return create, nil
}

func (m *memoryDriver) ListTransactions(ctx context.Context, find *store.FindTransaction) ([]*store.Transaction, error) {
	wanted := map[string]bool{}
	for _, id := range find.IDs {
		wanted[id] = true
	}
	list := []*store.Transaction{}
	for _, txn := range m.transactions {
		if txn.UserID != find.UserID {
			continue
		}
		if len(wanted) > 0 && !wanted[txn.ID] {
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

func (m *memoryDriver) ListUnindexedTransactions(ctx context.Context, userID *int32, limit int) ([]*store.Transaction, error) {
	list := []*store.Transaction{}
	for _, txn := range m.transactions {
		if userID != nil && txn.UserID != *userID {
			continue
		}
		if _, ok := m.embeddings[txn.ID]; ok {
			continue
		}
		list = append(list, txn)
	}
	return list, nil
}

func (m *memoryDriver) UpsertTransactionEmbedding(ctx context.Context, upsert *store.TransactionEmbedding) (*store.TransactionEmbedding, error) {
	m.embeddings[upsert.TransactionID] = upsert
	return upsert, nil
}

func (m *memoryDriver) FindNearestTransactions(ctx context.Context, find *store.FindNearestTransactions) ([]*store.TransactionMatch, error) {
	matches := []*store.TransactionMatch{}
	for _, txn := range m.transactions {
		if txn.UserID != find.UserID {
			continue
		}
		match := &store.TransactionMatch{TransactionID: txn.ID}
		if emb, ok := m.embeddings[txn.ID]; ok {
			match.Embedding = emb.Embedding
		}
		matches = append(matches, match)
		if find.Limit > 0 && len(matches) >= find.Limit {
			break
		}
	}
	return matches, nil
}

func (m *memoryDriver) CreateAuditLog(ctx context.Context, create *store.AuditLog) (*store.AuditLog, error) {
	return create, nil
}

func (m *memoryDriver) ListAuditLogs(ctx context.Context, find *store.FindAuditLog) ([]*store.AuditLog, error) {
	return nil, nil
}

func newTestService(driver store.Driver) *APIV1Service {
	prof := &profile.Profile{
		Mode:                "dev",
		Driver:              "sqlite",
		DSN:                 ":memory:",
		EmbeddingDimensions: 16,
		SessionTTL:          4 * time.Hour,
		MaxRows:             5,
	}
	return NewAPIV1Service(prof, store.New(driver, prof), embedding.NewGenerator(prof.EmbeddingDimensions), nil)
}

func doRequest(t *testing.T, service *APIV1Service, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	service.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSearchAssistant(t *testing.T) {
	driver := newMemoryDriver()
	_, err := driver.CreateTransaction(context.Background(), &store.Transaction{
		ID:           "txn-1",
		UserID:       3,
		Date:         time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		AmountCents:  -1500,
		Category:     "dining",
		MerchantID:   "mer-1",
		MerchantName: "Cafe Uno",
		Description:  "espresso",
	})
	require.NoError(t, err)
	service := newTestService(driver)

	t.Run("happy path generates a session id", func(t *testing.T) {
		rec := doRequest(t, service, "/api/v1/assistant/search", `{"query":"coffee"}`, "3")
		require.Equal(t, http.StatusOK, rec.Code)

		var result struct {
			Rows      string `json:"rows"`
			SessionID string `json:"sessionId"`
			TraceID   string `json:"traceId"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.NotEmpty(t, result.SessionID)
		assert.NotEmpty(t, result.TraceID)
		assert.NotEmpty(t, result.Rows)
	})

	t.Run("missing user header", func(t *testing.T) {
		rec := doRequest(t, service, "/api/v1/assistant/search", `{"query":"coffee"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed date is an invalid filter", func(t *testing.T) {
		rec := doRequest(t, service, "/api/v1/assistant/search", `{"dateFrom":"08/01/2026"}`, "3")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_FILTER", resp.Kind)
		assert.NotEmpty(t, resp.TraceID)
	})

	t.Run("inverted date range is rejected", func(t *testing.T) {
		rec := doRequest(t, service, "/api/v1/assistant/search",
			`{"dateFrom":"2026-08-10","dateTo":"2026-08-01"}`, "3")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAggregateAssistant(t *testing.T) {
	driver := newMemoryDriver()
	for _, txn := range []*store.Transaction{
		{ID: "a", UserID: 3, Date: time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC), AmountCents: -1000, Category: "dining", MerchantName: "Cafe Uno"},
		{ID: "b", UserID: 3, Date: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), AmountCents: -2000, Category: "groceries", MerchantName: "Market"},
	} {
		_, err := driver.CreateTransaction(context.Background(), txn)
		require.NoError(t, err)
	}
	service := newTestService(driver)

	t.Run("by category", func(t *testing.T) {
		rec := doRequest(t, service, "/api/v1/assistant/aggregate", `{"granularity":"category"}`, "3")
		require.Equal(t, http.StatusOK, rec.Code)

		var result struct {
			Buckets []struct {
				Key      string `json:"key"`
				Count    int    `json:"count"`
				SumCents int64  `json:"sumCents"`
			} `json:"buckets"`
			Timeline []struct {
				Month string `json:"month"`
			} `json:"timeline"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Len(t, result.Buckets, 2)
		assert.Len(t, result.Timeline, 2)
	})

	t.Run("unsupported granularity", func(t *testing.T) {
		rec := doRequest(t, service, "/api/v1/assistant/aggregate", `{"granularity":"weekly"}`, "3")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_FILTER", resp.Kind)
	})
}
