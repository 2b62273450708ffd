package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/ledgersense/ledgersense/server/internal/errors"
	"github.com/ledgersense/ledgersense/server/internal/observability"
	"github.com/ledgersense/ledgersense/server/retrieval"
	"github.com/ledgersense/ledgersense/server/stats"
)

// requestDateLayout is the wire format for date filters.
const requestDateLayout = "2006-01-02"

// SearchAssistantRequest is the body of POST /api/v1/assistant/search.
type SearchAssistantRequest struct {
	Query      string   `json:"query"`
	SessionID  string   `json:"sessionId"`
	DateFrom   string   `json:"dateFrom"`
	DateTo     string   `json:"dateTo"`
	Categories []string `json:"categories"`
	AmountMin  *int64   `json:"amountMinCents"`
	AmountMax  *int64   `json:"amountMaxCents"`
	TopK       int      `json:"topK"`
}

// AggregateAssistantRequest is the body of POST /api/v1/assistant/aggregate.
type AggregateAssistantRequest struct {
	DateFrom    string `json:"dateFrom"`
	DateTo      string `json:"dateTo"`
	Granularity string `json:"granularity"`
}

// errorResponse is the uniform failure body.
type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	TraceID string `json:"traceId"`
}

// SearchAssistant handles POST /api/v1/assistant/search.
func (s *APIV1Service) SearchAssistant(c echo.Context) error {
	var body SearchAssistantRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Kind:    string(errors.ErrCodeInvalidFilter),
			Message: "malformed request body",
		})
	}

	userID := userIDFromContext(c)
	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = shortuuid.New()
	}

	reqCtx := observability.NewRequestContext(s.logger, "assistant.search", userID, sessionID)
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	req := &retrieval.SearchRequest{
		UserID:     userID,
		SessionID:  sessionID,
		Query:      body.Query,
		Categories: body.Categories,
		AmountMin:  body.AmountMin,
		AmountMax:  body.AmountMax,
		TopK:       body.TopK,
	}

	var err error
	if req.DateFrom, err = parseDate(body.DateFrom); err != nil {
		return s.errorJSON(c, reqCtx, errors.InvalidFilterf("malformed dateFrom %q", body.DateFrom))
	}
	if req.DateTo, err = parseDate(body.DateTo); err != nil {
		return s.errorJSON(c, reqCtx, errors.InvalidFilterf("malformed dateTo %q", body.DateTo))
	}

	result, err := s.Searcher.Search(ctx, req)
	if err != nil {
		return s.errorJSON(c, reqCtx, err)
	}
	return c.JSON(http.StatusOK, result)
}

// AggregateAssistant handles POST /api/v1/assistant/aggregate.
func (s *APIV1Service) AggregateAssistant(c echo.Context) error {
	var body AggregateAssistantRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Kind:    string(errors.ErrCodeInvalidFilter),
			Message: "malformed request body",
		})
	}

	userID := userIDFromContext(c)
	reqCtx := observability.NewRequestContext(s.logger, "assistant.aggregate", userID, "")
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	req := &stats.AggregateRequest{
		UserID:      userID,
		Granularity: stats.Granularity(body.Granularity),
	}

	var err error
	if req.DateFrom, err = parseDate(body.DateFrom); err != nil {
		return s.errorJSON(c, reqCtx, errors.InvalidFilterf("malformed dateFrom %q", body.DateFrom))
	}
	if req.DateTo, err = parseDate(body.DateTo); err != nil {
		return s.errorJSON(c, reqCtx, errors.InvalidFilterf("malformed dateTo %q", body.DateTo))
	}

	result, err := s.Aggregator.Aggregate(ctx, req)
	if err != nil {
		return s.errorJSON(c, reqCtx, err)
	}
	return c.JSON(http.StatusOK, result)
}

// parseDate parses an optional ISO date.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(requestDateLayout, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// errorJSON maps the error taxonomy onto HTTP statuses.
func (s *APIV1Service) errorJSON(c echo.Context, reqCtx *observability.RequestContext, err error) error {
	code := errors.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidFilter:
		status = http.StatusBadRequest
	case errors.ErrCodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		reqCtx.Error("request failed", err)
	} else {
		reqCtx.Warn("request rejected")
	}

	return c.JSON(status, errorResponse{
		Kind:    string(code),
		Message: err.Error(),
		TraceID: reqCtx.TraceID,
	})
}
