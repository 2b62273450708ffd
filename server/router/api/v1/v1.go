// Package v1 exposes the assistant HTTP API.
package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ledgersense/ledgersense/internal/profile"
	"github.com/ledgersense/ledgersense/plugin/ai/embedding"
	"github.com/ledgersense/ledgersense/plugin/ai/privacy"
	"github.com/ledgersense/ledgersense/plugin/ai/session"
	"github.com/ledgersense/ledgersense/server/middleware"
	"github.com/ledgersense/ledgersense/server/retrieval"
	"github.com/ledgersense/ledgersense/server/stats"
	"github.com/ledgersense/ledgersense/store"
)

// userIDContextKey is where the middleware stores the authenticated user id.
const userIDContextKey = "ledgersense.user_id"

type APIV1Service struct {
	Profile    *profile.Profile
	Store      *store.Store
	Searcher   *retrieval.Searcher
	Aggregator *stats.Aggregator

	logger *slog.Logger
}

// NewAPIV1Service wires the assistant services. The generator is shared with
// every other indexing path (backfill runner included) so stored and query
// vectors stay in one embedding space.
func NewAPIV1Service(prof *profile.Profile, st *store.Store, generator *embedding.Generator, logger *slog.Logger) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}
	if generator == nil {
		generator = embedding.NewGeneratorFromProfile(prof, logger)
	}

	return &APIV1Service{
		Profile: prof,
		Store:   st,
		Searcher: retrieval.NewSearcher(
			st,
			generator,
			session.NewTracker(prof.SessionTTL, session.SystemClock()),
			privacy.NewMasker(),
			prof,
			logger,
		),
		Aggregator: stats.NewAggregator(st),
		logger:     logger,
	}
}

// RegisterRoutes mounts the assistant endpoints on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	limiter := middleware.NewRateLimiter(10, 20)

	g := e.Group("/api/v1")
	g.Use(s.userIdentityMiddleware)
	g.Use(limiter.Middleware(func(c echo.Context) string {
		return c.Request().Header.Get("X-User-ID")
	}))
	g.POST("/assistant/search", s.SearchAssistant)
	g.POST("/assistant/aggregate", s.AggregateAssistant)
}

// userIdentityMiddleware resolves the caller from the X-User-ID header. Real
// authentication is an upstream collaborator; this boundary only needs a user
// scope for store queries.
func (s *APIV1Service) userIdentityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("X-User-ID")
		userID, err := strconv.ParseInt(header, 10, 32)
		if err != nil || userID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"kind":    "UNAUTHENTICATED",
				"message": "missing or malformed X-User-ID header",
			})
		}
		c.Set(userIDContextKey, int32(userID))
		return next(c)
	}
}

func userIDFromContext(c echo.Context) int32 {
	userID, _ := c.Get(userIDContextKey).(int32)
	return userID
}
