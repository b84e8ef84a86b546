package web

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/conorfennell/spacedrep/internal/deck"
	"github.com/conorfennell/spacedrep/internal/domain"
	"github.com/conorfennell/spacedrep/internal/review"
)

// Reviews is the part of the review service the server exposes.
type Reviews interface {
	CreateCard(ctx context.Context, input review.CreateCardInput) (domain.Card, error)
	GetCard(ctx context.Context, userID, cardID string) (domain.Card, error)
	DeleteCard(ctx context.Context, userID, cardID string) error
	History(ctx context.Context, userID, cardID string) ([]domain.ReviewLog, error)
	SubmitReview(ctx context.Context, input review.SubmitReviewInput) (domain.Card, error)
	DueCards(ctx context.Context, userID string, limit int) ([]domain.Card, error)
}

// Decks is the part of the deck syncer the server exposes.
type Decks interface {
	AddSource(ctx context.Context, userID, path string) (domain.Source, error)
	Sources(ctx context.Context, userID string) ([]domain.Source, error)
	RemoveSource(ctx context.Context, userID string, sourceID int64) error
	SyncUser(ctx context.Context, userID string) (deck.Report, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	reviews  Reviews
	decks    Decks
	router   *http.ServeMux
	logger   *zap.Logger
	dueLimit int
}

// NewServer creates and configures a new server. dueLimit is the number of
// due cards returned when a request does not ask for a specific limit.
func NewServer(reviews Reviews, decks Decks, logger *zap.Logger, dueLimit int) *Server {
	s := &Server{
		reviews:  reviews,
		decks:    decks,
		router:   http.NewServeMux(),
		logger:   logger,
		dueLimit: dueLimit,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.router.ServeHTTP(rec, r)
	s.logger.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
	)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.router.HandleFunc("POST /users/{user}/cards", s.handleCreateCard())
	s.router.HandleFunc("GET /users/{user}/cards/{id}", s.handleGetCard())
	s.router.HandleFunc("DELETE /users/{user}/cards/{id}", s.handleDeleteCard())
	s.router.HandleFunc("GET /users/{user}/cards/{id}/reviews", s.handleGetHistory())
	s.router.HandleFunc("POST /users/{user}/cards/{id}/reviews", s.handlePostReview())
	s.router.HandleFunc("GET /users/{user}/due", s.handleGetDue())

	s.router.HandleFunc("GET /users/{user}/sources", s.handleGetSources())
	s.router.HandleFunc("POST /users/{user}/sources", s.handlePostSource())
	s.router.HandleFunc("DELETE /users/{user}/sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /users/{user}/sync", s.handlePostSync())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
