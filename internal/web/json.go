package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/conorfennell/spacedrep/internal/deck"
	"github.com/conorfennell/spacedrep/internal/domain"
)

const maxBodyBytes = 1 << 20

type cardJSON struct {
	ID             string     `json:"id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	Context        string     `json:"context,omitempty"`
	Hash           string     `json:"hash"`
	SourceID       *int64     `json:"source_id,omitempty"`
	EaseFactor     float64    `json:"ease_factor"`
	Interval       int        `json:"interval"`
	Repetitions    int        `json:"repetitions"`
	NextReviewDate time.Time  `json:"next_review_date"`
	LastReviewDate *time.Time `json:"last_review_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toCardJSON(c domain.Card) cardJSON {
	out := cardJSON{
		ID:             c.ID,
		Front:          c.Front,
		Back:           c.Back,
		Context:        c.Context,
		Hash:           c.Hash,
		EaseFactor:     c.EaseFactor,
		Interval:       c.Interval,
		Repetitions:    c.Repetitions,
		NextReviewDate: c.NextReviewDate,
		LastReviewDate: c.LastReviewDate,
		CreatedAt:      c.CreatedAt,
	}
	if c.SourceID.Valid {
		id := c.SourceID.Int64
		out.SourceID = &id
	}
	return out
}

type dueJSON struct {
	Count int        `json:"count"`
	Cards []cardJSON `json:"cards"`
}

type reviewLogJSON struct {
	Response          domain.Response `json:"response"`
	Quality           int             `json:"quality"`
	EaseBefore        float64         `json:"ease_before"`
	EaseAfter         float64         `json:"ease_after"`
	IntervalBefore    int             `json:"interval_before"`
	IntervalAfter     int             `json:"interval_after"`
	RepetitionsBefore int             `json:"repetitions_before"`
	RepetitionsAfter  int             `json:"repetitions_after"`
	ReviewedAt        time.Time       `json:"reviewed_at"`
}

func toReviewLogJSON(l domain.ReviewLog) reviewLogJSON {
	return reviewLogJSON{
		Response:          l.Response,
		Quality:           l.Quality,
		EaseBefore:        l.EaseBefore,
		EaseAfter:         l.EaseAfter,
		IntervalBefore:    l.IntervalBefore,
		IntervalAfter:     l.IntervalAfter,
		RepetitionsBefore: l.RepetitionsBefore,
		RepetitionsAfter:  l.RepetitionsAfter,
		ReviewedAt:        l.ReviewedAt,
	}
}

type sourceJSON struct {
	ID          int64             `json:"id"`
	Path        string            `json:"path"`
	Type        domain.SourceType `json:"type"`
	LastScanned *time.Time        `json:"last_scanned,omitempty"`
}

func toSourceJSON(s domain.Source) sourceJSON {
	out := sourceJSON{ID: s.ID, Path: s.Path, Type: s.Type}
	if s.LastScanned.Valid {
		t := s.LastScanned.Time
		out.LastScanned = &t
	}
	return out
}

type reportJSON struct {
	Sources  int      `json:"sources"`
	Parsed   int      `json:"parsed"`
	Inserted int      `json:"inserted"`
	Orphaned int      `json:"orphaned"`
	Errors   []string `json:"errors,omitempty"`
}

func toReportJSON(r deck.Report) reportJSON {
	out := reportJSON{Sources: r.Sources, Parsed: r.Parsed, Inserted: r.Inserted, Orphaned: r.Orphaned}
	for _, err := range r.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

type errorJSON struct {
	Error string `json:"error"`
}

// decodeJSON reads a request body into v. Malformed bodies, unknown fields
// and unknown response values are all client errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("%w: decode request body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// isClientError reports whether err was caused by the request rather than
// by the server. Other errors are logged.
func isClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if !isClientError(err) {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	s.writeJSON(w, status, errorJSON{Error: msg})
}
