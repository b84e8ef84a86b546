package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/conorfennell/spacedrep/internal/domain"
	"github.com/conorfennell/spacedrep/internal/review"
)

// handleCreateCard authors a new card.
func (s *Server) handleCreateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input review.CreateCardInput
		if err := decodeJSON(w, r, &input); err != nil {
			s.writeError(w, r, err)
			return
		}
		input.UserID = r.PathValue("user")

		card, err := s.reviews.CreateCard(r.Context(), input)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, toCardJSON(card))
	}
}

// handleGetCard returns one card.
func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := s.reviews.GetCard(r.Context(), r.PathValue("user"), r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, toCardJSON(card))
	}
}

// handleDeleteCard deletes one card.
func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.reviews.DeleteCard(r.Context(), r.PathValue("user"), r.PathValue("id")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGetHistory lists a card's reviews.
func (s *Server) handleGetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := s.reviews.History(r.Context(), r.PathValue("user"), r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out := make([]reviewLogJSON, 0, len(logs))
		for _, l := range logs {
			out = append(out, toReviewLogJSON(l))
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}

// handlePostReview processes a review and returns the rescheduled card.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input review.SubmitReviewInput
		if err := decodeJSON(w, r, &input); err != nil {
			s.writeError(w, r, err)
			return
		}
		input.UserID = r.PathValue("user")
		input.CardID = r.PathValue("id")

		card, err := s.reviews.SubmitReview(r.Context(), input)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, toCardJSON(card))
	}
}

// handleGetDue returns the user's review queue.
func (s *Server) handleGetDue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := s.dueLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				s.writeError(w, r, fmt.Errorf("%w: limit %q is not a number", domain.ErrInvalidInput, v))
				return
			}
			limit = n
		}

		cards, err := s.reviews.DueCards(r.Context(), r.PathValue("user"), limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out := dueJSON{Count: len(cards), Cards: make([]cardJSON, 0, len(cards))}
		for _, c := range cards {
			out.Cards = append(out.Cards, toCardJSON(c))
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}

// handleGetSources lists the user's deck sources.
func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.decks.Sources(r.Context(), r.PathValue("user"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out := make([]sourceJSON, 0, len(sources))
		for _, src := range sources {
			out = append(out, toSourceJSON(src))
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}

// handlePostSource registers a new deck source.
func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Path string `json:"path"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			s.writeError(w, r, err)
			return
		}
		src, err := s.decks.AddSource(r.Context(), r.PathValue("user"), body.Path)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, toSourceJSON(src))
	}
}

// handleDeleteSource deletes a source and the cards imported from it.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: invalid source ID", domain.ErrInvalidInput))
			return
		}
		if err := s.decks.RemoveSource(r.Context(), r.PathValue("user"), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync runs a sync of the user's sources in the foreground.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := s.decks.SyncUser(r.Context(), r.PathValue("user"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, toReportJSON(report))
	}
}
