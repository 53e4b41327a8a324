package web

import (
	"net/http"

	"github.com/desertthunder/musicblah/internal/server"
	"github.com/desertthunder/musicblah/internal/services"
)

// storedReviewLimit is how many of a signed-in user's reviews are used when the request carries none.
const storedReviewLimit = 20

type recommendRequest struct {
	UserReviews []services.ReviewInput `json:"userReviews"`
}

func (a *App) recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			server.WriteError(w, http.StatusBadRequest, "Dados inválidos")
			return
		}
	}

	if viewer := currentUser(r); len(req.UserReviews) == 0 && viewer != "" {
		posts, err := a.posts.ReviewsByUser(viewer, storedReviewLimit)
		if err != nil {
			a.logger.Warn("stored reviews unavailable", "user", viewer, "error", err)
		}
		for _, p := range posts {
			req.UserReviews = append(req.UserReviews, services.ReviewInputFromPost(p))
		}
	}

	result, err := a.recommender.Recommend(r.Context(), req.UserReviews)
	if err != nil {
		a.logger.Error("recommend failed", "reviews", len(req.UserReviews), "error", err)
		server.WriteError(w, http.StatusInternalServerError, "Erro ao buscar recomendações")
		return
	}
	server.WriteJSON(w, http.StatusOK, result)
}
