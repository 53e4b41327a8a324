package web

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/server"
)

const feedPageSize = 50

var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@(\w{3,30})`)

type createPostRequest struct {
	Type     models.PostKind   `json:"type"`
	Content  string            `json:"content"`
	Images   []string          `json:"images"`
	ParentID string            `json:"parentTweetId"`
	Rating   int               `json:"rating"`
	Album    *models.AlbumRef  `json:"album"`
	Track    *models.TrackRef  `json:"track"`
	Lyric    *models.LyricCard `json:"lyricCard"`
}

// mentions returns the distinct usernames mentioned in text, in order of appearance.
func mentions(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, m[1])
		}
	}
	return names
}

func (a *App) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err, "Dados inválidos")
		return
	}
	if req.Type == "" {
		req.Type = models.KindTweet
	}

	author := currentUser(r)
	post := models.NewPost(0, req.Type, author, strings.TrimSpace(req.Content))
	post.Images = req.Images
	post.Rating = req.Rating
	post.Album = req.Album
	post.Track = req.Track
	post.Lyric = req.Lyric

	var parent *models.Post
	if req.ParentID != "" {
		p, err := a.posts.Get(req.ParentID)
		if err != nil {
			a.fail(w, r, err, "Post não encontrado")
			return
		}
		parent = p
		post.ParentID = p.ID()
	}

	if err := a.posts.Create(post); err != nil {
		a.fail(w, r, err, "Erro ao publicar")
		return
	}

	if parent != nil {
		a.notify(models.NotifyReply, parent.CreatedBy, author, post)
	}
	if post.Kind != models.KindReview {
		for _, name := range mentions(post.Text) {
			u, err := a.users.GetByUsername(name)
			if err != nil {
				continue
			}
			if parent != nil && u.ID() == parent.CreatedBy {
				continue
			}
			a.notify(models.NotifyMention, u.ID(), author, post)
		}
	}

	a.logger.Debug("post created", "id", post.ID(), "type", post.Kind, "author", author)
	server.WriteJSON(w, http.StatusCreated, a.postViews([]*models.Post{post}, author)[0])
}

func (a *App) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := a.posts.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err, "Post não encontrado")
		return
	}
	server.WriteJSON(w, http.StatusOK, a.postViews([]*models.Post{post}, currentUser(r))[0])
}

func (a *App) deletePost(w http.ResponseWriter, r *http.Request) {
	post, err := a.posts.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err, "Post não encontrado")
		return
	}
	if post.CreatedBy != currentUser(r) {
		server.WriteError(w, http.StatusForbidden, "Você só pode apagar seus próprios posts")
		return
	}
	if err := a.posts.Delete(post.ID()); err != nil {
		a.fail(w, r, err, "Erro ao apagar post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) replies(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := a.posts.Get(id); err != nil {
		a.fail(w, r, err, "Post não encontrado")
		return
	}

	posts, err := a.posts.Replies(id)
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar respostas")
		return
	}
	server.WriteJSON(w, http.StatusOK, a.postViews(posts, currentUser(r)))
}

// feed lists posts by the user and everyone they follow.
func (a *App) feed(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	authors, err := a.users.FollowingIDs(userID)
	if err != nil {
		a.fail(w, r, err, "Erro ao carregar feed")
		return
	}

	posts, err := a.posts.Feed(append(authors, userID), intParam(r, "limit", feedPageSize, 1, 200))
	if err != nil {
		a.fail(w, r, err, "Erro ao carregar feed")
		return
	}
	server.WriteJSON(w, http.StatusOK, a.postViews(posts, userID))
}

func (a *App) userReviews(w http.ResponseWriter, r *http.Request) {
	posts, err := a.posts.ReviewsByUser(r.PathValue("id"), intParam(r, "limit", feedPageSize, 1, 200))
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar reviews")
		return
	}
	server.WriteJSON(w, http.StatusOK, a.postViews(posts, currentUser(r)))
}

// engagement toggles an edge between the current user and a post, then notifies or retracts.
func (a *App) engagement(toggle func(postID, userID string) (bool, error), kind models.NotificationType, add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := currentUser(r)
		post, err := a.posts.Get(r.PathValue("id"))
		if err != nil {
			a.fail(w, r, err, "Post não encontrado")
			return
		}

		changed, err := toggle(post.ID(), userID)
		if err != nil {
			a.fail(w, r, err, "Erro ao atualizar post")
			return
		}

		switch {
		case changed && add:
			a.notify(kind, post.CreatedBy, userID, post)
		case changed:
			if _, err := a.notifications.Remove(userID, kind, post.ID()); err != nil {
				a.logger.Warn("notification not removed", "type", kind, "post", post.ID(), "error", err)
			}
		}

		updated, err := a.posts.Get(post.ID())
		if err != nil {
			a.fail(w, r, err, "Post não encontrado")
			return
		}
		server.WriteJSON(w, http.StatusOK, a.postViews([]*models.Post{updated}, userID)[0])
	}
}

func (a *App) like(w http.ResponseWriter, r *http.Request) {
	a.engagement(a.posts.Like, models.NotifyLike, true)(w, r)
}

func (a *App) unlike(w http.ResponseWriter, r *http.Request) {
	a.engagement(a.posts.Unlike, models.NotifyLike, false)(w, r)
}

func (a *App) repost(w http.ResponseWriter, r *http.Request) {
	a.engagement(a.posts.Repost, models.NotifyRetweet, true)(w, r)
}

func (a *App) unrepost(w http.ResponseWriter, r *http.Request) {
	a.engagement(a.posts.Unrepost, models.NotifyRetweet, false)(w, r)
}
