package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/services"
	"github.com/desertthunder/musicblah/internal/session"
	"github.com/desertthunder/musicblah/internal/shared"
	tu "github.com/desertthunder/musicblah/internal/testing"
)

const testPassword = "segredo123"

type fakeRecommender struct {
	got []services.ReviewInput
	err error
}

func (f *fakeRecommender) Recommend(ctx context.Context, reviews []services.ReviewInput) (*services.Recommendations, error) {
	f.got = reviews
	if f.err != nil {
		return nil, f.err
	}
	return &services.Recommendations{
		Recommendations: []models.Recommendation{{ID: "r1", Name: "Velha Infância", Artist: "Tribalistas"}},
		Source:          services.SourceGemini,
	}, nil
}

type fixture struct {
	app         *App
	handler     http.Handler
	catalog     *tu.FakeCatalog
	player      *tu.FakePlayer
	lyrics      *tu.FakeLyrics
	recommender *fakeRecommender
}

func newFixture(t *testing.T, configure ...func(*shared.Config)) *fixture {
	t.Helper()

	cfg := shared.DefaultConfig()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Server.RequestsPerSec = 0
	for _, fn := range configure {
		fn(cfg)
	}

	sessions, err := session.NewManager(cfg.Auth)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}

	f := &fixture{
		catalog: &tu.FakeCatalog{},
		player: &tu.FakePlayer{
			Codes:     map[string]*oauth2.Token{},
			Refreshes: map[string]*oauth2.Token{},
			Playing:   map[string]*models.NowPlaying{},
		},
		lyrics:      &tu.FakeLyrics{Lyrics: map[string]string{"Legião Urbana|Tempo Perdido": "Todos os dias quando acordo"}},
		recommender: &fakeRecommender{},
	}
	svc := Services{Catalog: f.catalog, Player: f.player, Lyrics: f.lyrics, Recommender: f.recommender}
	f.app = New(tu.MustOpenDB(t), cfg, svc, sessions, nil)
	f.handler = f.app.Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns its session token and ID.
func (f *fixture) register(t *testing.T, username string) (string, string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"name": "User " + username, "username": username, "email": username + "@example.com", "password": testPassword,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed to register %s: %d %s", username, rec.Code, rec.Body.String())
	}
	resp := decodeBody[sessionResponse](t, rec)
	return resp.Token, resp.User.ID
}

func (f *fixture) post(t *testing.T, token string, body map[string]any) postView {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/posts", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed to create post: %d %s", rec.Code, rec.Body.String())
	}
	return decodeBody[postView](t, rec)
}

func (f *fixture) notifications(t *testing.T, token string) []notificationView {
	t.Helper()
	rec := f.do(t, http.MethodGet, "/api/notifications", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed to list notifications: %d %s", rec.Code, rec.Body.String())
	}
	return decodeBody[[]notificationView](t, rec)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func notificationTypes(list []notificationView) []models.NotificationType {
	types := []models.NotificationType{}
	for _, n := range list {
		types = append(types, n.Type)
	}
	return types
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON content type, got %q", rec.Header().Get("Content-Type"))
	}
}

func TestAccounts(t *testing.T) {
	f := newFixture(t)
	aliceToken, aliceID := f.register(t, "alice")

	t.Run("Duplicate Username", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/users", "", map[string]string{
			"name": "Outra", "username": "alice", "email": "other@example.com", "password": testPassword,
		})
		expectStatus(t, rec, http.StatusConflict)
	})

	t.Run("Short Password", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/users", "", map[string]string{
			"name": "Bob", "username": "bob", "email": "bob@example.com", "password": "123",
		})
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("Long Password", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/users", "", map[string]string{
			"name": "Bob", "username": "bob", "email": "bob@example.com", "password": strings.Repeat("a", 80),
		})
		expectStatus(t, rec, http.StatusBadRequest)
		if body := decodeBody[map[string]any](t, rec); body["error"] != "A senha deve ter no máximo 72 bytes" {
			t.Errorf("unexpected body %v", body)
		}

		rec = f.do(t, http.MethodPost, "/api/users", "", map[string]string{
			"name": "Carol", "username": "carol", "email": "carol@example.com", "password": strings.Repeat("é", 36),
		})
		expectStatus(t, rec, http.StatusCreated)
	})

	t.Run("Invalid Username", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/users", "", map[string]string{
			"name": "Bob", "username": "b!", "email": "bob@example.com", "password": testPassword,
		})
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("Login", func(t *testing.T) {
		tests := []struct {
			name   string
			body   map[string]string
			status int
		}{
			{"By Username", map[string]string{"login": "alice", "password": testPassword}, http.StatusOK},
			{"By Email", map[string]string{"email": "ALICE@example.com", "password": testPassword}, http.StatusOK},
			{"Wrong Password", map[string]string{"login": "alice", "password": "errada"}, http.StatusUnauthorized},
			{"Unknown User", map[string]string{"login": "ninguem", "password": testPassword}, http.StatusUnauthorized},
			{"Missing Fields", map[string]string{"login": "alice"}, http.StatusBadRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := f.do(t, http.MethodPost, "/api/sessions", "", tt.body)
				expectStatus(t, rec, tt.status)
				if tt.status == http.StatusOK {
					resp := decodeBody[sessionResponse](t, rec)
					if resp.Token == "" || resp.User.ID != aliceID {
						t.Errorf("unexpected session %+v", resp)
					}
				}
			})
		}
	})

	t.Run("Me", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/me", aliceToken, nil)
		expectStatus(t, rec, http.StatusOK)
		me := decodeBody[userView](t, rec)
		if me.Username != "alice" || me.Email != "alice@example.com" || me.PhotoURL != models.DefaultPhotoURL {
			t.Errorf("unexpected user %+v", me)
		}

		expectStatus(t, f.do(t, http.MethodGet, "/api/me", "", nil), http.StatusUnauthorized)
		expectStatus(t, f.do(t, http.MethodGet, "/api/me", "not-a-token", nil), http.StatusUnauthorized)
	})

	t.Run("Get User By Username", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/users/alice", "", nil)
		expectStatus(t, rec, http.StatusOK)
		u := decodeBody[userView](t, rec)
		if u.ID != aliceID || u.Email != "" || u.Following != nil {
			t.Errorf("unexpected public user %+v", u)
		}

		expectStatus(t, f.do(t, http.MethodGet, "/api/users/ninguem", "", nil), http.StatusNotFound)
	})
}

func TestFollows(t *testing.T) {
	f := newFixture(t)
	aliceToken, aliceID := f.register(t, "alice")
	bobToken, bobID := f.register(t, "bob")

	expectStatus(t, f.do(t, http.MethodPost, "/api/users/"+bobID+"/follow", aliceToken, nil), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodPost, "/api/users/"+bobID+"/follow", aliceToken, nil), http.StatusOK)

	t.Run("Follow Notifies Once", func(t *testing.T) {
		list := f.notifications(t, bobToken)
		if len(list) != 1 || list[0].Type != models.NotifyFollow || list[0].FromUserID != aliceID {
			t.Fatalf("expected one follow notification, got %+v", list)
		}
		if list[0].FromUserUsername != "alice" || list[0].FromUserName != "User alice" {
			t.Errorf("expected sender details, got %+v", list[0])
		}
	})

	t.Run("Viewer Sees Follow State", func(t *testing.T) {
		u := decodeBody[userView](t, f.do(t, http.MethodGet, "/api/users/"+bobID, aliceToken, nil))
		if u.Following == nil || !*u.Following {
			t.Errorf("expected isFollowing true, got %+v", u.Following)
		}
	})

	t.Run("Lists", func(t *testing.T) {
		followers := decodeBody[[]userView](t, f.do(t, http.MethodGet, "/api/users/"+bobID+"/followers", "", nil))
		following := decodeBody[[]userView](t, f.do(t, http.MethodGet, "/api/users/"+aliceID+"/following", "", nil))
		if len(followers) != 1 || followers[0].ID != aliceID || len(following) != 1 || following[0].ID != bobID {
			t.Errorf("unexpected lists %+v %+v", followers, following)
		}
	})

	t.Run("Self Follow Rejected", func(t *testing.T) {
		expectStatus(t, f.do(t, http.MethodPost, "/api/users/"+aliceID+"/follow", aliceToken, nil), http.StatusBadRequest)
	})

	t.Run("Unfollow", func(t *testing.T) {
		expectStatus(t, f.do(t, http.MethodDelete, "/api/users/"+bobID+"/follow", aliceToken, nil), http.StatusOK)
		expectStatus(t, f.do(t, http.MethodDelete, "/api/users/"+bobID+"/follow", aliceToken, nil), http.StatusNotFound)
	})

	t.Run("Requires Session", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/users/"+bobID+"/follow", "", nil)
		expectStatus(t, rec, http.StatusUnauthorized)
		if body := decodeBody[map[string]any](t, rec); body["error"] != "Token não fornecido" {
			t.Errorf("unexpected error body %v", body)
		}
	})
}

func TestPosts(t *testing.T) {
	f := newFixture(t)
	aliceToken, _ := f.register(t, "alice")
	bobToken, bobID := f.register(t, "bob")
	carolToken, carolID := f.register(t, "carol")

	original := f.post(t, aliceToken, map[string]any{"content": "Ouvindo Dois de novo"})
	if original.Type != models.KindTweet || original.Author == nil || original.Author.Username != "alice" {
		t.Fatalf("unexpected post %+v", original)
	}

	t.Run("Reply Notifies Parent Author", func(t *testing.T) {
		reply := f.post(t, bobToken, map[string]any{"content": "Disco perfeito", "parentTweetId": original.ID})
		if reply.ParentID != original.ID {
			t.Errorf("expected parent %s, got %s", original.ID, reply.ParentID)
		}

		list := f.notifications(t, aliceToken)
		if len(list) != 1 || list[0].Type != models.NotifyReply || list[0].TweetID != reply.ID {
			t.Errorf("expected reply notification, got %+v", list)
		}

		replies := decodeBody[[]postView](t, f.do(t, http.MethodGet, "/api/posts/"+original.ID+"/replies", "", nil))
		if len(replies) != 1 || replies[0].ID != reply.ID {
			t.Errorf("unexpected replies %+v", replies)
		}

		got := decodeBody[postView](t, f.do(t, http.MethodGet, "/api/posts/"+original.ID, "", nil))
		if got.Replies != 1 {
			t.Errorf("expected reply count 1, got %d", got.Replies)
		}
	})

	t.Run("Reply To Missing Post", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/posts", bobToken, map[string]any{"content": "oi", "parentTweetId": "nope"})
		expectStatus(t, rec, http.StatusNotFound)
	})

	t.Run("Mentions Notify", func(t *testing.T) {
		f.post(t, bobToken, map[string]any{"content": "@carol e @carol escutem isso, email@host não conta"})
		list := f.notifications(t, carolToken)
		if len(list) != 1 || list[0].Type != models.NotifyMention || list[0].FromUserID != bobID {
			t.Errorf("expected one mention notification, got %+v", list)
		}
	})

	t.Run("Review Notifies Nobody", func(t *testing.T) {
		before := len(f.notifications(t, aliceToken))
		review := f.post(t, carolToken, map[string]any{
			"type": "review", "rating": 4, "content": "@alice olha isso",
			"track": map[string]any{"id": "t1", "name": "Tempo Perdido", "artist": "Legião Urbana", "artistId": "a1"},
		})
		if review.Rating != 4 || review.Track == nil || review.Track.ArtistID != "a1" {
			t.Errorf("unexpected review %+v", review)
		}
		if after := len(f.notifications(t, aliceToken)); after != before {
			t.Errorf("expected no new notifications, got %d -> %d", before, after)
		}

		reviews := decodeBody[[]postView](t, f.do(t, http.MethodGet, "/api/users/"+carolID+"/reviews", "", nil))
		if len(reviews) != 1 || reviews[0].ID != review.ID {
			t.Errorf("unexpected reviews %+v", reviews)
		}
	})

	t.Run("Invalid Posts", func(t *testing.T) {
		tests := []struct {
			name string
			body map[string]any
		}{
			{"Empty Tweet", map[string]any{"content": "  "}},
			{"Too Long", map[string]any{"content": strings.Repeat("a", models.MaxPostLength+1)}},
			{"Review Without Rating", map[string]any{"type": "review", "album": map[string]any{"id": "al1", "name": "Dois"}}},
			{"Unknown Type", map[string]any{"type": "poll", "content": "?"}},
			{"Malformed JSON", nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var body any = tt.body
				if tt.body == nil {
					body = "{not json"
				}
				expectStatus(t, f.do(t, http.MethodPost, "/api/posts", aliceToken, body), http.StatusBadRequest)
			})
		}
	})

	t.Run("Like And Unlike", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/posts/"+original.ID+"/like", bobToken, nil)
		expectStatus(t, rec, http.StatusOK)
		liked := decodeBody[postView](t, rec)
		if !liked.Liked || !cmp.Equal(liked.Likes, []string{bobID}) {
			t.Errorf("expected like by bob, got %+v", liked)
		}

		types := notificationTypes(f.notifications(t, aliceToken))
		if types[0] != models.NotifyLike {
			t.Errorf("expected newest notification to be a like, got %v", types)
		}

		rec = f.do(t, http.MethodDelete, "/api/posts/"+original.ID+"/like", bobToken, nil)
		expectStatus(t, rec, http.StatusOK)
		if unliked := decodeBody[postView](t, rec); unliked.Liked || len(unliked.Likes) != 0 {
			t.Errorf("expected like removed, got %+v", unliked)
		}

		for _, kind := range notificationTypes(f.notifications(t, aliceToken)) {
			if kind == models.NotifyLike {
				t.Error("expected like notification to be removed")
			}
		}
	})

	t.Run("Own Like Is Not Notified", func(t *testing.T) {
		before := len(f.notifications(t, aliceToken))
		expectStatus(t, f.do(t, http.MethodPost, "/api/posts/"+original.ID+"/like", aliceToken, nil), http.StatusOK)
		if after := len(f.notifications(t, aliceToken)); after != before {
			t.Errorf("expected no self notification, got %d -> %d", before, after)
		}
	})

	t.Run("Repost", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/posts/"+original.ID+"/repost", carolToken, nil)
		expectStatus(t, rec, http.StatusOK)
		if p := decodeBody[postView](t, rec); !cmp.Equal(p.Retweets, []string{carolID}) {
			t.Errorf("expected repost by carol, got %v", p.Retweets)
		}
		if types := notificationTypes(f.notifications(t, aliceToken)); types[0] != models.NotifyRetweet {
			t.Errorf("expected retweet notification, got %v", types)
		}
		expectStatus(t, f.do(t, http.MethodDelete, "/api/posts/"+original.ID+"/repost", carolToken, nil), http.StatusOK)
	})

	t.Run("Feed", func(t *testing.T) {
		expectStatus(t, f.do(t, http.MethodPost, "/api/users/"+bobID+"/follow", aliceToken, nil), http.StatusOK)
		bobs := f.post(t, bobToken, map[string]any{"content": "Novo post do bob"})

		feed := decodeBody[[]postView](t, f.do(t, http.MethodGet, "/api/feed", aliceToken, nil))
		var ids []string
		for _, p := range feed {
			ids = append(ids, p.ID)
			if p.ParentID != "" {
				t.Errorf("expected only top-level posts, got reply %s", p.ID)
			}
		}
		if len(ids) < 2 || ids[0] != bobs.ID || !strings.Contains(strings.Join(ids, ","), original.ID) {
			t.Errorf("expected bob's post first and alice's post included, got %v", ids)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		expectStatus(t, f.do(t, http.MethodDelete, "/api/posts/"+original.ID, bobToken, nil), http.StatusForbidden)
		expectStatus(t, f.do(t, http.MethodDelete, "/api/posts/"+original.ID, aliceToken, nil), http.StatusNoContent)
		expectStatus(t, f.do(t, http.MethodGet, "/api/posts/"+original.ID, "", nil), http.StatusNotFound)
		expectStatus(t, f.do(t, http.MethodDelete, "/api/posts/"+original.ID, aliceToken, nil), http.StatusNotFound)
	})
}

func TestArtists(t *testing.T) {
	f := newFixture(t)
	aliceToken, _ := f.register(t, "alice")
	bobToken, _ := f.register(t, "bob")

	for i, name := range []string{"Tempo Perdido", "Índios", "Há Tempos"} {
		f.post(t, aliceToken, map[string]any{
			"type": "review", "rating": 3 + i%2,
			"track": map[string]any{"id": fmt.Sprintf("t%d", i), "name": name, "artist": "Legião Urbana", "artistId": "a1"},
		})
	}
	f.post(t, bobToken, map[string]any{
		"type": "review", "rating": 5,
		"album": map[string]any{"id": "al1", "name": "Dois", "artist": "legião urbana"},
	})

	t.Run("Follow", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/artists/a1/follow", aliceToken, map[string]any{
			"artistName": "Legião Urbana", "artistImage": "https://img/legiao.jpg", "genres": []string{"mpb", "rock"},
		})
		expectStatus(t, rec, http.StatusCreated)
		fa := decodeBody[followedArtistView](t, rec)
		if fa.ReviewsCount != 3 || !fa.Notifications || fa.AffinityLabel == "" {
			t.Errorf("unexpected followed artist %+v", fa)
		}

		rec = f.do(t, http.MethodPost, "/api/artists/a1/follow", aliceToken, map[string]any{"artistName": "Legião Urbana"})
		expectStatus(t, rec, http.StatusConflict)

		rec = f.do(t, http.MethodPost, "/api/artists/a2/follow", aliceToken, map[string]any{})
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("Status", func(t *testing.T) {
		body := decodeBody[map[string]any](t, f.do(t, http.MethodGet, "/api/artists/a1/follow", aliceToken, nil))
		if body["following"] != true {
			t.Errorf("expected following, got %v", body)
		}
		body = decodeBody[map[string]any](t, f.do(t, http.MethodGet, "/api/artists/a1/follow", bobToken, nil))
		if body["following"] != false {
			t.Errorf("expected not following, got %v", body)
		}
	})

	t.Run("Toggle Notifications", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/artists/a1/follow/notifications", aliceToken, nil)
		expectStatus(t, rec, http.StatusOK)
		if body := decodeBody[map[string]bool](t, rec); body["notificationsEnabled"] {
			t.Errorf("expected notifications off, got %v", body)
		}
		expectStatus(t, f.do(t, http.MethodPatch, "/api/artists/a1/follow/notifications", bobToken, nil), http.StatusNotFound)
	})

	t.Run("Followed List", func(t *testing.T) {
		list := decodeBody[[]followedArtistView](t, f.do(t, http.MethodGet, "/api/artists/followed", aliceToken, nil))
		if len(list) != 1 || list[0].ArtistID != "a1" || list[0].Notifications {
			t.Errorf("unexpected list %+v", list)
		}
		if !cmp.Equal(list[0].Genres, []string{"mpb", "rock"}) {
			t.Errorf("unexpected genres %v", list[0].Genres)
		}
	})

	t.Run("Community Reviews Match By ID Or Name", func(t *testing.T) {
		reviews := decodeBody[[]postView](t, f.do(t, http.MethodGet, "/api/artists/a1/reviews?name=Legi%C3%A3o+Urbana", "", nil))
		if len(reviews) != 4 {
			t.Errorf("expected 4 reviews, got %d", len(reviews))
		}
		reviews = decodeBody[[]postView](t, f.do(t, http.MethodGet, "/api/artists/a1/reviews", "", nil))
		if len(reviews) != 3 {
			t.Errorf("expected 3 reviews by ID, got %d", len(reviews))
		}
	})

	t.Run("Unfollow", func(t *testing.T) {
		expectStatus(t, f.do(t, http.MethodDelete, "/api/artists/a1/follow", aliceToken, nil), http.StatusOK)
		expectStatus(t, f.do(t, http.MethodDelete, "/api/artists/a1/follow", aliceToken, nil), http.StatusNotFound)
	})
}

func TestCatalogRoutes(t *testing.T) {
	f := newFixture(t)
	f.catalog.SearchResults = []models.SearchResult{{Type: models.ItemTrack, ID: "t1", Name: "Tempo Perdido", Artist: "Legião Urbana"}}
	f.catalog.Artists = map[string]*models.Artist{"a1": {ID: "a1", Name: "Legião Urbana"}}
	f.catalog.Genres = []models.GenreCount{{Name: "mpb", Count: 2}}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		error  string
	}{
		{"Search", http.MethodGet, "/api/spotify/search?q=tempo", nil, http.StatusOK, ""},
		{"Search Empty", http.MethodGet, "/api/spotify/search?q=+", nil, http.StatusBadRequest, "Termo de busca vazio"},
		{"Artist", http.MethodGet, "/api/spotify/artist?id=a1", nil, http.StatusOK, ""},
		{"Artist Missing ID", http.MethodGet, "/api/spotify/artist", nil, http.StatusBadRequest, "ID do artista é obrigatório"},
		{"Artist Unknown", http.MethodGet, "/api/spotify/artist?id=zz", nil, http.StatusNotFound, ""},
		{"Top Tracks Missing ID", http.MethodGet, "/api/spotify/artist-top-tracks", nil, http.StatusBadRequest, "ID do artista é obrigatório"},
		{"Albums Missing ID", http.MethodGet, "/api/spotify/artist-albums", nil, http.StatusBadRequest, "ID do artista é obrigatório"},
		{"Albums", http.MethodGet, "/api/spotify/artist-albums?id=a1&limit=5", nil, http.StatusOK, ""},
		{"Genres", http.MethodPost, "/api/spotify/artist-genres", map[string]any{"artists": []string{"Legião Urbana"}}, http.StatusOK, ""},
		{"Genres Without Artists", http.MethodPost, "/api/spotify/artist-genres", map[string]any{}, http.StatusBadRequest, "Artists array required"},
		{"Genres Wrong Method", http.MethodGet, "/api/spotify/artist-genres", nil, http.StatusMethodNotAllowed, "Method not allowed"},
		{"Explore", http.MethodGet, "/api/spotify/explore?genre=mpb", nil, http.StatusOK, ""},
		{"Trends", http.MethodGet, "/api/spotify/trends", nil, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, "", tt.body)
			expectStatus(t, rec, tt.status)
			if tt.error != "" {
				if body := decodeBody[map[string]any](t, rec); body["error"] != tt.error {
					t.Errorf("expected error %q, got %v", tt.error, body)
				}
			}
		})
	}

	t.Run("Genres Body", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/spotify/artist-genres", "", nil)
		if body := decodeBody[map[string]any](t, rec); !cmp.Equal(body["genres"], []any{}) {
			t.Errorf("expected empty genres on 405, got %v", body)
		}
	})

	t.Run("Empty Lists Are Arrays", func(t *testing.T) {
		for _, path := range []string{"/api/spotify/explore?genre=nada", "/api/spotify/trends", "/api/spotify/artist-top-tracks?id=a1"} {
			rec := f.do(t, http.MethodGet, path, "", nil)
			if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
				t.Errorf("%s: expected [], got %s", path, got)
			}
		}
	})

	t.Run("Upstream Failures", func(t *testing.T) {
		failing := newFixture(t)
		failing.catalog.Err = fmt.Errorf("%w: boom", shared.ErrAPIRequest)

		rec := failing.do(t, http.MethodGet, "/api/spotify/explore?genre=mpb", "", nil)
		expectStatus(t, rec, http.StatusOK)
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("expected [] from explore, got %s", rec.Body.String())
		}

		rec = failing.do(t, http.MethodGet, "/api/spotify/trends", "", nil)
		expectStatus(t, rec, http.StatusInternalServerError)

		rec = failing.do(t, http.MethodPost, "/api/spotify/artist-genres", "", map[string]any{"artists": []string{"x"}})
		expectStatus(t, rec, http.StatusInternalServerError)
		if body := decodeBody[map[string]any](t, rec); body["error"] != "Erro ao buscar gêneros" {
			t.Errorf("unexpected body %v", body)
		}

		rec = failing.do(t, http.MethodGet, "/api/spotify/search?q=x", "", nil)
		expectStatus(t, rec, http.StatusBadGateway)
		if body := decodeBody[map[string]any](t, rec); body["error"] != "Falha ao buscar dados" {
			t.Errorf("unexpected body %v", body)
		}
	})
}

func TestSpotifyRoutes(t *testing.T) {
	playing := &models.NowPlaying{
		IsPlaying: true,
		Track:     &models.PlayingTrack{ID: "t1", Name: "Tempo Perdido", Artist: "Legião Urbana"},
	}

	t.Run("Connect Through OAuth", func(t *testing.T) {
		f := newFixture(t)
		token, userID := f.register(t, "alice")
		f.player.Codes["good"] = &oauth2.Token{AccessToken: "tok-alice", RefreshToken: "ref-alice", Expiry: time.Now().Add(time.Hour)}

		rec := f.do(t, http.MethodGet, "/api/spotify/auth/login", token, nil)
		expectStatus(t, rec, http.StatusFound)
		loc, err := url.Parse(rec.Header().Get("Location"))
		if err != nil {
			t.Fatalf("invalid redirect: %v", err)
		}
		state := loc.Query().Get("state")
		if state == "" {
			t.Fatalf("expected state in %s", loc)
		}

		rec = f.do(t, http.MethodGet, "/api/spotify/auth/callback?code=good&state="+url.QueryEscape(state), "", nil)
		expectStatus(t, rec, http.StatusFound)
		if got := rec.Header().Get("Location"); got != "http://localhost:3000/home?spotify_connected=true" {
			t.Errorf("unexpected redirect %s", got)
		}

		conn, err := f.app.connections.Get(userID)
		if err != nil || conn.AccessToken != "tok-alice" {
			t.Fatalf("expected stored connection, got %+v %v", conn, err)
		}

		t.Run("Session Token Is Not A State", func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/spotify/auth/callback?code=good&state="+token, "", nil)
			if got := rec.Header().Get("Location"); !strings.HasSuffix(got, "spotify_error=invalid_state") {
				t.Errorf("expected invalid_state, got %s", got)
			}
		})

		t.Run("Login As JSON", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/spotify/auth/login", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Accept", "application/json")
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)

			expectStatus(t, rec, http.StatusOK)
			if body := decodeBody[map[string]string](t, rec); !strings.HasPrefix(body["url"], "https://accounts.example.com/") {
				t.Errorf("unexpected body %v", body)
			}
		})

		t.Run("Disconnect", func(t *testing.T) {
			expectStatus(t, f.do(t, http.MethodDelete, "/api/spotify/connection", token, nil), http.StatusNoContent)
			if _, err := f.app.connections.Get(userID); !errors.Is(err, shared.ErrNotConnected) {
				t.Errorf("expected ErrNotConnected, got %v", err)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		f := newFixture(t)
		token, userID := f.register(t, "alice")
		f.player.Refreshes["ref-alice"] = &oauth2.Token{AccessToken: "tok-new", Expiry: time.Now().Add(time.Hour)}

		rec := f.do(t, http.MethodPost, "/api/spotify/auth/refresh", "", map[string]string{})
		expectStatus(t, rec, http.StatusBadRequest)
		if body := decodeBody[map[string]any](t, rec); body["error"] != "refresh_token é obrigatório" {
			t.Errorf("unexpected body %v", body)
		}

		rec = f.do(t, http.MethodPost, "/api/spotify/auth/refresh", "", map[string]string{"refresh_token": "bad"})
		expectStatus(t, rec, http.StatusBadRequest)
		if body := decodeBody[map[string]any](t, rec); body["error"] != "Falha ao renovar token" {
			t.Errorf("unexpected body %v", body)
		}

		rec = f.do(t, http.MethodPost, "/api/spotify/auth/refresh", token, map[string]string{"refresh_token": "ref-alice", "user_id": userID})
		expectStatus(t, rec, http.StatusOK)
		resp := decodeBody[refreshResponse](t, rec)
		if resp.AccessToken != "tok-new" || resp.RefreshToken != "ref-alice" {
			t.Errorf("unexpected response %+v", resp)
		}
		if resp.ExpiresIn < 3590 || resp.ExpiresIn > 3600 {
			t.Errorf("expected expires_in near 3600, got %d", resp.ExpiresIn)
		}

		conn, err := f.app.connections.Get(userID)
		if err != nil || conn.AccessToken != "tok-new" || conn.RefreshToken != "ref-alice" {
			t.Errorf("expected refreshed tokens stored, got %+v %v", conn, err)
		}
	})

	t.Run("Currently Playing", func(t *testing.T) {
		f := newFixture(t)
		f.player.Playing["tok-ok"] = playing

		tests := []struct {
			name   string
			token  string
			status int
			want   map[string]any
		}{
			{"No Token", "", http.StatusUnauthorized, map[string]any{"error": "Token não fornecido", "isPlaying": false}},
			{"Expired", "tok-old", http.StatusUnauthorized, map[string]any{"error": "Token expirado", "isPlaying": false, "needsRefresh": true}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := f.do(t, http.MethodGet, "/api/spotify/me/playing", tt.token, nil)
				expectStatus(t, rec, tt.status)
				if diff := cmp.Diff(tt.want, decodeBody[map[string]any](t, rec)); diff != "" {
					t.Errorf("body mismatch (-want +got):\n%s", diff)
				}
			})
		}

		t.Run("Playing", func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/spotify/me/playing", "tok-ok", nil)
			expectStatus(t, rec, http.StatusOK)
			np := decodeBody[models.NowPlaying](t, rec)
			if !np.HasTrack() || np.Track.Name != "Tempo Perdido" {
				t.Errorf("unexpected state %+v", np)
			}
		})
	})

	t.Run("Friends Listening", func(t *testing.T) {
		tests := []struct {
			name    string
			polling bool
		}{
			{"Live Polling", false},
			{"Stored Playback", true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t, func(c *shared.Config) { c.Polling.Enabled = tt.polling })
				aliceToken, _ := f.register(t, "alice")
				_, bobID := f.register(t, "bob")
				expectStatus(t, f.do(t, http.MethodPost, "/api/users/"+bobID+"/follow", aliceToken, nil), http.StatusOK)

				if tt.polling {
					if err := f.app.playback.Save(bobID, playing); err != nil {
						t.Fatalf("failed to save playback: %v", err)
					}
				} else {
					f.player.Playing["tok-bob"] = playing
					conn := &models.SpotifyConnection{UserID: bobID, AccessToken: "tok-bob", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}
					if err := f.app.connections.Save(conn); err != nil {
						t.Fatalf("failed to save connection: %v", err)
					}
				}

				rec := f.do(t, http.MethodGet, "/api/friends/listening", aliceToken, nil)
				expectStatus(t, rec, http.StatusOK)
				friends := decodeBody[[]models.FriendListening](t, rec)
				if len(friends) != 1 || friends[0].Username != "bob" || friends[0].Track.Name != "Tempo Perdido" {
					t.Errorf("unexpected friends %+v", friends)
				}
				if tt.polling && f.player.Polls() != 0 {
					t.Errorf("expected stored playback without polling, got %d polls", f.player.Polls())
				}

				np := decodeBody[models.NowPlaying](t, f.do(t, http.MethodGet, "/api/users/"+bobID+"/now-playing", "", nil))
				if !np.HasTrack() {
					t.Errorf("expected bob's stored playback, got %+v", np)
				}
			})
		}
	})
}

func TestLyricsRoutes(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/lyrics", "/api/lyrics/search", "/api/lyrics/genius", "/api/lyrics/vagalume", "/api/lyrics/lrclib"} {
		t.Run(path, func(t *testing.T) {
			q := url.Values{"artist": {"Legião Urbana"}, "track": {"Tempo Perdido"}}
			rec := f.do(t, http.MethodGet, path+"?"+q.Encode(), "", nil)
			expectStatus(t, rec, http.StatusOK)
			if got := decodeBody[models.LyricsResult](t, rec); got.Lyrics == nil || *got.Lyrics != "Todos os dias quando acordo" {
				t.Errorf("unexpected lyrics %+v", got)
			}

			rec = f.do(t, http.MethodGet, path+"?artist=Legi%C3%A3o+Urbana", "", nil)
			expectStatus(t, rec, http.StatusBadRequest)

			rec = f.do(t, http.MethodGet, path+"?artist=Ningu%C3%A9m&track=Nada", "", nil)
			expectStatus(t, rec, http.StatusNotFound)
			want := map[string]any{"error": "Letra não encontrada", "lyrics": nil}
			if diff := cmp.Diff(want, decodeBody[map[string]any](t, rec)); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("Provider Failure", func(t *testing.T) {
		f.lyrics.Err = shared.ErrServiceUnavailable
		defer func() { f.lyrics.Err = nil }()

		rec := f.do(t, http.MethodGet, "/api/lyrics?artist=a&track=b", "", nil)
		expectStatus(t, rec, http.StatusInternalServerError)
		if body := decodeBody[map[string]any](t, rec); body["error"] != "Erro ao buscar letra" {
			t.Errorf("unexpected body %v", body)
		}
	})
}

func TestRecommendRoute(t *testing.T) {
	f := newFixture(t)
	token, _ := f.register(t, "alice")

	t.Run("Wrong Method", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/gemini/recommend", "", nil)
		expectStatus(t, rec, http.StatusMethodNotAllowed)
		if body := decodeBody[map[string]any](t, rec); body["error"] != "Method not allowed" {
			t.Errorf("unexpected body %v", body)
		}
	})

	t.Run("Reviews From Body", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/gemini/recommend", "", map[string]any{
			"userReviews": []map[string]any{{"trackName": "Tempo Perdido", "artistName": "Legião Urbana", "rating": 5}},
		})
		expectStatus(t, rec, http.StatusOK)
		got := decodeBody[services.Recommendations](t, rec)
		if got.Source != services.SourceGemini || len(got.Recommendations) != 1 {
			t.Errorf("unexpected recommendations %+v", got)
		}
		if len(f.recommender.got) != 1 || f.recommender.got[0].TrackName != "Tempo Perdido" {
			t.Errorf("unexpected reviews passed %+v", f.recommender.got)
		}
	})

	t.Run("Stored Reviews For Signed In User", func(t *testing.T) {
		f.post(t, token, map[string]any{
			"type": "review", "rating": 5,
			"album": map[string]any{"id": "al1", "name": "Dois", "artist": "Legião Urbana"},
		})

		expectStatus(t, f.do(t, http.MethodPost, "/api/gemini/recommend", token, nil), http.StatusOK)
		want := []services.ReviewInput{{Album: &services.ReviewItem{Name: "Dois", Artist: "Legião Urbana"}, Rating: 5}}
		if diff := cmp.Diff(want, f.recommender.got); diff != "" {
			t.Errorf("reviews mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Failure", func(t *testing.T) {
		f.recommender.err = errors.New("boom")
		defer func() { f.recommender.err = nil }()

		rec := f.do(t, http.MethodPost, "/api/gemini/recommend", "", map[string]any{"userReviews": []any{}})
		expectStatus(t, rec, http.StatusInternalServerError)
		if body := decodeBody[map[string]any](t, rec); body["error"] != "Erro ao buscar recomendações" {
			t.Errorf("unexpected body %v", body)
		}
	})
}

func TestNotificationRoutes(t *testing.T) {
	f := newFixture(t)
	aliceToken, aliceID := f.register(t, "alice")
	bobToken, bobID := f.register(t, "bob")

	t.Run("Create", func(t *testing.T) {
		tests := []struct {
			name   string
			token  string
			body   map[string]any
			status int
			want   map[string]any
		}{
			{
				name:   "No Session",
				body:   map[string]any{"type": "like", "toUserId": aliceID, "fromUserId": bobID},
				status: http.StatusUnauthorized,
			},
			{
				name:   "Missing Fields",
				token:  bobToken,
				body:   map[string]any{"type": "like", "toUserId": aliceID},
				status: http.StatusBadRequest,
				want:   map[string]any{"error": "Campos obrigatórios: type, toUserId, fromUserId"},
			},
			{
				name:   "Same User",
				token:  aliceToken,
				body:   map[string]any{"type": "like", "toUserId": aliceID, "fromUserId": aliceID},
				status: http.StatusOK,
				want:   map[string]any{"message": "Notificação ignorada (mesmo usuário)"},
			},
			{
				name:   "Sender Must Match Session",
				token:  aliceToken,
				body:   map[string]any{"type": "like", "toUserId": aliceID, "fromUserId": bobID},
				status: http.StatusForbidden,
			},
			{
				name:   "Unknown Type",
				token:  bobToken,
				body:   map[string]any{"type": "poke", "toUserId": aliceID, "fromUserId": bobID},
				status: http.StatusBadRequest,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := f.do(t, http.MethodPost, "/api/notifications/create", tt.token, tt.body)
				expectStatus(t, rec, tt.status)
				if tt.want != nil {
					if diff := cmp.Diff(tt.want, decodeBody[map[string]any](t, rec)); diff != "" {
						t.Errorf("body mismatch (-want +got):\n%s", diff)
					}
				}
			})
		}

		t.Run("Defaults And Truncation", func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/notifications/create", bobToken, map[string]any{
				"type": "like", "toUserId": aliceID, "fromUserId": bobID, "tweetId": "p1",
				"tweetText": strings.Repeat("á", 150),
			})
			expectStatus(t, rec, http.StatusOK)
			if body := decodeBody[map[string]any](t, rec); body["success"] != true {
				t.Errorf("unexpected body %v", body)
			}

			list := f.notifications(t, aliceToken)
			if len(list) != 1 {
				t.Fatalf("expected one notification, got %d", len(list))
			}
			n := list[0]
			if n.FromUserName != "Usuário" || n.FromUserUsername != "user" || n.FromUserPhoto != models.DefaultPhotoURL {
				t.Errorf("expected sender defaults, got %+v", n)
			}
			if n.TweetText != strings.Repeat("á", models.MaxNotificationText) {
				t.Errorf("expected text cut to %d runes, got %d bytes", models.MaxNotificationText, len(n.TweetText))
			}
		})

		t.Run("Wrong Method", func(t *testing.T) {
			expectStatus(t, f.do(t, http.MethodGet, "/api/notifications/create", "", nil), http.StatusMethodNotAllowed)
		})
	})

	t.Run("Read State", func(t *testing.T) {
		expectStatus(t, f.do(t, http.MethodPost, "/api/users/"+aliceID+"/follow", bobToken, nil), http.StatusOK)

		count := decodeBody[map[string]int](t, f.do(t, http.MethodGet, "/api/notifications/unread-count", aliceToken, nil))
		if count["count"] != 2 {
			t.Fatalf("expected 2 unread, got %v", count)
		}

		list := f.notifications(t, aliceToken)
		expectStatus(t, f.do(t, http.MethodPost, "/api/notifications/"+list[0].ID+"/read", bobToken, nil), http.StatusNotFound)
		expectStatus(t, f.do(t, http.MethodPost, "/api/notifications/"+list[0].ID+"/read", aliceToken, nil), http.StatusOK)

		unread := decodeBody[[]notificationView](t, f.do(t, http.MethodGet, "/api/notifications?unread=true", aliceToken, nil))
		if len(unread) != 1 || unread[0].ID != list[1].ID {
			t.Errorf("expected only the older notification unread, got %+v", unread)
		}

		rec := f.do(t, http.MethodPost, "/api/notifications/read-all", aliceToken, nil)
		expectStatus(t, rec, http.StatusOK)
		if body := decodeBody[map[string]any](t, rec); body["updated"] != float64(1) {
			t.Errorf("expected 1 updated, got %v", body)
		}

		count = decodeBody[map[string]int](t, f.do(t, http.MethodGet, "/api/notifications/unread-count", aliceToken, nil))
		if count["count"] != 0 {
			t.Errorf("expected 0 unread, got %v", count)
		}
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("validation failed: %w", shared.ErrInvalidInput), http.StatusBadRequest},
		{shared.ErrMissingArgument, http.StatusBadRequest},
		{shared.ErrNotAuthenticated, http.StatusUnauthorized},
		{shared.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: post 1", shared.ErrNotFound), http.StatusNotFound},
		{shared.ErrArtistNotFound, http.StatusNotFound},
		{shared.ErrConflict, http.StatusConflict},
		{shared.ErrRateLimited, http.StatusTooManyRequests},
		{&services.StatusError{Provider: "spotify", StatusCode: 502, Err: shared.ErrAPIRequest}, http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestMentions(t *testing.T) {
	got := mentions("@alice oi @Bob, @alice de novo. a@b.com @x @carol_2")
	if diff := cmp.Diff([]string{"alice", "Bob", "carol_2"}, got); diff != "" {
		t.Errorf("mentions mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerMiddleware(t *testing.T) {
	t.Run("CORS Preflight", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		expectStatus(t, rec, http.StatusNoContent)
		if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
			t.Errorf("expected allowed origin, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("Rate Limited", func(t *testing.T) {
		f := newFixture(t, func(c *shared.Config) { c.Server.RequestsPerSec = 1 })
		var last int
		for range 5 {
			last = f.do(t, http.MethodGet, "/health", "", nil).Code
		}
		if last != http.StatusTooManyRequests {
			t.Errorf("expected 429 after the burst, got %d", last)
		}
	})
}
