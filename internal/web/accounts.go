package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/server"
	"github.com/desertthunder/musicblah/internal/shared"
)

const (
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	maxPasswordBytes = 72
)

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
	PhotoURL string `json:"photoURL"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (a *App) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err, "Dados inválidos")
		return
	}
	if len(req.Password) < minPasswordLength {
		server.WriteError(w, http.StatusBadRequest, fmt.Sprintf("A senha deve ter pelo menos %d caracteres", minPasswordLength))
		return
	}
	if len(req.Password) > maxPasswordBytes {
		server.WriteError(w, http.StatusBadRequest, fmt.Sprintf("A senha deve ter no máximo %d bytes", maxPasswordBytes))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.fail(w, r, err, "Erro ao criar conta")
		return
	}

	user := models.NewUser(0, strings.TrimSpace(req.Name), strings.TrimSpace(req.Username), req.Email)
	user.PasswordHash = string(hash)
	user.Bio = req.Bio
	if req.PhotoURL != "" {
		user.PhotoURL = req.PhotoURL
	}

	if err := a.users.Create(user); err != nil {
		a.fail(w, r, err, "Erro ao criar conta")
		return
	}
	a.writeSession(w, r, http.StatusCreated, user)
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err, "Dados inválidos")
		return
	}

	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" || req.Password == "" {
		server.WriteError(w, http.StatusBadRequest, "Login e senha são obrigatórios")
		return
	}

	var (
		user *models.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = a.users.GetByEmail(strings.ToLower(login))
	} else {
		user, err = a.users.GetByUsername(login)
	}
	if err == nil {
		err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			server.WriteError(w, http.StatusUnauthorized, "Credenciais inválidas")
			return
		}
		a.fail(w, r, err, "Erro ao entrar")
		return
	}
	a.writeSession(w, r, http.StatusOK, user)
}

func (a *App) writeSession(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, err := a.sessions.Issue(user.ID())
	if err != nil {
		a.fail(w, r, err, "Erro ao criar sessão")
		return
	}

	view := newUserView(user)
	view.Email = user.Email
	server.WriteJSON(w, status, sessionResponse{Token: token, User: view})
}

func (a *App) me(w http.ResponseWriter, r *http.Request) {
	user, err := a.users.Get(currentUser(r))
	if err != nil {
		a.fail(w, r, err, "Usuário não encontrado")
		return
	}
	view := newUserView(user)
	view.Email = user.Email
	server.WriteJSON(w, http.StatusOK, view)
}

// lookupUser resolves a path ID that may also be a username.
func (a *App) lookupUser(id string) (*models.User, error) {
	user, err := a.users.Get(id)
	if errors.Is(err, shared.ErrNotFound) {
		return a.users.GetByUsername(strings.TrimPrefix(id, "@"))
	}
	return user, err
}

func (a *App) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.lookupUser(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err, "Usuário não encontrado")
		return
	}

	view := newUserView(user)
	if viewer := currentUser(r); viewer != "" && viewer != user.ID() {
		following, err := a.users.IsFollowing(viewer, user.ID())
		if err != nil {
			a.fail(w, r, err, "Erro ao buscar usuário")
			return
		}
		view.Following = &following
	}
	server.WriteJSON(w, http.StatusOK, view)
}

func (a *App) followUser(w http.ResponseWriter, r *http.Request) {
	follower := currentUser(r)
	target, err := a.users.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err, "Usuário não encontrado")
		return
	}

	already, err := a.users.IsFollowing(follower, target.ID())
	if err == nil {
		err = a.users.Follow(follower, target.ID())
	}
	if err != nil {
		a.fail(w, r, err, "Erro ao seguir usuário")
		return
	}

	if !already {
		a.notify(models.NotifyFollow, target.ID(), follower, nil)
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"following": true})
}

func (a *App) unfollowUser(w http.ResponseWriter, r *http.Request) {
	follower := currentUser(r)
	if err := a.users.Unfollow(follower, r.PathValue("id")); err != nil {
		a.fail(w, r, err, "Erro ao deixar de seguir")
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"following": false})
}

func (a *App) followers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.Followers(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar seguidores")
		return
	}
	server.WriteJSON(w, http.StatusOK, newUserViews(users))
}

func (a *App) following(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.Following(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar seguindo")
		return
	}
	server.WriteJSON(w, http.StatusOK, newUserViews(users))
}
