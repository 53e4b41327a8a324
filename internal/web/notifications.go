package web

import (
	"net/http"
	"strings"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/server"
)

const notificationsPageSize = 50

type createNotificationRequest struct {
	Type             models.NotificationType `json:"type"`
	ToUserID         string                  `json:"toUserId"`
	FromUserID       string                  `json:"fromUserId"`
	FromUserName     string                  `json:"fromUserName"`
	FromUserUsername string                  `json:"fromUserUsername"`
	FromUserPhoto    string                  `json:"fromUserPhoto"`
	TweetID          string                  `json:"tweetId"`
	TweetText        string                  `json:"tweetText"`
}

// notify records that from did something to the user to. Self notifications and failures are skipped, since
// the triggering action has already succeeded.
func (a *App) notify(kind models.NotificationType, to, from string, post *models.Post) {
	if to == "" || to == from {
		return
	}

	n := models.NewNotification(0, kind, to, from)
	if sender, err := a.users.Get(from); err == nil {
		n.FromUserName = sender.Name
		n.FromUserUsername = sender.Username
		n.FromUserPhoto = sender.Photo()
	}
	if post != nil {
		n.TweetID = post.ID()
		n.SetTweetText(post.Text)
	}

	if err := a.notifications.Create(n); err != nil {
		a.logger.Warn("notification not created", "type", kind, "to", to, "error", err)
	}
}

func (a *App) createNotification(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err, "Dados inválidos")
		return
	}
	if req.Type == "" || req.ToUserID == "" || req.FromUserID == "" {
		server.WriteError(w, http.StatusBadRequest, "Campos obrigatórios: type, toUserId, fromUserId")
		return
	}
	if currentUser(r) != req.FromUserID {
		server.WriteError(w, http.StatusForbidden, "Remetente inválido")
		return
	}
	if req.ToUserID == req.FromUserID {
		server.WriteJSON(w, http.StatusOK, map[string]string{"message": "Notificação ignorada (mesmo usuário)"})
		return
	}

	n := models.NewNotification(0, req.Type, req.ToUserID, req.FromUserID)
	if s := strings.TrimSpace(req.FromUserName); s != "" {
		n.FromUserName = s
	}
	if s := strings.TrimSpace(req.FromUserUsername); s != "" {
		n.FromUserUsername = s
	}
	if s := strings.TrimSpace(req.FromUserPhoto); s != "" {
		n.FromUserPhoto = s
	}
	n.TweetID = req.TweetID
	n.SetTweetText(req.TweetText)

	if err := a.notifications.Create(n); err != nil {
		a.fail(w, r, err, "Erro ao criar notificação")
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "id": n.ID()})
}

func (a *App) listNotifications(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{
		"user_id": currentUser(r),
		"unread":  r.URL.Query().Get("unread") == "true",
		"limit":   intParam(r, "limit", notificationsPageSize, 1, 200),
	}

	list, err := a.notifications.List(criteria)
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar notificações")
		return
	}

	views := make([]notificationView, 0, len(list))
	for _, n := range list {
		views = append(views, newNotificationView(n))
	}
	server.WriteJSON(w, http.StatusOK, views)
}

func (a *App) unreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := a.notifications.UnreadCount(currentUser(r))
	if err != nil {
		a.fail(w, r, err, "Erro ao contar notificações")
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (a *App) markRead(w http.ResponseWriter, r *http.Request) {
	if err := a.notifications.MarkRead(currentUser(r), r.PathValue("id")); err != nil {
		a.fail(w, r, err, "Notificação não encontrada")
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *App) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.notifications.MarkAllRead(currentUser(r))
	if err != nil {
		a.fail(w, r, err, "Erro ao marcar notificações")
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "updated": n})
}
