// notify — гейт уведомлений и доставка писем владельцам сущностей.
//
// Гейт — чистая фаза принятия решения: по факту публикации он либо
// производит NotificationIntent, либо нет. Доставка (SMTP) отделена
// интерфейсом Notifier; её сбой никогда не влияет на судьбу комментария.
package notify

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/access"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/config"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/contacts"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
)

// Gate принимает решение об уведомлении и собирает письмо.
type Gate struct {
	dir     contacts.Directory
	appName string
	appURL  string
}

// NewGate строит гейт поверх справочника контактов и настроек писем.
func NewGate(dir contacts.Directory, cfg config.NotifyConfig) *Gate {
	return &Gate{
		dir:     dir,
		appName: cfg.AppName,
		appURL:  cfg.AppURL,
	}
}

// Evaluate возвращает интент уведомления для свежесозданного комментария
// или nil, когда уведомление не положено: владелец неизвестен, совпадает с
// автором либо для него нет контактного адреса. Никаких ошибок: отсутствие
// уведомления — штатный исход.
func (g *Gate) Evaluate(actor models.Actor, comment models.Comment, owner models.EntityOwner) *models.NotificationIntent {
	addr := ""
	if strings.TrimSpace(owner.Owner) != "" {
		addr, _ = g.dir.ResolveAddress(owner.Owner)
	}

	if !access.CanNotify(actor, owner.Owner, addr) {
		return nil
	}

	category := models.NotifyNewComment
	if comment.IsReply() {
		category = models.NotifyReply
	}

	title := strings.TrimSpace(owner.DisplayName)
	if title == "" {
		title = fmt.Sprintf("%s %s", comment.Entity.Type, comment.Entity.ID)
	}

	subject := fmt.Sprintf("New Comment on '%s'", title)
	if category == models.NotifyReply {
		subject = fmt.Sprintf("New Reply on '%s'", title)
	}

	return &models.NotificationIntent{
		Recipient: owner.Owner,
		Address:   addr,
		Subject:   subject,
		Body:      g.renderBody(actor, comment, owner, title, category),
		Category:  category,
	}
}

// bodyTemplate — HTML-письмо: шапка приложения, цитата комментария, CTA-кнопка.
var bodyTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background-color:#f4f4f7;font-family:Arial,sans-serif;">
  <div style="max-width:600px;margin:0 auto;padding:24px;">
    <div style="background-color:#1f6feb;color:#ffffff;padding:16px 24px;border-radius:8px 8px 0 0;">
      <h2 style="margin:0;">{{.AppName}}</h2>
    </div>
    <div style="background-color:#ffffff;padding:24px;border-radius:0 0 8px 8px;">
      <p>Hello {{.Recipient}},</p>
      <p><strong>{{.ActorName}}</strong> {{.Action}} <strong>{{.Title}}</strong>:</p>
      <blockquote style="margin:16px 0;padding:12px 16px;background-color:#f4f4f7;border-left:4px solid #1f6feb;">
        {{.Content}}
      </blockquote>
      <p style="text-align:center;margin:24px 0;">
        <a href="{{.AppURL}}" style="display:inline-block;padding:12px 24px;background-color:#1f6feb;color:#ffffff;text-decoration:none;border-radius:6px;">Open {{.AppName}}</a>
      </p>
      <p style="color:#6e7781;font-size:12px;">You received this email because you own this item in {{.AppName}}.</p>
    </div>
  </div>
</body>
</html>
`))

func (g *Gate) renderBody(actor models.Actor, comment models.Comment, owner models.EntityOwner, title string, category models.NotificationCategory) string {
	action := "commented on"
	if category == models.NotifyReply {
		action = "replied in a thread on"
	}

	var b strings.Builder
	err := bodyTemplate.Execute(&b, struct {
		AppName   string
		AppURL    string
		Recipient string
		ActorName string
		Action    string
		Title     string
		Content   string
	}{
		AppName:   g.appName,
		AppURL:    g.appURL,
		Recipient: owner.Owner,
		ActorName: actor.Name,
		Action:    action,
		Title:     title,
		Content:   comment.Content,
	})
	if err != nil {
		// html/template с фиксированным шаблоном и строковыми полями не
		// ошибается; ветка оставлена на случай правок шаблона.
		return comment.Content
	}

	return b.String()
}
