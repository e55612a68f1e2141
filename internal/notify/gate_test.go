package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/config"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/contacts"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGate() *Gate {
	dir := contacts.NewStaticDirectory(map[string]string{
		"alice": "alice@x.com",
	})

	return NewGate(dir, config.NotifyConfig{
		AppName: "Problem File Tracker",
		AppURL:  "https://tracker.example.com/",
	})
}

func TestGate_Evaluate_NewComment_ProducesIntent(t *testing.T) {
	t.Parallel()

	g := testGate()

	actor := models.Actor{Name: "bob", Role: models.RoleUser}
	comment := models.Comment{
		ID:      "c1",
		Entity:  models.EntityRef{Type: models.EntityProblemFile, ID: "pf-1"},
		Author:  "bob",
		Content: "please check the margins",
	}
	owner := models.EntityOwner{Owner: "alice", DisplayName: "Q3 Report"}

	intent := g.Evaluate(actor, comment, owner)
	require.NotNil(t, intent)

	require.Equal(t, "alice", intent.Recipient)
	require.Equal(t, "alice@x.com", intent.Address)
	require.Equal(t, models.NotifyNewComment, intent.Category)
	require.Equal(t, "New Comment on 'Q3 Report'", intent.Subject)

	require.Contains(t, intent.Body, "bob")
	require.Contains(t, intent.Body, "please check the margins")
	require.Contains(t, intent.Body, "Problem File Tracker")
	require.Contains(t, intent.Body, "https://tracker.example.com/")
}

func TestGate_Evaluate_Reply_ProducesReplyIntent(t *testing.T) {
	t.Parallel()

	g := testGate()

	actor := models.Actor{Name: "bob", Role: models.RoleUser}
	comment := models.Comment{
		ID:       "c2",
		Entity:   models.EntityRef{Type: models.EntityProblemFile, ID: "pf-1"},
		Author:   "bob",
		Content:  "done",
		ParentID: "c1",
	}
	owner := models.EntityOwner{Owner: "alice", DisplayName: "Q3 Report"}

	intent := g.Evaluate(actor, comment, owner)
	require.NotNil(t, intent)

	require.Equal(t, models.NotifyReply, intent.Category)
	require.Equal(t, "New Reply on 'Q3 Report'", intent.Subject)
}

// Автор комментирует собственную сущность — уведомления нет.
func TestGate_Evaluate_SelfComment_NoIntent(t *testing.T) {
	t.Parallel()

	g := testGate()

	actor := models.Actor{Name: "alice", Role: models.RoleUser}
	comment := models.Comment{ID: "c1", Author: "alice", Content: "note to self"}
	owner := models.EntityOwner{Owner: "alice"}

	require.Nil(t, g.Evaluate(actor, comment, owner))
}

func TestGate_Evaluate_UnknownOwner_NoIntent(t *testing.T) {
	t.Parallel()

	g := testGate()

	actor := models.Actor{Name: "bob", Role: models.RoleUser}
	comment := models.Comment{ID: "c1", Author: "bob", Content: "hi"}

	require.Nil(t, g.Evaluate(actor, comment, models.EntityOwner{}))
	require.Nil(t, g.Evaluate(actor, comment, models.EntityOwner{Owner: "   "}))
}

// Владелец известен, но адреса в справочнике нет — fail-closed, без письма.
func TestGate_Evaluate_OwnerWithoutAddress_NoIntent(t *testing.T) {
	t.Parallel()

	g := testGate()

	actor := models.Actor{Name: "bob", Role: models.RoleUser}
	comment := models.Comment{ID: "c1", Author: "bob", Content: "hi"}
	owner := models.EntityOwner{Owner: "charlie"}

	require.Nil(t, g.Evaluate(actor, comment, owner))
}

// Без display name заголовок строится из (тип, id) сущности.
func TestGate_Evaluate_FallbackTitle(t *testing.T) {
	t.Parallel()

	g := testGate()

	actor := models.Actor{Name: "bob", Role: models.RoleUser}
	comment := models.Comment{
		ID:      "c1",
		Entity:  models.EntityRef{Type: models.EntityTask, ID: "t-42"},
		Author:  "bob",
		Content: "hi",
	}
	owner := models.EntityOwner{Owner: "alice"}

	intent := g.Evaluate(actor, comment, owner)
	require.NotNil(t, intent)
	require.Equal(t, "New Comment on 'task t-42'", intent.Subject)
}

// HTML-шаблон экранирует содержимое комментария.
func TestGate_Evaluate_EscapesContent(t *testing.T) {
	t.Parallel()

	g := testGate()

	actor := models.Actor{Name: "bob", Role: models.RoleUser}
	comment := models.Comment{
		ID:      "c1",
		Entity:  models.EntityRef{Type: models.EntityTask, ID: "t-1"},
		Author:  "bob",
		Content: `<script>alert("x")</script>`,
	}
	owner := models.EntityOwner{Owner: "alice"}

	intent := g.Evaluate(actor, comment, owner)
	require.NotNil(t, intent)
	require.NotContains(t, intent.Body, "<script>")
	require.True(t, strings.Contains(intent.Body, "&lt;script&gt;"))
}

// recordingNotifier — тестовый отправитель с фиксацией вызовов.
type recordingNotifier struct {
	mu      sync.Mutex
	intents []models.NotificationIntent
	err     error
}

func (r *recordingNotifier) Dispatch(_ context.Context, intent models.NotificationIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, intent)

	return r.err
}

func TestAsyncNotifier_Dispatch_DeliversInBackground(t *testing.T) {
	t.Parallel()

	rec := &recordingNotifier{}
	async := NewAsyncNotifier(rec, discardLogger())

	intent := models.NotificationIntent{
		Recipient: "alice",
		Address:   "alice@x.com",
		Subject:   "s",
		Category:  models.NotifyNewComment,
	}

	require.NoError(t, async.Dispatch(context.Background(), intent))
	async.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.intents, 1)
	require.Equal(t, "alice@x.com", rec.intents[0].Address)
}

// Сбой доставки не просачивается наружу.
func TestAsyncNotifier_Dispatch_SwallowsDeliveryError(t *testing.T) {
	t.Parallel()

	rec := &recordingNotifier{err: errors.New("smtp down")}
	async := NewAsyncNotifier(rec, discardLogger())

	require.NoError(t, async.Dispatch(context.Background(), models.NotificationIntent{
		Recipient: "alice",
		Category:  models.NotifyReply,
	}))
	async.Wait()
}

func TestLogNotifier_Dispatch_OK(t *testing.T) {
	t.Parallel()

	n := NewLogNotifier(discardLogger())
	require.NoError(t, n.Dispatch(context.Background(), models.NotificationIntent{Recipient: "alice"}))
}

// SMTP-отправитель без конфигурации отказывает сразу, не открывая соединение.
func TestSMTPNotifier_Dispatch_NotConfigured(t *testing.T) {
	t.Parallel()

	n := NewSMTPNotifier(config.SMTPConfig{})
	err := n.Dispatch(context.Background(), models.NotificationIntent{Address: "alice@x.com"})
	require.Error(t, err)
}
