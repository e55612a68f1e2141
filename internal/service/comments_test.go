package service

// Тесты сервисного слоя comments-service (internal/service/comments.go).
//
//  Проверяем:
//  - валидацию входов (Create/Delete/Resolve/ListThread/Stats);
//  - ролевые предикаты на границе операций (Unauthenticated/PermissionDenied);
//  - маппинг ошибок storage -> service (NotFound / ParentNotFound / ParentMismatch / Conflict / Internal);
//  - идемпотентность resolve/unresolve (повторный вызов не трогает сторадж);
//  - фазу уведомлений: интент для чужого владельца, молчание для своего,
//    устойчивость к сбоям резолвера владельцев;
//  - happy-path каждого метода.
//
// Подготовка окружения:
//   # 1) Сгенерировать моки интерфейсов:
//   mockgen -source=./internal/storage/storage.go -destination=./mocks/storage.go -package=mocks
//   mockgen -source=./internal/clients/owners/owners.go -destination=./mocks/owners.go -package=mocks
//   mockgen -source=./internal/notify/notifier.go -destination=./mocks/notifier.go -package=mocks
//
//   # 2) Запустить тесты:
//   go test ./internal/service -v -race -count=1

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/config"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/contacts"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/notify"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/storage"
	"github.com/pribylovaa/problem-tracker/comments-service/mocks"
)

var (
	admin = models.Actor{Name: "root", Role: models.RoleAdmin}
	alice = models.Actor{Name: "alice", Role: models.RoleUser}
	bob   = models.Actor{Name: "bob", Role: models.RoleUser}

	pfRef = models.EntityRef{Type: models.EntityProblemFile, ID: "pf-1"}
)

// newServiceWithMocks — поднимает сервис с моками стораджа, резолвера
// владельцев и отправителя; гейт настоящий, со справочником alice/bob.
func newServiceWithMocks(t *testing.T) (*Service, *mocks.MockStorage, *mocks.MockResolver, *mocks.MockNotifier, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	ms := mocks.NewMockStorage(ctrl)
	mo := mocks.NewMockResolver(ctrl)
	mn := mocks.NewMockNotifier(ctrl)

	gate := notify.NewGate(
		contacts.NewStaticDirectory(map[string]string{
			"alice": "alice@x.com",
			"bob":   "bob@x.com",
		}),
		config.NotifyConfig{AppName: "Problem File Tracker", AppURL: "https://tracker.local/"},
	)

	s := &Service{storage: ms, owners: mo, gate: gate, notifier: mn}
	return s, ms, mo, mn, ctrl
}

// mustComment — быстрый хелпер для сборки комментария.
func mustComment(ref models.EntityRef, parentID, author, content string) *models.Comment {
	return &models.Comment{
		ID:         uuid.NewString(),
		Entity:     ref,
		Author:     author,
		AuthorRole: models.RoleUser,
		Content:    content,
		ParentID:   parentID,
		CreatedAt:  time.Now().UTC(),
	}
}

// Валидация: пустой актор, неизвестная роль, битая сущность, пустой content.
func TestService_CreateComment_Validation(t *testing.T) {
	s, _, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	// пустое имя актора
	_, err := s.CreateComment(context.Background(), models.Actor{Role: models.RoleUser}, CreateCommentInput{
		Entity: pfRef, Content: "ok",
	})
	require.ErrorIs(t, err, ErrUnauthenticated)

	// неизвестная роль -> fail-closed
	_, err = s.CreateComment(context.Background(), models.Actor{Name: "mallory", Role: "Superuser"}, CreateCommentInput{
		Entity: pfRef, Content: "ok",
	})
	require.ErrorIs(t, err, ErrPermissionDenied)

	// неизвестный тип сущности
	_, err = s.CreateComment(context.Background(), bob, CreateCommentInput{
		Entity: models.EntityRef{Type: "sprint", ID: "s-1"}, Content: "ok",
	})
	require.ErrorIs(t, err, ErrInvalidArgument)

	// пустой entity id
	_, err = s.CreateComment(context.Background(), bob, CreateCommentInput{
		Entity: models.EntityRef{Type: models.EntityTask, ID: "   "}, Content: "ok",
	})
	require.ErrorIs(t, err, ErrInvalidArgument)

	// content -> TrimSpace -> пусто
	_, err = s.CreateComment(context.Background(), bob, CreateCommentInput{
		Entity: pfRef, Content: "   ",
	})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

// Ответ: родитель обязан существовать и принадлежать той же сущности.
func TestService_CreateComment_ParentChecks(t *testing.T) {
	s, ms, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	// родителя нет
	ms.EXPECT().
		CommentByID(gomock.Any(), "missing").
		Return(nil, storage.ErrNotFound)
	_, err := s.CreateComment(context.Background(), bob, CreateCommentInput{
		Entity: pfRef, ParentID: "missing", Content: "ok",
	})
	require.ErrorIs(t, err, ErrParentNotFound)

	// родитель у другой сущности
	foreign := mustComment(models.EntityRef{Type: models.EntityTask, ID: "t-9"}, "", "alice", "hi")
	ms.EXPECT().
		CommentByID(gomock.Any(), foreign.ID).
		Return(foreign, nil)
	_, err = s.CreateComment(context.Background(), bob, CreateCommentInput{
		Entity: pfRef, ParentID: foreign.ID, Content: "ok",
	})
	require.ErrorIs(t, err, ErrParentMismatch)

	// сторадж упал на проверке родителя
	ms.EXPECT().
		CommentByID(gomock.Any(), "p1").
		Return(nil, errors.New("mongo down"))
	_, err = s.CreateComment(context.Background(), bob, CreateCommentInput{
		Entity: pfRef, ParentID: "p1", Content: "ok",
	})
	require.ErrorIs(t, err, ErrInternal)
}

// Happy-path корня: bob комментирует сущность alice -> интент уведомления.
func TestService_CreateComment_OK_NotifiesOwner(t *testing.T) {
	s, ms, mo, mn, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	var saved models.Comment
	ms.EXPECT().
		SaveComment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c models.Comment) error {
			saved = c
			return nil
		})

	mo.EXPECT().
		OwnerOf(gomock.Any(), pfRef).
		Return(models.EntityOwner{Owner: "alice", DisplayName: "Q3 Report"}, nil)

	mn.EXPECT().
		Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, intent models.NotificationIntent) error {
			require.Equal(t, "alice", intent.Recipient)
			require.Equal(t, "alice@x.com", intent.Address)
			require.Equal(t, models.NotifyNewComment, intent.Category)
			require.Equal(t, "New Comment on 'Q3 Report'", intent.Subject)
			return nil
		})

	got, err := s.CreateComment(context.Background(), bob, CreateCommentInput{
		Entity:  pfRef,
		Content: "  please check the margins  ",
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	// id — валидный UUID, выдан движком
	_, parseErr := uuid.Parse(got.ID)
	require.NoError(t, parseErr)

	require.Equal(t, saved.ID, got.ID)
	require.Equal(t, "bob", got.Author)
	require.Equal(t, models.RoleUser, got.AuthorRole)
	require.Equal(t, "please check the margins", got.Content)
	require.Empty(t, got.ParentID)
	require.False(t, got.Resolved)
	require.False(t, got.CreatedAt.IsZero())
}

// Автор комментирует собственную сущность — отправитель не вызывается.
func TestService_CreateComment_SelfComment_NoNotification(t *testing.T) {
	s, ms, mo, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().SaveComment(gomock.Any(), gomock.Any()).Return(nil)
	mo.EXPECT().
		OwnerOf(gomock.Any(), pfRef).
		Return(models.EntityOwner{Owner: "alice"}, nil)

	_, err := s.CreateComment(context.Background(), alice, CreateCommentInput{
		Entity: pfRef, Content: "note to self",
	})
	require.NoError(t, err)
}

// Сбой резолвера владельцев не мешает публикации: комментарий создан,
// уведомление молча пропущено.
func TestService_CreateComment_OwnerLookupFails_CommentStillCreated(t *testing.T) {
	s, ms, mo, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().SaveComment(gomock.Any(), gomock.Any()).Return(nil)
	mo.EXPECT().
		OwnerOf(gomock.Any(), pfRef).
		Return(models.EntityOwner{}, errors.New("tracker-core unreachable"))

	got, err := s.CreateComment(context.Background(), bob, CreateCommentInput{
		Entity: pfRef, Content: "hello",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
}

// Маппинг: конфликт уникальности и прочие ошибки стораджа.
func TestService_CreateComment_StorageErrors(t *testing.T) {
	s, ms, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().
		SaveComment(gomock.Any(), gomock.Any()).
		Return(storage.ErrConflict)
	_, err := s.CreateComment(context.Background(), bob, CreateCommentInput{
		Entity: pfRef, Content: "ok",
	})
	require.ErrorIs(t, err, ErrConflict)

	ms.EXPECT().
		SaveComment(gomock.Any(), gomock.Any()).
		Return(errors.New("mongo down"))
	_, err = s.CreateComment(context.Background(), bob, CreateCommentInput{
		Entity: pfRef, Content: "ok",
	})
	require.ErrorIs(t, err, ErrInternal)
}

func TestService_ListThread_Validation(t *testing.T) {
	s, _, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	_, err := s.ListThread(context.Background(), ListThreadInput{
		Entity: models.EntityRef{Type: "sprint", ID: "s-1"},
	})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.ListThread(context.Background(), ListThreadInput{
		Entity: models.EntityRef{Type: models.EntityTask, ID: ""},
	})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.ListThread(context.Background(), ListThreadInput{
		Entity: pfRef, Order: "sideways",
	})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

// Дерево: корни новые-сверху, ответы внутри ветки старые-сверху, сирота
// (ответ на удалённый корень) поднимается на верхний уровень.
func TestService_ListThread_OK_AssemblesTree(t *testing.T) {
	s, ms, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	root := *mustComment(pfRef, "", "alice", "root")
	root.ID = "r1"
	root.CreatedAt = base

	reply := *mustComment(pfRef, "r1", "bob", "reply")
	reply.ID = "c2"
	reply.CreatedAt = base.Add(time.Minute)

	orphan := *mustComment(pfRef, "ghost", "bob", "orphan")
	orphan.ID = "c3"
	orphan.CreatedAt = base.Add(2 * time.Minute)

	ms.EXPECT().
		CommentsByEntity(gomock.Any(), pfRef).
		Return([]models.Comment{reply, orphan, root}, nil)

	items, err := s.ListThread(context.Background(), ListThreadInput{Entity: pfRef})
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Верхний уровень desc: сирота свежее корня.
	require.Equal(t, "c3", items[0].Comment.ID)
	require.Equal(t, 0, items[0].Depth)
	require.Equal(t, "ghost", items[0].Comment.ParentID) // parent_id сохраняется

	require.Equal(t, "r1", items[1].Comment.ID)
	require.Equal(t, 0, items[1].Depth)

	require.Equal(t, "c2", items[2].Comment.ID)
	require.Equal(t, 1, items[2].Depth)
}

func TestService_ListThread_StorageError(t *testing.T) {
	s, ms, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().
		CommentsByEntity(gomock.Any(), pfRef).
		Return(nil, errors.New("mongo down"))

	_, err := s.ListThread(context.Background(), ListThreadInput{Entity: pfRef})
	require.ErrorIs(t, err, ErrInternal)
}

func TestService_Stats_OK(t *testing.T) {
	s, ms, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	resolved := *mustComment(pfRef, "", "alice", "done")
	resolved.Resolved = true

	ms.EXPECT().
		CommentsByEntity(gomock.Any(), pfRef).
		Return([]models.Comment{resolved, *mustComment(pfRef, "", "bob", "open")}, nil)

	stats, err := s.Stats(context.Background(), pfRef)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.Resolved)
	require.Equal(t, 1, stats.Unresolved)
}

func TestService_ResolveComment_Permissions(t *testing.T) {
	s, ms, mo, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	comm := mustComment(pfRef, "", "alice", "fix me")

	// bob — не автор, не владелец, роль User -> запрещено.
	ms.EXPECT().CommentByID(gomock.Any(), comm.ID).Return(comm, nil)
	mo.EXPECT().OwnerOf(gomock.Any(), pfRef).Return(models.EntityOwner{Owner: "alice"}, nil)

	_, err := s.ResolveComment(context.Background(), bob, comm.ID)
	require.ErrorIs(t, err, ErrPermissionDenied)

	// bob — владелец сущности -> разрешено.
	ms.EXPECT().CommentByID(gomock.Any(), comm.ID).Return(comm, nil)
	mo.EXPECT().OwnerOf(gomock.Any(), pfRef).Return(models.EntityOwner{Owner: "bob"}, nil)
	ms.EXPECT().
		UpdateResolution(gomock.Any(), comm.ID, true, "bob", gomock.Any()).
		Return(nil)

	got, err := s.ResolveComment(context.Background(), bob, comm.ID)
	require.NoError(t, err)
	require.True(t, got.Resolved)
	require.Equal(t, "bob", got.ResolvedBy)
	require.False(t, got.ResolvedAt.IsZero())
}

// Резолвер владельцев недоступен: привилегия владельца не срабатывает,
// но автор по-прежнему может резолвить собственный комментарий.
func TestService_ResolveComment_OwnerLookupFails_AuthorStillAllowed(t *testing.T) {
	s, ms, mo, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	comm := mustComment(pfRef, "", "alice", "fix me")

	ms.EXPECT().CommentByID(gomock.Any(), comm.ID).Return(comm, nil)
	mo.EXPECT().OwnerOf(gomock.Any(), pfRef).Return(models.EntityOwner{}, errors.New("unreachable"))
	ms.EXPECT().
		UpdateResolution(gomock.Any(), comm.ID, true, "alice", gomock.Any()).
		Return(nil)

	got, err := s.ResolveComment(context.Background(), alice, comm.ID)
	require.NoError(t, err)
	require.True(t, got.Resolved)
}

// Идемпотентность: повторная резолюция не перезаписывает тройку.
func TestService_ResolveComment_Idempotent(t *testing.T) {
	s, ms, mo, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	comm := mustComment(pfRef, "", "alice", "fix me")
	comm.Resolved = true
	comm.ResolvedBy = "root"
	comm.ResolvedAt = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	ms.EXPECT().CommentByID(gomock.Any(), comm.ID).Return(comm, nil)
	mo.EXPECT().OwnerOf(gomock.Any(), pfRef).Return(models.EntityOwner{Owner: "alice"}, nil)
	// UpdateResolution не вызывается.

	got, err := s.ResolveComment(context.Background(), admin, comm.ID)
	require.NoError(t, err)
	require.True(t, got.Resolved)
	require.Equal(t, "root", got.ResolvedBy)
	require.Equal(t, comm.ResolvedAt, got.ResolvedAt)
}

// Unresolve симметричен: тройка обнуляется атомарно; снятие с нерешённого — no-op.
func TestService_UnresolveComment_OK_AndIdempotent(t *testing.T) {
	s, ms, mo, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	comm := mustComment(pfRef, "", "alice", "fix me")
	comm.Resolved = true
	comm.ResolvedBy = "root"
	comm.ResolvedAt = time.Now().UTC()

	ms.EXPECT().CommentByID(gomock.Any(), comm.ID).Return(comm, nil)
	mo.EXPECT().OwnerOf(gomock.Any(), pfRef).Return(models.EntityOwner{}, nil)
	ms.EXPECT().
		UpdateResolution(gomock.Any(), comm.ID, false, "", time.Time{}).
		Return(nil)

	got, err := s.UnresolveComment(context.Background(), admin, comm.ID)
	require.NoError(t, err)
	require.False(t, got.Resolved)
	require.Empty(t, got.ResolvedBy)
	require.True(t, got.ResolvedAt.IsZero())

	// уже нерешён — сторадж не трогаем
	open := mustComment(pfRef, "", "alice", "open")
	ms.EXPECT().CommentByID(gomock.Any(), open.ID).Return(open, nil)
	mo.EXPECT().OwnerOf(gomock.Any(), pfRef).Return(models.EntityOwner{}, nil)

	got, err = s.UnresolveComment(context.Background(), admin, open.ID)
	require.NoError(t, err)
	require.False(t, got.Resolved)
}

func TestService_ResolveComment_NotFound(t *testing.T) {
	s, ms, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().
		CommentByID(gomock.Any(), "missing").
		Return(nil, storage.ErrNotFound)

	_, err := s.ResolveComment(context.Background(), admin, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteComment_Permissions(t *testing.T) {
	s, ms, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	comm := mustComment(pfRef, "", "alice", "hi")

	// чужой User -> запрещено, удаление не вызывается.
	ms.EXPECT().CommentByID(gomock.Any(), comm.ID).Return(comm, nil)
	err := s.DeleteComment(context.Background(), bob, comm.ID)
	require.ErrorIs(t, err, ErrPermissionDenied)

	// автор -> разрешено.
	ms.EXPECT().CommentByID(gomock.Any(), comm.ID).Return(comm, nil)
	ms.EXPECT().DeleteComment(gomock.Any(), comm.ID).Return(nil)
	require.NoError(t, s.DeleteComment(context.Background(), alice, comm.ID))

	// Admin -> разрешено.
	ms.EXPECT().CommentByID(gomock.Any(), comm.ID).Return(comm, nil)
	ms.EXPECT().DeleteComment(gomock.Any(), comm.ID).Return(nil)
	require.NoError(t, s.DeleteComment(context.Background(), admin, comm.ID))
}

func TestService_DeleteComment_Errors(t *testing.T) {
	s, ms, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	// пустой id
	err := s.DeleteComment(context.Background(), admin, "   ")
	require.ErrorIs(t, err, ErrInvalidArgument)

	// не найден
	ms.EXPECT().
		CommentByID(gomock.Any(), "missing").
		Return(nil, storage.ErrNotFound)
	err = s.DeleteComment(context.Background(), admin, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	// сторадж упал на удалении
	comm := mustComment(pfRef, "", "alice", "hi")
	ms.EXPECT().CommentByID(gomock.Any(), comm.ID).Return(comm, nil)
	ms.EXPECT().DeleteComment(gomock.Any(), comm.ID).Return(errors.New("mongo down"))
	err = s.DeleteComment(context.Background(), admin, comm.ID)
	require.ErrorIs(t, err, ErrInternal)
}
