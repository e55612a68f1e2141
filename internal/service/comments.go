package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/problem-tracker/comments-service/pkg/log"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/access"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/storage"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/thread"
)

// Входные структуры сервисного слоя.

// CreateCommentInput — создание корневого комментария или ответа.
// Правила:
//   - Entity обязательна всегда: и корень, и ответ крепятся к конкретной
//     паре (тип, id); ответ не наследует сущность от родителя, а обязан
//     совпасть с ней (иначе ErrParentMismatch);
//   - если ParentID не пуст, родитель должен существовать;
//   - Content нормализуется (TrimSpace) и не должен быть пустым.
type CreateCommentInput struct {
	Entity   models.EntityRef
	ParentID string
	Content  string
}

// ListThreadInput — параметры выдачи дерева комментариев сущности.
type ListThreadInput struct {
	Entity models.EntityRef
	Order  models.Order
}

// CreateComment — бизнес-операция публикации комментария.
//
// Валидация:
//   - актор обязан представиться (пустое имя -> ErrUnauthenticated);
//   - неизвестная роль актора -> ErrPermissionDenied (fail-closed);
//   - Entity.Type должен быть известен, Entity.ID не пуст;
//   - Content после TrimSpace не пуст.
//
// Поведение/ошибки:
//   - ErrParentNotFound — указан ParentID, но родителя нет;
//   - ErrParentMismatch — родитель принадлежит другой сущности;
//   - ErrConflict — конфликт уникальности id;
//   - ErrInternal — прочие ошибки стораджа/БД/контекста.
//
// После успешного сохранения запускается фаза уведомления: владелец
// сущности резолвится внешним клиентом, гейт либо производит интент,
// либо нет. Любой сбой этой фазы логируется и не влияет на результат.
func (s *Service) CreateComment(ctx context.Context, actor models.Actor, in CreateCommentInput) (*models.Comment, error) {
	const op = "service/comments/CreateComment"

	lg := log.From(ctx).With(
		"op", op,
		"actor", actor.Name,
		"entity_type", string(in.Entity.Type),
		"entity_id", in.Entity.ID,
		"parent_id", in.ParentID,
	)

	if strings.TrimSpace(actor.Name) == "" {
		lg.Warn("unauthenticated: empty actor name")
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	if !access.CanComment(actor, in.Entity) {
		lg.Warn("permission denied: unknown role", "role", string(actor.Role))
		return nil, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	if !in.Entity.Type.Valid() {
		lg.Warn("invalid argument: unknown entity type")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	in.Entity.ID = strings.TrimSpace(in.Entity.ID)
	if in.Entity.ID == "" {
		lg.Warn("invalid argument: empty entity id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		lg.Warn("invalid argument: empty content")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	// Для ответа родитель должен существовать и принадлежать той же сущности.
	in.ParentID = strings.TrimSpace(in.ParentID)
	if in.ParentID != "" {
		parent, err := s.storage.CommentByID(ctx, in.ParentID)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				lg.Warn("parent not found")
				return nil, fmt.Errorf("%s: %w", op, ErrParentNotFound)
			default:
				lg.Error("storage error on CommentByID", "err", err)
				return nil, fmt.Errorf("%s: %w", op, ErrInternal)
			}
		}

		if parent.Entity != in.Entity {
			lg.Warn("parent belongs to another entity",
				"parent_entity_type", string(parent.Entity.Type),
				"parent_entity_id", parent.Entity.ID,
			)
			return nil, fmt.Errorf("%s: %w", op, ErrParentMismatch)
		}
	}

	comm := models.Comment{
		ID:         uuid.NewString(),
		Entity:     in.Entity,
		Author:     actor.Name,
		AuthorRole: actor.Role,
		Content:    in.Content,
		ParentID:   in.ParentID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.storage.SaveComment(ctx, comm); err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			lg.Warn("conflict")
			return nil, fmt.Errorf("%s: %w", op, ErrConflict)
		default:
			lg.Error("storage error on SaveComment", "err", err)
			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	commentsCreatedTotal.WithLabelValues(string(comm.Entity.Type)).Inc()

	s.maybeNotify(ctx, actor, comm)

	return &comm, nil
}

// maybeNotify — фаза уведомления после успешной публикации.
// Ошибки здесь никогда не влияют на судьбу комментария: сбой резолвера
// владельца или отправителя даёт лишь запись в лог.
func (s *Service) maybeNotify(ctx context.Context, actor models.Actor, comm models.Comment) {
	const op = "service/comments/maybeNotify"

	lg := log.From(ctx).With("op", op, "comment_id", comm.ID)

	owner, err := s.owners.OwnerOf(ctx, comm.Entity)
	if err != nil {
		lg.Warn("owner lookup failed, notification skipped", "err", err)
		return
	}

	intent := s.gate.Evaluate(actor, comm, owner)
	if intent == nil {
		return
	}

	if err := s.notifier.Dispatch(ctx, *intent); err != nil {
		lg.Warn("notification dispatch failed", "err", err)
	}
}

// ListThread — дерево комментариев сущности в виде линейной развёртки.
//
// Валидация:
//   - Entity.Type должен быть известен, Entity.ID не пуст;
//   - пустой Order трактуется как OrderNewestFirst, неизвестный -> ErrInvalidArgument.
//
// Поведение/ошибки:
//   - ErrInternal — ошибки стораджа.
func (s *Service) ListThread(ctx context.Context, in ListThreadInput) ([]models.ThreadItem, error) {
	const op = "service/comments/ListThread"

	lg := log.From(ctx).With("op", op,
		"entity_type", string(in.Entity.Type),
		"entity_id", in.Entity.ID,
	)

	if !in.Entity.Type.Valid() {
		lg.Warn("invalid argument: unknown entity type")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	in.Entity.ID = strings.TrimSpace(in.Entity.ID)
	if in.Entity.ID == "" {
		lg.Warn("invalid argument: empty entity id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if in.Order == "" {
		in.Order = models.OrderNewestFirst
	}
	if in.Order != models.OrderNewestFirst && in.Order != models.OrderOldestFirst {
		lg.Warn("invalid argument: unknown order", "order", string(in.Order))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	comments, err := s.storage.CommentsByEntity(ctx, in.Entity)
	if err != nil {
		lg.Error("storage error on CommentsByEntity", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return thread.Assemble(comments, in.Order), nil
}

// Stats — агрегаты по комментариям сущности (всего/решено/нерешено).
func (s *Service) Stats(ctx context.Context, ref models.EntityRef) (*models.Stats, error) {
	const op = "service/comments/Stats"

	lg := log.From(ctx).With("op", op,
		"entity_type", string(ref.Type),
		"entity_id", ref.ID,
	)

	if !ref.Type.Valid() || strings.TrimSpace(ref.ID) == "" {
		lg.Warn("invalid argument: bad entity ref")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	comments, err := s.storage.CommentsByEntity(ctx, ref)
	if err != nil {
		lg.Error("storage error on CommentsByEntity", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	stats := models.Stats{Total: len(comments)}
	for _, c := range comments {
		if c.Resolved {
			stats.Resolved++
		}
	}
	stats.Unresolved = stats.Total - stats.Resolved

	return &stats, nil
}

// ResolveComment — пометить комментарий решённым.
//
// Права: Admin/Partner, владелец сущности или автор комментария.
// Повторная резолюция уже решённого — идемпотентный no-op: возвращается
// текущее состояние, тройка (resolved, resolved_by, resolved_at) не
// перезаписывается.
//
// Ошибки: ErrUnauthenticated, ErrPermissionDenied, ErrNotFound, ErrInternal.
func (s *Service) ResolveComment(ctx context.Context, actor models.Actor, id string) (*models.Comment, error) {
	const op = "service/comments/ResolveComment"

	return s.setResolution(ctx, op, actor, id, true)
}

// UnresolveComment — снять отметку решённости.
// Симметричен ResolveComment, включая идемпотентность: снятие отметки с
// нерешённого комментария — no-op.
func (s *Service) UnresolveComment(ctx context.Context, actor models.Actor, id string) (*models.Comment, error) {
	const op = "service/comments/UnresolveComment"

	return s.setResolution(ctx, op, actor, id, false)
}

func (s *Service) setResolution(ctx context.Context, op string, actor models.Actor, id string, resolved bool) (*models.Comment, error) {
	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "actor", actor.Name, "id", id)

	if strings.TrimSpace(actor.Name) == "" {
		lg.Warn("unauthenticated: empty actor name")
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	comm, err := s.storage.CommentByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("comment not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		default:
			lg.Error("storage error on CommentByID", "err", err)
			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	// Право на резолюцию зависит от владельца сущности. Если резолвер
	// недоступен, владение считается неизвестным (fail-closed): привилегия
	// владельца не срабатывает, роли и авторство продолжают работать.
	ownerName := ""
	if owner, err := s.owners.OwnerOf(ctx, comm.Entity); err == nil {
		ownerName = owner.Owner
	} else {
		lg.Warn("owner lookup failed, treating owner as unknown", "err", err)
	}

	if !access.CanResolve(actor, *comm, ownerName) {
		lg.Warn("permission denied")
		return nil, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	// Идемпотентность: состояние уже целевое — без записи.
	if comm.Resolved == resolved {
		return comm, nil
	}

	resolver := ""
	var resolvedAt time.Time
	if resolved {
		resolver = actor.Name
		resolvedAt = time.Now().UTC()
	}

	if err := s.storage.UpdateResolution(ctx, id, resolved, resolver, resolvedAt); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("comment not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		default:
			lg.Error("storage error on UpdateResolution", "err", err)
			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	comm.Resolved = resolved
	comm.ResolvedBy = resolver
	comm.ResolvedAt = resolvedAt

	return comm, nil
}

// DeleteComment — удаление комментария по ID.
//
// Права: автор комментария, Admin или Partner.
// Удаление жёсткое и не каскадируется: ответы остаются и при следующей
// выдаче поднимаются на верхний уровень дерева.
//
// Ошибки: ErrUnauthenticated, ErrPermissionDenied, ErrNotFound, ErrInternal.
func (s *Service) DeleteComment(ctx context.Context, actor models.Actor, id string) error {
	const op = "service/comments/DeleteComment"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "actor", actor.Name, "id", id)

	if strings.TrimSpace(actor.Name) == "" {
		lg.Warn("unauthenticated: empty actor name")
		return fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	comm, err := s.storage.CommentByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("comment not found")
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		default:
			lg.Error("storage error on CommentByID", "err", err)
			return fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	if !access.CanDelete(actor, *comm) {
		lg.Warn("permission denied")
		return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	if err := s.storage.DeleteComment(ctx, id); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("comment not found")
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		default:
			lg.Error("storage error on DeleteComment", "err", err)
			return fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	return nil
}
