package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
)

var (
	// ErrNotFound — сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrConflict — конфликт уникальности (дубликат id).
	ErrConflict = errors.New("conflict")
)

// Storage описывает операции долговременного хранилища комментариев.
// Движок полагается только на этот контракт; конкретная реализация
// (MongoDB) — подключаемый адаптер.
type Storage interface {
	// SaveComment сохраняет новый комментарий целиком.
	// Запись атомарна: при ошибке комментарий не становится видимым частично.
	// Возможные ошибки: ErrConflict.
	SaveComment(ctx context.Context, comment models.Comment) error

	// CommentByID возвращает комментарий по идентификатору.
	// Если запись не найдена — ErrNotFound.
	CommentByID(ctx context.Context, id string) (*models.Comment, error)

	// CommentsByEntity возвращает ВСЕ комментарии одной сущности
	// (корни и ответы вперемешку, порядок не гарантируется —
	// упорядочиванием занимается сборщик дерева).
	CommentsByEntity(ctx context.Context, ref models.EntityRef) ([]models.Comment, error)

	// DeleteComment удаляет запись по идентификатору.
	// Удаление несуществующего id — ошибка (ErrNotFound), не тихий no-op.
	// Ответы удалённого комментария НЕ каскадируются.
	DeleteComment(ctx context.Context, id string) error

	// UpdateResolution атомарно выставляет тройку резолюции:
	// resolved=true вместе с (resolver, resolvedAt); resolved=false
	// обнуляет оба поля. Поля никогда не пишутся порознь.
	// Если запись не найдена — ErrNotFound.
	UpdateResolution(ctx context.Context, id string, resolved bool, resolver string, resolvedAt time.Time) error

	// Close закрывает соединения/ресурсы хранилища.
	Close(ctx context.Context) error
}
