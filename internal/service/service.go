// service содержит бизнес-логику движка комментариев: создание и удаление
// комментариев, резолюцию, сборку дерева и решение об уведомлениях.
package service

import (
	"errors"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/clients/owners"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/config"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/notify"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/storage"
)

var (
	// ErrNotFound — комментарий отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrParentNotFound — указанный родитель не существует.
	ErrParentNotFound = errors.New("parent not found")
	// ErrParentMismatch — родитель принадлежит другой сущности.
	ErrParentMismatch = errors.New("parent belongs to another entity")
	// ErrUnauthenticated — актор не представился.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrPermissionDenied — ролевая модель запрещает операцию.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidArgument — неверные входные параметры запроса к сервису.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict — конфликт уникальности.
	ErrConflict = errors.New("conflict")
	// ErrInternal — внутренняя ошибка (сторадж/БД/контекст/и т.д.).
	ErrInternal = errors.New("internal")
)

// Service — описывает бизнес-логику comments-service.
type Service struct {
	storage  storage.Storage
	owners   owners.Resolver
	gate     *notify.Gate
	notifier notify.Notifier
	cfg      config.Config
}

// New создает новый экземпляр Service.
func New(storage storage.Storage, owners owners.Resolver, gate *notify.Gate, notifier notify.Notifier, cfg config.Config) *Service {
	return &Service{
		storage:  storage,
		owners:   owners,
		gate:     gate,
		notifier: notifier,
		cfg:      cfg,
	}
}
