package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/storage"
)

// commentDoc — схема документа коллекции comments.
// Идентификатором служит доменный UUID (строка), а не ObjectID: id выдаёт
// движок при создании и он неизменяем.
// resolved_by/resolved_at пишутся только парой с resolved (см. UpdateResolution).
type commentDoc struct {
	ID         string    `bson:"_id"`
	EntityType string    `bson:"entity_type"`
	EntityID   string    `bson:"entity_id"`
	Author     string    `bson:"author"`
	AuthorRole string    `bson:"author_role"`
	Content    string    `bson:"content"`
	ParentID   string    `bson:"parent_id"`
	Resolved   bool      `bson:"resolved"`
	ResolvedBy string    `bson:"resolved_by"`
	ResolvedAt time.Time `bson:"resolved_at"`
	CreatedAt  time.Time `bson:"created_at"`
}

// toMS — MongoDB DateTime хранит миллисекунды.
func toMS(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Truncate(time.Millisecond)
}

func toDoc(c models.Comment) commentDoc {
	return commentDoc{
		ID:         c.ID,
		EntityType: string(c.Entity.Type),
		EntityID:   c.Entity.ID,
		Author:     c.Author,
		AuthorRole: string(c.AuthorRole),
		Content:    c.Content,
		ParentID:   c.ParentID,
		Resolved:   c.Resolved,
		ResolvedBy: c.ResolvedBy,
		ResolvedAt: toMS(c.ResolvedAt),
		CreatedAt:  toMS(c.CreatedAt),
	}
}

func fromDoc(d commentDoc) models.Comment {
	c := models.Comment{
		ID:         d.ID,
		Entity:     models.EntityRef{Type: models.EntityType(d.EntityType), ID: d.EntityID},
		Author:     d.Author,
		AuthorRole: models.Role(d.AuthorRole),
		Content:    d.Content,
		ParentID:   d.ParentID,
		Resolved:   d.Resolved,
		ResolvedBy: d.ResolvedBy,
		CreatedAt:  d.CreatedAt.UTC(),
	}

	if !d.ResolvedAt.IsZero() {
		c.ResolvedAt = d.ResolvedAt.UTC()
	}

	return c
}

// SaveComment вставляет новый документ. Вставка атомарна: частично видимых
// записей не бывает. Дубликат _id — storage.ErrConflict.
func (m *Mongo) SaveComment(ctx context.Context, comm models.Comment) error {
	const op = "storage/mongo/SaveComment"

	if strings.TrimSpace(comm.ID) == "" {
		return fmt.Errorf("%s: empty id", op)
	}

	if _, err := m.comments.InsertOne(ctx, toDoc(comm)); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrConflict)
		}

		return fmt.Errorf("%s: insert: %w", op, err)
	}

	return nil
}

// CommentByID возвращает комментарий по идентификатору.
// Если запись не найдена — storage.ErrNotFound.
func (m *Mongo) CommentByID(ctx context.Context, id string) (*models.Comment, error) {
	const op = "storage/mongo/CommentByID"

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc commentDoc
	if err := m.comments.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := fromDoc(doc)
	return &out, nil
}

// CommentsByEntity возвращает все комментарии сущности (корни и ответы).
// Порядок выдачи не является контрактом — сортирует сборщик дерева.
func (m *Mongo) CommentsByEntity(ctx context.Context, ref models.EntityRef) ([]models.Comment, error) {
	const op = "storage/mongo/CommentsByEntity"

	filter := bson.D{
		{Key: "entity_type", Value: string(ref.Type)},
		{Key: "entity_id", Value: ref.ID},
	}

	cur, err := m.comments.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	var items []models.Comment
	for cur.Next(ctx) {
		var doc commentDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}

		items = append(items, fromDoc(doc))
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return items, nil
}

// DeleteComment удаляет запись насовсем. Ответы не каскадируются: они
// остаются в коллекции со старым parent_id, сборщик дерева поднимет их
// на верхний уровень при следующей выдаче.
// Удаление несуществующего id — storage.ErrNotFound.
func (m *Mongo) DeleteComment(ctx context.Context, id string) error {
	const op = "storage/mongo/DeleteComment"

	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.comments.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdateResolution атомарно пишет тройку резолюции одним $set:
// либо (true, resolver, resolvedAt), либо (false, "", нулевое время).
// Поля не обновляются порознь ни при каком исходе.
func (m *Mongo) UpdateResolution(ctx context.Context, id string, resolved bool, resolver string, resolvedAt time.Time) error {
	const op = "storage/mongo/UpdateResolution"

	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	set := bson.D{
		{Key: "resolved", Value: resolved},
		{Key: "resolved_by", Value: resolver},
		{Key: "resolved_at", Value: toMS(resolvedAt)},
	}
	if !resolved {
		set = bson.D{
			{Key: "resolved", Value: false},
			{Key: "resolved_by", Value: ""},
			{Key: "resolved_at", Value: time.Time{}},
		}
	}

	res, err := m.comments.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
