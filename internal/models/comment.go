// Package models содержит доменные сущности comments-сервиса problem-tracker.
package models

import "time"

// Role — роль пользователя в трекере. Фиксируется на момент аутентификации
// и передаётся явно в каждую операцию (никакого ambient-состояния сессии).
type Role string

const (
	RoleAdmin   Role = "Admin"
	RolePartner Role = "Partner"
	RoleUser    Role = "User"
)

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePartner, RoleUser:
		return true
	default:
		return false
	}
}

// Actor — аутентифицированный пользователь, от имени которого выполняется операция.
type Actor struct {
	Name string
	Role Role
}

// EntityType — тип сущности трекера, к которой крепится комментарий.
type EntityType string

const (
	EntityTask        EntityType = "task"
	EntitySubtask     EntityType = "subtask"
	EntityProblemFile EntityType = "problem_file"
)

// Valid сообщает, известен ли тип сущности.
func (e EntityType) Valid() bool {
	switch e {
	case EntityTask, EntitySubtask, EntityProblemFile:
		return true
	default:
		return false
	}
}

// EntityRef — ссылка (тип, id) на сущность трекера.
// Комментарий всегда привязан ровно к одной такой паре.
type EntityRef struct {
	Type EntityType
	ID   string
}

// Comment — внутренняя доменная модель комментария.
// Важно:
//   - ID — непрозрачный уникальный токен (UUID), выдаётся при создании, неизменяем;
//   - Entity — неизменяема после создания;
//   - AuthorRole — снимок роли автора на момент публикации (не пересчитывается);
//   - ParentID — пустая строка для корня; для ответа — id существующего
//     комментария той же сущности (проверяется движком при создании);
//   - Resolved/ResolvedBy/ResolvedAt — атомарная тройка: resolved=true тогда и
//     только тогда, когда заданы и ResolvedBy, и ResolvedAt; resolved=false —
//     оба пусты. Пара никогда не выставляется порознь;
//   - Content не пуст после TrimSpace (контролируется на входе);
//   - CreatedAt выставляется один раз и не ревизуется.
//
// Жизненный цикл: создание -> (resolve/unresolve)* -> удаление. Правка текста
// не предусмотрена.
type Comment struct {
	ID         string
	Entity     EntityRef
	Author     string
	AuthorRole Role
	Content    string
	ParentID   string
	Resolved   bool
	ResolvedBy string
	ResolvedAt time.Time
	CreatedAt  time.Time
}

// IsReply сообщает, является ли комментарий ответом.
func (c Comment) IsReply() bool {
	return c.ParentID != ""
}

// ThreadItem — элемент линейной развёртки дерева: комментарий и его глубина.
// Глубина нужна только для отступов при отрисовке, семантики не несёт.
type ThreadItem struct {
	Comment Comment
	Depth   int
}

// Order — порядок корневых комментариев в выдаче.
type Order string

const (
	// OrderNewestFirst — сначала свежие обсуждения (по умолчанию).
	OrderNewestFirst Order = "desc"
	// OrderOldestFirst — хронологический порядок.
	OrderOldestFirst Order = "asc"
)

// Stats — агрегаты по комментариям одной сущности.
type Stats struct {
	Total      int
	Resolved   int
	Unresolved int
}

// NotificationCategory — категория уведомления.
type NotificationCategory string

const (
	NotifyNewComment NotificationCategory = "new_comment"
	NotifyReply      NotificationCategory = "reply"
)

// NotificationIntent — эфемерное описание письма, которое следует отправить.
// Производится гейтом уведомлений, потребляется внешним отправителем,
// движком никогда не персистится.
type NotificationIntent struct {
	Recipient string
	Address   string
	Subject   string
	Body      string
	Category  NotificationCategory
}

// EntityOwner — ответ резолвера владельца: владелец и отображаемое имя
// родительского ресурса (problem file / task).
type EntityOwner struct {
	Owner       string
	DisplayName string
}
