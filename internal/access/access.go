// access — чистые предикаты ролевой модели поверх (actor, факты ресурса).
//
// Контракт пакета: функции не имеют состояния и побочных эффектов, никогда
// не паникуют; отсутствующие/неизвестные входы трактуются как запрет
// (fail-closed).
package access

import (
	"strings"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
)

// CanComment — публикация разрешена любому аутентифицированному пользователю
// с известной ролью.
func CanComment(actor models.Actor, _ models.EntityRef) bool {
	return strings.TrimSpace(actor.Name) != "" && actor.Role.Valid()
}

// CanDelete — удалять может автор комментария, а также Admin и Partner.
func CanDelete(actor models.Actor, c models.Comment) bool {
	if strings.TrimSpace(actor.Name) == "" {
		return false
	}

	if actor.Name == c.Author {
		return true
	}

	return actor.Role == models.RoleAdmin || actor.Role == models.RolePartner
}

// CanResolve — переключать резолюцию может Admin/Partner, владелец сущности
// или автор самого комментария (последнее — вне зависимости от владения).
func CanResolve(actor models.Actor, c models.Comment, entityOwner string) bool {
	if strings.TrimSpace(actor.Name) == "" {
		return false
	}

	if actor.Role == models.RoleAdmin || actor.Role == models.RolePartner {
		return true
	}

	if entityOwner != "" && actor.Name == entityOwner {
		return true
	}

	return actor.Name == c.Author
}

// CanNotify — уведомление уместно, когда владелец известен, не совпадает с
// актором (самоуведомления не бывает) и для него найден контактный адрес.
func CanNotify(actor models.Actor, entityOwner, ownerAddress string) bool {
	if strings.TrimSpace(entityOwner) == "" {
		return false
	}

	if entityOwner == actor.Name {
		return false
	}

	return strings.TrimSpace(ownerAddress) != ""
}
