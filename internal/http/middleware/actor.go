package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
)

// CtxActor — ключ контекста с актором запроса.
const CtxActor ctxKey = "actor"

// Actor извлекает аутентифицированного пользователя из заголовков
// X-Actor-Name / X-Actor-Role (их проставляет фронтовой прокси трекера
// после проверки сессии) и кладёт его в контекст.
//
// Мидлвар не отклоняет запросы сам: решение «кому что можно» принимает
// сервисный слой, здесь только транспортировка identity.
func Actor() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := models.Actor{
				Name: strings.TrimSpace(r.Header.Get("X-Actor-Name")),
				Role: models.Role(strings.TrimSpace(r.Header.Get("X-Actor-Role"))),
			}

			if actor.Name != "" {
				ctx := context.WithValue(r.Context(), CtxActor, actor)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorFrom достаёт актора из контекста.
// Второй результат — признак того, что актор был представлен.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(CtxActor).(models.Actor)
	return actor, ok
}
