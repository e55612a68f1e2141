package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/http/handlers"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/http/middleware"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Actor(),              // вынимаем актора из X-Actor-* в контекст
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	// Зависимости хендлеров.
	h := handlers.New(svc)

	// Регистрация маршрутов.
	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// комментарии сущности
	r.Post("/entities/{type}/{id}/comments", h.CreateComment)
	r.Get("/entities/{type}/{id}/comments", h.ListThread)
	r.Get("/entities/{type}/{id}/comments/stats", h.Stats)

	// операции над отдельным комментарием
	r.Post("/comments/{id}/resolve", h.ResolveComment)
	r.Post("/comments/{id}/unresolve", h.UnresolveComment)
	r.Delete("/comments/{id}", h.DeleteComment)
}
