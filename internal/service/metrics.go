package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики сервисного слоя.
var commentsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "comments_created_total",
	Help: "Количество опубликованных комментариев по типу сущности.",
}, []string{"entity_type"})
