// owners — HTTP-клиент резолвера владельцев сущностей трекера.
//
// Владение задачами и problem-файлами живёт в основном сервисе трекера;
// движку комментариев оно нужно только для предикатов резолюции и для
// гейта уведомлений, поэтому здесь ровно один вызов: «кто владелец».
package owners

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/config"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
)

// Resolver — контракт поиска владельца сущности.
// Неизвестный владелец — штатный исход (нулевой EntityOwner, nil error).
type Resolver interface {
	OwnerOf(ctx context.Context, ref models.EntityRef) (models.EntityOwner, error)
}

// Client — резолвер поверх REST API основного сервиса трекера.
type Client struct {
	http    *http.Client
	baseURL string
}

// New строит клиента по конфигурации.
func New(cfg config.OwnersConfig) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// ownerResponse — wire-схема ответа резолвера.
type ownerResponse struct {
	Owner       string `json:"owner"`
	DisplayName string `json:"display_name"`
}

// OwnerOf запрашивает владельца сущности.
// 404 трактуется как «владелец неизвестен» и не является ошибкой;
// любой другой неуспешный статус — ошибка.
func (c *Client) OwnerOf(ctx context.Context, ref models.EntityRef) (models.EntityOwner, error) {
	const op = "clients/owners/OwnerOf"

	endpoint := fmt.Sprintf("%s/entities/%s/%s/owner",
		c.baseURL,
		url.PathEscape(string(ref.Type)),
		url.PathEscape(ref.ID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.EntityOwner{}, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.EntityOwner{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.EntityOwner{}, nil
	case resp.StatusCode != http.StatusOK:
		return models.EntityOwner{}, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var body ownerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.EntityOwner{}, fmt.Errorf("%s: decode: %w", op, err)
	}

	return models.EntityOwner{
		Owner:       strings.TrimSpace(body.Owner),
		DisplayName: strings.TrimSpace(body.DisplayName),
	}, nil
}
