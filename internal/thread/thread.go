// thread — сборка дерева комментариев из плоского набора записей.
//
// Вход — полный набор комментариев одной сущности (корни и ответы вперемешку,
// порядок не важен). Выход — детерминированная линейная развёртка леса:
// последовательность пар (комментарий, глубина) в порядке обхода в глубину.
//
// Инварианты сборки:
//   - циклы невозможны по построению (родитель существует до ребёнка, parent_id
//     после создания не переписывается), поэтому обход не требует пометок;
//   - ответ, чей родитель отсутствует в наборе (родитель удалён), не теряется:
//     он показывается как самостоятельный элемент глубины 0, но НЕ считается
//     синтетическим корнем — его parent_id сохраняется как есть;
//   - внутри ветки прямые дети упорядочены по created_at по возрастанию
//     (старые ответы выше); при равенстве времени — по id, для детерминизма;
//   - корни упорядочены по created_at: по умолчанию свежие первыми
//     (OrderNewestFirst), опционально — хронологически.
package thread

import (
	"sort"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
)

// Assemble разворачивает плоский набор комментариев в упорядоченный лес.
// Функция чистая: входной срез не модифицируется, результат строится заново
// при каждом вызове. Для фиксированного набора и порядка результат детерминирован.
func Assemble(comments []models.Comment, order models.Order) []models.ThreadItem {
	if len(comments) == 0 {
		return nil
	}

	// Партиционирование: корни / ответы; индекс присутствующих id.
	present := make(map[string]struct{}, len(comments))
	for _, c := range comments {
		present[c.ID] = struct{}{}
	}

	var roots []models.Comment
	children := make(map[string][]models.Comment)
	var orphans []models.Comment

	for _, c := range comments {
		switch {
		case c.ParentID == "":
			roots = append(roots, c)
		default:
			if _, ok := present[c.ParentID]; ok {
				children[c.ParentID] = append(children[c.ParentID], c)
			} else {
				// Родитель удалён: показываем ответ на верхнем уровне.
				orphans = append(orphans, c)
			}
		}
	}

	// Дети внутри ветки: старые первыми, tie-break по id.
	for _, list := range children {
		sortAsc(list)
	}

	// Сироты встраиваются в верхний уровень наравне с корнями.
	top := append(roots, orphans...)
	switch order {
	case models.OrderOldestFirst:
		sortAsc(top)
	default:
		sortDesc(top)
	}

	// Обход в глубину; глубина — только для отступов при отрисовке.
	out := make([]models.ThreadItem, 0, len(comments))

	var walk func(c models.Comment, depth int)
	walk = func(c models.Comment, depth int) {
		out = append(out, models.ThreadItem{Comment: c, Depth: depth})
		for _, child := range children[c.ID] {
			walk(child, depth+1)
		}
	}

	for _, c := range top {
		walk(c, 0)
	}

	return out
}

func sortAsc(list []models.Comment) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func sortDesc(list []models.Comment) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}
