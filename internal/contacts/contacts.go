// contacts — справочник контактных адресов пользователей трекера.
//
// Владелец сущности на старых записях может отличаться от справочника
// регистром или лишними пробелами, поэтому поиск адреса — явная
// трёхступенчатая стратегия (см. Resolve): точное совпадение,
// регистронезависимое, затем вхождение подстроки в обе стороны.
// Стратегия живёт здесь, а не в бизнес-логике.
package contacts

import "strings"

// Directory — внешний коллаборатор: отображение identity -> контактный адрес.
type Directory interface {
	// ResolveAddress возвращает адрес для identity и признак того, что адрес найден.
	// Отсутствие адреса — штатная ситуация, не ошибка.
	ResolveAddress(identity string) (string, bool)
}

// StaticDirectory — справочник поверх неизменяемой карты (identity -> адрес),
// загружаемой из конфигурации.
type StaticDirectory struct {
	addresses map[string]string
}

// NewStaticDirectory строит справочник по карте из конфига.
// Ключи нормализуются TrimSpace; пустые ключи и адреса отбрасываются.
func NewStaticDirectory(addresses map[string]string) *StaticDirectory {
	m := make(map[string]string, len(addresses))
	for k, v := range addresses {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		m[k] = v
	}

	return &StaticDirectory{addresses: m}
}

// ResolveAddress ищет адрес в три ступени, возвращая первый успех:
//  1. точное совпадение по нормализованному identity;
//  2. регистронезависимое совпадение;
//  3. вхождение подстроки в обе стороны (ключ в identity или identity в ключе),
//     тоже без учёта регистра.
//
// Пустой identity разрешается в «не найдено» (fail-closed).
func (d *StaticDirectory) ResolveAddress(identity string) (string, bool) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", false
	}

	// 1) Точное совпадение.
	if addr, ok := d.addresses[identity]; ok {
		return addr, true
	}

	lower := strings.ToLower(identity)

	// 2) Без учёта регистра.
	for k, addr := range d.addresses {
		if strings.ToLower(k) == lower {
			return addr, true
		}
	}

	// 3) Подстрока в обе стороны (на identity бывает «лишний хвост»).
	for k, addr := range d.addresses {
		kl := strings.ToLower(k)
		if strings.Contains(kl, lower) || strings.Contains(lower, kl) {
			return addr, true
		}
	}

	return "", false
}
