// Пакет access — правила доступа к редактированию профиля.
// Реализует role gating полей: таблица "поле → требуемая привилегия",
// вычисляемая один раз при создании редактируемой модели.
package access

// Роли доступа к API Profile Module.
const (
	// RoleAdmin — оператор, может редактировать любой профиль
	// включая служебные поля (privileged edit).
	RoleAdmin = "admin"
	// RoleStaff — обычный сотрудник, может редактировать только
	// собственный профиль в ограниченном режиме.
	RoleStaff = "staff"
)

// privilegedFields — поля identity-группы, доступные для изменения
// только в привилегированном режиме. В ограниченном режиме они видимы,
// но отключены и не попадают в payload как изменяемые.
var privilegedFields = map[string]bool{
	"email":      true,
	"employeeId": true,
	"role":       true,
	"status":     true,
}

// CanEditField возвращает true, если поле может быть изменено
// в указанном режиме редактирования.
func CanEditField(field string, privileged bool) bool {
	if privileged {
		return true
	}
	return !privilegedFields[field]
}

// MapGroupsToRole определяет роль вызывающего на основе его групп IdP.
// Принадлежность к одной из adminGroups даёт роль admin,
// иначе — staff.
func MapGroupsToRole(groups []string, adminGroups []string) string {
	adminSet := toSet(adminGroups)
	for _, g := range groups {
		if adminSet[g] {
			return RoleAdmin
		}
	}
	return RoleStaff
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
