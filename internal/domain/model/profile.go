// Пакет model — доменные модели Profile Module.
package model

import "time"

// Статусы профиля в Directory Service.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// Роли сотрудника в Directory Service (не путать с ролями доступа к API).
const (
	StaffRoleEmployee = "employee"
	StaffRoleManager  = "manager"
	StaffRoleAdmin    = "admin"
)

// Видимость профиля для privacy settings.
const (
	VisibilityPrivate = "private"
	VisibilityTeam    = "team"
	VisibilityCompany = "company"
)

// Profile — снапшот профиля сотрудника из Directory Service.
// Profile Module его не мутирует — только копирует значения
// в редактируемую модель при открытии сессии.
type Profile struct {
	// ID — идентификатор сотрудника в Directory Service
	ID string `json:"id"`
	// FirstName — имя
	FirstName string `json:"firstName"`
	// LastName — фамилия
	LastName string `json:"lastName"`
	// Email — адрес электронной почты
	Email string `json:"email"`
	// EmployeeID — табельный номер
	EmployeeID string `json:"employeeId"`
	// PhoneNumber — номер телефона (может отсутствовать)
	PhoneNumber string `json:"phoneNumber,omitempty"`
	// Role — роль сотрудника (employee, manager, admin)
	Role string `json:"role"`
	// Status — статус профиля (active, inactive, pending)
	Status string `json:"status"`
	// Verified — подтверждён ли профиль
	Verified bool `json:"verified"`
	// HomeAddress — домашний адрес
	HomeAddress Address `json:"homeAddress"`
	// UpdatedAt — время последнего обновления в Directory Service
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Address — домашний адрес сотрудника.
type Address struct {
	// Street — улица и номер дома
	Street string `json:"street"`
	// City — город
	City string `json:"city"`
	// PostalCode — почтовый индекс
	PostalCode string `json:"postalCode"`
	// Country — страна (код ISO)
	Country string `json:"country"`
}

// NotificationPreferences — настройки уведомлений сотрудника.
type NotificationPreferences struct {
	// EmailNotifications — уведомления по email
	EmailNotifications bool `json:"emailNotifications"`
	// RequestUpdates — уведомления об изменении заявок
	RequestUpdates bool `json:"requestUpdates"`
	// WeeklyDigest — еженедельная сводка
	WeeklyDigest bool `json:"weeklyDigest"`
	// MaintenanceAlerts — оповещения о технических работах
	MaintenanceAlerts bool `json:"maintenanceAlerts"`
}

// PrivacySettings — настройки приватности сотрудника.
type PrivacySettings struct {
	// ProfileVisibility — видимость профиля (private, team, company)
	ProfileVisibility string `json:"profileVisibility"`
	// AllowAnalytics — согласие на аналитику
	AllowAnalytics bool `json:"allowAnalytics"`
	// ShareLocation — делиться местоположением
	ShareLocation bool `json:"shareLocation"`
}

// Preferences — настройки сотрудника (уведомления + приватность).
// Хранятся локально в таблице staff_preferences; Directory Service
// получает их в составе update-запроса.
type Preferences struct {
	Notifications NotificationPreferences `json:"notificationPreferences"`
	Privacy       PrivacySettings         `json:"privacySettings"`
}

// DefaultPreferences возвращает настройки по умолчанию.
// Используются при открытии сессии, если для сотрудника нет сохранённой записи.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Notifications: NotificationPreferences{
			EmailNotifications: true,
			RequestUpdates:     true,
			WeeklyDigest:       false,
			MaintenanceAlerts:  true,
		},
		Privacy: PrivacySettings{
			ProfileVisibility: VisibilityTeam,
			AllowAnalytics:    false,
			ShareLocation:     false,
		},
	}
}

// EditAuditRecord — запись аудита зафиксированного редактирования профиля.
// Хранится в таблице profile_edit_audit.
type EditAuditRecord struct {
	// ID — UUID записи
	ID string
	// StaffID — идентификатор отредактированного сотрудника
	StaffID string
	// EditedBy — username редактора
	EditedBy string
	// Privileged — была ли сессия в привилегированном режиме
	Privileged bool
	// ChangedFields — имена изменённых полей
	ChangedFields []string
	// CreatedAt — время фиксации
	CreatedAt time.Time
}
