// payload.go — сборка минимального update-payload из текущих значений
// составной модели.
//
// Политика пропуска: необязательные поля — указатели с omitempty;
// пустая строка необязательного поля нормализуется в "не задано"
// перед сборкой, поэтому очищенный номер телефона в payload не попадает.
// Обязательные поля присутствуют всегда. Отключённые gating'ом поля
// проходят в payload с исходными значениями снапшота без изменений.
package editor

import "github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"

// UpdateAddress — блок homeAddress update-запроса.
type UpdateAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// UpdatePrivacySettings — блок privacySettings update-запроса.
// AllowManagerAccess и DataRetentionConsent фиксированы в true:
// Directory Service отклоняет запросы без этих согласий.
type UpdatePrivacySettings struct {
	ProfileVisibility    string `json:"profileVisibility"`
	AllowAnalytics       bool   `json:"allowAnalytics"`
	ShareLocation        bool   `json:"shareLocation"`
	AllowManagerAccess   bool   `json:"allowManagerAccess"`
	DataRetentionConsent bool   `json:"dataRetentionConsent"`
}

// UpdateRequest — payload операции обновления профиля
// (PUT /api/v1/staff/{id} Directory Service).
// После сборки не мутируется.
type UpdateRequest struct {
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Email       string  `json:"email"`
	EmployeeID  string  `json:"employeeId"`
	Role        string  `json:"role"`
	Status      string  `json:"status"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`

	HomeAddress             UpdateAddress                 `json:"homeAddress"`
	NotificationPreferences model.NotificationPreferences `json:"notificationPreferences"`
	PrivacySettings         UpdatePrivacySettings         `json:"privacySettings"`
}

// BuildUpdateRequest собирает UpdateRequest из текущих значений модели.
func BuildUpdateRequest(m *Model) *UpdateRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return buildUpdateRequest(m)
}

// UpdateRequestIfValid проверяет валидность модели и собирает payload
// под одной блокировкой: конкурентное редактирование не может сделать
// модель невалидной между проверкой и сборкой. Возвращает nil,
// если модель невалидна.
func (m *Model) UpdateRequestIfValid() *UpdateRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.validLocked() {
		return nil
	}
	return buildUpdateRequest(m)
}

// buildUpdateRequest — сборка payload; вызывается под m.mu.
func buildUpdateRequest(m *Model) *UpdateRequest {
	identity := m.Identity()
	address := m.Address()
	prefs := m.Preferences()

	req := &UpdateRequest{
		FirstName:   identity.String("firstName"),
		LastName:    identity.String("lastName"),
		Email:       identity.String("email"),
		EmployeeID:  identity.String("employeeId"),
		Role:        identity.String("role"),
		Status:      identity.String("status"),
		PhoneNumber: optionalString(identity.String("phoneNumber")),
		HomeAddress: UpdateAddress{
			Street:     address.String("street"),
			City:       address.String("city"),
			PostalCode: address.String("postalCode"),
			Country:    address.String("country"),
		},
		NotificationPreferences: model.NotificationPreferences{
			EmailNotifications: prefs.Bool("emailNotifications"),
			RequestUpdates:     prefs.Bool("requestUpdates"),
			WeeklyDigest:       prefs.Bool("weeklyDigest"),
			MaintenanceAlerts:  prefs.Bool("maintenanceAlerts"),
		},
		PrivacySettings: UpdatePrivacySettings{
			ProfileVisibility:    prefs.String("profileVisibility"),
			AllowAnalytics:       prefs.Bool("allowAnalytics"),
			ShareLocation:        prefs.Bool("shareLocation"),
			AllowManagerAccess:   true,
			DataRetentionConsent: true,
		},
	}

	return req
}

// BuildPreferences собирает настройки сотрудника из текущих значений
// preferences-группы (для локального сохранения при фиксации).
func BuildPreferences(m *Model) *model.Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefs := m.Preferences()
	return &model.Preferences{
		Notifications: model.NotificationPreferences{
			EmailNotifications: prefs.Bool("emailNotifications"),
			RequestUpdates:     prefs.Bool("requestUpdates"),
			WeeklyDigest:       prefs.Bool("weeklyDigest"),
			MaintenanceAlerts:  prefs.Bool("maintenanceAlerts"),
		},
		Privacy: model.PrivacySettings{
			ProfileVisibility: prefs.String("profileVisibility"),
			AllowAnalytics:    prefs.Bool("allowAnalytics"),
			ShareLocation:     prefs.Bool("shareLocation"),
		},
	}
}

// optionalString нормализует пустую строку в "не задано" (nil).
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
