// composite.go — составная редактируемая модель: три группы полей,
// role gating служебных полей и агрегированная валидность.
//
// Модель — точка синхронизации сессии: Set, Valid, DirtyFields,
// ApplyServerErrors и Snapshot держат внутренний мьютекс, поэтому
// конкурентные запросы HTTP-хоста (PATCH поля, submit, чтение
// состояния) не гонятся за полями. Прямые аксессоры Group/Field
// не синхронизированы и предназначены для вызова из-под Snapshot
// либо из однопоточного кода.
package editor

import (
	"fmt"
	"sync"

	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/access"
	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
)

// Имена групп составной модели.
const (
	GroupIdentity    = "identity"
	GroupAddress     = "address"
	GroupPreferences = "preferences"
)

// Model — составная редактируемая модель профиля.
// Создаётся один раз при открытии сессии редактирования и
// уничтожается при её закрытии; состояние между открытиями не живёт.
type Model struct {
	mu         sync.RWMutex
	identity   *Group
	address    *Group
	prefs      *Group
	privileged bool
}

// NewModel создаёт модель из снапшота профиля и настроек.
// Снапшот не мутируется — значения копируются в группы.
// При privileged=false служебные identity-поля отключаются
// сразу при создании (gating вычисляется один раз).
// defaultCountry подставляется, если снапшот не содержит страну.
func NewModel(p *model.Profile, prefs *model.Preferences, privileged bool, defaultCountry string) *Model {
	identity := NewGroup(GroupIdentity, []FieldDef{
		{Name: "firstName", Value: p.FirstName, Rules: Rules{Required: true, MaxLength: 100}},
		{Name: "lastName", Value: p.LastName, Rules: Rules{Required: true, MaxLength: 100}},
		{Name: "phoneNumber", Value: p.PhoneNumber, Rules: Rules{
			MaxLength:      30,
			Pattern:        PhonePattern,
			PatternMessage: "недопустимый формат номера телефона",
		}},
		{Name: "email", Value: p.Email, Rules: Rules{Required: true, MaxLength: 255, Format: FormatEmail}},
		{Name: "employeeId", Value: p.EmployeeID, Rules: Rules{Required: true, MaxLength: 50}},
		{Name: "role", Value: p.Role, Rules: Rules{Required: true, OneOf: []string{
			model.StaffRoleEmployee, model.StaffRoleManager, model.StaffRoleAdmin,
		}}},
		{Name: "status", Value: p.Status, Rules: Rules{Required: true, OneOf: []string{
			model.StatusActive, model.StatusInactive, model.StatusPending,
		}}},
	})
	for _, f := range identity.Fields() {
		if !access.CanEditField(f.Name(), privileged) {
			identity.Disable(f.Name())
		}
	}

	country := p.HomeAddress.Country
	if country == "" {
		country = defaultCountry
	}
	address := NewGroup(GroupAddress, []FieldDef{
		{Name: "street", Value: p.HomeAddress.Street, Rules: Rules{MaxLength: 200}},
		{Name: "city", Value: p.HomeAddress.City, Rules: Rules{MaxLength: 100}},
		{Name: "postalCode", Value: p.HomeAddress.PostalCode, Rules: Rules{MaxLength: 20}},
		{Name: "country", Value: country, Rules: Rules{MaxLength: 2, Required: true}},
	})

	if prefs == nil {
		prefs = model.DefaultPreferences()
	}
	preferences := NewGroup(GroupPreferences, []FieldDef{
		{Name: "emailNotifications", Value: prefs.Notifications.EmailNotifications},
		{Name: "requestUpdates", Value: prefs.Notifications.RequestUpdates},
		{Name: "weeklyDigest", Value: prefs.Notifications.WeeklyDigest},
		{Name: "maintenanceAlerts", Value: prefs.Notifications.MaintenanceAlerts},
		{Name: "profileVisibility", Value: prefs.Privacy.ProfileVisibility, Rules: Rules{
			Required: true,
			OneOf: []string{
				model.VisibilityPrivate, model.VisibilityTeam, model.VisibilityCompany,
			},
		}},
		{Name: "allowAnalytics", Value: prefs.Privacy.AllowAnalytics},
		{Name: "shareLocation", Value: prefs.Privacy.ShareLocation},
	})

	return &Model{
		identity:   identity,
		address:    address,
		prefs:      preferences,
		privileged: privileged,
	}
}

// Privileged возвращает режим редактирования модели.
func (m *Model) Privileged() bool { return m.privileged }

// Identity возвращает группу identity-полей.
func (m *Model) Identity() *Group { return m.identity }

// Address возвращает группу адресных полей.
func (m *Model) Address() *Group { return m.address }

// Preferences возвращает группу настроек.
func (m *Model) Preferences() *Group { return m.prefs }

// Groups возвращает все группы в фиксированном порядке.
func (m *Model) Groups() []*Group {
	return []*Group{m.identity, m.address, m.prefs}
}

// ByName возвращает группу по имени или nil.
func (m *Model) ByName(name string) *Group {
	switch name {
	case GroupIdentity:
		return m.identity
	case GroupAddress:
		return m.address
	case GroupPreferences:
		return m.prefs
	}
	return nil
}

// Valid возвращает агрегированную валидность модели:
// AND валидности трёх групп.
func (m *Model) Valid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validLocked()
}

// validLocked — агрегированная валидность; вызывается под m.mu.
func (m *Model) validLocked() bool {
	return m.identity.Valid() && m.address.Valid() && m.prefs.Valid()
}

// Set изменяет значение поля в указанной группе.
func (m *Model) Set(group, field string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.ByName(group)
	if g == nil {
		return fmt.Errorf("%w: группа %s", ErrUnknownField, group)
	}
	return g.Set(field, value)
}

// DirtyFields возвращает имена изменённых полей всех групп.
func (m *Model) DirtyFields() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []string
	for _, g := range m.Groups() {
		result = append(result, g.DirtyFields()...)
	}
	return result
}

// ApplyServerErrors раскладывает серверные ошибки валидации по полям.
// Поле ищется сначала в identity-группе, затем в address-группе;
// preferences не являются целью маппинга. Имена, не найденные ни в одной
// группе, отбрасываются без эскалации. Значения остальных полей
// не затрагиваются. Возвращает количество применённых ошибок.
func (m *Model) ApplyServerErrors(errs map[string]string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	applied := 0
	for name, message := range errs {
		if m.identity.SetServerError(name, message) {
			applied++
			continue
		}
		if m.address.SetServerError(name, message) {
			applied++
		}
	}
	return applied
}

// FieldState — снимок состояния поля для хоста.
type FieldState struct {
	Name    string
	Value   any
	Enabled bool
	Dirty   bool
	Error   *FieldError
}

// GroupState — снимок состояния группы для хоста.
type GroupState struct {
	Name   string
	Valid  bool
	Dirty  bool
	Fields []FieldState
}

// Snapshot возвращает согласованный снимок всех групп: состояния полей
// и валидность сняты под одной блокировкой, поэтому конкурентное
// редактирование не даёт хосту "полусобранное" состояние формы.
func (m *Model) Snapshot() []GroupState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	groups := m.Groups()
	out := make([]GroupState, 0, len(groups))
	for _, g := range groups {
		fields := make([]FieldState, 0, len(g.Fields()))
		for _, f := range g.Fields() {
			fields = append(fields, FieldState{
				Name:    f.Name(),
				Value:   f.Value(),
				Enabled: f.Enabled(),
				Dirty:   f.Dirty(),
				Error:   f.Error(),
			})
		}
		out = append(out, GroupState{
			Name:   g.Name(),
			Valid:  g.Valid(),
			Dirty:  g.Dirty(),
			Fields: fields,
		})
	}
	return out
}
