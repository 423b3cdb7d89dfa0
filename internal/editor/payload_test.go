package editor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
)

func TestBuildUpdateRequest_CurrentValues(t *testing.T) {
	m := NewModel(testProfile(), nil, true, "CH")
	if err := m.Set(GroupIdentity, "firstName", "Berta"); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(GroupAddress, "city", "Bern"); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(GroupPreferences, "weeklyDigest", true); err != nil {
		t.Fatal(err)
	}

	req := BuildUpdateRequest(m)

	if req.FirstName != "Berta" {
		t.Errorf("firstName: получено %q", req.FirstName)
	}
	if req.LastName != "Keller" {
		t.Errorf("неизменённое поле берётся из снапшота, получено: %q", req.LastName)
	}
	if req.HomeAddress.City != "Bern" {
		t.Errorf("homeAddress.city: получено %q", req.HomeAddress.City)
	}
	if !req.NotificationPreferences.WeeklyDigest {
		t.Error("weeklyDigest должно быть true")
	}
	if req.PhoneNumber == nil || *req.PhoneNumber != "+41 79 123 45 67" {
		t.Errorf("phoneNumber: получено %v", req.PhoneNumber)
	}
}

func TestBuildUpdateRequest_DisabledFieldsPassThrough(t *testing.T) {
	// Отключённые gating'ом поля проходят в payload со значениями снапшота
	m := NewModel(testProfile(), nil, false, "CH")

	req := BuildUpdateRequest(m)
	if req.Email != "anna.keller@example.com" {
		t.Errorf("email: получено %q", req.Email)
	}
	if req.EmployeeID != "EMP-1042" {
		t.Errorf("employeeId: получено %q", req.EmployeeID)
	}
	if req.Role != model.StaffRoleEmployee {
		t.Errorf("role: получено %q", req.Role)
	}
	if req.Status != model.StatusActive {
		t.Errorf("status: получено %q", req.Status)
	}
}

func TestBuildUpdateRequest_BlankPhoneOmitted(t *testing.T) {
	m := NewModel(testProfile(), nil, false, "CH")
	if err := m.Set(GroupIdentity, "phoneNumber", ""); err != nil {
		t.Fatal(err)
	}

	req := BuildUpdateRequest(m)
	if req.PhoneNumber != nil {
		t.Errorf("очищенный номер телефона должен нормализоваться в nil, получено: %v", *req.PhoneNumber)
	}

	// И не сериализуется в JSON
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "phoneNumber") {
		t.Error("ключ phoneNumber не должен присутствовать в сериализованном payload")
	}
}

func TestBuildUpdateRequest_FixedConsents(t *testing.T) {
	req := BuildUpdateRequest(NewModel(testProfile(), nil, false, "CH"))

	if !req.PrivacySettings.AllowManagerAccess {
		t.Error("allowManagerAccess должно быть зафиксировано в true")
	}
	if !req.PrivacySettings.DataRetentionConsent {
		t.Error("dataRetentionConsent должно быть зафиксировано в true")
	}
}

func TestBuildUpdateRequest_Preferences(t *testing.T) {
	prefs := &model.Preferences{
		Notifications: model.NotificationPreferences{
			EmailNotifications: false,
			RequestUpdates:     true,
			WeeklyDigest:       true,
			MaintenanceAlerts:  false,
		},
		Privacy: model.PrivacySettings{
			ProfileVisibility: model.VisibilityPrivate,
			AllowAnalytics:    true,
			ShareLocation:     true,
		},
	}
	req := BuildUpdateRequest(NewModel(testProfile(), prefs, false, "CH"))

	if req.NotificationPreferences != prefs.Notifications {
		t.Errorf("notificationPreferences: получено %+v", req.NotificationPreferences)
	}
	if req.PrivacySettings.ProfileVisibility != model.VisibilityPrivate {
		t.Errorf("profileVisibility: получено %q", req.PrivacySettings.ProfileVisibility)
	}
	if !req.PrivacySettings.AllowAnalytics || !req.PrivacySettings.ShareLocation {
		t.Error("флаги приватности должны браться из сохранённых настроек")
	}
}

func TestUpdateRequestIfValid(t *testing.T) {
	m := NewModel(testProfile(), nil, true, "CH")

	req := m.UpdateRequestIfValid()
	if req == nil || req.FirstName != "Anna" {
		t.Fatalf("валидная модель должна давать payload, получено: %+v", req)
	}

	if err := m.Set(GroupIdentity, "firstName", ""); err != nil {
		t.Fatal(err)
	}
	if req := m.UpdateRequestIfValid(); req != nil {
		t.Errorf("невалидная модель не должна давать payload: %+v", req)
	}
}

func TestBuildPreferences(t *testing.T) {
	m := NewModel(testProfile(), nil, true, "CH")
	if err := m.Set(GroupPreferences, "weeklyDigest", true); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(GroupPreferences, "profileVisibility", model.VisibilityCompany); err != nil {
		t.Fatal(err)
	}

	prefs := BuildPreferences(m)
	if !prefs.Notifications.WeeklyDigest {
		t.Error("weeklyDigest должен собираться из текущего значения модели")
	}
	if prefs.Privacy.ProfileVisibility != model.VisibilityCompany {
		t.Errorf("profileVisibility: получено %q", prefs.Privacy.ProfileVisibility)
	}
}
