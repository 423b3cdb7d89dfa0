package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arturkryukov/staffdesk/profile-module/internal/api/middleware"
	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
	"github.com/arturkryukov/staffdesk/profile-module/internal/editor"
	"github.com/arturkryukov/staffdesk/profile-module/internal/notify"
	"github.com/arturkryukov/staffdesk/profile-module/internal/repository"
	"github.com/arturkryukov/staffdesk/profile-module/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testProfile() *model.Profile {
	return &model.Profile{
		ID:         "staff-001",
		FirstName:  "Anna",
		LastName:   "Keller",
		Email:      "anna.keller@example.com",
		EmployeeID: "EMP-1042",
		Role:       model.StaffRoleEmployee,
		Status:     model.StatusActive,
		HomeAddress: model.Address{
			Street:     "Bahnhofstrasse 12",
			City:       "Zürich",
			PostalCode: "8001",
			Country:    "CH",
		},
	}
}

// fakeDirectory — mock Directory Service для HTTP-тестов.
type fakeDirectory struct {
	mu        sync.Mutex
	profile   *model.Profile
	outcome   *editor.Outcome
	updateErr error
}

func (d *fakeDirectory) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := *d.profile
	return &p, nil
}

func (d *fakeDirectory) UpdateProfile(_ context.Context, id string, req *editor.UpdateRequest) (*editor.Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcome, d.updateErr
}

// fakePrefsRepo — in-memory PreferencesRepository.
type fakePrefsRepo struct {
	mu    sync.Mutex
	prefs map[string]*model.Preferences
}

func (r *fakePrefsRepo) Get(_ context.Context, staffID string) (*model.Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prefs[staffID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakePrefsRepo) Upsert(_ context.Context, staffID string, prefs *model.Preferences, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prefs == nil {
		r.prefs = make(map[string]*model.Preferences)
	}
	r.prefs[staffID] = prefs
	return nil
}

func (r *fakePrefsRepo) Delete(_ context.Context, staffID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.prefs, staffID)
	return nil
}

// fakeAuditRepo — in-memory EditAuditRepository.
type fakeAuditRepo struct {
	mu      sync.Mutex
	records []model.EditAuditRecord
}

func (r *fakeAuditRepo) Insert(_ context.Context, record *model.EditAuditRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return "audit-id", nil
}

func (r *fakeAuditRepo) ListByStaffID(_ context.Context, staffID string, limit, offset int) ([]model.EditAuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.EditAuditRecord
	for _, rec := range r.records {
		if rec.StaffID == staffID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) CountByStaffID(_ context.Context, staffID string) (int, error) {
	records, _ := r.ListByStaffID(context.Background(), staffID, 0, 0)
	return len(records), nil
}

// fakeCommits — транзакционная запись фиксации поверх in-memory репозиториев.
type fakeCommits struct {
	prefs *fakePrefsRepo
	audit *fakeAuditRepo
}

func (c *fakeCommits) SaveCommit(ctx context.Context, record *model.EditAuditRecord, prefs *model.Preferences, updatedBy string) error {
	if _, err := c.audit.Insert(ctx, record); err != nil {
		return err
	}
	return c.prefs.Upsert(ctx, record.StaffID, prefs, updatedBy)
}

// handlerFixture — APIHandler с fake-коллабораторами и chi-роутером.
type handlerFixture struct {
	handler   *APIHandler
	directory *fakeDirectory
	router    chi.Router
	claims    *middleware.AuthClaims
}

// newHandlerFixture собирает роутер с claims-инъекцией вместо JWT middleware.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	f := &handlerFixture{
		directory: &fakeDirectory{profile: testProfile()},
		claims: &middleware.AuthClaims{
			Subject:           "user-123",
			PreferredUsername: "operator",
			Role:              "admin",
		},
	}

	prefs := &fakePrefsRepo{}
	audit := &fakeAuditRepo{}
	svc := service.NewProfileEditor(service.ProfileEditorConfig{
		Directory:      f.directory,
		Preferences:    prefs,
		Audit:          audit,
		Commits:        &fakeCommits{prefs: prefs, audit: audit},
		Cache:          service.NewProfileCache(16, time.Minute),
		Notifier:       notify.Nop{},
		DefaultCountry: "CH",
		SessionTTL:     time.Minute,
		SessionLimit:   4,
	}, testLogger())

	f.handler = NewAPIHandler(NewHealthHandler(nil, nil, nil), svc, testLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.ContextKeyClaims, f.claims)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/api/v1/profiles/{id}", f.handler.GetProfile)
	r.Get("/api/v1/profiles/{id}/audit", f.handler.ListProfileAudit)
	r.Post("/api/v1/profiles/{id}/edit-session", f.handler.OpenEditSession)
	r.Get("/api/v1/edit-sessions/{sid}", f.handler.GetEditSession)
	r.Patch("/api/v1/edit-sessions/{sid}/fields", f.handler.SetEditSessionField)
	r.Post("/api/v1/edit-sessions/{sid}/submit", f.handler.SubmitEditSession)
	r.Delete("/api/v1/edit-sessions/{sid}", f.handler.CancelEditSession)
	f.router = r

	return f
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// openSession открывает сессию и возвращает её идентификатор.
func (f *handlerFixture) openSession(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/profiles/staff-001/edit-session", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("открытие сессии: статус %d, тело: %s", rec.Code, rec.Body.String())
	}
	var view sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	return view.ID
}

// TestOpenEditSession — открытие сессии возвращает состояние формы.
func TestOpenEditSession(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/profiles/staff-001/edit-session", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("ожидался статус 201, получен %d: %s", rec.Code, rec.Body.String())
	}

	var view sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.ID == "" {
		t.Error("ожидался непустой идентификатор сессии")
	}
	if view.StaffID != "staff-001" {
		t.Errorf("StaffID = %q, хотели staff-001", view.StaffID)
	}
	if view.State != "idle" {
		t.Errorf("State = %q, хотели idle", view.State)
	}
	if !view.Valid {
		t.Error("ожидалась валидная форма для корректного снапшота")
	}
	if !view.Privileged {
		t.Error("ожидался привилегированный режим для роли admin")
	}
	if len(view.Groups) != 3 {
		t.Fatalf("ожидались 3 группы, получено %d", len(view.Groups))
	}
	if view.Groups[0].Name != "identity" || view.Groups[1].Name != "address" || view.Groups[2].Name != "preferences" {
		t.Errorf("неверный порядок групп: %s, %s, %s",
			view.Groups[0].Name, view.Groups[1].Name, view.Groups[2].Name)
	}
}

// TestOpenEditSession_ForeignProfileForbidden — staff не открывает чужой профиль.
func TestOpenEditSession_ForeignProfileForbidden(t *testing.T) {
	f := newHandlerFixture(t)
	f.claims = &middleware.AuthClaims{
		Subject:           "staff-999",
		PreferredUsername: "h.meier",
		Role:              "staff",
	}

	rec := f.do(t, http.MethodPost, "/api/v1/profiles/staff-001/edit-session", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("ожидался статус 403, получен %d", rec.Code)
	}
}

// TestSetEditSessionField — изменение поля возвращает обновлённую форму.
func TestSetEditSessionField(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.openSession(t)

	rec := f.do(t, http.MethodPatch, "/api/v1/edit-sessions/"+sid+"/fields",
		setFieldRequest{Group: "identity", Field: "firstName", Value: "Berta"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d: %s", rec.Code, rec.Body.String())
	}

	var view sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if len(view.DirtyFields) != 1 || view.DirtyFields[0] != "firstName" {
		t.Errorf("DirtyFields = %v, хотели [firstName]", view.DirtyFields)
	}
}

// TestSetEditSessionField_Invalid — пустое обязательное поле делает форму невалидной.
func TestSetEditSessionField_Invalid(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.openSession(t)

	rec := f.do(t, http.MethodPatch, "/api/v1/edit-sessions/"+sid+"/fields",
		setFieldRequest{Group: "identity", Field: "firstName", Value: ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}

	var view sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.Valid {
		t.Error("ожидалась невалидная форма после очистки обязательного поля")
	}

	// Отправка невалидной формы отклоняется
	rec = f.do(t, http.MethodPost, "/api/v1/edit-sessions/"+sid+"/submit", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидался статус 400, получен %d", rec.Code)
	}
}

// TestSetEditSessionField_UnknownField — неизвестное поле отклоняется.
func TestSetEditSessionField_UnknownField(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.openSession(t)

	rec := f.do(t, http.MethodPatch, "/api/v1/edit-sessions/"+sid+"/fields",
		setFieldRequest{Group: "identity", Field: "ghost", Value: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидался статус 400, получен %d", rec.Code)
	}
}

// TestSetEditSessionField_DisabledField — отключённое поле недоступно staff.
func TestSetEditSessionField_DisabledField(t *testing.T) {
	f := newHandlerFixture(t)
	f.claims = &middleware.AuthClaims{
		Subject:           "staff-001",
		PreferredUsername: "a.keller",
		Role:              "staff",
	}
	sid := f.openSession(t)

	rec := f.do(t, http.MethodPatch, "/api/v1/edit-sessions/"+sid+"/fields",
		setFieldRequest{Group: "identity", Field: "email", Value: "new@example.com"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("ожидался статус 403, получен %d", rec.Code)
	}
}

// TestSubmitEditSession_Commit — успешная отправка фиксирует обновление.
func TestSubmitEditSession_Commit(t *testing.T) {
	f := newHandlerFixture(t)

	updated := testProfile()
	updated.FirstName = "Berta"
	f.directory.outcome = &editor.Outcome{Success: true, Profile: updated}

	sid := f.openSession(t)
	f.do(t, http.MethodPatch, "/api/v1/edit-sessions/"+sid+"/fields",
		setFieldRequest{Group: "identity", Field: "firstName", Value: "Berta"})

	rec := f.do(t, http.MethodPost, "/api/v1/edit-sessions/"+sid+"/submit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d: %s", rec.Code, rec.Body.String())
	}

	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Committed {
		t.Error("ожидался Committed=true")
	}
	if resp.Outcome == nil || resp.Outcome.Profile == nil || resp.Outcome.Profile.FirstName != "Berta" {
		t.Error("ожидался обновлённый снапшот в Outcome")
	}

	// Сессия закрыта и удалена из реестра
	rec = f.do(t, http.MethodGet, "/api/v1/edit-sessions/"+sid, nil)
	if rec.Code != http.StatusGone {
		t.Errorf("ожидался статус 410 после фиксации, получен %d", rec.Code)
	}
}

// TestSubmitEditSession_ValidationFailure — отказ сервера оставляет сессию открытой.
func TestSubmitEditSession_ValidationFailure(t *testing.T) {
	f := newHandlerFixture(t)
	f.directory.outcome = &editor.Outcome{
		Success: false,
		Message: "проверка не пройдена",
		ValidationErrors: map[string]string{
			"email": "адрес уже используется",
		},
	}

	sid := f.openSession(t)
	rec := f.do(t, http.MethodPost, "/api/v1/edit-sessions/"+sid+"/submit", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("ожидался статус 422, получен %d: %s", rec.Code, rec.Body.String())
	}

	var view sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.State != "failed" {
		t.Errorf("State = %q, хотели failed", view.State)
	}

	var emailErr *editor.FieldError
	for _, g := range view.Groups {
		for _, fv := range g.Fields {
			if fv.Name == "email" {
				emailErr = fv.Error
			}
		}
	}
	if emailErr == nil || emailErr.Kind != "serverValidation" {
		t.Errorf("ожидалась серверная ошибка на поле email, получено %+v", emailErr)
	}

	// Сессия всё ещё доступна
	rec = f.do(t, http.MethodGet, "/api/v1/edit-sessions/"+sid, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d", rec.Code)
	}
}

// TestCancelEditSession — отмена закрывает сессию.
func TestCancelEditSession(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.openSession(t)

	rec := f.do(t, http.MethodDelete, "/api/v1/edit-sessions/"+sid, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("ожидался статус 204, получен %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/edit-sessions/"+sid, nil)
	if rec.Code != http.StatusGone {
		t.Errorf("ожидался статус 410 после отмены, получен %d", rec.Code)
	}
}

// TestGetEditSession_NotFound — неизвестная сессия.
func TestGetEditSession_NotFound(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/edit-sessions/no-such-session", nil)
	if rec.Code != http.StatusGone {
		t.Errorf("ожидался статус 410, получен %d", rec.Code)
	}
}

// TestGetEditSession_ForeignSessionForbidden — чужая сессия недоступна staff.
func TestGetEditSession_ForeignSessionForbidden(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.openSession(t)

	f.claims = &middleware.AuthClaims{
		Subject:           "staff-777",
		PreferredUsername: "h.meier",
		Role:              "staff",
	}

	rec := f.do(t, http.MethodGet, "/api/v1/edit-sessions/"+sid, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("ожидался статус 403, получен %d", rec.Code)
	}
}

// TestGetProfile — чтение снапшота профиля.
func TestGetProfile(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/profiles/staff-001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}

	var p model.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.ID != "staff-001" || p.FirstName != "Anna" {
		t.Errorf("неожиданный профиль: %+v", p)
	}
}

// TestListProfileAudit — аудит после фиксации редактирования.
func TestListProfileAudit(t *testing.T) {
	f := newHandlerFixture(t)
	f.directory.outcome = &editor.Outcome{Success: true, Profile: testProfile()}

	sid := f.openSession(t)
	f.do(t, http.MethodPatch, "/api/v1/edit-sessions/"+sid+"/fields",
		setFieldRequest{Group: "identity", Field: "firstName", Value: "Berta"})
	f.do(t, http.MethodPost, "/api/v1/edit-sessions/"+sid+"/submit", nil)

	rec := f.do(t, http.MethodGet, "/api/v1/profiles/staff-001/audit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}

	var resp editAuditListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 {
		t.Fatalf("ожидалась одна запись аудита, получено total=%d items=%d", resp.Total, len(resp.Items))
	}
	item := resp.Items[0]
	if item.EditedBy != "operator" || !item.Privileged {
		t.Errorf("неожиданная запись аудита: %+v", item)
	}
	if len(item.ChangedFields) != 1 || item.ChangedFields[0] != "firstName" {
		t.Errorf("ChangedFields = %v, хотели [firstName]", item.ChangedFields)
	}
}

// TestListProfileAudit_StaffForbidden — аудит доступен только admin.
func TestListProfileAudit_StaffForbidden(t *testing.T) {
	f := newHandlerFixture(t)
	f.claims = &middleware.AuthClaims{
		Subject:           "staff-001",
		PreferredUsername: "a.keller",
		Role:              "staff",
	}

	rec := f.do(t, http.MethodGet, "/api/v1/profiles/staff-001/audit", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("ожидался статус 403, получен %d", rec.Code)
	}
}
