// group.go — группа полей с live-валидацией и состоянием per-field:
// значение, enabled/disabled, pristine/dirty, ошибка правила и
// ошибка сервера (serverValidation).
package editor

import (
	"errors"
	"fmt"
)

// Ошибки операций над группой.
var (
	// ErrUnknownField — поле с таким именем в группе отсутствует.
	ErrUnknownField = errors.New("неизвестное поле")
	// ErrFieldDisabled — поле отключено role gating и не может быть изменено.
	ErrFieldDisabled = errors.New("поле отключено и недоступно для изменения")
)

// FieldDef — описание поля при создании группы.
type FieldDef struct {
	// Name — имя поля (как в payload).
	Name string
	// Value — начальное значение (string или bool).
	Value any
	// Rules — декларативные правила валидации.
	Rules Rules
}

// Field — состояние одного поля группы.
type Field struct {
	name      string
	value     any
	rules     Rules
	enabled   bool
	dirty     bool
	ruleErr   *FieldError
	serverErr *FieldError
}

// Name возвращает имя поля.
func (f *Field) Name() string { return f.name }

// Value возвращает текущее значение поля.
func (f *Field) Value() any { return f.value }

// Enabled возвращает true, если поле доступно для изменения.
func (f *Field) Enabled() bool { return f.enabled }

// Dirty возвращает true, если значение менялось после инициализации.
func (f *Field) Dirty() bool { return f.dirty }

// Error возвращает отображаемую ошибку поля.
// Серверная ошибка имеет приоритет над ошибкой правила,
// пока значение не будет изменено.
func (f *Field) Error() *FieldError {
	if f.serverErr != nil {
		return f.serverErr
	}
	return f.ruleErr
}

// valid — валидность поля для агрегации группы.
// Отключённые поля всегда считаются валидными.
// Серверные ошибки в агрегацию не входят: отправка гейтится
// только клиентской валидностью.
func (f *Field) valid() bool {
	if !f.enabled {
		return true
	}
	return f.ruleErr == nil
}

// stringValue возвращает строковое значение поля ("" для не-строк).
func (f *Field) stringValue() string {
	s, _ := f.value.(string)
	return s
}

// revalidate пересчитывает ошибку правила для текущего значения.
// Правила применяются только к строковым значениям: булевы флаги
// настроек всегда валидны.
func (f *Field) revalidate() {
	if s, ok := f.value.(string); ok {
		f.ruleErr = f.rules.validate(s)
		return
	}
	f.ruleErr = nil
}

// Group — именованная группа полей, валидируемых и гейтируемых вместе.
type Group struct {
	name   string
	order  []string
	fields map[string]*Field
}

// NewGroup создаёт группу из описаний полей и выполняет начальную валидацию.
func NewGroup(name string, defs []FieldDef) *Group {
	g := &Group{
		name:   name,
		order:  make([]string, 0, len(defs)),
		fields: make(map[string]*Field, len(defs)),
	}
	for _, d := range defs {
		f := &Field{
			name:    d.Name,
			value:   d.Value,
			rules:   d.Rules,
			enabled: true,
		}
		f.revalidate()
		g.fields[d.Name] = f
		g.order = append(g.order, d.Name)
	}
	return g
}

// Name возвращает имя группы.
func (g *Group) Name() string { return g.name }

// Field возвращает поле по имени или nil.
func (g *Group) Field(name string) *Field {
	return g.fields[name]
}

// Fields возвращает поля в порядке объявления.
func (g *Group) Fields() []*Field {
	result := make([]*Field, 0, len(g.order))
	for _, name := range g.order {
		result = append(result, g.fields[name])
	}
	return result
}

// Set изменяет значение поля: помечает dirty, сбрасывает серверную
// ошибку (политика "edit-invalidates-server-error") и пересчитывает
// валидацию. Отключённые поля изменять нельзя.
func (g *Group) Set(name string, value any) error {
	f, ok := g.fields[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, g.name, name)
	}
	if !f.enabled {
		return fmt.Errorf("%w: %s.%s", ErrFieldDisabled, g.name, name)
	}

	f.value = value
	f.dirty = true
	f.serverErr = nil
	f.revalidate()
	return nil
}

// Disable отключает указанные поля. Их значения остаются видимыми,
// но исключаются из валидации и не могут быть изменены.
func (g *Group) Disable(names ...string) {
	for _, name := range names {
		if f, ok := g.fields[name]; ok {
			f.enabled = false
		}
	}
}

// Valid возвращает агрегированную валидность группы:
// AND валидности всех включённых полей.
func (g *Group) Valid() bool {
	for _, f := range g.fields {
		if !f.valid() {
			return false
		}
	}
	return true
}

// Dirty возвращает true, если хотя бы одно поле менялось.
func (g *Group) Dirty() bool {
	for _, f := range g.fields {
		if f.dirty {
			return true
		}
	}
	return false
}

// DirtyFields возвращает имена изменённых полей в порядке объявления.
func (g *Group) DirtyFields() []string {
	var result []string
	for _, name := range g.order {
		if g.fields[name].dirty {
			result = append(result, name)
		}
	}
	return result
}

// SetServerError присваивает полю серверную ошибку валидации.
// Возвращает false, если поле в группе отсутствует.
func (g *Group) SetServerError(name, message string) bool {
	f, ok := g.fields[name]
	if !ok {
		return false
	}
	f.serverErr = &FieldError{Kind: ErrKindServer, Message: message}
	return true
}

// String возвращает строковое значение поля ("" если поле отсутствует).
func (g *Group) String(name string) string {
	f, ok := g.fields[name]
	if !ok {
		return ""
	}
	return f.stringValue()
}

// Bool возвращает булево значение поля (false если поле отсутствует).
func (g *Group) Bool(name string) bool {
	f, ok := g.fields[name]
	if !ok {
		return false
	}
	b, _ := f.value.(bool)
	return b
}
