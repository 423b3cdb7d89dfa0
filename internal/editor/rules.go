// Пакет editor — движок составной формы редактирования профиля.
// Три независимо валидируемые группы полей (identity, address, preferences)
// собираются в одну редактируемую модель с role gating, сборкой
// update-payload и state machine отправки.
//
// rules.go — декларативные правила валидации одного поля.
package editor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Виды ошибок поля.
const (
	// ErrKindRequired — пустое значение обязательного поля.
	ErrKindRequired = "required"
	// ErrKindMaxLength — превышена максимальная длина.
	ErrKindMaxLength = "maxLength"
	// ErrKindPattern — значение не соответствует шаблону.
	ErrKindPattern = "pattern"
	// ErrKindFormat — значение не соответствует формату (email).
	ErrKindFormat = "format"
	// ErrKindOneOf — значение вне допустимого набора.
	ErrKindOneOf = "oneOf"
	// ErrKindServer — ошибка валидации, присвоенная сервером после round trip.
	ErrKindServer = "serverValidation"
)

// Форматы значений для Rules.Format.
const (
	// FormatEmail — адрес электронной почты вида local@domain
	// с хотя бы одной точкой в domain.
	FormatEmail = "email"
)

// PhonePattern — допустимые символы номера телефона:
// опциональный ведущий '+', цифры, пробелы, дефисы, скобки.
var PhonePattern = regexp.MustCompile(`^\+?[0-9 ()-]+$`)

// FieldError — ошибка валидации одного поля.
type FieldError struct {
	// Kind — вид ошибки (required, maxLength, pattern, format, oneOf, serverValidation).
	Kind string `json:"kind"`
	// Message — человекочитаемое сообщение.
	Message string `json:"message"`
}

// Rules — декларативные правила валидации одного поля.
// Нулевое значение — поле без ограничений.
type Rules struct {
	// Required — пустое значение недопустимо.
	Required bool
	// MaxLength — максимальная длина в рунах (0 — без ограничения).
	// Значение длиной ровно MaxLength валидно.
	MaxLength int
	// Pattern — шаблон допустимых значений. Пустое значение
	// освобождено от проверки шаблона (если не Required).
	Pattern *regexp.Regexp
	// PatternMessage — сообщение при нарушении Pattern.
	PatternMessage string
	// Format — именованный формат значения (FormatEmail).
	Format string
	// OneOf — допустимый набор значений (для enum-полей).
	OneOf []string
}

// validate проверяет строковое значение против правил.
// Возвращает nil, если значение валидно.
func (r Rules) validate(value string) *FieldError {
	if value == "" {
		if r.Required {
			return &FieldError{Kind: ErrKindRequired, Message: "обязательное поле"}
		}
		// Пустое необязательное значение освобождено от остальных проверок
		return nil
	}

	if r.MaxLength > 0 && utf8.RuneCountInString(value) > r.MaxLength {
		return &FieldError{
			Kind:    ErrKindMaxLength,
			Message: fmt.Sprintf("длина превышает %d символов", r.MaxLength),
		}
	}

	if r.Pattern != nil && !r.Pattern.MatchString(value) {
		msg := r.PatternMessage
		if msg == "" {
			msg = "значение не соответствует допустимому формату"
		}
		return &FieldError{Kind: ErrKindPattern, Message: msg}
	}

	if r.Format == FormatEmail && !validEmail(value) {
		return &FieldError{Kind: ErrKindFormat, Message: "некорректный адрес email"}
	}

	if len(r.OneOf) > 0 && !contains(r.OneOf, value) {
		return &FieldError{
			Kind:    ErrKindOneOf,
			Message: fmt.Sprintf("недопустимое значение, допустимые: %s", strings.Join(r.OneOf, ", ")),
		}
	}

	return nil
}

// validEmail проверяет форму local@domain с хотя бы одной точкой в domain.
func validEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	if strings.Contains(domain, "@") || strings.ContainsAny(s, " \t") {
		return false
	}
	dot := strings.Index(domain, ".")
	// Точка не может быть первым или последним символом domain
	return dot > 0 && dot < len(domain)-1
}

// contains проверяет наличие значения в наборе.
func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
