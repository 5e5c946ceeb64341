package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ActionPattern определяет допустимый формат имени действия журнала:
// заглавные латинские буквы, цифры и подчеркивание, первая буква, 2-64 символа
var ActionPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,63}$`)

// EntityTypePattern определяет допустимый формат типа сущности:
// строчные латинские буквы, цифры и подчеркивание, первая буква, 1-64 символа
var EntityTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// MaxEntityIDLen максимальная длина идентификатора сущности
const MaxEntityIDLen = 128

// ValidateAction проверяет имя действия
func ValidateAction(action string) error {
	if action == "" {
		return fmt.Errorf("action cannot be empty")
	}

	if !ActionPattern.MatchString(action) {
		return fmt.Errorf("action %q must match %s", action, ActionPattern)
	}

	return nil
}

// ValidateEntityType проверяет тип сущности
func ValidateEntityType(entityType string) error {
	if entityType == "" {
		return fmt.Errorf("entity type cannot be empty")
	}

	if !EntityTypePattern.MatchString(entityType) {
		return fmt.Errorf("entity type %q must match %s", entityType, EntityTypePattern)
	}

	return nil
}

// ValidateEntityID проверяет идентификатор сущности.
// Пустой идентификатор допустим для событий без сущности (например, LOGOUT).
func ValidateEntityID(entityID string) error {
	if len(entityID) > MaxEntityIDLen {
		return fmt.Errorf("entity id must not exceed %d characters", MaxEntityIDLen)
	}

	if strings.IndexFunc(entityID, unicode.IsControl) >= 0 {
		return fmt.Errorf("entity id must not contain control characters")
	}

	return nil
}
