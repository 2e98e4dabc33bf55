package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	sectionField   = "user_reg"
	createdByField = "createdby"
)

var (
	// ErrInvalidInner - внутренний payload не разбирается как JSON.
	ErrInvalidInner = errors.New("внутренний payload не является JSON")

	// ErrPathMissing - нет user_reg или user_reg.createdby (или user_reg не объект).
	ErrPathMissing = errors.New("нет поля user_reg.createdby")

	// ErrTypeMismatch - user_reg.createdby не строка.
	ErrTypeMismatch = errors.New("поле user_reg.createdby не строка")
)

// Inner - разобранный внутренний документ запроса.
// Числа хранятся как json.Number, поэтому повторная сериализация не теряет точность.
type Inner struct {
	doc     map[string]any
	section map[string]any
}

// ParseInner разбирает внутренний payload и проверяет путь user_reg.createdby.
// Данные после JSON-документа считаются ошибкой.
func ParseInner(payload []byte) (*Inner, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: документ не является одним JSON-значением", ErrInvalidInner)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInner, err)
	}

	doc, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: корень документа не объект", ErrPathMissing)
	}

	section, ok := doc[sectionField].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: нет объекта %s", ErrPathMissing, sectionField)
	}

	value, exists := section[createdByField]
	if !exists {
		return nil, fmt.Errorf("%w: нет ключа %s.%s", ErrPathMissing, sectionField, createdByField)
	}
	if _, ok := value.(string); !ok {
		return nil, fmt.Errorf("%w: %T", ErrTypeMismatch, value)
	}

	return &Inner{doc: doc, section: section}, nil
}

// CreatedBy возвращает значение user_reg.createdby (user_id автора).
func (in *Inner) CreatedBy() string {
	s, _ := in.section[createdByField].(string)
	return s
}

// SetCreatedBy заменяет user_reg.createdby, остальные поля не меняются.
func (in *Inner) SetCreatedBy(name string) {
	in.section[createdByField] = name
}

// Marshal сериализует документ. Порядок ключей не сохраняется.
func (in *Inner) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(in.doc); err != nil {
		return nil, fmt.Errorf("сериализация payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Transform заменяет user_reg.createdby на name и возвращает новый документ.
func Transform(payload []byte, name string) ([]byte, error) {
	in, err := ParseInner(payload)
	if err != nil {
		return nil, err
	}
	in.SetCreatedBy(name)
	return in.Marshal()
}
