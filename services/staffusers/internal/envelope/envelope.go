// Package envelope реализует формат сообщений шины: внешний конверт
// {"key": string, "payload": string}, где payload - JSON-документ, закодированный строкой.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrDecode - байты не являются корректным конвертом.
	ErrDecode = errors.New("некорректный конверт сообщения")

	// ErrEncode - payload конверта не является JSON.
	ErrEncode = errors.New("payload конверта не является JSON")
)

// Envelope - конверт сообщения шины.
// Payload хранит внутренний JSON-документ как есть, без повторного кодирования.
type Envelope struct {
	Key     string
	Payload json.RawMessage
}

// wireEnvelope - представление конверта на проводе.
// Указатели отличают отсутствующее поле или null от пустой строки.
type wireEnvelope struct {
	Key     *string `json:"key"`
	Payload *string `json:"payload"`
}

// Decode разбирает конверт.
// Ошибка ErrDecode, если данные не UTF-8, не JSON, поле key или payload
// отсутствует или не строка, либо payload не является JSON-документом.
func Decode(data []byte) (Envelope, error) {
	if !utf8.Valid(data) {
		return Envelope{}, fmt.Errorf("%w: данные не в UTF-8", ErrDecode)
	}

	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if w.Key == nil {
		return Envelope{}, fmt.Errorf("%w: нет строкового поля key", ErrDecode)
	}
	if w.Payload == nil {
		return Envelope{}, fmt.Errorf("%w: нет строкового поля payload", ErrDecode)
	}

	payload := []byte(*w.Payload)
	if !json.Valid(payload) {
		return Envelope{}, fmt.Errorf("%w: payload не является JSON", ErrDecode)
	}

	return Envelope{Key: *w.Key, Payload: payload}, nil
}

// Encode сериализует конверт в проводной формат.
// Для конверта с JSON в кодировке UTF-8 в Payload ошибок не бывает.
func Encode(e Envelope) ([]byte, error) {
	if !utf8.Valid(e.Payload) || !json.Valid(e.Payload) {
		return nil, ErrEncode
	}

	key := e.Key
	payload := string(e.Payload)
	data, err := json.Marshal(wireEnvelope{Key: &key, Payload: &payload})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}
