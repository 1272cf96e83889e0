package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidShape means serialized data is not an array of diary entries.
var ErrInvalidShape = errors.New("not a list of diary entries")

var validate = validator.New()

// entryShape is the minimal shape every stored entry has. Pointers tell an
// absent field from a zero value.
type entryShape struct {
	ID      *json.Number `json:"id" validate:"required"`
	Title   *string      `json:"title" validate:"required"`
	Content *string      `json:"content" validate:"required"`
	Date    *string      `json:"date" validate:"required"`
}

// DecodeEntries parses a serialized entry collection. The root must be an
// array and every element needs an integer id plus string title, content
// and date, with non-blank content. Missing echoes decode as an empty list.
func DecodeEntries(raw []byte) ([]Entry, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil, fmt.Errorf("%w: root is not an array", ErrInvalidShape)
	}

	entries := make([]Entry, 0, len(elems))
	for i, elem := range elems {
		var shape entryShape
		dec := json.NewDecoder(bytes.NewReader(elem))
		dec.UseNumber()
		if err := dec.Decode(&shape); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidShape, i, err)
		}
		if err := validate.Struct(shape); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidShape, i, err)
		}
		if _, err := shape.ID.Int64(); err != nil {
			return nil, fmt.Errorf("%w: element %d: id is not an integer", ErrInvalidShape, i)
		}
		if strings.TrimSpace(*shape.Content) == "" {
			return nil, fmt.Errorf("%w: element %d: content is blank", ErrInvalidShape, i)
		}

		var e Entry
		if err := json.Unmarshal(elem, &e); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidShape, i, err)
		}
		if e.Echoes == nil {
			e.Echoes = []Echo{}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
