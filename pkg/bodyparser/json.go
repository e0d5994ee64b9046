package bodyparser

import (
	"encoding/json"
	"fmt"

	"github.com/iancoleman/orderedmap"
)

// jsonEnvelopeKey names the single field the body is wrapped in, so that
// orderedmap decodes any top-level value, not only objects
const jsonEnvelopeKey = "v"

// DecodeJSON decodes a JSON body into a generic value.
//
// Objects become orderedmap.OrderedMap values so the key order of the body is
// kept, arrays become []any and scalars are returned as encoding/json decodes
// them. Malformed input yields a nil value.
func DecodeJSON(body []byte) (any, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("invalid JSON body: %w", jsonSyntaxError(body))
	}

	// The body is a single valid value, so the envelope cannot be broken out of
	envelope := make([]byte, 0, len(body)+len(jsonEnvelopeKey)+5)
	envelope = append(envelope, `{"`+jsonEnvelopeKey+`":`...)
	envelope = append(envelope, body...)
	envelope = append(envelope, '}')

	object := orderedmap.New()
	if err := json.Unmarshal(envelope, object); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	value, _ := object.Get(jsonEnvelopeKey)
	return value, nil
}

// jsonSyntaxError reports why body is not valid JSON
func jsonSyntaxError(body []byte) error {
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return err
	}
	return fmt.Errorf("empty document")
}
