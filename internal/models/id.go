package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a backend-assigned identifier. Backends send either a JSON string
// or a JSON integer; both decode to the same canonical text, so 7 and "7"
// name the same record.
type ID string

func (id ID) String() string {
	return string(id)
}

// UnmarshalJSON accepts a string, an integer or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or integer, got %s", data)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("id must be a string or integer, got %s", data)
	}
	*id = ID(n.String())
	return nil
}
