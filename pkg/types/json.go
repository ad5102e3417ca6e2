package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// asJSON normalizes the driver value of a json/jsonb column.
func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}

// marshalList encodes nil slices as [] so columns stay non-null.
func marshalList[T any](items []T) (driver.Value, error) {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
