package types

import (
	"database/sql/driver"
	"encoding/json"
)

// ImageRef points at an externally stored image; binaries never live in the database.
type ImageRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ImageRefs is stored as a JSON array.
type ImageRefs []ImageRef

// Value serializes the image list to JSON.
func (i ImageRefs) Value() (driver.Value, error) {
	return marshalList(i)
}

// Scan decodes a JSON array into the image list.
func (i *ImageRefs) Scan(value interface{}) error {
	if value == nil {
		*i = ImageRefs{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded ImageRefs
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*i = decoded
	return nil
}
