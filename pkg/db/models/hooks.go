package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the caller left the primary key empty,
// so rows can be created on engines without gen_random_uuid().
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
