package utils

import "github.com/google/uuid"

// IsUUID reports whether s parses as an RFC 4122 UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
