package model

import (
	"errors"
	"strings"
	"time"
)

// ThesisRecord represents a thesis with a file stored in the remote gateway.
// Only theses with a non-empty storage handle are eligible for bulk export.
type ThesisRecord struct {
	ID            string     `json:"id"                   db:"id"`
	Name          string     `json:"name"                 db:"name"`
	StorageHandle string     `json:"storage_handle"       db:"storage_handle"`
	LegacyURL     *string    `json:"legacy_url,omitempty" db:"legacy_url"`
	CreatedAt     *time.Time `json:"created_at,omitempty" db:"created_at"`
}

// Validate checks that the record carries enough information to be exported.
func (t *ThesisRecord) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("thesis id is required and cannot be empty")
	}
	if strings.TrimSpace(t.StorageHandle) == "" && !t.HasLegacyURL() {
		return errors.New("thesis storage handle is required and cannot be empty")
	}
	return nil
}

// HasLegacyURL reports whether the record carries a direct legacy download URL
// usable as a fallback when the gateway cannot resolve a link.
func (t *ThesisRecord) HasLegacyURL() bool {
	return t.LegacyURL != nil && strings.TrimSpace(*t.LegacyURL) != ""
}
