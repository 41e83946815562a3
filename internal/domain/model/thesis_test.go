package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThesisRecord_Validate(t *testing.T) {
	rec := ThesisRecord{ID: "t1", Name: "Thesis One", StorageHandle: "h1"}
	require.NoError(t, rec.Validate())

	rec = ThesisRecord{Name: "Thesis One", StorageHandle: "h1"}
	err := rec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thesis id is required")

	rec = ThesisRecord{ID: "t1", Name: "Thesis One"}
	err = rec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage handle is required")

	// A legacy URL alone keeps the record exportable
	legacy := "http://legacy.example.com/t1.pdf"
	rec = ThesisRecord{ID: "t1", Name: "Thesis One", LegacyURL: &legacy}
	assert.NoError(t, rec.Validate())
}

func TestThesisRecord_HasLegacyURL(t *testing.T) {
	rec := ThesisRecord{ID: "t1"}
	assert.False(t, rec.HasLegacyURL())

	blank := "   "
	rec.LegacyURL = &blank
	assert.False(t, rec.HasLegacyURL())

	legacy := "http://legacy.example.com/t1.pdf"
	rec.LegacyURL = &legacy
	assert.True(t, rec.HasLegacyURL())
}
