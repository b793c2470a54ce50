package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStruct(t *testing.T) {
	type form struct {
		Email string `validate:"required,email"`
		Units int    `validate:"gte=1"`
	}

	errs := ValidateStruct(form{Email: "not-an-email", Units: 0})
	require.Len(t, errs, 2)
	assert.Equal(t, "Email", errs[0].Field)
	assert.Contains(t, errs[0].Message, "valid email")
	assert.Contains(t, errs[1].Message, "greater than or equal to 1")

	assert.Empty(t, ValidateStruct(form{Email: "mia@fitclub.local", Units: 2}))
}

func TestValidateStructDatetime(t *testing.T) {
	type form struct {
		StartTime string `validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	}

	errs := ValidateStruct(form{StartTime: "tomorrow-ish"})
	require.Len(t, errs, 1)
	assert.Equal(t, "StartTime", errs[0].Field)
	assert.Equal(t, "datetime", errs[0].Tag)
	assert.Contains(t, errs[0].Message, "must match format")

	assert.Empty(t, ValidateStruct(form{StartTime: "2025-06-01T10:00:00Z"}))
}
