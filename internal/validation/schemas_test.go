package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCurationOutput(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	tests := []struct {
		name  string
		data  string
		valid bool
	}{
		{
			name:  "valid payload",
			data:  `{"weekly_pick_ids": ["a"], "monthly_pick_ids": ["b"], "reasons_by_id": {"a": "fits your taste"}, "summary_text": "A good week ahead."}`,
			valid: true,
		},
		{
			name:  "empty reasons allowed",
			data:  `{"weekly_pick_ids": ["a"], "monthly_pick_ids": ["b"], "reasons_by_id": {}, "summary_text": "A good week ahead."}`,
			valid: true,
		},
		{
			name:  "missing required field",
			data:  `{"weekly_pick_ids": ["a"], "reasons_by_id": {}, "summary_text": "A good week ahead."}`,
			valid: false,
		},
		{
			name:  "empty weekly picks",
			data:  `{"weekly_pick_ids": [], "monthly_pick_ids": ["b"], "reasons_by_id": {}, "summary_text": "A good week ahead."}`,
			valid: false,
		},
		{
			name:  "summary too short",
			data:  `{"weekly_pick_ids": ["a"], "monthly_pick_ids": ["b"], "reasons_by_id": {}, "summary_text": "short"}`,
			valid: false,
		},
		{
			name:  "unexpected extra field",
			data:  `{"weekly_pick_ids": ["a"], "monthly_pick_ids": ["b"], "reasons_by_id": {}, "summary_text": "A good week ahead.", "extra": true}`,
			valid: false,
		},
		{
			name:  "non-string reason",
			data:  `{"weekly_pick_ids": ["a"], "monthly_pick_ids": ["b"], "reasons_by_id": {"a": 5}, "summary_text": "A good week ahead."}`,
			valid: false,
		},
		{
			name:  "not json at all",
			data:  `picks: a, b`,
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sv.ValidateCurationOutput(tt.data)
			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				assert.NotEmpty(t, result.ErrorSummary())
			}
		})
	}
}

func TestValidateUnknownSchema(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	result := sv.validate("nope", `{}`)

	require.False(t, result.Valid)
	assert.Equal(t, "SCHEMA_NOT_FOUND", result.Errors[0].Code)
}
