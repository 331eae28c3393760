package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTaxID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2", "2"},
		{"20", "20"},
		{"201", "20-1"},
		{"201234567", "20-1234567"},
		{"2012345678", "20-12345678"},
		{"20123456789", "20-12345678-9"},
		{"20-12345678-9", "20-12345678-9"},
		{"20.1234.5678/9", "20-12345678-9"},
		{"2012345678999", "20-12345678-9"},
		{"abc", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTaxID(tt.input), tt.input)
	}
}

func TestIsTaxID(t *testing.T) {
	assert.True(t, IsTaxID("20-12345678-9"))
	assert.False(t, IsTaxID("20-1234567"))
	assert.False(t, IsTaxID("20123456789"))
	assert.False(t, IsTaxID("20-12345678-99"))
}

func TestOpenDateFor(t *testing.T) {
	assert.Equal(t, date("2025-01-15"), OpenDateFor(date("2025-02-15")))
	// month overflow normalises forward
	assert.Equal(t, date("2025-03-03"), OpenDateFor(date("2025-03-31")))
}

func TestCheckSchedule(t *testing.T) {
	ok := CheckSchedule(Schedule{
		ApplicationsCloseDate: date("2025-02-15"),
		ActivitiesStartDate:   date("2025-03-15"),
		ActivitiesEndDate:     date("2025-12-15"),
	})
	assert.True(t, ok.Valid())

	both := CheckSchedule(Schedule{
		ApplicationsCloseDate: date("2025-02-15"),
		ActivitiesStartDate:   date("2025-03-01"),
		ActivitiesEndDate:     date("2025-03-01"),
	})
	assert.Equal(t, []string{MsgCloseBeforeStart, MsgEndAfterStart}, both.GeneralErrors)
	assert.Len(t, both.FieldErrors, 3)
}
