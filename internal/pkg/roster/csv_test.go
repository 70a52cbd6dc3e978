package roster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/machzor/internal/pkg/apperrors"
)

func TestParseCSVEnglishHeaders(t *testing.T) {
	input := strings.NewReader(
		"id_number,last_name,first_name,grade,stream,gender,track\n" +
			"123456789,כהן,דוד,י,1,זכר,Physics\n" +
			"987654321,לוי,רחל,יב,2,נקבה,Biology\n")

	rows, err := ParseCSV(input)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "123456789", rows[0].IDNumber)
	assert.Equal(t, "כהן", rows[0].LastName)
	assert.Equal(t, "דוד", rows[0].FirstName)
	assert.Equal(t, "י", rows[0].Grade)
	assert.Equal(t, "1", rows[0].Stream)
	assert.Equal(t, "זכר", rows[0].Gender)
	assert.Equal(t, "Physics", rows[0].Track)
	assert.Equal(t, "987654321", rows[1].IDNumber)
}

func TestParseCSVHebrewHeaders(t *testing.T) {
	input := strings.NewReader(
		"ת״ז,שם משפחה,שם פרטי,שכבה,כיתה,מין,מגמה\n" +
			"123456789,כהן,דוד,י׳,3,ז,פיזיקה\n")

	rows, err := ParseCSV(input)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "123456789", rows[0].IDNumber)
	assert.Equal(t, "כהן", rows[0].LastName)
	assert.Equal(t, "י׳", rows[0].Grade)
	assert.Equal(t, "3", rows[0].Stream)
	assert.Equal(t, "פיזיקה", rows[0].Track)
}

func TestParseCSVToleratesExportQuirks(t *testing.T) {
	t.Run("byte order mark on the first cell", func(t *testing.T) {
		input := strings.NewReader(
			"﻿id_number,last_name,first_name\n" +
				"123456789,כהן,דוד\n")

		rows, err := ParseCSV(input)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "123456789", rows[0].IDNumber)
	})

	t.Run("unknown columns are ignored", func(t *testing.T) {
		input := strings.NewReader(
			"id_number,last_name,first_name,ממוצע\n" +
				"123456789,כהן,דוד,92\n")

		rows, err := ParseCSV(input)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Empty(t, rows[0].Grade)
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		input := strings.NewReader(
			"\n" +
				"id_number,last_name,first_name\n" +
				"123456789,כהן,דוד\n" +
				"\n" +
				"987654321,לוי,רחל\n")

		rows, err := ParseCSV(input)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("short records leave trailing fields empty", func(t *testing.T) {
		input := strings.NewReader(
			"id_number,last_name,first_name,grade,stream,gender,track\n" +
				"123456789,כהן,דוד\n")

		rows, err := ParseCSV(input)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "דוד", rows[0].FirstName)
		assert.Empty(t, rows[0].Grade)
		assert.Empty(t, rows[0].Track)
	})
}

func TestParseCSVRejectsBadInput(t *testing.T) {
	t.Run("missing identity column", func(t *testing.T) {
		input := strings.NewReader(
			"id_number,grade,stream\n" +
				"123456789,י,1\n")

		_, err := ParseCSV(input)
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedRoster)
	})

	t.Run("header only", func(t *testing.T) {
		input := strings.NewReader("id_number,last_name,first_name\n")
		_, err := ParseCSV(input)
		assert.ErrorIs(t, err, apperrors.ErrEmptyRoster)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader(""))
		assert.ErrorIs(t, err, apperrors.ErrEmptyRoster)
	})
}

func TestParse(t *testing.T) {
	content := "id_number,last_name,first_name\n123456789,כהן,דוד\n"

	rows, err := Parse("Roster.CSV", strings.NewReader(content))
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = Parse("roster.xlsx", strings.NewReader(content))
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedRoster)
}
