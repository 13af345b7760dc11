package mrz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDigit(t *testing.T) {
	assert.Equal(t, 6, CheckDigit("L898902C3"))
	assert.Equal(t, 2, CheckDigit("740812"))
	assert.Equal(t, 9, CheckDigit("120415"))
	assert.Equal(t, 1, CheckDigit("ZE184226B<<<<<"))
	assert.Equal(t, 0, CheckDigit("<<<<<<<<<"))
	assert.Equal(t, 0, CheckDigit(""))
}

func TestValidateSpecimens(t *testing.T) {
	for _, lines := range [][]string{td1Lines, td2Lines, td3Lines, mrvaLines, mrvbLines} {
		docType, checks, err := ValidateLines(lines)
		require.NoError(t, err)
		assert.NotEmpty(t, checks)
		assert.True(t, AllValid(checks), "%s: %v", docType, checks)
	}
}

func TestValidateTD3Names(t *testing.T) {
	doc, err := Parse(td3Lines)
	require.NoError(t, err)
	checks := Validate(doc)
	names := make([]string, 0, len(checks))
	for _, c := range checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"passport number", "birth date", "expiry date", "personal number", "composite"}, names)
}

func TestValidateDetectsCorruption(t *testing.T) {
	// birth date 740812 -> 740813
	corrupted := []string{td3Lines[0], "L898902C36UTO7408132F1204159ZE184226B<<<<<10"}
	_, checks, err := ValidateLines(corrupted)
	require.NoError(t, err)
	assert.False(t, AllValid(checks))

	byName := map[string]bool{}
	for _, c := range checks {
		byName[c.Name] = c.Valid
	}
	assert.True(t, byName["passport number"])
	assert.False(t, byName["birth date"])
	assert.False(t, byName["composite"])
	assert.True(t, byName["expiry date"])
}

func TestValidateLinesRejectsBadShape(t *testing.T) {
	_, _, err := ValidateLines([]string{"ABC"})
	assert.Error(t, err)
}

func TestTD1CompositeWithOptionalData(t *testing.T) {
	// optional data in the middle line makes the weight position of the last
	// composite segment matter: it continues at 39 after 25+7+7 characters
	lines := []string{
		td1Lines[0],
		"7408122F1204159UTOABC12345<<<0",
		td1Lines[2],
	}
	_, checks, err := ValidateLines(lines)
	require.NoError(t, err)
	byName := map[string]bool{}
	for _, c := range checks {
		byName[c.Name] = c.Valid
	}
	assert.True(t, byName["composite"])

	lines[1] = "7408122F1204159UTOABC12345<<<4"
	_, checks, err = ValidateLines(lines)
	require.NoError(t, err)
	assert.False(t, AllValid(checks))
}
