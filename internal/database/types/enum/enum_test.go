package enum_test

import (
	"testing"

	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorySeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category enum.Category
		want     enum.Severity
	}{
		{enum.CategoryScam, enum.SeverityHigh},
		{enum.CategoryLinkSpam, enum.SeverityHigh},
		{enum.CategoryMentionSpam, enum.SeverityMedium},
		{enum.CategoryCrossChannel, enum.SeverityMedium},
		{enum.CategoryRapidMessaging, enum.SeverityLow},
		{enum.CategoryDuplicate, enum.SeverityLow},
		{enum.CategoryContentSpam, enum.SeverityLow},
		{enum.CategoryImageSpam, enum.SeverityLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.category.Severity(), tt.category.String())
	}
}

func TestSeverityMultiplier(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, enum.SeverityLow.Multiplier(), 1e-9)
	assert.InDelta(t, 1.5, enum.SeverityMedium.Multiplier(), 1e-9)
	assert.InDelta(t, 2.0, enum.SeverityHigh.Multiplier(), 1e-9)
	assert.InDelta(t, 3.0, enum.SeverityCritical.Multiplier(), 1e-9)
}

func TestStoredNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "warning_only", enum.ActionWarningOnly.String())
	assert.Equal(t, "link_spam", enum.CategoryLinkSpam.String())
	assert.Equal(t, "community_reported", enum.CategoryCommunityReported.String())
	assert.Equal(t, "critical", enum.SeverityCritical.String())
	assert.Equal(t, "appealed", enum.CaseStatusAppealed.String())

	sev, err := enum.SeverityString("high")
	require.NoError(t, err)
	assert.Equal(t, enum.SeverityHigh, sev)

	_, err = enum.SeverityString("extreme")
	require.Error(t, err)
}

func TestDatabaseRoundTrip(t *testing.T) {
	t.Parallel()

	value, err := enum.CategoryRapidMessaging.Value()
	require.NoError(t, err)
	assert.Equal(t, "rapid_messaging", value)

	var category enum.Category
	require.NoError(t, category.Scan([]byte("rapid_messaging")))
	assert.Equal(t, enum.CategoryRapidMessaging, category)

	var action enum.Action
	require.Error(t, action.Scan("suspend"))
}

func TestCaseTypeFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, enum.CaseTypeBan, enum.CaseTypeFor(enum.ActionBan))
	assert.Equal(t, enum.CaseTypeTimeout, enum.CaseTypeFor(enum.ActionTimeout))
	assert.Equal(t, enum.CaseTypeWarning, enum.CaseTypeFor(enum.ActionWarningOnly))
}
