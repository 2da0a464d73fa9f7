package agenda

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEngagementType(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want EngagementType
	}{
		{"exact", "ADS", ADS},
		{"lowercase", "rapid_prototype", RapidPrototype},
		{"surrounding text", "likely BUSINESS_ENVISIONING overall", BusinessEnvisioning},
		{"whitespace", "  HACKATHON  ", Hackathon},
		{"unknown falls back", "WORKSHOP", DefaultEngagementType},
		{"empty falls back", "", DefaultEngagementType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ParseEngagementType(tc.raw))
		})
	}
}

func TestParseEngagementType_Idempotent(t *testing.T) {
	for _, typ := range validTypes {
		require.Equal(t, typ, ParseEngagementType(string(typ)))
		require.Equal(t, typ, ParseEngagementType(string(ParseEngagementType(string(typ)))))
	}
}

func TestExtractEngagementType(t *testing.T) {
	content := "Here is the summary.\n" +
		"Type of Engagement: ADS (inferred from the architecture review ask)\n" +
		"### Engagement Goals Confirmation Message ###\n- Review the design"
	typ, ok := ExtractEngagementType(content)
	require.True(t, ok)
	require.Equal(t, ADS, typ)
}

func TestExtractEngagementType_NoParenthetical(t *testing.T) {
	typ, ok := ExtractEngagementType("Type of Engagement: CONSULT\nGoals follow.")
	require.True(t, ok)
	require.Equal(t, Consult, typ)
}

func TestExtractEngagementType_LabelMissing(t *testing.T) {
	typ, ok := ExtractEngagementType("No classification in this reply.")
	require.False(t, ok)
	require.Equal(t, DefaultEngagementType, typ)
}

func TestExtractEngagementType_UnrecognizedValue(t *testing.T) {
	typ, ok := ExtractEngagementType("Type of Engagement: BRAINSTORM (guess)")
	require.True(t, ok)
	require.Equal(t, DefaultEngagementType, typ)
}
