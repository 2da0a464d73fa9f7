package agenda

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplateFor(t *testing.T) {
	for _, typ := range []EngagementType{BusinessEnvisioning, SolutionEnvisioning, RapidPrototype, ADS} {
		tpl, ok := TemplateFor(typ)
		require.True(t, ok, "expected a template for %s", typ)
		require.NotEmpty(t, tpl)
	}
	for _, typ := range []EngagementType{Hackathon, Consult} {
		_, ok := TemplateFor(typ)
		require.False(t, ok, "expected no template for %s", typ)
	}
}

func TestResolveTemplate_Mapped(t *testing.T) {
	tpl, ok := ResolveTemplate(ADS, UnmappedAskUser)
	require.True(t, ok)
	want, _ := TemplateFor(ADS)
	require.Equal(t, want, tpl)
}

func TestResolveTemplate_UnmappedUseDefault(t *testing.T) {
	tpl, ok := ResolveTemplate(Hackathon, UnmappedUseDefault)
	require.True(t, ok)
	want, _ := TemplateFor(DefaultEngagementType)
	require.Equal(t, want, tpl)
}

func TestResolveTemplate_UnmappedAskUser(t *testing.T) {
	tpl, ok := ResolveTemplate(Consult, UnmappedAskUser)
	require.False(t, ok)
	require.Empty(t, tpl)
}
