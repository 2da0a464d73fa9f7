package dialog

import (
	"context"
	"errors"
	"testing"
	"time"

	"agenda-agent/internal/agenda"
	"agenda-agent/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestRunChat_EmptyResponsesAreBounded(t *testing.T) {
	llm := &scriptedLLM{} // every completion is empty
	stage := &coordinatorStage{llm: llm, model: "gpt-4o", now: fixedNow}
	sess := domain.NewSession("s-1", fixedNow())
	sess.Append(domain.ChatMessage{Role: domain.RoleUser, Content: "hello"})

	out, err := stage.Invoke(context.Background(), &sess)
	require.NoError(t, err)
	require.Equal(t, fallbackReply, out.Reply)
	require.Equal(t, maxEmptyAttempts, llm.calls())

	// Each retry nudges with the re-prompt, locally only.
	last := llm.msgs[2][len(llm.msgs[2])-1]
	require.Equal(t, domain.RoleUser, last.Role)
	require.Equal(t, rePromptText, last.Content)
	require.Len(t, sess.Messages, 1)
}

func TestRunChat_RecoversWithinBound(t *testing.T) {
	llm := &scriptedLLM{steps: []chatStep{
		{}, // empty
		{res: contentResult("second time lucky")},
	}}
	stage := &coordinatorStage{llm: llm, model: "gpt-4o", now: fixedNow}
	sess := domain.NewSession("s-1", fixedNow())

	out, err := stage.Invoke(context.Background(), &sess)
	require.NoError(t, err)
	require.Equal(t, "second time lucky", out.Reply)
	require.Equal(t, 2, llm.calls())
}

func TestCoordinatorStage_ChatErrorPropagates(t *testing.T) {
	llm := &scriptedLLM{steps: []chatStep{{err: errors.New("boom")}}}
	stage := &coordinatorStage{llm: llm, model: "gpt-4o", now: fixedNow}
	sess := domain.NewSession("s-1", fixedNow())

	_, err := stage.Invoke(context.Background(), &sess)
	require.ErrorContains(t, err, "coordinator chat")
}

func TestCoordinatorStage_OffersDelegationTools(t *testing.T) {
	llm := &scriptedLLM{steps: []chatStep{{res: contentResult("hi")}}}
	stage := &coordinatorStage{llm: llm, model: "gpt-4o", now: fixedNow}
	sess := domain.NewSession("s-1", fixedNow())

	_, err := stage.Invoke(context.Background(), &sess)
	require.NoError(t, err)
	require.Len(t, llm.tools[0], 3)
	names := []string{llm.tools[0][0].Name, llm.tools[0][1].Name, llm.tools[0][2].Name}
	require.Contains(t, names, toolToNotesExtraction)
	require.Contains(t, names, toolToAgendaDrafting)
	require.Contains(t, names, toolToDocumentGeneration)
}

func TestExtractionStage_SystemPromptAndEscalateTool(t *testing.T) {
	llm := &scriptedLLM{steps: []chatStep{{res: contentResult("What is the customer name?")}}}
	stage := &extractionStage{llm: llm, model: "gpt-4o", now: fixedNow}
	sess := domain.NewSession("s-1", fixedNow())

	out, err := stage.Invoke(context.Background(), &sess)
	require.NoError(t, err)
	require.Equal(t, "What is the customer name?", out.Reply)
	require.Contains(t, llm.systemPrompt(0), "notes extraction agent")
	require.Contains(t, llm.systemPrompt(0), "Current time: 2026-03-05")
	require.Len(t, llm.tools[0], 1)
	require.Equal(t, toolCompleteOrEscalate, llm.tools[0][0].Name)
}

func TestDraftingStage_UsesRecordedTemplate(t *testing.T) {
	llm := &scriptedLLM{steps: []chatStep{{res: contentResult("### Innovation Hub Engagement Agenda ###")}}}
	stage := &draftingStage{llm: llm, model: "gpt-4o", now: fixedNow, policy: agenda.UnmappedUseDefault}
	sess := domain.NewSession("s-1", fixedNow())
	sess.MergeWorking(map[string]string{domain.KeyAgendaTemplate: "RECORDED TEMPLATE"})

	out, err := stage.Invoke(context.Background(), &sess)
	require.NoError(t, err)
	require.Contains(t, llm.systemPrompt(0), "RECORDED TEMPLATE")
	require.Empty(t, out.Working)
}

func TestDraftingStage_ClassifiesFromHistory(t *testing.T) {
	llm := &scriptedLLM{steps: []chatStep{{res: contentResult("agenda draft")}}}
	stage := &draftingStage{llm: llm, model: "gpt-4o", now: fixedNow, policy: agenda.UnmappedUseDefault}
	sess := domain.NewSession("s-1", fixedNow())
	sess.Append(domain.ChatMessage{
		Role:    domain.RoleAssistant,
		Content: "Type of Engagement: RAPID_PROTOTYPE (inferred from the PoC ask)\n### Engagement Goals Confirmation Message ###",
	})

	out, err := stage.Invoke(context.Background(), &sess)
	require.NoError(t, err)
	require.Equal(t, string(agenda.RapidPrototype), out.Working[domain.KeyEngagementType])
	want, _ := agenda.TemplateFor(agenda.RapidPrototype)
	require.Equal(t, want, out.Working[domain.KeyAgendaTemplate])
	require.Contains(t, llm.systemPrompt(0), "Rapid Prototype")
}

func TestDraftingStage_UnmappedTypeDefersToUser(t *testing.T) {
	llm := &scriptedLLM{}
	stage := &draftingStage{llm: llm, model: "gpt-4o", now: fixedNow, policy: agenda.UnmappedAskUser}
	sess := domain.NewSession("s-1", fixedNow())
	sess.MergeWorking(map[string]string{domain.KeyEngagementType: string(agenda.Hackathon)})

	out, err := stage.Invoke(context.Background(), &sess)
	require.NoError(t, err)
	require.Equal(t, templateChoiceReply, out.Reply)
	require.Equal(t, string(agenda.Hackathon), out.Working[domain.KeyEngagementType])
	require.NotContains(t, out.Working, domain.KeyAgendaTemplate)
	require.Zero(t, llm.calls())
}

func TestDraftingStage_UnmappedTypeUsesDefaultTemplate(t *testing.T) {
	llm := &scriptedLLM{steps: []chatStep{{res: contentResult("draft")}}}
	stage := &draftingStage{llm: llm, model: "gpt-4o", now: fixedNow, policy: agenda.UnmappedUseDefault}
	sess := domain.NewSession("s-1", fixedNow())
	sess.MergeWorking(map[string]string{domain.KeyEngagementType: string(agenda.Consult)})

	out, err := stage.Invoke(context.Background(), &sess)
	require.NoError(t, err)
	want, _ := agenda.TemplateFor(agenda.DefaultEngagementType)
	require.Equal(t, want, out.Working[domain.KeyAgendaTemplate])
	require.Contains(t, llm.systemPrompt(0), "Solution Envisioning")
}

func TestDraftingStage_IncludesHubMasterData(t *testing.T) {
	llm := &scriptedLLM{steps: []chatStep{{res: contentResult("draft")}}}
	stage := &draftingStage{
		llm: llm, model: "gpt-4o", now: fixedNow,
		policy:    agenda.UnmappedUseDefault,
		hubMaster: func(context.Context) string { return "Speakers: A. Rao (AI), B. Shah (Data)" },
	}
	sess := domain.NewSession("s-1", fixedNow())
	sess.MergeWorking(map[string]string{domain.KeyAgendaTemplate: "TPL"})

	_, err := stage.Invoke(context.Background(), &sess)
	require.NoError(t, err)
	require.Contains(t, llm.systemPrompt(0), "A. Rao")
}

func TestClassifyFromHistory_NewestLabelWins(t *testing.T) {
	msgs := []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "Type of Engagement: ADS (first pass)"},
		{Role: domain.RoleUser, Content: "actually it is a prototype build"},
		{Role: domain.RoleAssistant, Content: "Type of Engagement: RAPID_PROTOTYPE (corrected)"},
	}
	require.Equal(t, agenda.RapidPrototype, classifyFromHistory(msgs))
}

func TestClassifyFromHistory_NoLabelYieldsDefault(t *testing.T) {
	msgs := []domain.ChatMessage{{Role: domain.RoleUser, Content: "draft me an agenda"}}
	require.Equal(t, agenda.DefaultEngagementType, classifyFromHistory(msgs))
}

func TestWithTime(t *testing.T) {
	got := withTime("prompt", time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC))
	require.Equal(t, "prompt\nCurrent time: 2026-01-02 03:04:05.", got)
}
