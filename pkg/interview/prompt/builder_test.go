package prompt

import (
	"fmt"
	"strings"
	"testing"

	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/phase"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssembler(t *testing.T) *Assembler {
	t.Helper()
	rules, err := DefaultRules()
	require.NoError(t, err)
	return NewAssembler(rules)
}

func msg(role interview.Role, content string) interview.Message {
	return interview.Message{Role: role, Content: content}
}

func layerNames(layers []Layer) []string {
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Name
	}
	return names
}

func TestBuildIsDeterministic(t *testing.T) {
	a := newAssembler(t)
	in := Input{
		Phase: phase.Values,
		Mode:  interview.ModeDeep,
		History: []interview.Message{
			msg(interview.RoleUser, "I care about my family"),
			msg(interview.RoleAssistant, "What does family mean to you?"),
			msg(interview.RoleUser, "Being present"),
		},
		DocumentContext: "Resume: ten years in accounting",
		PlanContext:     "Last plan focused on health",
	}

	first, err := a.Build(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := a.Build(in)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("Build not deterministic (-first +again):\n%s", diff)
		}
	}

	// a second assembler over the same rules agrees too
	other, err := newAssembler(t).Build(in)
	require.NoError(t, err)
	assert.Equal(t, first, other)
}

func TestLayerOrder(t *testing.T) {
	a := newAssembler(t)
	layers, err := a.Layers(Input{
		Phase: phase.Goals,
		Mode:  interview.ModeQuick,
		History: []interview.Message{
			msg(interview.RoleUser, "hi"),
			msg(interview.RoleAssistant, "hello"),
		},
		DocumentContext: "journal entries",
	})
	require.NoError(t, err)

	want := []string{
		LayerAccuracy,
		LayerFactSummary,
		LayerAntiRepetition,
		LayerBackground,
		LayerPersona,
		LayerCrossPhase,
		LayerPhase,
	}
	if diff := cmp.Diff(want, layerNames(layers)); diff != "" {
		t.Fatalf("layer order mismatch (-want +got):\n%s", diff)
	}
}

func TestFactSummaryAbsentForShortHistory(t *testing.T) {
	a := newAssembler(t)
	for _, history := range [][]interview.Message{
		nil,
		{msg(interview.RoleUser, "I live in Vermont")},
	} {
		layers, err := a.Layers(Input{Phase: phase.Introduction, Mode: interview.ModeQuick, History: history})
		require.NoError(t, err)
		assert.NotContains(t, layerNames(layers), LayerFactSummary)

		out, err := a.Build(Input{Phase: phase.Introduction, Mode: interview.ModeQuick, History: history})
		require.NoError(t, err)
		assert.NotContains(t, out, "<"+LayerFactSummary+">")
	}
}

func TestFactSummaryQuotesOnlyUserTurns(t *testing.T) {
	a := newAssembler(t)
	layers, err := a.Layers(Input{
		Phase: phase.CurrentLife,
		Mode:  interview.ModeDeep,
		History: []interview.Message{
			msg(interview.RoleUser, "[starting deep mode] I have two dogs"),
			msg(interview.RoleAssistant, "You must love animals as a vet."),
			msg(interview.RoleUser, "I teach piano"),
		},
	})
	require.NoError(t, err)

	var facts string
	for _, l := range layers {
		if l.Name == LayerFactSummary {
			facts = l.Text
		}
	}
	require.NotEmpty(t, facts)
	assert.Contains(t, facts, "[1] I have two dogs")
	assert.Contains(t, facts, "[2] I teach piano")
	assert.NotContains(t, facts, "vet")
	assert.NotContains(t, facts, "starting deep mode")
}

func TestAntiRepetitionAbsentWithoutAssistantTurns(t *testing.T) {
	a := newAssembler(t)
	layers, err := a.Layers(Input{
		Phase: phase.Values,
		Mode:  interview.ModeQuick,
		History: []interview.Message{
			msg(interview.RoleUser, "one"),
			msg(interview.RoleUser, "two"),
		},
	})
	require.NoError(t, err)
	assert.NotContains(t, layerNames(layers), LayerAntiRepetition)
	assert.Contains(t, layerNames(layers), LayerFactSummary)
}

func TestAntiRepetitionQuotesLastFourAssistantTurns(t *testing.T) {
	a := newAssembler(t)
	var history []interview.Message
	for i := 1; i <= 6; i++ {
		history = append(history,
			msg(interview.RoleUser, fmt.Sprintf("answer %d", i)),
			msg(interview.RoleAssistant, fmt.Sprintf("question %d", i)),
		)
	}

	layers, err := a.Layers(Input{Phase: phase.Vision, Mode: interview.ModeDeep, History: history})
	require.NoError(t, err)

	var recent string
	for _, l := range layers {
		if l.Name == LayerAntiRepetition {
			recent = l.Text
		}
	}
	assert.NotContains(t, recent, "question 1")
	assert.NotContains(t, recent, "question 2")
	assert.Contains(t, recent, "[1] question 3")
	assert.Contains(t, recent, "[4] question 6")
}

func TestBackgroundLayer(t *testing.T) {
	a := newAssembler(t)

	t.Run("absent when empty", func(t *testing.T) {
		layers, err := a.Layers(Input{Phase: phase.Values, Mode: interview.ModeQuick, DocumentContext: "  \n "})
		require.NoError(t, err)
		assert.NotContains(t, layerNames(layers), LayerBackground)
	})

	t.Run("bounded and labeled", func(t *testing.T) {
		doc := strings.Repeat("a", a.Rules().Document.MaxChars+500)
		layers, err := a.Layers(Input{
			Phase:           phase.Values,
			Mode:            interview.ModeQuick,
			DocumentContext: doc,
			PlanContext:     "Previous goals: learn Spanish",
		})
		require.NoError(t, err)

		var bg string
		for _, l := range layers {
			if l.Name == LayerBackground {
				bg = l.Text
			}
		}
		assert.Contains(t, bg, "only when it is directly relevant")
		assert.Contains(t, bg, truncationMarker)
		assert.NotContains(t, bg, doc)
		assert.Contains(t, bg, a.Rules().Document.PlanContextLabel+":\nPrevious goals: learn Spanish")
	})
}

func TestModeAnnotation(t *testing.T) {
	a := newAssembler(t)
	quick, err := a.Build(Input{Phase: phase.Goals, Mode: interview.ModeQuick})
	require.NoError(t, err)
	deep, err := a.Build(Input{Phase: phase.Goals, Mode: interview.ModeDeep})
	require.NoError(t, err)

	assert.Contains(t, quick, "Mode: QUICK")
	assert.Contains(t, quick, "five to ten minutes per phase")
	assert.NotContains(t, quick, "Mode: DEEP")
	assert.Contains(t, deep, "Mode: DEEP")
	assert.NotEqual(t, quick, deep)
}

func TestEveryPhaseAndModeHasDistinctInstructions(t *testing.T) {
	a := newAssembler(t)
	seen := map[string]string{}
	for _, p := range phase.All() {
		for _, mode := range []interview.Mode{interview.ModeQuick, interview.ModeDeep} {
			layers, err := a.Layers(Input{Phase: p, Mode: mode})
			require.NoError(t, err)
			last := layers[len(layers)-1]
			require.Equal(t, LayerPhase, last.Name)
			require.NotEmpty(t, strings.TrimSpace(last.Text))

			key := fmt.Sprintf("%s/%s", p, mode)
			if prev, dup := seen[last.Text]; dup {
				t.Errorf("%s reuses the instructions of %s", key, prev)
			}
			seen[last.Text] = key
		}
	}
	assert.Len(t, seen, 18)
}

func TestNonTerminalPhasesSignalReadiness(t *testing.T) {
	a := newAssembler(t)
	for _, p := range phase.All() {
		for _, mode := range []interview.Mode{interview.ModeQuick, interview.ModeDeep} {
			text := a.Rules().Phases[string(p)].forMode(mode)
			assert.Equal(t, !p.Terminal(), phase.ShouldAdvance(text), "%s/%s", p, mode)
		}
	}
}

func TestFactSummaryEnablesRecall(t *testing.T) {
	a := newAssembler(t)
	history := []interview.Message{
		msg(interview.RoleUser, "I live in Vermont and work in finance"),
		msg(interview.RoleUser, "What field am I in?"),
	}

	out, err := a.Build(Input{Phase: phase.CurrentLife, Mode: interview.ModeQuick, History: history})
	require.NoError(t, err)

	start := strings.Index(out, "<"+LayerFactSummary+">")
	end := strings.Index(out, "</"+LayerFactSummary+">")
	require.True(t, start >= 0 && end > start, "fact summary layer missing")
	assert.Contains(t, out[start:end], "finance")
}

func TestBuildRejectsUnknownPhaseAndMode(t *testing.T) {
	a := newAssembler(t)

	_, err := a.Build(Input{Phase: "nope", Mode: interview.ModeQuick})
	var verr *interview.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phase", verr.Field)

	_, err = a.Build(Input{Phase: phase.Goals, Mode: ""})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "mode", verr.Field)
}

func TestLoadRulesRejectsIncompleteBook(t *testing.T) {
	_, err := LoadRules(strings.NewReader(`
accuracy: "be accurate"
persona: "coach"
skip_rules: "skip"
modes:
  quick: "q"
  deep: "d"
document:
  max_chars: 10
phases:
  introduction:
    quick: "intro"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phases.introduction.deep")
	assert.Contains(t, err.Error(), "phases.completed")

	_, err = LoadRules(strings.NewReader("unknown_key: 1\n"))
	assert.Error(t, err)
}

func TestFollowUpsAreCopies(t *testing.T) {
	rules := MustDefaultRules()
	fu := rules.FollowUps(phase.Values)
	require.NotEmpty(t, fu)
	fu[0] = "changed"
	assert.NotEqual(t, "changed", rules.FollowUps(phase.Values)[0])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "héllo"+truncationMarker, Truncate("héllo wörld", 6))
	assert.Equal(t, "anything", Truncate("anything", 0))
}
