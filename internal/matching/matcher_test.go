package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pynay/LetterChain/internal/llm/llmtest"
	"github.com/pynay/LetterChain/internal/types"
)

func testResume() *types.ResumeProfile {
	return &types.ResumeProfile{
		Name: "Ada",
		Experiences: []types.Experience{
			{Title: "Backend Engineer", Org: "Acme", Description: "Payment APIs in Go"},
			{Title: "Data Analyst", Org: "Globex", Description: "SQL dashboards"},
			{Title: "Teaching Assistant", Org: "State University", Description: "Algorithms course"},
			{Title: "Intern", Org: "Initech", Description: "QA automation"},
		},
	}
}

func TestMatch(t *testing.T) {
	client := llmtest.New().On("TASK: match-experiences", `{"matches": [
		{"title": "Backend Engineer", "org": "Acme", "rationale": "Go APIs map to the core requirement"},
		{"title": "data analyst", "org": "GLOBEX", "rationale": "SQL experience"}
	]}`)

	job := &types.JobProfile{Title: "Go Developer", Company: "Umbrella", RequiredSkills: []string{"Go", "SQL"}}
	matches, fallback, err := New(client, "m").Match(context.Background(), job, testResume())

	require.NoError(t, err)
	assert.False(t, fallback)
	require.Len(t, matches, 2)
	assert.Equal(t, "Backend Engineer", matches[0].Experience.Title)
	assert.Equal(t, "Data Analyst", matches[1].Experience.Title, "resume copy is returned")
	assert.Equal(t, "SQL dashboards", matches[1].Experience.Description)

	prompt := client.Calls()[0].Prompt
	assert.Contains(t, prompt, "2 to 3")
	assert.Contains(t, prompt, "Umbrella")
}

func TestMatch_NoExperiencesSkipsCompletion(t *testing.T) {
	client := llmtest.New()

	matches, fallback, err := New(client, "m").Match(context.Background(), &types.JobProfile{}, &types.ResumeProfile{Name: "Ada"})

	require.NoError(t, err)
	assert.False(t, fallback)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
	assert.Empty(t, client.Calls())
}

func TestMatch_SingleExperiencePrompt(t *testing.T) {
	client := llmtest.New().On("TASK: match-experiences", `{"matches": [{"title": "Intern", "org": "Initech", "rationale": "QA"}]}`)
	resume := &types.ResumeProfile{Experiences: []types.Experience{{Title: "Intern", Org: "Initech"}}}

	matches, _, err := New(client, "m").Match(context.Background(), &types.JobProfile{}, resume)

	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Contains(t, client.Calls()[0].Prompt, "at least 1")
}

func TestMatch_ParseFallback(t *testing.T) {
	client := llmtest.New().On("TASK: match-experiences", "The best match is clearly the backend role.")

	matches, fallback, err := New(client, "m").Match(context.Background(), &types.JobProfile{}, testResume())

	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Empty(t, matches)
}

func TestFilter(t *testing.T) {
	resume := testResume()
	candidates := []Candidate{
		{Title: "Backend Engineer", Org: "Acme", Rationale: "Go"},
		{Title: "Backend Engineer", Org: "Acme", Rationale: "duplicate"},
		{Title: "Astronaut", Org: "NASA", Rationale: "invented"},
		{Title: "Data Analyst", Org: "Globex", Rationale: "   "},
		{Title: "Teaching Assistant", Rationale: "org omitted but title unique"},
		{Title: "Intern", Org: "Initech", Rationale: "QA"},
		{Title: "Data Analyst", Org: "Globex", Rationale: "over the cap"},
	}

	got := Filter(candidates, resume)

	require.Len(t, got, types.MaxMatches)
	assert.Equal(t, "Backend Engineer", got[0].Experience.Title)
	assert.Equal(t, "Teaching Assistant", got[1].Experience.Title)
	assert.Equal(t, "Intern", got[2].Experience.Title)
	for _, m := range got {
		_, ok := resume.FindExperience(m.Experience)
		assert.True(t, ok)
		assert.NotEmpty(t, m.Rationale)
	}
}

func TestFilter_AmbiguousTitleWithoutOrg(t *testing.T) {
	resume := &types.ResumeProfile{Experiences: []types.Experience{
		{Title: "Engineer", Org: "Acme"},
		{Title: "Engineer", Org: "Globex"},
	}}
	assert.Empty(t, Filter([]Candidate{{Title: "Engineer", Rationale: "which one?"}}, resume))
}
