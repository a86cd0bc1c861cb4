package synth

import (
	"fmt"
	"strings"

	"github.com/venturelab/compass/internal/errors"
	"github.com/venturelab/compass/internal/pipeline"
)

const systemPrompt = `You are a pragmatic startup advisor helping a founder shape a business idea.
Base every answer strictly on the founder's own input quoted in the prompt.
Be concrete and concise; never invent facts the founder did not state.`

const structuredSystemPrompt = systemPrompt + `
Respond with a JSON array of strings and nothing else. No prose, no markdown.`

// taskInstructions maps each synthesized task to its generation
// instruction. The mapping is fixed so the same upstream data always
// produces the same prompt, which is what makes fingerprint-based
// staleness sound.
var taskInstructions = map[string]string{
	"interview-questions": "Write 8 customer interview questions that test whether the problem is real and painful for the target audience.",
	"competitor-scan":     "Describe the competitive landscape for this idea: likely direct competitors, substitutes, and how the stated differentiator holds up against them.",
	"validation-summary":  "Summarize what must be true for this idea to be worth building, and the cheapest experiments to test each assumption.",
	"feature-set":         "List the minimum feature set for a first usable version. Each feature must trace back to the validated problem.",
	"tech-approach":       "Recommend a technical approach for the MVP: architecture shape, build-vs-buy calls, and what to defer.",
	"roadmap":             "Lay out a six-week roadmap from first commit to first users, one block per week.",
	"launch-checklist":    "List the concrete launch-day checklist items for this product, ordered by when they must happen.",
	"pricing":             "Propose a pricing model with specific price points, justified by the audience and competitive landscape.",
	"marketing-channels":  "List the marketing channels most likely to reach the target audience at launch, best first.",
}

// taskSources optionally narrows which upstream tasks feed a prompt.
// Tasks absent from this map receive every task of every upstream stage.
var taskSources = map[string][]string{
	"interview-questions": {"problem", "audience"},
	"competitor-scan":     {"problem", "differentiator"},
}

// BuildTaskRequest assembles the generation request for one auto task
// from the exports of the stages it reads from.
func BuildTaskRequest(p *pipeline.Pipeline, stageID, taskID string) (*GenerateRequest, error) {
	stage := p.Stage(stageID)
	if stage == nil {
		return nil, errors.NewStageNotFoundError(stageID)
	}
	task := stage.Task(taskID)
	if task == nil {
		return nil, errors.NewTaskNotFoundError(stageID, taskID)
	}

	instruction, ok := taskInstructions[taskID]
	if !ok {
		instruction = fmt.Sprintf("Produce the %q deliverable for this idea.", task.Title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Business idea: %s\n\n", p.IdeaName)
	fmt.Fprintf(&b, "Founder input so far:\n\n")

	sources := taskSources[taskID]
	for _, upstreamID := range stage.ReadsFrom {
		export, err := pipeline.Export(p, upstreamID)
		if err != nil {
			return nil, err
		}
		for _, t := range export.Tasks {
			if len(sources) > 0 && !contains(sources, t.ID) {
				continue
			}
			if strings.TrimSpace(t.Content) == "" {
				continue
			}
			fmt.Fprintf(&b, "## %s\n%s\n\n", t.Title, t.Content)
		}
	}

	fmt.Fprintf(&b, "Task: %s\n", instruction)

	system := systemPrompt
	if task.Structured {
		system = structuredSystemPrompt
	}

	return &GenerateRequest{
		System:      system,
		Prompt:      b.String(),
		Temperature: 0.7,
	}, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
