package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Stage identifiers, in pipeline order
const (
	StageDiscovery  = "discovery"
	StageValidation = "validation"
	StageMVP        = "mvp"
	StageLaunch     = "launch"
)

// New creates a pipeline from the static stage template. The task list
// per stage is fixed: tasks are not user-creatable or deletable and
// survive until the whole plan is reset.
func New(ideaName string) *Pipeline {
	now := time.Now().UTC()
	return &Pipeline{
		ID:          uuid.New().String(),
		IdeaName:    ideaName,
		CreatedAt:   now,
		UpdatedAt:   now,
		ActiveStage: StageDiscovery,
		Stages: []Stage{
			DiscoveryStage(),
			ValidationStage(),
			MVPStage(),
			LaunchStage(),
		},
	}
}

// DiscoveryStage is the interview-style first stage. Its tasks are
// notes-only: there is nothing upstream to synthesize from.
func DiscoveryStage() Stage {
	return Stage{
		ID:    StageDiscovery,
		Title: "Discovery",
		Tasks: []Task{
			{
				ID:          "problem",
				Title:       "Problem statement",
				Description: "What problem are you solving, and for whom?",
				Kind:        KindNotes,
				Status:      StatusNotStarted,
				Mode:        ModeManual,
			},
			{
				ID:          "audience",
				Title:       "Target audience",
				Description: "Who feels this problem most acutely? Be specific.",
				Kind:        KindNotes,
				Status:      StatusNotStarted,
				Mode:        ModeManual,
			},
			{
				ID:          "differentiator",
				Title:       "Differentiator",
				Description: "Why you, and why now? What makes this idea defensible?",
				Kind:        KindNotes,
				Status:      StatusNotStarted,
				Mode:        ModeManual,
			},
		},
	}
}

// ValidationStage synthesizes research scaffolding from Discovery notes
func ValidationStage() Stage {
	return Stage{
		ID:        StageValidation,
		Title:     "Validation",
		ReadsFrom: []string{StageDiscovery},
		Tasks: []Task{
			{
				ID:          "interview-questions",
				Title:       "Customer interview questions",
				Description: "Questions to put in front of potential customers",
				Kind:        KindSynth,
				Status:      StatusNotStarted,
				Mode:        ModeAuto,
				Structured:  true,
				DefaultOptions: []string{
					"When did you last run into this problem?",
					"What do you do about it today?",
					"What would a solution be worth to you?",
				},
			},
			{
				ID:          "competitor-scan",
				Title:       "Competitor scan",
				Description: "Existing alternatives and how they fall short",
				Kind:        KindSynth,
				Status:      StatusNotStarted,
				Mode:        ModeAuto,
			},
			{
				ID:          "validation-summary",
				Title:       "Validation summary",
				Description: "What evidence would confirm or kill this idea",
				Kind:        KindSynth,
				Status:      StatusNotStarted,
				Mode:        ModeAuto,
			},
		},
	}
}

// MVPStage is premium: it synthesizes an MVP outline from Discovery and
// Validation output
func MVPStage() Stage {
	return Stage{
		ID:        StageMVP,
		Title:     "MVP",
		Premium:   true,
		ReadsFrom: []string{StageDiscovery, StageValidation},
		Tasks: []Task{
			{
				ID:          "feature-set",
				Title:       "Core feature set",
				Description: "The smallest feature set that tests the core hypothesis",
				Kind:        KindSynth,
				Status:      StatusNotStarted,
				Mode:        ModeAuto,
				Structured:  true,
				DefaultOptions: []string{
					"Single core workflow, end to end",
					"Manual onboarding for the first ten users",
					"One success metric instrumented from day one",
				},
			},
			{
				ID:          "tech-approach",
				Title:       "Technical approach",
				Description: "Build vs. buy decisions and the fastest credible stack",
				Kind:        KindSynth,
				Status:      StatusNotStarted,
				Mode:        ModeAuto,
			},
			{
				ID:          "roadmap",
				Title:       "Six-week roadmap",
				Description: "Week-by-week plan from zero to first users",
				Kind:        KindSynth,
				Status:      StatusNotStarted,
				Mode:        ModeAuto,
			},
		},
	}
}

// LaunchStage is premium: it synthesizes go-to-market material from all
// earlier stages
func LaunchStage() Stage {
	return Stage{
		ID:        StageLaunch,
		Title:     "Launch",
		Premium:   true,
		ReadsFrom: []string{StageDiscovery, StageValidation, StageMVP},
		Tasks: []Task{
			{
				ID:          "launch-checklist",
				Title:       "Launch checklist",
				Description: "Everything that must be true before going public",
				Kind:        KindSynth,
				Status:      StatusNotStarted,
				Mode:        ModeAuto,
				Structured:  true,
				DefaultOptions: []string{
					"Landing page live with a working signup",
					"Pricing decided and published",
					"Support channel announced",
				},
			},
			{
				ID:          "pricing",
				Title:       "Pricing hypothesis",
				Description: "Initial pricing model and the reasoning behind it",
				Kind:        KindSynth,
				Status:      StatusNotStarted,
				Mode:        ModeAuto,
			},
			{
				ID:          "marketing-channels",
				Title:       "Marketing channels",
				Description: "Where the first hundred users will come from",
				Kind:        KindSynth,
				Status:      StatusNotStarted,
				Mode:        ModeAuto,
				Structured:  true,
				DefaultOptions: []string{
					"Direct outreach to the interview pool",
					"One community where the audience already gathers",
					"A launch post with a concrete story",
				},
			},
		},
	}
}
