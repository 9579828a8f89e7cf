package storyteller

import (
	"github.com/leeforge/hookforge/plugin"
)

// Hooks dispatched by the storyteller.
const (
	StorytellerCreated  plugin.HookName = "storytellerCreated"
	StorytellerFinished plugin.HookName = "storytellerFinished"

	StepCreated  plugin.HookName = "stepCreated"
	StepStarted  plugin.HookName = "stepStarted"
	StepFinished plugin.HookName = "stepFinished"
	StepErrored  plugin.HookName = "stepErrored"

	StoryStarted  plugin.HookName = "storyStarted"
	StoryFinished plugin.HookName = "storyFinished"
	StoryErrored  plugin.HookName = "storyErrored"

	ArrangeStarted  plugin.HookName = "arrangeStarted"
	ArrangeFinished plugin.HookName = "arrangeFinished"
	ArrangeErrored  plugin.HookName = "arrangeErrored"

	ActStarted  plugin.HookName = "actStarted"
	ActFinished plugin.HookName = "actFinished"
	ActErrored  plugin.HookName = "actErrored"

	AssertStarted  plugin.HookName = "assertStarted"
	AssertFinished plugin.HookName = "assertFinished"
	AssertErrored  plugin.HookName = "assertErrored"
)

// SectionName names one of the three story sections.
type SectionName string

const (
	Arrange SectionName = "arrange"
	Act     SectionName = "act"
	Assert  SectionName = "assert"
)

type sectionHooks struct {
	started, finished, errored plugin.HookName
}

var hooksOf = map[SectionName]sectionHooks{
	Arrange: {ArrangeStarted, ArrangeFinished, ArrangeErrored},
	Act:     {ActStarted, ActFinished, ActErrored},
	Assert:  {AssertStarted, AssertFinished, AssertErrored},
}

// StepPayload is the payload of the step hooks. Err is set on StepErrored.
type StepPayload struct {
	Step  Step   `json:"step"`
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// ErrorPayload is the payload of the errored section and story hooks.
type ErrorPayload struct {
	Err   error  `json:"-"`
	Error string `json:"error"`
}

func errorPayload(err error) ErrorPayload {
	return ErrorPayload{Err: err, Error: err.Error()}
}
