package model

import "time"

// PipelineOption defines the interface for options hooked into pipeline execution.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error
	// PrepareStep runs before an element is applied. parentStep is the previous element,
	// or StartStep for the first one.
	PrepareStep(parentStep, step *StepInfo) error
	// OnStepOutput runs everytime an element produced a new path.
	OnStepOutput(step *StepInfo, computationDuration time.Duration) error
	// Finish runs when the owner of the option is done applying pipelines.
	Finish() error
}
