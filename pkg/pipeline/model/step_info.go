package model

// StepInfo identifies one element of a pipeline while it is applied.
type StepInfo struct {
	Index int
	Kind  string
	Name  string
}

var (
	StartStep = &StepInfo{Index: -1, Name: "start"}
	EndStep   = &StepInfo{Index: -1, Name: "end"}
)
