package core

import "fmt"

// Stage is a step of the answering state machine. Stages run in order and
// none is retried.
type Stage int

const (
	StageClassifying Stage = iota
	StageRetrieving
	StageSynthesizing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageClassifying:
		return "classifying"
	case StageRetrieving:
		return "retrieving"
	case StageSynthesizing:
		return "synthesizing"
	case StageDone:
		return "done"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}
