package renderer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSize      = errors.New("invalid render target size")
	ErrUnsupportedLight = errors.New("unsupported light kind")
)

// PassError carries the name of the pipeline pass an error escaped from.
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("%s pass: %v", e.Pass, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// Stage is the pipeline step a DeferredRenderer is in.
type Stage int

const (
	StageIdle Stage = iota
	StageGeometry
	StageLighting
	StageCombine
	StagePostProcess
	StageGui
	StagePresent
)

var stageNames = [...]string{"idle", "geometry", "lighting", "combine", "postprocess", "gui", "present"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}
