package effect

import "errors"

var (
	ErrDuplicateParameter  = errors.New("duplicate shader parameter")
	ErrUnknownParameter    = errors.New("unknown shader parameter")
	ErrUnknownTechnique    = errors.New("unknown technique")
	ErrKindMismatch        = errors.New("shader parameter kind mismatch")
	ErrUnknownFrameTexture = errors.New("unknown frame texture")
	ErrNilProgram          = errors.New("nil shader program")
)
