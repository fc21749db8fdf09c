package contract

import "errors"

var (
	ErrModelInvoke          = errors.New("model invoke failed")
	ErrToolNotFound         = errors.New("tool not found")
	ErrDuplicateTool        = errors.New("duplicate tool name")
	ErrUnexpectedToolResult = errors.New("unexpected tool result")
	ErrValidation           = errors.New("validation failed")
)
