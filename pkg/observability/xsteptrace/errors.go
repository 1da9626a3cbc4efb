package xsteptrace

import (
	"errors"
	"fmt"
)

// ErrOperationFailure 追踪收尾时发生的意外故障（错误类别）
var ErrOperationFailure = errors.New("xsteptrace: operation failure")

// OperationFailureError 收尾故障详情
type OperationFailureError struct {
	Op      string
	TraceID string
	Cause   any
}

func (e *OperationFailureError) Error() string {
	return fmt.Sprintf("xsteptrace: %s trace %q: %v", e.Op, e.TraceID, e.Cause)
}

// Is 匹配 ErrOperationFailure
func (e *OperationFailureError) Is(target error) bool {
	return target == ErrOperationFailure
}

// Unwrap Cause 为 error 时返回它
func (e *OperationFailureError) Unwrap() error {
	err, _ := e.Cause.(error)
	return err
}
