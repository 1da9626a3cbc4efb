package xapictx

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAmbientState 派生访问器需要的环境状态缺失（错误类别）
	ErrMissingAmbientState = errors.New("xapictx: missing ambient state")

	// ErrMissingCredential 当前请求没有凭证（匿名）
	ErrMissingCredential = errors.New("xapictx: missing credential")

	// ErrMissingCredentialKey 凭证存在但 key 为空
	ErrMissingCredentialKey = errors.New("xapictx: missing credential key")
)

// MissingStateError 描述缺失的字段。
//
// errors.Is 同时匹配 ErrMissingAmbientState 与 Err。
type MissingStateError struct {
	Field string
	Err   error
}

func (e *MissingStateError) Error() string {
	return fmt.Sprintf("xapictx: %s is unavailable: %v", e.Field, e.Err)
}

func (e *MissingStateError) Unwrap() error {
	return e.Err
}

// Is 使所有 MissingStateError 都归入 ErrMissingAmbientState 类别。
func (e *MissingStateError) Is(target error) bool {
	return target == ErrMissingAmbientState
}

func missing(field string, err error) error {
	return &MissingStateError{Field: field, Err: err}
}
