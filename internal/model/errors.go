package model

import (
	"github.com/cockroachdb/errors"
)

// ErrorCode 标识搜索过程中的错误类别。
type ErrorCode int

const (
	// ErrCodeQuerySyntax 表示全文引擎或本体引擎无法解析查询。
	ErrCodeQuerySyntax ErrorCode = iota + 2000
	// ErrCodeBackendUnavailable 表示与查询语法无关的引擎故障。
	ErrCodeBackendUnavailable
	// ErrCodeTypeMismatch 表示命中的实体类型与请求的类型不一致。
	ErrCodeTypeMismatch
	// ErrCodeUnresolvedEntity 表示实体在加载时已不存在。
	ErrCodeUnresolvedEntity
	// ErrCodeMissingCapability 表示后端缺少某条关联路径所需的数据。
	ErrCodeMissingCapability
)

// String 返回错误码的可读名称。
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeQuerySyntax:
		return "query syntax"
	case ErrCodeBackendUnavailable:
		return "backend unavailable"
	case ErrCodeTypeMismatch:
		return "type mismatch"
	case ErrCodeUnresolvedEntity:
		return "unresolved entity"
	case ErrCodeMissingCapability:
		return "missing capability"
	default:
		return "unknown error"
	}
}

func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

// 搜索各层共享的错误类别，用 errors.Is 判断。
var (
	ErrQuerySyntax        = newErrorWithCode(ErrCodeQuerySyntax, "biosearch: query syntax error")
	ErrBackendUnavailable = newErrorWithCode(ErrCodeBackendUnavailable, "biosearch: backend unavailable")
	ErrTypeMismatch       = newErrorWithCode(ErrCodeTypeMismatch, "biosearch: type mismatch")
	ErrUnresolvedEntity   = newErrorWithCode(ErrCodeUnresolvedEntity, "biosearch: unresolved entity")
	ErrMissingCapability  = newErrorWithCode(ErrCodeMissingCapability, "biosearch: missing capability")
)

// QuerySyntaxError 标记一个查询语法错误，保留原始错误链。
func QuerySyntaxError(err error, query string) error {
	return errors.Mark(errors.Wrapf(err, "cannot parse query %q", query), ErrQuerySyntax)
}

// BackendUnavailableError 标记一个后端故障。
func BackendUnavailableError(err error, backend string) error {
	return errors.Mark(errors.Wrapf(err, "%s unavailable", backend), ErrBackendUnavailable)
}

// TypeMismatchError 描述命中类型与期望类型不一致。
func TypeMismatchError(expected, actual EntityType, id int64) error {
	return errors.Mark(errors.Newf("hit %d has type %s, expected %s", id, actual, expected), ErrTypeMismatch)
}

// MissingCapabilityError 标记后端缺少所需数据。
func MissingCapabilityError(what string) error {
	return errors.Mark(errors.Newf("%s not available", what), ErrMissingCapability)
}
