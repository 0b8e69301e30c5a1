// Package apperr 定义了整个服务共享的错误分类。
//
// 每个失败都归入一个 Kind（哨兵错误），调用方可以用 errors.Is 判断种类，
// 也可以继续用 errors.Is / errors.As 访问底层原因。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfiguration 表示缺少凭证或配置非法。
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstream 表示远端 embedding / completion 调用失败或返回了格式错误的数据。
	ErrUpstream = errors.New("upstream error")
	// ErrStorage 表示记忆存储读写失败。
	ErrStorage = errors.New("storage error")
	// ErrParse 表示模型输出无法解析。
	ErrParse = errors.New("parse error")
	// ErrUnauthenticated 表示无法从凭证中解析出用户身份。
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidInput 表示请求参数不合法。
	ErrInvalidInput = errors.New("invalid input")
)

// Error 携带错误种类、发生位置和底层原因。
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return e.Kind.Error()
	}
}

// Unwrap 同时暴露种类和原因。
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New 构造一个指定种类的错误。
func New(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configuration 包装一个配置错误。
func Configuration(op string, err error) error { return New(ErrConfiguration, op, err) }

// Upstream 包装一个上游调用错误。已经是 ErrUpstream / ErrConfiguration 的错误原样返回。
func Upstream(op string, err error) error {
	if errors.Is(err, ErrUpstream) || errors.Is(err, ErrConfiguration) {
		return err
	}
	return New(ErrUpstream, op, err)
}

// Storage 包装一个存储错误。
func Storage(op string, err error) error {
	if errors.Is(err, ErrStorage) {
		return err
	}
	return New(ErrStorage, op, err)
}

// Parse 包装一个解析错误。
func Parse(op string, err error) error { return New(ErrParse, op, err) }

// Unauthenticated 包装一个认证错误。
func Unauthenticated(op string, err error) error { return New(ErrUnauthenticated, op, err) }

// InvalidInput 包装一个参数错误。
func InvalidInput(op string, err error) error { return New(ErrInvalidInput, op, err) }

// HTTPStatus 将错误映射为 HTTP 状态码。
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// KindName 返回错误种类的简短名称，用于日志和响应体。
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "internal"
	}
}
