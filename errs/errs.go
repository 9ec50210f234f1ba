// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Kind 是引擎邊界的錯誤分類，讓呼叫端決定重試、中止或回報使用者。
type Kind uint8

const (
	KindUnknown Kind = iota
	IllegalSpin
	MalformedInput
	CollaboratorUnavailable
	ConfigInconsistency
	NotFound
	Closed
)

var kindMap = map[Kind]string{
	KindUnknown:             "unknown",
	IllegalSpin:             "illegal_spin",
	MalformedInput:          "malformed_input",
	CollaboratorUnavailable: "collaborator_unavailable",
	ConfigInconsistency:     "config_inconsistency",
	NotFound:                "not_found",
	Closed:                  "closed",
}

func (k Kind) String() string {
	if s, ok := kindMap[k]; ok {
		return s
	}
	return "unknown"
}

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端追加的上下文；Cause 串接下層錯誤。
type E struct {
	Kind    Kind
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s kind=%s %s", ErrLv(e.ErrLv), e.Kind, e.Message)
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 讓 errors.Is 以 Kind 比對哨兵錯誤（哨兵錯誤沒有 Cause）。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok || t.Cause != nil || t.Kind == KindUnknown {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
}

// New 依等級與訊息建立錯誤
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

// NewKind 依分類建立錯誤，等級由 Kind 決定
func NewKind(kind Kind, msg string) *E {
	return &E{Kind: kind, Message: msg, ErrLv: levelOf(kind)}
}

// Kindf 與 NewKind 相同，支援格式化
func Kindf(kind Kind, format string, a ...any) *E {
	return NewKind(kind, fmt.Sprintf(format, a...))
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// 常用分類的快捷建構

func Illegal(format string, a ...any) *E {
	return Kindf(IllegalSpin, format, a...)
}

func Malformed(format string, a ...any) *E {
	return Kindf(MalformedInput, format, a...)
}

func Inconsistent(format string, a ...any) *E {
	return Kindf(ConfigInconsistency, format, a...)
}

// Unavailable 包裝協作者（ledger/catalog）故障。
func Unavailable(cause error, msg string) *E {
	return &E{Kind: CollaboratorUnavailable, Message: msg, Cause: cause, ErrLv: Fatal}
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 包裝底層錯誤。
//
// 若 cause 已經是 *E，沿用其 ErrLv 與 Kind；否則一律視為 Fatal / KindUnknown。
func Wrap(cause error, msg string) *E {
	r := &E{Message: msg, Cause: cause, ErrLv: Fatal}
	var e *E
	if errors.As(cause, &e) {
		r.ErrLv = e.ErrLv
		r.Kind = e.Kind
	}
	return r
}

// WrapWithExtra 同 Wrap，並附加上下文
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// KindOf 回傳錯誤鏈上第一個帶分類的 Kind
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*E); ok && e.Kind != KindUnknown {
			return e.Kind
		}
		err = errors.Unwrap(err)
	}
	return KindUnknown
}

// Is 判斷錯誤鏈是否屬於指定分類
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func levelOf(kind Kind) ErrLevel {
	switch kind {
	case IllegalSpin, MalformedInput, NotFound:
		return Warn
	case CollaboratorUnavailable, ConfigInconsistency, Closed:
		return Fatal
	default:
		return Fatal
	}
}
