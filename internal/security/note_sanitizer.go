// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NoteSanitizerService はオーダーの備考など利用者入力のテキストをサニタイズし、
// 保存値に紛れ込んだHTMLがそのまま他の画面に出力されることを防ぐ。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NoteSanitizerService は自由入力テキストのサニタイズ機能のインターフェースを定義する。
// オーダー備考・状態履歴メモ・機器の不具合説明の保存前に使用される。
type NoteSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// noteSanitizer はNoteSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type noteSanitizer struct {
	policy *bluemonday.Policy
}

// NewNoteSanitizer はNoteSanitizerServiceの新しいインスタンスを生成する。
// 備考類はHTMLとして表示されないプレーンテキストなので、
// タグを一切許可しないStrictPolicyを使用する。
func NewNoteSanitizer() *noteSanitizer {
	return &noteSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize は入力からHTMLタグを除去し、前後の空白を取り除いて返す。
func (s *noteSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ NoteSanitizerService = (*noteSanitizer)(nil)
