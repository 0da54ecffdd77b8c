// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は車両説明文および問い合わせ本文をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import "github.com/microcosm-cc/bluemonday"

// ContentSanitizerService はコンテンツのサニタイズ機能のインターフェースを定義する。
// 車両説明文の保存前および問い合わせ受付時に使用される。
type ContentSanitizerService interface {
	// SanitizeDescription は車両説明文のHTMLをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, ul, ol, li, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeDescription(rawHTML string) string

	// SanitizeText は問い合わせ本文などの自由入力から全てのタグを除去し、
	// プレーンテキストのみを返す。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	descriptionPolicy *bluemonday.Policy
	textPolicy        *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// 説明文ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, strong, em
//   - 禁止タグ: script, iframe, style, a, img および全てのon*イベント属性
//
// 本文ポリシーはStrictPolicyで、全てのタグを除去する。
func NewContentSanitizer() *contentSanitizer {
	desc := bluemonday.NewPolicy()

	// 車両説明文は書式付きテキストのみ許可する。
	// リンクと画像は車両情報の構造化フィールドで扱うため許可しない。
	// script, iframe, style等は許可リストに含めないことで自動的に除去される。
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される。
	desc.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em",
	)

	return &contentSanitizer{
		descriptionPolicy: desc,
		textPolicy:        bluemonday.StrictPolicy(),
	}
}

// SanitizeDescription は車両説明文のHTMLをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeDescription(rawHTML string) string {
	return s.descriptionPolicy.Sanitize(rawHTML)
}

// SanitizeText は自由入力から全てのタグを除去したプレーンテキストを返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return s.textPolicy.Sanitize(raw)
}
