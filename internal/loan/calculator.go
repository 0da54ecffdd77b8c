// Package loan は固定金利・固定回数の元利均等返済ローンの試算を提供する。
//
// Calculateは入力のみに依存する純粋関数であり、共有状態の読み書きを行わない。
// 任意のゴルーチンから同時に呼び出しても安全。
// 内部計算はfloat64の全精度で行い、丸めは表示層でのみ行う
// （べき乗計算を挟むため、途中で丸めると誤差が累積する）。
package loan

import (
	"errors"
	"math"
)

// 入力検証エラー。すべて呼び出し側で回復可能なバリデーションエラーであり、
// ハンドラー層でユーザー向けメッセージに変換される。
var (
	// ErrInvalidDownPayment は頭金が負、または車両価格以上の場合のエラー。
	ErrInvalidDownPayment = errors.New("loan: down payment must be >= 0 and < vehicle price")
	// ErrInvalidTerm は支払回数が0以下の場合のエラー。
	ErrInvalidTerm = errors.New("loan: term months must be > 0")
	// ErrInvalidRate は年利が負の場合のエラー。
	ErrInvalidRate = errors.New("loan: annual rate must be >= 0")
)

// Quote は1回の試算結果を表す。
// 不変条件: TotalPayment == MonthlyPayment*TermMonths + DownPayment（丸め誤差内）、
// TotalInterest == TotalPayment - VehiclePrice。
type Quote struct {
	VehiclePrice      float64
	DownPayment       float64
	TermMonths        int
	AnnualRatePercent float64
	MonthlyPayment    float64
	TotalPayment      float64
	TotalInterest     float64
}

// Calculate は元利均等返済の月額支払額・総支払額・総利息を計算する。
//
// 月利 = 年利/100/12。月利が0（無金利）の場合は単純割り算、
// それ以外は標準の元利均等返済公式を使用する:
//
//	monthly = loan * r * (1+r)^n / ((1+r)^n - 1)
//
// termMonthsは常に月数で受け取る。年数からの換算（年×12）は呼び出し側の責務であり、
// 回数・金利のデフォルト値の推定は行わない。
func Calculate(vehiclePrice, downPayment float64, termMonths int, annualRatePercent float64) (*Quote, error) {
	if downPayment < 0 || downPayment >= vehiclePrice {
		return nil, ErrInvalidDownPayment
	}
	if termMonths <= 0 {
		return nil, ErrInvalidTerm
	}
	if annualRatePercent < 0 {
		return nil, ErrInvalidRate
	}

	quote := &Quote{
		VehiclePrice:      vehiclePrice,
		DownPayment:       downPayment,
		TermMonths:        termMonths,
		AnnualRatePercent: annualRatePercent,
	}

	loanAmount := vehiclePrice - downPayment
	// 検証済みのため通常は到達しないが、ゼロ以下の借入額は全項目0で返す。
	if loanAmount <= 0 {
		return quote, nil
	}

	monthlyRate := (annualRatePercent / 100) / 12

	var monthlyPayment float64
	if monthlyRate == 0 {
		// 無金利キャンペーン: 利息なしの単純割り算
		monthlyPayment = loanAmount / float64(termMonths)
	} else {
		factor := math.Pow(1+monthlyRate, float64(termMonths))
		monthlyPayment = loanAmount * monthlyRate * factor / (factor - 1)
	}

	quote.MonthlyPayment = monthlyPayment
	quote.TotalPayment = monthlyPayment*float64(termMonths) + downPayment
	quote.TotalInterest = quote.TotalPayment - vehiclePrice

	return quote, nil
}

// Round2 は金額を通貨最小単位（小数第2位）に丸める。
// 表示層・永続化層でのみ使用し、計算の途中では使用しない。
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
