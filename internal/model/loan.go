package model

import "time"

// SavedLoanQuote は保存されたローン試算結果を表す。
// 計算自体はloanパッケージの純粋関数が行い、永続化は利用側の責務として分離する。
// UserID、CarIDは任意（未ログインの試算保存や車両に紐付かない試算を許容する）。
type SavedLoanQuote struct {
	ID                string
	UserID            string
	CarID             string
	VehiclePrice      float64
	DownPayment       float64
	TermMonths        int
	AnnualRatePercent float64
	MonthlyPayment    float64
	TotalPayment      float64
	TotalInterest     float64
	CreatedAt         time.Time
}
