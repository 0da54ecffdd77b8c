package model

import "time"

// Car は販売中の中古車両を表す。
// Descriptionはサニタイズ済みHTMLとして保存する（保存前にsecurityパッケージで処理）。
type Car struct {
	ID           string
	Make         string
	Model        string
	Year         int
	Price        float64
	Mileage      int
	Color        string
	Transmission string
	Description  string
	ImageURL     string
	IsSold       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CarFilter は車両一覧検索の絞り込み条件。
// ゼロ値のフィールドは条件として適用しない。
type CarFilter struct {
	Make        string
	Model       string
	YearMin     int
	YearMax     int
	PriceMin    float64
	PriceMax    float64
	IncludeSold bool
	Limit       int
	Offset      int
}

// Favorite はユーザーのお気に入り登録を表す。
type Favorite struct {
	UserID    string
	CarID     string
	CreatedAt time.Time
}

// Purchase は成約（販売記録）を表す。
// PriceAtSaleは成約時点の価格のスナップショットで、car側の価格変更の影響を受けない。
type Purchase struct {
	ID          string
	UserID      string
	CarID       string
	PriceAtSale float64
	PurchasedAt time.Time
}

// InquiryStatus は問い合わせの対応状況を表す。
type InquiryStatus string

const (
	// InquiryStatusOpen は未対応の問い合わせを示す。
	InquiryStatusOpen InquiryStatus = "open"
	// InquiryStatusAnswered は回答済みの問い合わせを示す。
	InquiryStatusAnswered InquiryStatus = "answered"
)

// Inquiry は車両に関する問い合わせを表す。
// 未ログインでも送信可能なため、UserIDは空の場合がある。
// Messageはサニタイズ済みテキストとして保存する。
type Inquiry struct {
	ID         string
	CarID      string
	UserID     string
	Name       string
	Email      string
	Message    string
	Status     InquiryStatus
	AnsweredAt *time.Time
	CreatedAt  time.Time
}
