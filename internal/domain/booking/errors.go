package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound      = errors.New("予約が見つかりません")
	ErrBookingNotPending    = errors.New("保留中の予約が見つからないか既に処理済みです")
	ErrBookingNotActive     = errors.New("予約が見つからないかキャンセルできない状態です")
	ErrShowIDRequired       = errors.New("上映IDは必須です")
	ErrUserEmailRequired    = errors.New("ユーザーのメールアドレスは必須です")
	ErrInvalidSeatCount     = errors.New("座席数は1以上である必要があります")
	ErrInvalidSeatNumber    = errors.New("座席番号は1以上である必要があります")
	ErrDuplicateSeatNumber  = errors.New("リクエスト内で座席番号が重複しています")
	ErrSeatNumberOutOfRange = errors.New("座席番号が上映の総座席数を超えています")

	// 一時的な失敗。呼び出し側はリトライで解決できる
	ErrShowBusy         = errors.New("この上映は他のユーザーによって処理中です")
	ErrStoreUnavailable = errors.New("データストアが一時的に利用できません")
)
