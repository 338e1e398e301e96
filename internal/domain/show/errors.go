package show

import "errors"

// Show ドメインのエラー定義
var (
	ErrShowNotFound       = errors.New("上映が見つかりません")
	ErrMovieIDRequired    = errors.New("映画IDは必須です")
	ErrScreenNameRequired = errors.New("スクリーン名は必須です")
	ErrInvalidTotalSeats  = errors.New("総座席数は1以上である必要があります")
)
