package booking

import "time"

// Status は予約の状態を表す
type Status string

const (
	// StatusPending は仮押さえ状態（座席を保持したまま確定待ち）
	StatusPending Status = "PENDING"
	// StatusConfirmed は確定状態（終端・成功）
	StatusConfirmed Status = "CONFIRMED"
	// StatusFailed は失敗状態（終端。満席または期限切れ）
	StatusFailed Status = "FAILED"
	// StatusCancelled はキャンセル状態（終端。座席を解放済み）
	StatusCancelled Status = "CANCELLED"
)

// Booking は予約台帳のエントリを表す
// 1回の予約試行につき1行が作成され、物理削除されることはない
type Booking struct {
	ID          string
	ShowID      string
	UserEmail   string
	SeatsBooked int
	// SeatNumbers は座席指定予約の場合のみ設定される（1..total_seats）
	// nil の場合は席数のみの予約（座席識別なし）
	SeatNumbers []int
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewBooking は新しい予約エントリを作成する
// seatNumbers が nil でない場合、seatsBooked はその要素数と一致させる
func NewBooking(showID, userEmail string, seatsBooked int, seatNumbers []int) *Booking {
	now := time.Now()
	return &Booking{
		ShowID:      showID,
		UserEmail:   userEmail,
		SeatsBooked: seatsBooked,
		SeatNumbers: seatNumbers,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsTerminal は予約が終端状態（座席を保持しない）かを返す
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusFailed || b.Status == StatusCancelled
}

// HoldsCapacity は予約が座席容量を消費しているかを返す
func (b *Booking) HoldsCapacity() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// HasSeatNumbers は座席指定予約かを返す
func (b *Booking) HasSeatNumbers() bool {
	return len(b.SeatNumbers) > 0
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.ShowID == "" {
		return ErrShowIDRequired
	}
	if b.UserEmail == "" {
		return ErrUserEmailRequired
	}
	if b.SeatsBooked <= 0 {
		return ErrInvalidSeatCount
	}
	if len(b.SeatNumbers) > 0 {
		if len(b.SeatNumbers) != b.SeatsBooked {
			return ErrInvalidSeatCount
		}
		seen := make(map[int]struct{}, len(b.SeatNumbers))
		for _, n := range b.SeatNumbers {
			if n < 1 {
				return ErrInvalidSeatNumber
			}
			if _, ok := seen[n]; ok {
				return ErrDuplicateSeatNumber
			}
			seen[n] = struct{}{}
		}
	}
	return nil
}
