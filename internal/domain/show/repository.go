package show

import (
	"context"

	"github.com/sanosuguru/go-cinema-booking/internal/domain/transaction"
)

// Repository は上映回リポジトリのインターフェース
type Repository interface {
	// Create は新しい上映回を作成する
	Create(ctx context.Context, s *Show) error

	// GetByID はIDから上映回を取得する
	GetByID(ctx context.Context, id string) (*Show, error)

	// GetByIDForUpdate は上映行を排他ロック付きで取得する
	// 予約トランザクションの直列化ポイントであり、ロックは tx の終了まで保持される
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Show, error)

	// List は上映一覧を取得する（開始時刻順、管理用）
	List(ctx context.Context, limit, offset int) ([]*Show, error)

	// ListUpcoming は今後の上映を空席情報付きで取得する（利用者向け）
	ListUpcoming(ctx context.Context) ([]*Availability, error)

	// Update は上映回を更新する（管理用）
	Update(ctx context.Context, s *Show) error

	// Delete は上映回を削除する（管理用）
	Delete(ctx context.Context, id string) error
}
