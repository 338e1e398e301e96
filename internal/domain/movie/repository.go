package movie

import "context"

// Repository は映画リポジトリのインターフェース
type Repository interface {
	// Create は新しい映画を作成する
	Create(ctx context.Context, m *Movie) error

	// GetByID はIDから映画を取得する
	GetByID(ctx context.Context, id string) (*Movie, error)

	// List は映画一覧を取得する（作成日時の降順）
	List(ctx context.Context, limit, offset int) ([]*Movie, error)

	// Update は映画を更新する
	Update(ctx context.Context, m *Movie) error

	// Delete は映画を削除する
	Delete(ctx context.Context, id string) error
}
