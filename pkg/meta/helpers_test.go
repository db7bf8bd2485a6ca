package meta

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// -----------------------------------------------------------------------------
// 通用辅助函数 (Helpers)
// -----------------------------------------------------------------------------

// setupTestRepo 构建隔离的测试环境
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	metaDB := NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(Models()...))
	t.Cleanup(func() { metaDB.Close() })

	return NewRepository(metaDB)
}

// mustCreateAttachment 创建附件，失败直接终止测试
func mustCreateAttachment(t *testing.T, repo *Repository, ticketID uint64, contentType string, content []byte, msgAndArgs ...any) *Attachment {
	t.Helper()
	a := &Attachment{
		TicketID:    ticketID,
		ContentType: contentType,
		Content:     content,
		Length:      int64(len(content)),
	}
	require.NoError(t, repo.CreateAttachment(context.Background(), a), msgAndArgs...)
	return a
}
