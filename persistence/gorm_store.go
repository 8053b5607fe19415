package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/skillflow/config"
	"github.com/BaSui01/skillflow/types"
)

// GormStore 基于 GORM 的持久化实现，使用纯 Go 的 SQLite 驱动。
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open 根据配置打开持久化存储。driver 为 memory 时返回 MemoryStore。
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: memory, sqlite)", cfg.Driver)
	}
}

// NewSQLiteStore 打开 SQLite 存储并自动迁移表结构。
// 路径为 ":memory:" 时使用进程内数据库，方便测试。
func NewSQLiteStore(cfg config.DatabaseConfig, logger *zap.Logger) (*GormStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&ExecutionRecord{}, &UsageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	logger.Info("数据库已连接",
		zap.String("driver", cfg.Driver),
		zap.String("path", cfg.DSN()))

	return &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "persistence")),
	}, nil
}

// SaveExecution 保存执行记录。ExecutionID 冲突时覆盖旧记录。
func (s *GormStore) SaveExecution(ctx context.Context, exec *types.SkillExecution) error {
	if exec == nil {
		return nil
	}
	rec := newExecutionRecord(exec)
	err := s.db.WithContext(ctx).
		Where("execution_id = ?", rec.ExecutionID).
		Assign(rec).
		FirstOrCreate(&ExecutionRecord{}).Error
	if err != nil {
		return fmt.Errorf("save execution %s: %w", exec.ID, err)
	}
	return nil
}

// SaveUsage 保存使用记录。
func (s *GormStore) SaveUsage(ctx context.Context, rec *types.SkillUsageRecord) error {
	if rec == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(newUsageRecord(rec)).Error; err != nil {
		return fmt.Errorf("save usage %s/%s: %w", rec.UserID, rec.SkillName, err)
	}
	return nil
}

// RecentExecutions 返回指定技能最近的执行记录，时间倒序。
// skillName 为空时返回所有技能的记录。
func (s *GormStore) RecentExecutions(ctx context.Context, skillName string, limit int) ([]types.SkillExecution, error) {
	q := s.db.WithContext(ctx).Model(&ExecutionRecord{}).Order("started_at DESC")
	if skillName != "" {
		q = q.Where("skill_name = ?", skillName)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []ExecutionRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}

	out := make([]types.SkillExecution, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toExecution())
	}
	return out, nil
}

// UsageByUser 返回指定用户的使用记录，时间倒序。
func (s *GormStore) UsageByUser(ctx context.Context, userID string, limit int) ([]types.SkillUsageRecord, error) {
	q := s.db.WithContext(ctx).Model(&UsageRecord{}).Order("timestamp DESC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []UsageRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}

	out := make([]types.SkillUsageRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toUsage())
	}
	return out, nil
}

// PurgeBefore 删除指定时间之前的所有记录，返回删除条数。
func (s *GormStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64

	res := s.db.WithContext(ctx).Where("started_at < ?", cutoff).Delete(&ExecutionRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge executions: %w", res.Error)
	}
	total += res.RowsAffected

	res = s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&UsageRecord{})
	if res.Error != nil {
		return total, fmt.Errorf("purge usage: %w", res.Error)
	}
	total += res.RowsAffected

	return total, nil
}

// Close 关闭数据库连接。
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Store = (*GormStore)(nil)
