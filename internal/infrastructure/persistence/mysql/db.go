package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// 纯Go实现的SQLite驱动，注册为"sqlite"
	_ "modernc.org/sqlite"

	"github.com/xiebiao/scholarium/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 生产使用MySQL，本地开发和测试可切换为SQLite（database.driver）
// 2. 开发环境开启SQL日志，生产环境关闭
// 3. 自动迁移表结构（AutoMigrate）
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case "sqlite":
		db, err = openSQLite(cfg.Database.Path, gormCfg)
	default:
		db, err = gorm.Open(mysql.Open(cfg.Database.DSN()), gormCfg)
		if err == nil {
			err = configurePool(db, cfg.Database)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	slog.Info("数据库连接成功", "driver", cfg.Database.Driver)

	// 注意：生产环境应使用版本化的迁移脚本
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// OpenSQLite 打开SQLite数据库并迁移表结构
// dsn可以是文件路径，也可以是file:name?mode=memory&cache=shared形式的内存库
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := openSQLite(dsn, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}

func openSQLite(dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite只允许一个写连接，串行化所有访问
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", Conn: sqlDB}), gormCfg)
}

// configurePool 配置MySQL连接池
func configurePool(db *gorm.DB, cfg config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取SQL DB失败: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("数据库连接测试失败: %w", err)
	}
	return nil
}

// autoMigrate 自动迁移表结构
// AutoMigrate只会创建表、添加字段，不会删除或修改现有字段
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&AccountModel{},
		&DonationModel{},
		&DonationLevelModel{},
		&CollectionModel{},
		&EntryModel{},
		&AuthorModel{},
		&EntryAuthorModel{},
		&EntryCollectionModel{},
		&AttachmentModel{},
		&ProductModel{},
		&ItemTypeModel{},
		&ItemModel{},
		&ItemDiscountModel{},
		&ItemRequestModel{},
		&PurchaseModel{},
		&LendingModel{},
	)
}
