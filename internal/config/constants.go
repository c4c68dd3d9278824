// internal/config/constants.go
package config

// アプリケーション情報
const (
	AppName    = "Fuda"
	AppVersion = "1.0.0"
)

// デフォルト設定値
const (
	DefaultServerPort            = ":8080"
	DefaultLogLevel              = "info"
	DefaultAccuracyPeriodDays    = 7
	DefaultTopDeckLimit          = 5
	DefaultSyncMaxBatchSessions  = 50
	DefaultSyncMaxSessionAgeDays = 30
	DefaultSyncCacheCapacity     = 10000
	DefaultSyncCacheTTLMinutes   = 1440 // 24時間
)
