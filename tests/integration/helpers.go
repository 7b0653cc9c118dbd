package integration

import (
	"fmt"
	"time"

	"kurir/internal/activity"
	"kurir/internal/config"
	"kurir/internal/logger"
	"kurir/internal/rules"
)

const (
	containerStartupTimeout = 60
	timestampDelay          = 10 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestReloadConfig() config.ReloadConfig {
	return config.ReloadConfig{
		IntervalSeconds: 60,
	}
}

func createTestRule(sourcePattern, targetBot string, active bool) rules.Rule {
	return rules.Rule{
		SourcePattern: sourcePattern,
		FieldPatterns: map[string]string{
			"nama":   "Nama:",
			"produk": "Produk:",
		},
		TargetBot:      targetBot,
		OutputTemplate: "Pesanan {nama}: {produk}",
		Active:         active,
	}
}

func createTestLogEntry(n int, status activity.Status) activity.LogEntry {
	return activity.LogEntry{
		ID:              fmt.Sprintf("entry-%d", n),
		Timestamp:       time.Now(),
		Source:          "Grup Order Masuk",
		OriginalMessage: fmt.Sprintf("Nama: Pelanggan %d", n),
		Status:          status,
	}
}
