package logger

import (
	"context"
	"fmt"
	"os"
	"time"

	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zapcore"
)

type LogEntry struct {
	Level     zapcore.Level
	Message   string
	RequestID string
	UserID    string
	Caller    string
}

// DBLogWriter persists log entries to the "logs" collection from a single
// background goroutine so request handlers never block on it.
type DBLogWriter struct {
	collection *mongo.Collection
	logChan    chan LogEntry
	appId      string
	minLevel   zapcore.Level
}

func NewDBLogWriter(mongodb *database.MongodbDB, cfg *config.Config) *DBLogWriter {
	writer := &DBLogWriter{
		collection: mongodb.DB.Collection("logs"),
		logChan:    make(chan LogEntry, 1000),
		appId:      cfg.AppId,
		minLevel:   zapcore.InfoLevel,
	}

	go writer.processLogs()

	return writer
}

func (w *DBLogWriter) AddLog(entry LogEntry) {
	if entry.Level < w.minLevel {
		return
	}
	select {
	case w.logChan <- entry:
	default:
		// full: drop rather than block the request path
		fmt.Fprintln(os.Stderr, "DB log channel full, dropping:", entry.Message)
	}
}

func (w *DBLogWriter) processLogs() {
	for entry := range w.logChan {
		record := common_models.Log{
			Message:      entry.Message,
			RequestID:    entry.RequestID,
			UserID:       entry.UserID,
			Caller:       entry.Caller,
			AppID:        w.appId,
			LogLevelId:   mapLevelToInt(entry.Level),
			CreatedOnUtc: time.Now().UTC(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, _ = w.collection.InsertOne(ctx, record)
		cancel()
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
