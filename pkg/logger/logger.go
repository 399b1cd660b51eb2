package logger

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// New создает структурированный логгер для событий безопасности и платежей.
// В режиме gin debug пишет в консольном формате, иначе JSON.
func New(mode string) zerolog.Logger {
	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if mode != gin.ReleaseMode {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "storefront-api").Logger()
}

// Nop возвращает логгер, который ничего не пишет (для тестов и необязательных зависимостей)
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
