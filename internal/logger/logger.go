package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

func DebugLog(format string, args ...any) {
	if os.Getenv("DEBUG") == "1" {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Info logs msg followed by key=value pairs.
func Info(msg string, keysAndValues ...any) {
	logWithKV("INFO", msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	logWithKV("WARN", msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	logWithKV("ERROR", msg, keysAndValues...)
}

func logWithKV(level, msg string, keysAndValues ...any) {
	log.Output(3, fmt.Sprintf("[%s] %s%s", level, msg, formatKV(keysAndValues)))
}

func formatKV(keysAndValues []any) string {
	var b strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return b.String()
}
