package logger

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// Structured JSON event logger. One line per event on stdout so log
// shippers can ingest it without extra parsing.

var (
	mu  sync.Mutex
	out *log.Logger
)

func Init() {
	mu.Lock()
	defer mu.Unlock()
	out = log.New(os.Stdout, "", 0)
}

func emit(level, event string, fields map[string]interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if out == nil {
		out = log.New(os.Stdout, "", 0)
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"event": event,
	}
	for k, v := range fields {
		entry[k] = v
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		out.Printf(`{"level":%q,"event":%q,"marshal_error":%q}`, level, event, err.Error())
		return
	}
	out.Print(string(encoded))
}

func Info(event string, fields map[string]interface{}) {
	emit("info", event, fields)
}

func Warn(event string, fields map[string]interface{}) {
	emit("warn", event, fields)
}

func Error(event string, err error, fields map[string]interface{}) {
	merged := map[string]interface{}{}
	for k, v := range fields {
		merged[k] = v
	}
	if err != nil {
		merged["error"] = err.Error()
	}
	emit("error", event, merged)
}

func InfoWithUser(userID, event string, fields map[string]interface{}) {
	merged := map[string]interface{}{"user_id": userID}
	for k, v := range fields {
		merged[k] = v
	}
	emit("info", event, merged)
}

func WarnWithUser(userID, event string, fields map[string]interface{}) {
	merged := map[string]interface{}{"user_id": userID}
	for k, v := range fields {
		merged[k] = v
	}
	emit("warn", event, merged)
}
