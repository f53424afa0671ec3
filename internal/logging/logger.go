// Package logging provides category-scoped file logging for phasebench.
// Logs land under .phasebench/logs/, one file per category per day. A
// category is silent until .phasebench/config.yaml turns debug mode on,
// matching the rest of phasebench's YAML-first configuration (task.yaml
// uses the same gopkg.in/yaml.v3 stack).
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Category names the subsystem a Logger reports on.
type Category string

const (
	CategoryBoot      Category = "boot"      // session/process startup and shutdown
	CategoryLoader    Category = "loader"    // task loading and validation
	CategorySandbox   Category = "sandbox"   // candidate prepare/invoke
	CategoryEngine    Category = "engine"    // phased evaluation engine
	CategoryWorkspace Category = "workspace" // file-based mailbox and watcher
	CategoryMetrics   Category = "metrics"   // metrics aggregation/reporting
)

// Log levels, ordered so a lower number is more verbose.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// settings is the logging: block of .phasebench/config.yaml.
type settings struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

type configFile struct {
	Logging settings `yaml:"logging"`
}

// entry is one JSON log line when json_format is enabled in config.yaml.
type entry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger writes lines for one Category to its own file. The zero value
// (as returned when a category is disabled) is safe to call and discards.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	logsDir string
	cfg     settings
	cfgMu   sync.RWMutex
	level   int
)

// Initialize points the package at a workspace root and loads its
// config.yaml. Call once at process startup. Silent no-op when debug
// mode is off or absent, so production runs never touch the filesystem
// for logs.
func Initialize(workspaceRoot string) error {
	if workspaceRoot == "" {
		return fmt.Errorf("workspace path required")
	}

	logsDir = filepath.Join(workspaceRoot, ".phasebench", "logs")

	if err := readConfig(workspaceRoot); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not load config: %v\n", err)
		cfgMu.Lock()
		cfg = settings{}
		cfgMu.Unlock()
	}

	if !cfg.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("phasebench logging initialized, workspace=%s level=%s", workspaceRoot, cfg.Level)
	return nil
}

func readConfig(workspaceRoot string) error {
	data, err := os.ReadFile(filepath.Join(workspaceRoot, ".phasebench", "config.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			cfgMu.Lock()
			cfg = settings{}
			cfgMu.Unlock()
			return nil
		}
		return err
	}

	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("parse config.yaml: %w", err)
	}

	cfgMu.Lock()
	cfg = cf.Logging
	level = parseLevel(cfg.Level)
	cfgMu.Unlock()
	return nil
}

func parseLevel(name string) int {
	switch name {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func categoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()

	if !cfg.DebugMode {
		return false
	}
	if cfg.Categories == nil {
		return true
	}
	enabled, declared := cfg.Categories[string(category)]
	return !declared || enabled
}

// Get returns the Logger for category, creating its log file on first
// use. Returns a discarding Logger when the category or debug mode as a
// whole is disabled, so call sites never need to guard a call with
// IsDebugMode-style checks.
func Get(category Category) *Logger {
	if logsDir == "" || !categoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	name := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), category)
	file, err := os.OpenFile(filepath.Join(logsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open log file %s: %v\n", name, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) write(min int, tag, jsonLevel, format string, args ...interface{}) {
	if l.logger == nil || (min != LevelError && level > min) {
		return
	}
	msg := fmt.Sprintf(format, args...)

	cfgMu.RLock()
	jsonFormat := cfg.JSONFormat
	cfgMu.RUnlock()

	if jsonFormat {
		e := entry{Timestamp: time.Now().UnixMilli(), Category: string(l.category), Level: jsonLevel, Message: msg}
		if data, err := json.Marshal(e); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s", tag, msg)
}

func (l *Logger) Debug(format string, args ...interface{}) { l.write(LevelDebug, "DEBUG", "debug", format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.write(LevelInfo, "INFO", "info", format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.write(LevelWarn, "WARN", "warn", format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.write(LevelError, "ERROR", "error", format, args...) }

// CloseAll closes every open category log file. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}
