package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/fatih/color" // used init for support color output in console
)

type DefaultLogger struct {
	name           string
	last_datetime  string
	level_console  Level
	level_file     Level
	logger_console *log.Logger
	logger_file    *log.Logger
}

func (l *DefaultLogger) ensureFile() {
	datetime := time.Now().Format("2006_01_02")
	if l.last_datetime == datetime {
		return
	}
	l.last_datetime = datetime
	var err error
	err = os.MkdirAll(filepath.Join(".", "log", l.name), os.ModePerm)
	if err != nil {
		l.logger_console.Print(l.console_formatter(LevelError, "create log dir error : "+err.Error()))
	}
	log_file, err := os.OpenFile(filepath.Join(".", "log", l.name, datetime+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		l.logger_console.Print(l.console_formatter(LevelError, "open log file error : "+err.Error()))
	}
	l.logger_file = log.New(log_file, "", log.LstdFlags)
}

// 设置日志输出console的最低级别，默认为LevelInfo
func (l *DefaultLogger) SetConsoleLevel(level Level) {
	l.level_console = level
}

// 设置日志输出file的最低级别，默认为LevelDebug
func (l *DefaultLogger) SetFileLevel(level Level) {
	l.level_file = level
}

func (l *DefaultLogger) console_formatter(level Level, text string) string {
	switch level {
	case LevelDebug:
		return "[DEBUG] " + text
	case LevelInfo:
		return "\033[1;32m[INFO]\033[0m " + text
	case LevelWarn:
		return "\033[1;33m[WARN]\033[0m " + text
	case LevelError:
		return "\033[1;31m[ERROR]\033[0m " + text
	default:
		return "[UNKNOWN] " + text
	}
}

func (l *DefaultLogger) file_formatter(level Level, text string) string {
	switch level {
	case LevelDebug:
		return "[DEBUG] " + text
	case LevelInfo:
		return "[INFO] " + text
	case LevelWarn:
		return "[WARN] " + text
	case LevelError:
		return "[ERROR] " + text
	default:
		return "[UNKNOWN] " + text
	}
}

func (l *DefaultLogger) log(level Level, text string) {
	if level >= l.level_console {
		l.logger_console.Print(l.console_formatter(level, text))
	}
	if level >= l.level_file {
		l.ensureFile()
		l.logger_file.Print(l.file_formatter(level, text))
	}
}

func (l *DefaultLogger) Log(level Level, v ...interface{}) {
	l.log(level, fmt.Sprintln(v...))
}

func (l *DefaultLogger) Logf(level Level, format string, v ...interface{}) {
	l.log(level, fmt.Sprintf(format, v...))
}

func (l *DefaultLogger) Debug(v ...interface{}) {
	l.Log(LevelDebug, v...)
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	l.Logf(LevelDebug, format, v...)
}

func (l *DefaultLogger) Info(v ...interface{}) {
	l.Log(LevelInfo, v...)
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	l.Logf(LevelInfo, format, v...)
}

func (l *DefaultLogger) Warn(v ...interface{}) {
	l.Log(LevelWarn, v...)
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	l.Logf(LevelWarn, format, v...)
}

func (l *DefaultLogger) Error(v ...interface{}) {
	l.Log(LevelError, v...)
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	l.Logf(LevelError, format, v...)
}

// NewDefaultLogger 创建默认日志记录器，name 用于区分日志档案目录（一般为机器人名字）
func NewDefaultLogger(name string) *DefaultLogger {
	l := &DefaultLogger{
		name:           name,
		level_console:  LevelInfo,
		level_file:     LevelDebug,
		logger_console: log.New(os.Stdout, "", log.LstdFlags),
	}
	l.ensureFile()
	return l
}
