package cmds

import (
	"io"
	"log/syslog"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Log holds the three independently-leveled logging destinations: a
// rotating file, syslog, and the console. An empty LogFile disables the
// file destination; the level "none" disables syslog or the console.
type Log struct {
	LogFile      string
	LogLevelFile string
	LogLevelSys  string
	LogLevelScr  string
}

var LogConfig Log

var (
	LogFileFlag = &cli.StringFlag{
		Name:        "log",
		Usage:       "(logging) Rotating log file path; empty disables file logging",
		EnvVars:     []string{"NETAGENTD_LOG_FILE"},
		Destination: &LogConfig.LogFile,
	}
	LogLevelFileFlag = &cli.StringFlag{
		Name:        "log-level-file",
		Usage:       "(logging) Level for the file destination",
		EnvVars:     []string{"NETAGENTD_LOG_LEVEL_FILE"},
		Value:       "info",
		Destination: &LogConfig.LogLevelFile,
	}
	LogLevelSyslogFlag = &cli.StringFlag{
		Name:        "log-level-syslog",
		Usage:       "(logging) Level for the syslog destination; \"none\" disables it",
		EnvVars:     []string{"NETAGENTD_LOG_LEVEL_SYSLOG"},
		Value:       "none",
		Destination: &LogConfig.LogLevelSys,
	}
	LogLevelConsoleFlag = &cli.StringFlag{
		Name:        "log-level-console",
		Usage:       "(logging) Level for the console destination",
		EnvVars:     []string{"NETAGENTD_LOG_LEVEL_CONSOLE"},
		Value:       "warning",
		Destination: &LogConfig.LogLevelScr,
	}
)

// InitLogging wires up logrus with up to three independently-leveled
// destinations. It wraps action so the CLI layer can write
// InitLogging(runAgent) and have logging configured before the action
// runs.
func InitLogging(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if err := setupLogging(); err != nil {
			return err
		}
		if action != nil {
			return action(ctx)
		}
		return nil
	}
}

func setupLogging() error {
	logrus.SetLevel(logrus.TraceLevel)
	logrus.SetOutput(io.Discard)

	if Debug && LogConfig.LogLevelScr != "none" {
		LogConfig.LogLevelScr = "debug"
	}

	if LogConfig.LogLevelScr != "none" {
		level, err := logrus.ParseLevel(LogConfig.LogLevelScr)
		if err != nil {
			return errors.Wrap(err, "parse console log level")
		}
		logrus.AddHook(newWriterHook(os.Stderr, level))
	}

	if LogConfig.LogFile != "" {
		level, err := logrus.ParseLevel(LogConfig.LogLevelFile)
		if err != nil {
			return errors.Wrap(err, "parse file log level")
		}
		rotator := &lumberjack.Logger{
			Filename:   LogConfig.LogFile,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		logrus.AddHook(newWriterHook(rotator, level))
	}

	if LogConfig.LogLevelSys != "none" {
		level, err := logrus.ParseLevel(LogConfig.LogLevelSys)
		if err != nil {
			return errors.Wrap(err, "parse syslog log level")
		}
		// No third-party logrus-syslog hook is reachable from this
		// module's dependency graph, so the destination writes through
		// the standard library's syslog client directly.
		writer, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, "netagentd")
		if err != nil {
			return errors.Wrap(err, "init syslog writer")
		}
		logrus.AddHook(newWriterHook(writer, level))
	}

	return nil
}

// writerHook sends log entries at or above level to an io.Writer; used for
// the console, rotating-file and syslog destinations so each gets its own
// independent threshold.
type writerHook struct {
	writer io.Writer
	level  logrus.Level
}

func newWriterHook(w io.Writer, level logrus.Level) *writerHook {
	return &writerHook{writer: w, level: level}
}

func (h *writerHook) Levels() []logrus.Level {
	return logrus.AllLevels[:h.level+1]
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	_, err = h.writer.Write([]byte(line))
	return err
}
