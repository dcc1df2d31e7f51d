package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options selects the output format and verbosity.
type Options struct {
	Production bool
	Debug      bool
	Writer     io.Writer
}

// Init configures the global logger. Production emits JSON at info level,
// everything else gets a console writer at debug level.
func Init(opts Options) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	if opts.Production {
		level := zerolog.InfoLevel
		if opts.Debug {
			level = zerolog.DebugLevel
		}
		log.Logger = zerolog.New(w).With().Timestamp().Logger().Level(level)
		return
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Caller().Logger()
	log.Logger = log.Logger.Level(zerolog.DebugLevel)
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}

// With returns a child logger carrying the component name.
func With(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
