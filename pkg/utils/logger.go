package utils

// logger.go - настройка структурированного логирования на базе zap.
//
// Формат (json/text), уровень и файл вывода задаются через LogConfig.
// Глобальный логгер доступен через L() для пакетов, которым неудобно
// прокидывать *Logger явно через конструктор.

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig задаёт параметры логгера.
type LogConfig struct {
	Level       string // debug|info|warn|error|fatal
	Format      string // json|text
	Output      string // путь к файлу; пусто = stderr
	Development bool
}

// Logger оборачивает *zap.Logger и добавляет доменные хелперы.
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func resolveOutput(path string) zapcore.WriteSyncer {
	if path == "" {
		return zapcore.AddSync(os.Stderr)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// указанный файл недоступен - откатываемся на stderr, чтобы
		// InitLogger никогда не паниковал на плохой конфигурации
		return zapcore.AddSync(os.Stderr)
	}
	return zapcore.AddSync(f)
}

// InitLogger строит новый Logger из LogConfig. Пустая конфигурация даёт
// разумные значения по умолчанию (info/json/stderr).
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	}

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, resolveOutput(cfg.Output), level)

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	zl := zap.New(core, opts...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// With возвращает дочерний логгер с добавленными полями.
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := l.Logger.With(fields...)
	return &Logger{Logger: child, sugar: child.Sugar()}
}

// WithComponent помечает логгер именем подсистемы (scheduler, oddsclient...).
func (l *Logger) WithComponent(name string) *Logger { return l.With(Component(name)) }

// WithExchange помечает логгер именем биржи обмена ставками.
func (l *Logger) WithExchange(name string) *Logger { return l.With(Exchange(name)) }

// WithSymbol помечает логгер дополнительным идентификатором (имя селекшна,
// название линии и т.п.) - поле сохранено из унаследованного контракта.
func (l *Logger) WithSymbol(symbol string) *Logger { return l.With(Symbol(symbol)) }

// WithPairID помечает логгер числовым идентификатором пары/линии.
func (l *Logger) WithPairID(id int) *Logger { return l.With(PairID(id)) }

// Sugar возвращает SugaredLogger для форматированных вызовов (Infof и т.п.).
func (l *Logger) Sugar() *zap.SugaredLogger { return l.sugar }

// ============================================================
// Глобальный логгер
// ============================================================

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// GetGlobalLogger возвращает глобальный логгер, создавая его при первом
// обращении со значениями по умолчанию.
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// InitGlobalLogger создаёт логгер из cfg, устанавливает его глобальным и
// возвращает.
func InitGlobalLogger(cfg LogConfig) *Logger {
	l := InitLogger(cfg)
	SetGlobalLogger(l)
	return l
}

// SetGlobalLogger заменяет глобальный логгер на переданный (используется в
// тестах для перехвата вывода).
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// L - короткий доступ к глобальному логгеру.
func L() *Logger { return GetGlobalLogger() }

func Debug(msg string, fields ...zap.Field) { L().Logger.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Logger.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Logger.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Logger.Error(msg, fields...) }

func Debugf(format string, args ...interface{}) { L().sugar.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { L().sugar.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { L().sugar.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { L().sugar.Errorf(format, args...) }

// ============================================================
// Доменные конструкторы полей
// ============================================================

func Exchange(name string) zap.Field  { return zap.String("exchange", name) }
func Symbol(symbol string) zap.Field  { return zap.String("symbol", symbol) }
func PairID(id int) zap.Field         { return zap.Int("pair_id", id) }
func OrderID(id string) zap.Field     { return zap.String("order_id", id) }
func Price(v float64) zap.Field       { return zap.Float64("price", v) }
func Volume(v float64) zap.Field      { return zap.Float64("volume", v) }
func Spread(v float64) zap.Field      { return zap.Float64("spread", v) }
func PNL(v float64) zap.Field         { return zap.Float64("pnl", v) }
func Side(side string) zap.Field      { return zap.String("side", side) }
func State(state string) zap.Field    { return zap.String("state", state) }
func Latency(ms float64) zap.Field    { return zap.Float64("latency_ms", ms) }
func RequestID(id string) zap.Field   { return zap.String("request_id", id) }
func UserID(id int) zap.Field         { return zap.Int("user_id", id) }
func Component(name string) zap.Field { return zap.String("component", name) }

// Переэкспортированные конструкторы стандартных полей zap, чтобы вызывающий
// код импортировал только pkg/utils, а не zap напрямую.
func String(key, val string) zap.Field          { return zap.String(key, val) }
func Int(key string, val int) zap.Field         { return zap.Int(key, val) }
func Int64(key string, val int64) zap.Field     { return zap.Int64(key, val) }
func Float64(key string, val float64) zap.Field { return zap.Float64(key, val) }
func Bool(key string, val bool) zap.Field       { return zap.Bool(key, val) }
func Err(err error) zap.Field                   { return zap.Error(err) }
func Any(key string, val interface{}) zap.Field { return zap.Any(key, val) }

// fieldsToInterface конвертирует zap.Field в плоский список key/value,
// сохраняя порядок, для передачи в SugaredLogger.Xxxw-методы.
func fieldsToInterface(fields []zap.Field) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)
		for k, v := range enc.Fields {
			out = append(out, k, v)
		}
	}
	return out
}
