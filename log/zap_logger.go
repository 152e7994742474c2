package log

import "go.uber.org/zap"

// ZapLogger adapts a *zap.Logger to the Logger interface, for deployments
// that already standardize on zap's structured logging rather than the
// plain-line DefaultLogger. Enablement is tracked locally since zap has no
// notion of "enabled" beyond its configured level.
type ZapLogger struct {
	base    *zap.Logger
	enabled bool
}

// NewZapLogger wraps an existing zap logger. Pass zap.NewProduction() or
// zap.NewDevelopment() results from the caller; this core never constructs
// its own zap config.
func NewZapLogger(base *zap.Logger) *ZapLogger {
	return &ZapLogger{base: base, enabled: true}
}

func (l *ZapLogger) EnableLog(enable bool) { l.enabled = enable }

func (l *ZapLogger) IsEnabled() bool { return l.enabled }

func (l *ZapLogger) LogModel(model [][]string) {
	if !l.enabled {
		return
	}
	l.base.Debug("model loaded", zap.Any("model", model))
}

func (l *ZapLogger) LogEnforce(matcher string, request []interface{}, result bool, explains [][]string) {
	if !l.enabled {
		return
	}
	l.base.Info("enforce",
		zap.String("matcher", matcher),
		zap.Any("request", request),
		zap.Bool("result", result),
		zap.Any("explains", explains),
	)
}

func (l *ZapLogger) LogPolicy(policy map[string][][]string) {
	if !l.enabled {
		return
	}
	l.base.Debug("policy", zap.Any("policy", policy))
}

func (l *ZapLogger) LogRole(roles []string) {
	if !l.enabled {
		return
	}
	l.base.Debug("roles", zap.Strings("roles", roles))
}

func (l *ZapLogger) LogError(err error, msg ...string) {
	if !l.enabled {
		return
	}
	l.base.Error("enforcement core error", zap.Strings("context", msg), zap.Error(err))
}
