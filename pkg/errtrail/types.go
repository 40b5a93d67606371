package errtrail

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/errtrail/internal/config"
	"github.com/fyrsmithlabs/errtrail/internal/diag"
	"github.com/fyrsmithlabs/errtrail/internal/hooks"
	"github.com/fyrsmithlabs/errtrail/internal/logging"
	"github.com/fyrsmithlabs/errtrail/internal/snapshot"
	"github.com/fyrsmithlabs/errtrail/internal/tracking"
)

// Aliases let hosts outside this module name the types the Diagnoser takes
// and returns.
type (
	Config           = config.Config
	Failure          = diag.Failure
	Kind             = diag.Kind
	ErrorBundle      = diag.ErrorBundle
	Analysis         = diag.Analysis
	ExecutionContext = tracking.ExecutionContext
	Category         = tracking.Category
	HookType         = hooks.HookType
	HookHandler      = hooks.HookHandler
	HookEvent        = hooks.Event
	Masker           = snapshot.Masker
	MaskerFunc       = snapshot.MaskerFunc
)

const (
	KindUncaught  = diag.KindUncaught
	KindUnhandled = diag.KindUnhandled
	KindManual    = diag.KindManual

	CategoryCall       = tracking.CategoryCall
	CategoryMiddleware = tracking.CategoryMiddleware
	CategorySettlement = tracking.CategorySettlement
	CategoryFanout     = tracking.CategoryFanout
	CategoryTimer      = tracking.CategoryTimer

	HookContextBegin   = hooks.HookContextBegin
	HookContextEnd     = hooks.HookContextEnd
	HookBeforeClassify = hooks.HookBeforeClassify
	HookAfterReport    = hooks.HookAfterReport
)

// DefaultConfig returns the configuration Enable uses for a nil cfg.
func DefaultConfig() *Config {
	return config.NewDefaultConfig()
}

// LoadConfig reads a YAML file and ERRTRAIL_* environment overrides. An
// empty path means ~/.config/errtrail/config.yaml.
func LoadConfig(path string) (*Config, error) {
	return config.LoadWithFile(path)
}

// NewKeyMasker masks values whose key matches one of keys.
func NewKeyMasker(keys ...string) Masker {
	return snapshot.NewKeyMasker(keys...)
}

// WithZapLogger logs through the host's zap logger. Lines still carry the
// flow.id and request.id of the context they were logged under.
func WithZapLogger(z *zap.Logger) Option {
	return WithLogger(logging.Wrap(z))
}
