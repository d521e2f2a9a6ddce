package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
)

// Logger куда пишутся перехваченные паники.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler запускает горутины, паника в которых не роняет процесс.
type RecoveryHandler struct {
	logger Logger
}

func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// Recover вызывается через defer. name попадает в лог вместе со стеком.
func (rh *RecoveryHandler) Recover(name string) {
	if r := recover(); r != nil {
		rh.logger.Errorf("panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

// Go запускает fn в отдельной горутине под именем name.
func (rh *RecoveryHandler) Go(name string, fn func()) {
	go func() {
		defer rh.Recover(name)
		fn()
	}()
}

// GoContext как Go, но передаёт ctx в fn.
func (rh *RecoveryHandler) GoContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer rh.Recover(name)
		fn(ctx)
	}()
}

// DefaultRecoveryHandler пишет паники в общий logrus логгер.
var DefaultRecoveryHandler = NewRecoveryHandler(logger.RecoveryLogger{})

// SafeGoNamed запускает fn через DefaultRecoveryHandler.
func SafeGoNamed(name string, fn func()) {
	DefaultRecoveryHandler.Go(name, fn)
}
