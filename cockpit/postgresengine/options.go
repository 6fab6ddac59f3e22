package postgresengine

import (
	"errors"
	"fmt"

	"github.com/event-engine/cockpit-backend-go/cockpit"
)

var (
	ErrNilLoggerSupplied  = errors.New("nil logger supplied")
	ErrNilReducerSupplied = errors.New("nil reducer supplied")
)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine) error

// WithLogger supplies a basic logger used for query and operational logging.
func WithLogger(logger cockpit.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			return ErrNilLoggerSupplied
		}

		e.logger = logger

		return nil
	}
}

// WithContextualLogger supplies a context-aware logger. When both loggers are
// configured the contextual one wins.
func WithContextualLogger(logger cockpit.ContextualLogger) Option {
	return func(e *Engine) error {
		if logger == nil {
			return ErrNilLoggerSupplied
		}

		e.contextualLogger = logger

		return nil
	}
}

// WithReducer registers a state reducer for one aggregate type, replacing the
// default payload-merging reducer for that type.
func WithReducer(aggregateType string, reducer StateReducer) Option {
	return func(e *Engine) error {
		if reducer == nil {
			return errors.Join(ErrNilReducerSupplied, fmt.Errorf("aggregateType: %s", aggregateType))
		}

		e.reducers[aggregateType] = reducer

		return nil
	}
}
