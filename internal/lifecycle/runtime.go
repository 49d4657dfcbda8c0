package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultStopTimeout = 10 * time.Second

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runtime starts components in order and stops them in reverse.
type Runtime struct {
	components  []Component
	stopTimeout time.Duration
}

func NewRuntime(components ...Component) *Runtime {
	return &Runtime{components: components, stopTimeout: DefaultStopTimeout}
}

func (r *Runtime) Register(component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, component)
}

func (r *Runtime) Start(ctx context.Context) error {
	started := make([]Component, 0, len(r.components))
	for _, component := range r.components {
		if component == nil {
			continue
		}
		if err := component.Start(ctx); err != nil {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.stopTimeout)
			_ = stopComponents(stopCtx, started)
			cancel()
			return fmt.Errorf("start component %T: %w", component, err)
		}
		log.WithField("component", fmt.Sprintf("%T", component)).Debug("component started")
		started = append(started, component)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	return stopComponents(ctx, r.components)
}

// Run starts every component, blocks until ctx is done and then stops them
// within the stop timeout.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), r.stopTimeout)
	defer cancel()
	return r.Stop(stopCtx)
}

func stopComponents(ctx context.Context, components []Component) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		component := components[i]
		if component == nil {
			continue
		}
		if err := component.Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop component %T: %w", component, err))
		}
	}
	return stopErr
}
