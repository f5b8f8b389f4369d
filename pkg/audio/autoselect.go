package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
)

type pingCloser interface {
	io.Closer
	Ping(context.Context) error
}

// lastSuccessful remembers which factory worked the previous time, so the
// next auto-selection starts from it.
type lastSuccessful[F any] struct {
	locker  sync.Mutex
	factory F
	isSet   bool
}

func (l *lastSuccessful[F]) get() (F, bool) {
	l.locker.Lock()
	defer l.locker.Unlock()
	return l.factory, l.isSet
}

func (l *lastSuccessful[F]) set(factory F) {
	l.locker.Lock()
	defer l.locker.Unlock()
	l.factory, l.isSet = factory, true
}

func autoSelect[F any, T pingCloser](
	ctx context.Context,
	kind string,
	last *lastSuccessful[F],
	factories []F,
	create func(F) (T, error),
) (T, error) {
	if factory, ok := last.get(); ok {
		backend, err := create(factory)
		if err == nil {
			if err := backend.Ping(ctx); err == nil {
				return backend, nil
			}
			_ = backend.Close()
		}
	}

	var mErr *multierror.Error
	for _, factory := range factories {
		backend, err := create(factory)
		logger.Debugf(ctx, "initializing %s %T result is %v", kind, backend, err)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to initialize %T: %w", factory, err))
			continue
		}

		err = backend.Ping(ctx)
		logger.Debugf(ctx, "pinging %s %T result is %v", kind, backend, err)
		if err != nil {
			_ = backend.Close()
			mErr = multierror.Append(mErr, fmt.Errorf("unable to ping %T: %w", backend, err))
			continue
		}

		last.set(factory)
		return backend, nil
	}

	var zero T
	if mErr == nil {
		return zero, fmt.Errorf("no %s backends are registered", kind)
	}
	return zero, mErr.ErrorOrNil()
}
