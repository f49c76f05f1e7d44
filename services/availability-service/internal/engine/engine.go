// Package engine answers availability queries and admits bookings on top of
// the storage collaborator.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	otelx "github.com/md-rashed-zaman/slotengine/libs/otel"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const defaultStorageTimeout = 3 * time.Second

type Options struct {
	Now   func() time.Time
	Zones *tzconv.Zones
	// Cache is optional.
	Cache          cache.Availability
	StorageTimeout time.Duration
	// EnforceAvailableSlot rejects booking starts that are not generated slots.
	EnforceAvailableSlot bool
	Logger               *slog.Logger
}

type Engine struct {
	store          storage.Store
	now            func() time.Time
	zones          *tzconv.Zones
	cache          cache.Availability
	storageTimeout time.Duration
	enforceSlot    bool
	logger         *slog.Logger
	tracer         trace.Tracer
}

func New(store storage.Store, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Zones == nil {
		opts.Zones = tzconv.NewZones()
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = defaultStorageTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		store:          store,
		now:            opts.Now,
		zones:          opts.Zones,
		cache:          opts.Cache,
		storageTimeout: opts.StorageTimeout,
		enforceSlot:    opts.EnforceAvailableSlot,
		logger:         opts.Logger,
		tracer:         otelx.Tracer("availability-service/engine"),
	}
}

func (e *Engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (e *Engine) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.storageTimeout)
}

// loadEventType fetches the host and its active event type concurrently.
func (e *Engine) loadEventType(ctx context.Context, hostID, eventTypeID string) (model.Host, model.EventType, *time.Location, error) {
	var (
		host model.Host
		et   model.EventType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		host, err = e.store.GetHost(gctx, hostID)
		return notFoundAs(err, "host", hostID)
	})
	g.Go(func() error {
		var err error
		et, err = e.store.GetEventType(gctx, hostID, eventTypeID)
		return notFoundAs(err, "event type", eventTypeID)
	})
	if err := g.Wait(); err != nil {
		return model.Host{}, model.EventType{}, nil, apperr.Storage("load event type", err)
	}
	if !et.IsActive {
		return model.Host{}, model.EventType{}, nil, apperr.NotFound("event type", eventTypeID)
	}
	hostLoc, err := e.zones.Load(host.Timezone)
	if err != nil {
		return model.Host{}, model.EventType{}, nil, err
	}
	return host, et, hostLoc, nil
}

func notFoundAs(err error, what, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(what, id)
	}
	return err
}
