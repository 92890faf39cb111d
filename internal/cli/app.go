package cli

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/checkedin/internal/config"
	"github.com/Shivanand-hulikatti/checkedin/internal/database"
	"github.com/Shivanand-hulikatti/checkedin/internal/matching"
	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
	"github.com/Shivanand-hulikatti/checkedin/internal/repository"
	"github.com/Shivanand-hulikatti/checkedin/internal/service"
	"github.com/Shivanand-hulikatti/checkedin/internal/session"
)

// app wires the backend layers for one command invocation.
type app struct {
	cfg      config.Config
	pool     *pgxpool.Pool
	broker   realtime.Broker
	venues   *service.VenueService
	checkins *service.CheckinService
	messages *service.MessageService
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	pool, err := database.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "database", err)
	}

	broker, err := newBroker(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, WrapExitError(ExitCommandError, "realtime", err)
	}

	venueRepo := repository.NewVenueRepository(pool)
	checkinRepo := repository.NewCheckinRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	rules := service.Rules{
		MessageLimit:    cfg.Rules.MessageLimit,
		DefaultCapacity: cfg.Rules.DefaultCapacity,
	}

	return &app{
		cfg:      cfg,
		pool:     pool,
		broker:   broker,
		venues:   service.NewVenueService(venueRepo),
		checkins: service.NewCheckinService(venueRepo, checkinRepo, messageRepo, settingRepo, broker, rules),
		messages: service.NewMessageService(checkinRepo, messageRepo, broker, rules),
	}, nil
}

func newBroker(ctx context.Context, cfg config.Config) (realtime.Broker, error) {
	if cfg.RedisURL == "" {
		logrus.WithField("component", "realtime").
			Info("No REDIS_URL configured, using in-process events only")
		return realtime.NewLocalBroker(), nil
	}
	return realtime.NewRedisBroker(ctx, cfg.RedisURL)
}

func (a *app) Close() {
	if err := a.broker.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close realtime broker")
	}
	a.pool.Close()
}

// client is an app plus the locally stored session.
type client struct {
	*app
	store *session.SQLiteStore
}

func openClient(ctx context.Context, cfg config.Config) (*client, error) {
	store, err := session.OpenSQLiteStore(cfg.SessionPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "session store", err)
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &client{app: a, store: store}, nil
}

func (c *client) Close() {
	c.app.Close()
	if err := c.store.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close session store")
	}
}

// requireSession restores the stored session, clearing it when the backend
// no longer has a matching active checkin.
func (c *client) requireSession(ctx context.Context) (model.Session, error) {
	stored, err := c.store.Get(ctx)
	if err != nil {
		return model.Session{}, WrapExitError(ExitCommandError, "session store", err)
	}
	if stored == nil {
		return model.Session{}, NewExitError(ExitCommandError, "no hay sesión activa; usa \"checkedin checkin\" primero")
	}

	sess, err := c.checkins.Restore(ctx, *stored)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveCheckin) {
			if cerr := c.store.Clear(ctx); cerr != nil {
				logrus.WithError(cerr).Warn("Failed to clear stale session")
			}
			return model.Session{}, NewExitError(ExitCommandError, "tu check-in ya no está activo; vuelve a hacer check-in")
		}
		return model.Session{}, WrapExitError(ExitCommandError, "restore session", err)
	}
	return sess, nil
}

// refusal turns a service error into an ExitError with a user-facing message.
func refusal(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return WrapExitError(ExitFailure, "Completa todos los campos obligatorios", verr)
	case errors.Is(err, service.ErrNicknameTaken):
		return NewExitError(ExitFailure, "El apodo ya está en uso, prueba otro que combine letras y números.")
	case errors.Is(err, service.ErrCapacityReached):
		return NewExitError(ExitFailure, "La sede está llena en este momento, inténtalo más tarde.")
	case errors.Is(err, service.ErrVenueNotFound):
		return NewExitError(ExitFailure, "La sede no existe o no está activa.")
	case errors.Is(err, service.ErrNoActiveCheckin):
		return NewExitError(ExitFailure, "Tu check-in ya no está activo; vuelve a hacer check-in.")
	case errors.Is(err, service.ErrRecipientNotFound):
		return NewExitError(ExitFailure, "Esa persona ya no está en la sede.")
	case errors.Is(err, matching.ErrQuotaExceeded):
		return NewExitError(ExitFailure, quotaExhaustedText)
	case errors.Is(err, matching.ErrEmptyMessage):
		return NewExitError(ExitFailure, "El mensaje está vacío.")
	default:
		return WrapExitError(ExitCommandError, "backend error", err)
	}
}
