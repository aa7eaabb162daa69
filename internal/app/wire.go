//go:build wireinject
// +build wireinject

// Package app wires the dispatcher's components together: the
// Repository, the KeyedMutex, the Scheduler, the Assigner, and the
// HttpAdapter, all sharing a single stopper.Context. Provider
// functions live in this file; wire_gen.go is the hand-authored
// equivalent of what `wire` would generate from it, since the wire
// binary cannot be run here.
package app

import (
	"context"
	"strconv"

	"github.com/7krasov/process-dispatcher/internal/config"
	"github.com/7krasov/process-dispatcher/internal/dispatch"
	"github.com/7krasov/process-dispatcher/internal/httpadapter"
	"github.com/7krasov/process-dispatcher/internal/keyedmutex"
	"github.com/7krasov/process-dispatcher/internal/repository"
	"github.com/7krasov/process-dispatcher/internal/stopper"
	"github.com/google/wire"
)

// ProvideStopper constructs the root cancellation scope.
func ProvideStopper(ctx context.Context) *stopper.Context {
	return stopper.New(ctx)
}

// ProvideRepository opens both connection pools.
func ProvideRepository(ctx *stopper.Context, cfg *config.Config) (*repository.Repository, error) {
	return repository.Open(ctx, cfg.MVPDatabaseURL, cfg.PDDatabaseURL, cfg.MaxDBConnections)
}

// ProvideKeyedMutex constructs the shared keyed mutex.
func ProvideKeyedMutex() *keyedmutex.KeyedMutex[uint32] {
	return keyedmutex.New[uint32]()
}

// ProvideScheduler wires the Scheduler against the narrow dispatch
// interfaces.
func ProvideScheduler(repo *repository.Repository, km *keyedmutex.KeyedMutex[uint32]) *dispatch.Scheduler {
	return dispatch.NewScheduler(dispatch.NewRepository(repo), dispatch.NewKeyedMutex(km))
}

// ProvideAssigner wires the Assigner the same way.
func ProvideAssigner(repo *repository.Repository, km *keyedmutex.KeyedMutex[uint32]) *dispatch.Assigner {
	return dispatch.NewAssigner(dispatch.NewRepository(repo), dispatch.NewKeyedMutex(km))
}

// ProvideHTTPServer wires the HttpAdapter against the Assigner.
func ProvideHTTPServer(ctx *stopper.Context, cfg *config.Config, assigner *dispatch.Assigner) *httpadapter.Server {
	return httpadapter.New(ctx, ":"+strconv.Itoa(int(cfg.HTTPPort)), assigner)
}

// App bundles every long-lived component main needs to run.
type App struct {
	Stopper    *stopper.Context
	Repository *repository.Repository
	KeyedMutex *keyedmutex.KeyedMutex[uint32]
	Scheduler  *dispatch.Scheduler
	Assigner   *dispatch.Assigner
	HTTPServer *httpadapter.Server
}

// New builds a fully wired App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	wire.Build(
		ProvideStopper,
		ProvideRepository,
		ProvideKeyedMutex,
		ProvideScheduler,
		ProvideAssigner,
		ProvideHTTPServer,
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
