package sale

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/core"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/internal/config"
	"github.com/origins-network/sale-engine/internal/postgres"
	"github.com/origins-network/sale-engine/modules/lockedfund"
	"github.com/origins-network/sale-engine/modules/sale/api/httphandler"
	"github.com/origins-network/sale-engine/modules/sale/archive"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/verification"
	saleprocessor "github.com/origins-network/sale-engine/modules/sale/processor"
	salememory "github.com/origins-network/sale-engine/modules/sale/repository/memory"
	salepostgres "github.com/origins-network/sale-engine/modules/sale/repository/postgres"
	"github.com/origins-network/sale-engine/modules/sale/stakingclient"
	"github.com/origins-network/sale-engine/pkg/logger"
	"github.com/samber/do/v2"
)

const Version = "v0.2.1"

// Store owns the sale storage backend.
type Store struct {
	Gateway datagateway.SaleDataGateway

	cleanup func(context.Context) error
}

func NewStore(injector do.Injector) (*Store, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)

	moduleConf := conf.Modules.Sale
	switch strings.ToLower(moduleConf.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, moduleConf.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "invalid Postgres configuration for sale engine")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		return &Store{
			Gateway: salepostgres.NewRepository(pg),
			cleanup: func(context.Context) error {
				pg.Close()
				return nil
			},
		}, nil
	case "memory", "":
		return &Store{Gateway: salememory.NewRepository()}, nil
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for sale engine is not supported", moduleConf.Database)
	}
}

func (s *Store) Shutdown(ctx context.Context) error {
	if s.cleanup == nil {
		return nil
	}
	return s.cleanup(ctx)
}

// distributionEngine adapts the locked fund's deposit engine to the sale
// processor's distribution interface.
type distributionEngine struct {
	engine *lockedfund.Engine
}

func (d distributionEngine) Begin(ctx context.Context) (saleprocessor.DistributionSession, error) {
	session, err := d.engine.Begin(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return session, nil
}

func New(injector do.Injector) (core.Worker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	store := do.MustInvoke[*Store](injector)
	seq := do.MustInvoke[*sequencer.Sequencer](injector)

	// Purchased tokens under deferred transfer types land in the locked fund,
	// through the same gateway instance the fund module serves.
	fundStore := do.MustInvoke[*lockedfund.Store](injector)
	distribution := distributionEngine{engine: lockedfund.NewEngine(fundStore.Gateway)}

	var stakes verification.StakeSource
	if conf.Modules.Sale.Staking.BaseURL != "" {
		stakingClient, err := stakingclient.New(conf.Modules.Sale.Staking)
		if err != nil {
			return nil, errors.Wrap(err, "can't create staking registry client")
		}
		stakes = stakingClient
	}
	registry := verification.NewRegistry(stakes)

	processor := saleprocessor.NewProcessor(store.Gateway, distribution, registry, conf.Network, nil)
	if ownerPubkey := conf.Modules.Sale.OwnerPubkey; ownerPubkey != "" {
		if err := processor.EnsureOwner(ctx, ownerPubkey); err != nil {
			return nil, errors.Wrap(err, "can't seed sale owner")
		}
	}

	httpServer := do.MustInvoke[*fiber.App](injector)
	handler := httphandler.New(store.Gateway, seq, processor)
	if err := handler.Mount(httpServer); err != nil {
		return nil, errors.Wrap(err, "can't mount sale API")
	}
	logger.InfoContext(ctx, "Sale module started")

	archiveConf := conf.Modules.Sale.Archive
	if archiveConf.Disabled || archiveConf.Bucket == "" {
		return core.IdleWorker{}, nil
	}
	archiver, err := archive.New(ctx, archiveConf, store.Gateway)
	if err != nil {
		return nil, errors.Wrap(err, "can't create event archiver")
	}
	return archiver, nil
}
