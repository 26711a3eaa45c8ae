package lockedfund

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
	"github.com/origins-network/sale-engine/modules/lockedfund/api/httphandler"
	"github.com/origins-network/sale-engine/modules/lockedfund/datagateway"
	lockedfundprocessor "github.com/origins-network/sale-engine/modules/lockedfund/processor"
	lockedfundmemory "github.com/origins-network/sale-engine/modules/lockedfund/repository/memory"
	lockedfundpostgres "github.com/origins-network/sale-engine/modules/lockedfund/repository/postgres"
	"github.com/origins-network/sale-engine/pkg/logger"
	"github.com/samber/do/v2"
)

const Version = "v0.2.1"

// Store owns the locked-fund storage backend. It is registered as a shared
// injector service because both the fund module and the sale module's
// distribution path write through the same gateway.
type Store struct {
	Gateway datagateway.LockedFundDataGatewayWithTx

	cleanup func(context.Context) error
}

func NewStore(injector do.Injector) (*Store, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)

	moduleConf := conf.Modules.LockedFund
	switch strings.ToLower(moduleConf.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, moduleConf.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "invalid Postgres configuration for locked fund")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		return &Store{
			Gateway: lockedfundpostgres.NewRepository(pg),
			cleanup: func(context.Context) error {
				pg.Close()
				return nil
			},
		}, nil
	case "memory", "":
		return &Store{Gateway: lockedfundmemory.NewRepository()}, nil
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for locked fund is not supported", moduleConf.Database)
	}
}

func (s *Store) Shutdown(ctx context.Context) error {
	if s.cleanup == nil {
		return nil
	}
	return s.cleanup(ctx)
}

func New(injector do.Injector) (core.Worker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	store := do.MustInvoke[*Store](injector)
	seq := do.MustInvoke[*sequencer.Sequencer](injector)

	processor := lockedfundprocessor.NewProcessor(store.Gateway, conf.Network, nil)
	if adminPubkey := conf.Modules.LockedFund.AdminPubkey; adminPubkey != "" {
		if err := processor.EnsureAdmin(ctx, adminPubkey); err != nil {
			return nil, errors.Wrap(err, "can't seed locked fund admin")
		}
	}

	httpServer := do.MustInvoke[*fiber.App](injector)
	handler := httphandler.New(store.Gateway, seq, processor)
	if err := handler.Mount(httpServer); err != nil {
		return nil, errors.Wrap(err, "can't mount locked fund API")
	}
	logger.InfoContext(ctx, "Locked fund module started")

	return core.IdleWorker{}, nil
}
