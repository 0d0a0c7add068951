// Package node is the main service which launches a finalization node and
// manages the lifecycle of all its associated services at runtime, gracefully
// closing them if the process ends.
package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/esperanzalabs/esperanza/async"
	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/beacon-chain/db"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/kv"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/slasherkv"
	"github.com/esperanzalabs/esperanza/beacon-chain/operations/slashings"
	"github.com/esperanzalabs/esperanza/beacon-chain/simulator"
	"github.com/esperanzalabs/esperanza/beacon-chain/slasher"
	"github.com/esperanzalabs/esperanza/beacon-chain/state/stategen"
	"github.com/esperanzalabs/esperanza/cmd"
	"github.com/esperanzalabs/esperanza/cmd/beacon-chain/flags"
	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/esperanzalabs/esperanza/monitoring/backup"
	"github.com/esperanzalabs/esperanza/monitoring/prometheus"
	"github.com/esperanzalabs/esperanza/monitoring/tracing"
	"github.com/esperanzalabs/esperanza/runtime"
	"github.com/esperanzalabs/esperanza/runtime/version"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("prefix", "node")

// BeaconNode defines a struct that handles the services of a finalization
// node: the state and vote stores, the state processor, the vote recorder
// and the slashings pool. It registers them to a service registry.
type BeaconNode struct {
	cliCtx        *cli.Context
	ctx           context.Context
	cancel        context.CancelFunc
	services      *runtime.ServiceRegistry
	lock          sync.RWMutex
	stop          chan struct{} // Channel to wait for termination notifications.
	chainConfig   *params.FinalizationConfig
	admin         *casper.AdminState
	db            db.Database
	voteDB        db.VoteDatabase
	recorder      *slasher.VoteRecorder
	processor     *stategen.Processor
	slashingsPool *slashings.Pool
}

// New creates a new node instance, sets up configuration options, and
// registers every required service to the node.
func New(cliCtx *cli.Context) (*BeaconNode, error) {
	if err := tracing.Setup(
		cliCtx.String(cmd.TracingProcessNameFlag.Name),
		cliCtx.String(cmd.TracingEndpointFlag.Name),
		cliCtx.Float64(cmd.TraceSampleFractionFlag.Name),
		cliCtx.Bool(cmd.EnableTracingFlag.Name),
	); err != nil {
		return nil, err
	}

	chainConfig, admin, err := ChainConfig(cliCtx)
	if err != nil {
		return nil, err
	}

	parent := cliCtx.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	beacon := &BeaconNode{
		cliCtx:        cliCtx,
		ctx:           ctx,
		cancel:        cancel,
		services:      runtime.NewServiceRegistry(),
		stop:          make(chan struct{}),
		chainConfig:   chainConfig,
		admin:         admin,
		slashingsPool: slashings.NewPool(),
	}

	if err := beacon.startDB(cliCtx); err != nil {
		cancel()
		return nil, err
	}
	if err := beacon.startStateGen(cliCtx); err != nil {
		beacon.closeDB()
		cancel()
		return nil, err
	}
	if err := beacon.registerServices(cliCtx); err != nil {
		beacon.closeDB()
		cancel()
		return nil, err
	}
	return beacon, nil
}

func (b *BeaconNode) registerServices(cliCtx *cli.Context) error {
	if err := b.registerSlashingsService(); err != nil {
		return errors.Wrap(err, "could not register slashings service")
	}
	if cliCtx.Duration(flags.SimulatorDelayFlag.Name) > 0 {
		if err := b.registerSimulatorService(cliCtx); err != nil {
			return errors.Wrap(err, "could not register simulator service")
		}
	}
	if !cliCtx.Bool(cmd.DisableMonitoringFlag.Name) {
		if err := b.registerPrometheusService(cliCtx); err != nil {
			return errors.Wrap(err, "could not register prometheus service")
		}
	}
	return nil
}

// ChainConfig resolves the finalization parameters selected on the command
// line and the permissioning gate they describe.
func ChainConfig(cliCtx *cli.Context) (*params.FinalizationConfig, *casper.AdminState, error) {
	network := cliCtx.String(flags.NetworkFlag.Name)
	cfg, ok := params.ConfigByName(network)
	if !ok {
		return nil, nil, errors.Errorf("unknown network %q", network)
	}
	if cliCtx.IsSet(cmd.ChainConfigFileFlag.Name) {
		var err error
		cfg, err = params.LoadChainConfigFile(cliCtx.String(cmd.ChainConfigFileFlag.Name), cfg)
		if err != nil {
			return nil, nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid finalization config")
	}
	admin, err := casper.NewAdminState(cfg.AdminParams)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid admin params")
	}
	log.WithFields(logrus.Fields{
		"network":       network,
		"epochLength":   cfg.EpochLength,
		"minDeposit":    humanize.Comma(int64(cfg.MinDepositSize / params.Unit)),
		"permissioning": admin.IsPermissioningActive(),
		"logoutDelay":   cfg.DynastyLogoutDelay,
		"withdrawDelay": cfg.WithdrawalEpochDelay,
	}).Info("Using finalization parameters")
	return cfg, admin, nil
}

// Start the node and kick off every registered service.
func (b *BeaconNode) Start() {
	b.lock.Lock()

	log.WithFields(logrus.Fields{
		"version": version.Version(),
	}).Info("Starting finalization node")

	b.services.StartAll()
	async.RunEvery(b.ctx, "chain-status", b.cliCtx.Duration(flags.StatusIntervalFlag.Name), b.logChainStatus)

	stop := b.stop
	b.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go b.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the finalization node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (b *BeaconNode) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()

	log.Info("Stopping finalization node")
	b.services.StopAll()
	b.closeDB()
	b.cancel()
	close(b.stop)
}

// Simulate starts the registered services and extends the chain by n
// simulated blocks, reporting progress to onBlock.
func (b *BeaconNode) Simulate(n int, p *simulator.Parameters, onBlock func(simulator.Stats)) (simulator.Stats, error) {
	b.services.StartAll()
	sim := simulator.NewSimulator(b.ctx, &simulator.Config{
		Processor: b.processor,
		Pool:      b.slashingsPool,
		Params:    p,
	})
	err := sim.Run(b.ctx, n, onBlock)
	return sim.Stats(), err
}

// Processor returns the state processor blocks are fed to.
func (b *BeaconNode) Processor() *stategen.Processor {
	return b.processor
}

func (b *BeaconNode) closeDB() {
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			log.WithError(err).Error("Failed to close database")
		}
	}
	if b.voteDB != nil {
		if err := b.voteDB.Close(); err != nil {
			log.WithError(err).Error("Failed to close vote database")
		}
	}
}

func (b *BeaconNode) openDBs(baseDir string, cacheSize int) error {
	kvConfig := &kv.Config{
		FinalizationConfig: b.chainConfig,
		Admin:              b.admin,
		StateCacheSize:     cacheSize,
	}
	var g errgroup.Group
	g.Go(func() error {
		d, err := db.NewDB(b.ctx, filepath.Join(baseDir, kv.BeaconNodeDbDirName), kvConfig)
		if err != nil {
			return errors.Wrap(err, "could not open state database")
		}
		b.db = d
		return nil
	})
	g.Go(func() error {
		d, err := db.NewVoteDB(b.ctx, filepath.Join(baseDir, slasherkv.VoteDbDirName))
		if err != nil {
			return errors.Wrap(err, "could not open vote database")
		}
		b.voteDB = d
		return nil
	})
	if err := g.Wait(); err != nil {
		b.closeDB()
		return err
	}
	return nil
}

func (b *BeaconNode) startDB(cliCtx *cli.Context) error {
	baseDir := cliCtx.String(cmd.DataDirFlag.Name)
	cacheSize := cliCtx.Int(flags.StateCacheSizeFlag.Name)
	clearDB := cliCtx.Bool(cmd.ClearDB.Name)
	forceClearDB := cliCtx.Bool(cmd.ForceClearDB.Name)

	log.WithField("database-path", baseDir).Info("Checking DB")
	if err := b.openDBs(baseDir, cacheSize); err != nil {
		return err
	}

	clearDBConfirmed := false
	if clearDB && !forceClearDB {
		confirmed, err := confirmDelete(os.Stdin)
		if err != nil {
			b.closeDB()
			return err
		}
		clearDBConfirmed = confirmed
	}
	if clearDBConfirmed || forceClearDB {
		log.Warning("Removing databases")
		b.closeDB()
		if err := b.db.ClearDB(); err != nil {
			return errors.Wrap(err, "could not clear database")
		}
		if err := b.voteDB.ClearDB(); err != nil {
			return errors.Wrap(err, "could not clear vote database")
		}
		if err := b.openDBs(baseDir, cacheSize); err != nil {
			return errors.Wrap(err, "could not create new database")
		}
	}
	return nil
}

func (b *BeaconNode) startStateGen(cliCtx *cli.Context) error {
	hash := cliCtx.String(flags.GenesisHashFlag.Name)
	if len(common.FromHex(hash)) != common.HashLength {
		return errors.Errorf("invalid genesis hash %q", hash)
	}
	genesis := stategen.NewGenesisIndex(common.HexToHash(hash))

	recorder, err := slasher.NewVoteRecorder(b.ctx, b.voteDB)
	if err != nil {
		return errors.Wrap(err, "could not restore vote recorder")
	}
	b.recorder = recorder

	repo := stategen.NewRepository(b.chainConfig, b.admin, genesis)
	b.processor = stategen.NewProcessor(&stategen.ProcessorConfig{
		Repository: repo,
		DB:         b.db,
		Recorder:   recorder,
	})
	if err := b.processor.Initialize(b.ctx); err != nil {
		return errors.Wrap(err, "could not initialize state processor")
	}
	return nil
}

func (b *BeaconNode) registerSlashingsService() error {
	svc := slashings.NewService(b.ctx, &slashings.Config{
		Pool:     b.slashingsPool,
		Feed:     b.recorder,
		TipState: b.processor,
	})
	return b.services.RegisterService(svc)
}

func (b *BeaconNode) registerSimulatorService(cliCtx *cli.Context) error {
	sim := simulator.NewSimulator(b.ctx, &simulator.Config{
		Processor: b.processor,
		Pool:      b.slashingsPool,
		Delay:     cliCtx.Duration(flags.SimulatorDelayFlag.Name),
	})
	return b.services.RegisterService(sim)
}

func (b *BeaconNode) registerPrometheusService(cliCtx *cli.Context) error {
	additionalHandlers := []prometheus.Handler{
		{Path: "/tree", Handler: b.processor.TreeHandler},
		{Path: "/tips", Handler: b.processor.TipsHandler},
	}
	if cliCtx.Bool(cmd.EnableBackupWebhookFlag.Name) {
		additionalHandlers = append(additionalHandlers, prometheus.Handler{
			Path:    "/db/backup",
			Handler: backup.Handler(b.db),
		})
	}

	service := prometheus.NewService(
		fmt.Sprintf("%s:%d", cliCtx.String(cmd.MonitoringHostFlag.Name), cliCtx.Int(flags.MonitoringPortFlag.Name)),
		b.services,
		additionalHandlers...,
	)
	service.TrackMemory("repository", b.processor.Repository())
	service.TrackMemory("slashings", b.slashingsPool)
	logrus.AddHook(prometheus.NewLogrusCollector())
	return b.services.RegisterService(service)
}

func (b *BeaconNode) logChainStatus() {
	tip := b.processor.Tip()
	info := b.processor.Repository().ChainInfo(tip)
	if info == nil {
		return
	}
	log.WithFields(logrus.Fields{
		"tip":            tip.String(),
		"epoch":          info.CurrentEpoch,
		"dynasty":        info.CurrentDynasty,
		"justified":      info.LastJustifiedEpoch,
		"finalized":      info.LastFinalizedEpoch,
		"validators":     info.ActiveValidators,
		"deposits":       humanize.Comma(int64(info.CurDynastyDeposits / params.Unit)),
		"trackedStates":  b.processor.Repository().Len(),
		"pendingSlashes": len(b.slashingsPool.PendingSlashings(true)),
	}).Info("Chain status")
}
