// Package node wires the ledger, storage and RPC server into a single
// runnable daemon.
package node

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ldclabs/ic-sft/config"
	"github.com/ldclabs/ic-sft/internal/ledger"
	klog "github.com/ldclabs/ic-sft/internal/log"
	"github.com/ldclabs/ic-sft/internal/rpc"
	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/types"
	"github.com/rs/zerolog"
)

// gcInterval is how often the database value log is compacted.
const gcInterval = time.Hour

// Node is the assembled SFT ledger daemon.
type Node struct {
	cfg    *config.Config
	db     *storage.BadgerDB
	ledger *ledger.Ledger
	rpc    *rpc.Server
	cancel context.CancelFunc
	logger zerolog.Logger
}

// New opens the database and the ledger. On first start the collection
// is created from the genesis file; on later starts the genesis file is
// ignored.
func New(cfg *config.Config) (*Node, error) {
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	db, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		return nil, err
	}

	init, err := loadInitArgs(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	controllers, err := parsePrincipals(cfg.Controllers)
	if err != nil {
		db.Close()
		return nil, err
	}

	l, err := ledger.Open(db, init, controllers)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger (a missing collection needs a genesis file at %s): %w",
			cfg.GenesisFile(), err)
	}

	return &Node{
		cfg:    cfg,
		db:     db,
		ledger: l,
		logger: klog.WithComponent("node"),
	}, nil
}

// Ledger returns the node's ledger.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Start launches the ledger background work and the RPC server.
func (n *Node) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	n.ledger.Start(ctx)
	go n.gcLoop(ctx)

	if n.cfg.RPC.Enabled {
		addr := fmt.Sprintf("%s:%d", n.cfg.RPC.Addr, n.cfg.RPC.Port)
		n.rpc = rpc.New(addr, n.ledger, n.cfg.RPC)
		if err := n.rpc.Start(); err != nil {
			cancel()
			return err
		}
		n.logger.Info().Str("addr", n.rpc.Addr()).Msg("RPC server started")
	}

	n.logger.Info().Str("datadir", n.cfg.DataDir).Msg("node started")
	return nil
}

// Stop shuts the node down, flushing ledger state before the database
// closes.
func (n *Node) Stop() {
	if n.rpc != nil {
		if err := n.rpc.Stop(); err != nil {
			n.logger.Error().Err(err).Msg("stopping RPC server")
		}
	}
	if n.cancel != nil {
		n.cancel()
	}
	if err := n.ledger.Checkpoint(); err != nil {
		n.logger.Error().Err(err).Msg("checkpointing ledger")
	}
	if err := n.db.Close(); err != nil {
		n.logger.Error().Err(err).Msg("closing database")
	}
	n.logger.Info().Msg("node stopped")
}

// gcLoop periodically compacts the database's value log. Asset blob
// replacement leaves dead entries behind that only GC reclaims.
func (n *Node) gcLoop(ctx context.Context) {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.db.GC(); err != nil {
				n.logger.Warn().Err(err).Msg("value log gc")
			}
		}
	}
}

// RPCAddr returns the bound RPC address, or empty when RPC is disabled.
func (n *Node) RPCAddr() string {
	if n.rpc == nil {
		return ""
	}
	return n.rpc.Addr()
}

// loadInitArgs reads the collection genesis file when it exists. A
// missing file yields zero init args, which only matters when the
// collection does not exist yet.
func loadInitArgs(cfg *config.Config) (ledger.InitArgs, error) {
	path := cfg.GenesisFile()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ledger.InitArgs{}, nil
	}

	g, err := config.LoadGenesis(path)
	if err != nil {
		return ledger.InitArgs{}, err
	}

	minters, err := parsePrincipals(g.Minters)
	if err != nil {
		return ledger.InitArgs{}, fmt.Errorf("genesis minters: %w", err)
	}
	managers, err := parsePrincipals(g.Managers)
	if err != nil {
		return ledger.InitArgs{}, fmt.Errorf("genesis managers: %w", err)
	}

	init := ledger.InitArgs{
		Symbol:       g.Symbol,
		Name:         g.Name,
		Description:  g.Description,
		Logo:         g.Logo,
		AssetsOrigin: g.AssetsOrigin,
		SupplyCap:    g.SupplyCap,
		Minters:      minters,
		Managers:     managers,
	}
	if g.Settings != nil {
		s := applySettings(ledger.DefaultSettings(), g.Settings)
		init.Settings = &s
	}
	return init, nil
}

// applySettings overlays the genesis overrides on the ledger defaults.
func applySettings(s ledger.Settings, o *config.GenesisSettings) ledger.Settings {
	if o.MaxQueryBatchSize != nil {
		s.MaxQueryBatchSize = *o.MaxQueryBatchSize
	}
	if o.MaxUpdateBatchSize != nil {
		s.MaxUpdateBatchSize = *o.MaxUpdateBatchSize
	}
	if o.DefaultTakeValue != nil {
		s.DefaultTakeValue = *o.DefaultTakeValue
	}
	if o.MaxTakeValue != nil {
		s.MaxTakeValue = *o.MaxTakeValue
	}
	if o.MaxMemoSize != nil {
		s.MaxMemoSize = *o.MaxMemoSize
	}
	if o.AtomicBatchTransfers != nil {
		s.AtomicBatchTransfers = *o.AtomicBatchTransfers
	}
	if o.TxWindow != nil {
		s.TxWindow = *o.TxWindow
	}
	if o.PermittedDrift != nil {
		s.PermittedDrift = *o.PermittedDrift
	}
	if o.MaxApprovalsPerTokenOrCollection != nil {
		s.MaxApprovalsPerTokenOrCollection = *o.MaxApprovalsPerTokenOrCollection
	}
	if o.MaxRevokeApprovals != nil {
		s.MaxRevokeApprovals = *o.MaxRevokeApprovals
	}
	return s
}

func parsePrincipals(ids []string) ([]types.Principal, error) {
	out := make([]types.Principal, 0, len(ids))
	for _, id := range ids {
		p, err := types.PrincipalFromText(id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
