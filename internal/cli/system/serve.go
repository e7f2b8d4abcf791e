package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/nutrilog/internal/cli"
	"github.com/julianstephens/nutrilog/internal/lock"
	"github.com/julianstephens/nutrilog/internal/logger"
	"github.com/julianstephens/nutrilog/internal/lookup"
	"github.com/julianstephens/nutrilog/internal/server"
)

// ServeCmd runs the local HTTP API. While it runs it owns the database and
// CLI commands that write are refused.
type ServeCmd struct {
	Addr string `help:"Address to listen on. Defaults to server.addr from the config file."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Settings()
	addr := c.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	cols, err := ctx.Columns()
	if err != nil {
		return err
	}

	l, err := lock.Acquire(ctx.DataDir, addr)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn("Failed to release writer lock", "error", err)
		}
	}()

	var client *lookup.Client
	if cfg.Lookup.Enabled {
		client = ctx.LookupClient()
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("✓ Serving %s on http://%s (Ctrl+C to stop)\n", ctx.Store.GetConfigPath(), addr)
	srv := server.New(server.Options{
		Store:   ctx.Store,
		Config:  cfg,
		Lookup:  client,
		Columns: cols,
		Backup:  ctx.PerformAutomaticBackup,
	})
	if err := srv.Run(sigCtx, addr); err != nil {
		return err
	}
	fmt.Println("Server stopped.")
	return nil
}
