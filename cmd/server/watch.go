package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/rl1809/minicart/internal/adapter/handler"
	"github.com/rl1809/minicart/internal/adapter/storage"
	"github.com/rl1809/minicart/internal/core/domain"
)

var viaRedis bool

var watchCmd = &cobra.Command{
	Use:   "watch [session-id]",
	Short: "Print every cart snapshot of a session as it changes",
	Long: `Streams a session's cart snapshots from the gRPC Watch call. With
--via-redis the snapshots are read from the session's Redis channel instead;
that path only sees changes made after it subscribes.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&viaRedis, "via-redis", false, "subscribe to the session's Redis snapshot channel (needs REDIS_ADDR)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()

	if viaRedis {
		if cfg.RedisAddr == "" {
			return errors.New("--via-redis needs REDIS_ADDR")
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		return watchRedis(ctx, storage.NewRedisAdapter(rdb, cfg.CatalogCacheTTL), args[0], out)
	}

	conn, err := grpc.NewClient(dialTarget(cfg.GRPCAddr), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.GRPCAddr, err)
	}
	defer conn.Close()

	err = handler.NewCartClient(conn).Watch(ctx, args[0], func(s domain.Snapshot) error {
		printSnapshot(out, s)
		return nil
	})
	if status.Code(err) == codes.Canceled || ctx.Err() != nil {
		return nil
	}
	return err
}

// watchRedis prints snapshots published on the session's channel until ctx
// is done.
func watchRedis(ctx context.Context, adapter *storage.RedisAdapter, sessionID string, out io.Writer) error {
	snaps, closeSub, err := adapter.SubscribeSnapshots(ctx, sessionID)
	if err != nil {
		return err
	}
	defer closeSub()

	for s := range snaps {
		printSnapshot(out, s)
	}
	return nil
}

func printSnapshot(out io.Writer, s domain.Snapshot) {
	fmt.Fprintf(out, "v%d  %d item(s)  %d unit(s)  total %s\n",
		s.Version(), s.Len(), s.Count(), domain.FormatCurrency(s.Total()))
	for _, it := range s.Items() {
		fmt.Fprintf(out, "    %-40s x%-3d %s\n",
			domain.Truncate(it.Title, 37), it.Quantity, domain.FormatCurrency(it.Subtotal()))
	}
}

// dialTarget turns a listen address such as ":50051" into a dialable one.
func dialTarget(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
