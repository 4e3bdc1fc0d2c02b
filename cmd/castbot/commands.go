package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coopco/castbot/internal/actions"
	"github.com/coopco/castbot/internal/bot"
	"github.com/coopco/castbot/internal/bus"
	"github.com/coopco/castbot/internal/channels"
	"github.com/coopco/castbot/internal/config"
	"github.com/coopco/castbot/internal/cron"
	"github.com/coopco/castbot/internal/heartbeat"
	"github.com/coopco/castbot/internal/hub"
	"github.com/coopco/castbot/internal/identity"
)

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// deriveIdentity builds the signing identity from whichever credential the
// config carries. Validate has already checked that exactly one is set.
func deriveIdentity(cfg *config.Config) (*identity.Identity, error) {
	if cfg.Identity.PrivateKey != "" {
		return identity.FromHex(cfg.Identity.PrivateKey)
	}
	return identity.FromMnemonic(cfg.Identity.Mnemonic)
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the derived signer public key and fid",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			id, err := deriveIdentity(cfg)
			if err != nil {
				return err
			}
			// Printed verbatim; this exact string is what gets
			// registered on-chain.
			fmt.Printf("fid:    %d\n", cfg.Identity.Fid)
			fmt.Printf("signer: %s\n", id.PublicKeyHex())
			return nil
		},
	}
}

func postCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post <text>",
		Short: "Publish a single cast and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			id, err := deriveIdentity(cfg)
			if err != nil {
				return err
			}
			client := hub.NewHTTPClient(cfg.Hub.URL, cfg.Hub.APIKey)
			pub := actions.NewPublisher(id, cfg.Identity.Fid, client)

			msg, err := pub.Cast(cmd.Context(), args[0], nil, nil)
			if err != nil {
				return err
			}
			fmt.Println("published:", msg.Hash)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print hub status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := hub.NewHTTPClient(cfg.Hub.URL, cfg.Hub.APIKey)
			info, err := client.Info(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("hub %s — %d shards, %d messages\n", info.Version, info.NumShards, info.NumMessages)
			for _, s := range info.Shards {
				fmt.Printf("  shard %d: %d messages, block %d\n", s.ShardID, s.NumMessages, s.BlockNumber)
			}
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the interactive bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Channels.Telegram.Token == "" {
				return fmt.Errorf("channels: telegram token is required to run the bot")
			}
			id, err := deriveIdentity(cfg)
			if err != nil {
				return err
			}
			slog.Info("identity derived", "fid", cfg.Identity.Fid, "signer", id.PublicKeyHex())

			client := hub.NewHTTPClient(cfg.Hub.URL, cfg.Hub.APIKey)
			pub := actions.NewPublisher(id, cfg.Identity.Fid, client)
			msgBus := bus.NewMessageBus(0)

			sched := cron.NewService(cfg.Cron.StorePath, msgBus)
			if err := sched.LoadFromDisk(); err != nil {
				slog.Warn("failed to restore scheduled casts", "error", err)
			}

			b := bot.New(msgBus, pub, client, sched)

			mgr := channels.NewManager(msgBus)
			tgCfg, err := json.Marshal(cfg.Channels.Telegram)
			if err != nil {
				return err
			}
			if err := mgr.AddChannel("telegram", tgCfg); err != nil {
				return err
			}

			hb := heartbeat.NewService(heartbeat.Config{
				Hub:           client,
				Bus:           msgBus,
				Interval:      time.Duration(cfg.Heartbeat.IntervalSeconds) * time.Second,
				NotifyChannel: "telegram",
				NotifyChatID:  cfg.Channels.Telegram.AdminChatID,
			})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := mgr.StartAll(ctx); err != nil {
				return err
			}
			defer mgr.StopAll()

			sched.Start()
			defer sched.Stop()

			hb.Start(ctx)
			defer hb.Stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				msgBus.DispatchOutbound(gctx)
				return nil
			})
			g.Go(func() error {
				return b.Run(gctx)
			})

			slog.Info("castbot running", "hub", cfg.Hub.URL)
			if err := g.Wait(); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}
