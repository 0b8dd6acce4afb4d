package main

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/campushub/notifier/internal/config"
	notifierhttp "github.com/campushub/notifier/internal/http"
	"github.com/campushub/notifier/internal/journal"
	"github.com/campushub/notifier/internal/mail"
	"github.com/campushub/notifier/internal/observability/logger"
	"github.com/campushub/notifier/internal/rate"
	"github.com/campushub/notifier/internal/security/secretbox"
	"github.com/campushub/notifier/internal/verification"
)

const shutdownGrace = 15 * time.Second

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:           "notifier",
		Short:         "CampusHub transactional email service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", envOr("NOTIFIER_CONFIG", "config.yaml"), "path to config file (env NOTIFIER_CONFIG)")

	root.AddCommand(serveCmd(&cfgPath))
	root.AddCommand(sendCmd(&cfgPath))
	root.AddCommand(checkCmd(&cfgPath))
	root.AddCommand(encCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the notifier API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	log := logger.Named("serve")

	disp := mail.NewDispatcher(mail.Config{
		Accounts: mailAccounts(cfg),
		Relay:    mailRelay(cfg),
		Workers:  cfg.Queue.Workers,
		Capacity: cfg.Queue.Capacity,
	})

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	store := verification.NewCodeStore(cfg.Verify.CodeTTL.Std(), cfg.Verify.SweepInterval.Std())
	store.StartSweeper(sweepCtx)

	svc := verification.NewService(disp, store, verification.Options{
		Subject:        cfg.Verify.Subject,
		SendTimeout:    cfg.Verify.SendTimeout.Std(),
		ResendCooldown: cfg.Verify.ResendCooldown.Std(),
	})

	var jnl *journal.Journal
	if cfg.Journal.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		j, err := journal.Open(ctx, cfg.Journal.DSN)
		cancel()
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		jnl = j
		disp.Recorder = jnl
		log.Info("delivery journal enabled")
	}

	limiter, err := buildLimiter(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if err := mail.RegisterMetrics(reg, disp); err != nil {
		return fmt.Errorf("register mail metrics: %w", err)
	}
	if err := verification.RegisterMetrics(reg, store); err != nil {
		return fmt.Errorf("register verification metrics: %w", err)
	}
	notifierhttp.RegisterMetrics(reg)

	router := notifierhttp.NewRouter(notifierhttp.RouterConfig{
		Verification: svc,
		APISecret:    cfg.Auth.APISecret,
		Limiter:      limiter,
		Registry:     reg,
	})
	srv := notifierhttp.NewServer(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-sigCh:
		log.Info("shutting down", logger.String("signal", sig.String()))
	}

	// Stop accepting requests, then drain the queue, then drop SMTP
	// sessions and background work.
	notifierhttp.Shutdown(srv, shutdownGrace)
	disp.Close()
	stopSweeper()
	if jnl != nil {
		jnl.Close()
	}
	_ = logger.Sync()
	return nil
}

func sendCmd(cfgPath *string) *cobra.Command {
	var (
		to      []string
		subject string
		body    string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a test message through the configured accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(to) == 0 {
				return fmt.Errorf("--to is required")
			}
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			disp := mail.NewDispatcher(mail.Config{
				Accounts: mailAccounts(cfg),
				Relay:    mailRelay(cfg),
				Workers:  1,
				Capacity: 1,
			})
			defer disp.Close()

			res := disp.SendSync(to, subject, "<p>"+body+"</p>", body)
			for _, rcpt := range res.Success {
				fmt.Printf("delivered  %s\n", rcpt)
			}
			for rcpt, reason := range res.Failed {
				fmt.Printf("failed     %s: %s\n", rcpt, reason)
			}
			for acct, reason := range res.AccountErrors {
				fmt.Printf("account    %s: %s\n", acct, reason)
			}
			if len(res.Success) == 0 {
				return fmt.Errorf("no recipient reached")
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&to, "to", nil, "recipient address (repeatable)")
	cmd.Flags().StringVar(&subject, "subject", "Notifier test message", "message subject")
	cmd.Flags().StringVar(&body, "body", "This is a test message from the CampusHub notifier.", "message body")
	return cmd
}

func checkCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d account(s), relay %s:%d (%s)\n",
				len(cfg.Accounts), cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.TLS)
			return nil
		},
	}
}

func encCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "enc <plaintext>",
		Short: "Encrypt an account password for password_enc",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = os.Getenv("NOTIFIER_MASTER_KEY")
			}
			if key == "" {
				return fmt.Errorf("--key or env NOTIFIER_MASTER_KEY is required")
			}
			out, err := secretbox.EncryptWithKey(key, args[0])
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "master key (env NOTIFIER_MASTER_KEY)")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "warning: could not load .env:", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "notifier",
	})
	return cfg, nil
}

func buildLimiter(cfg *config.Config) (rate.Limiter, error) {
	if !cfg.Rate.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Rate.Kind) {
	case "redis":
		client := rdb.NewClient(&rdb.Options{
			Addr: cfg.Rate.Redis.Addr,
			DB:   cfg.Rate.Redis.DB,
		})
		return rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix, cfg.Rate.Send.Limit, cfg.Rate.Send.Window.Std()), nil
	case "", "memory":
		return rate.NewMemoryLimiter(cfg.Rate.Send.Limit, cfg.Rate.Send.Window.Std()), nil
	default:
		return nil, fmt.Errorf("unknown rate limiter kind %q", cfg.Rate.Kind)
	}
}

func mailAccounts(cfg *config.Config) []mail.Account {
	out := make([]mail.Account, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		out = append(out, mail.Account{
			Address:    a.Address,
			Password:   a.Password,
			Priority:   a.Priority,
			DailyLimit: a.DailyLimit,
		})
	}
	return out
}

func mailRelay(cfg *config.Config) mail.Relay {
	return mail.Relay{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		TLSMode:            cfg.SMTP.TLS,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		FromName:           cfg.SMTP.FromName,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
