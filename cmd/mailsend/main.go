package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/szhangbiao/mailsend"
	"github.com/szhangbiao/mailsend/internal/httpapi"
	"github.com/szhangbiao/mailsend/internal/maillog"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "HTTP listen address")
		provider    = flag.String("provider", "gmail", "email provider (gmail, gmail_user, sendgrid, webhook, aws_ses)")
		postgresDSN = flag.String("postgres-dsn", "", "PostgreSQL connection string for the delivery log (empty disables logging)")
		redisURL    = flag.String("redis-url", "", "Redis URL for the shared token store (empty uses in-process cache)")
		timeout     = flag.Duration("send-timeout", 30*time.Second, "provider operation timeout")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v == "DEBUG" || v == "debug" {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	log.Info("starting mailsend service",
		"version", mailsend.GetVersionInfo().String(),
		"addr", *addr,
		"provider", *provider,
	)

	if err := run(log, *addr, *provider, *postgresDSN, *redisURL, *timeout); err != nil {
		log.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, addr, providerType, postgresDSN, redisURL string, timeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := mailsend.DefaultConfig()
	opts := []mailsend.Option{mailsend.WithTimeout(timeout)}

	providerOpt, err := providerOption(mailsend.ProviderType(providerType))
	if err != nil {
		return err
	}
	opts = append(opts, providerOpt)

	if redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		defer redisClient.Close()
		opts = append(opts, mailsend.WithRedisTokenStore(redisClient, "mailsend"))
		log.Info("using redis token store")
	}

	client, err := mailsend.New(config, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}
	defer client.Close()

	var logs httpapi.LogStore
	if postgresDSN != "" {
		log.Info("connecting to postgres")
		pool, err := maillog.Connect(ctx, maillog.DefaultDBConfig(postgresDSN))
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := maillog.Migrate(ctx, pool, log); err != nil {
			return fmt.Errorf("migrate delivery log schema: %w", err)
		}
		logs = maillog.NewStore(pool)
		log.Info("delivery log enabled")
	} else {
		log.Warn("no postgres-dsn configured, delivery logging disabled")
	}

	handler := httpapi.NewHandler(client, logs, log)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// providerOption builds the provider configuration from environment
// variables so that secrets stay out of the process argument list.
func providerOption(providerType mailsend.ProviderType) (mailsend.Option, error) {
	switch providerType {
	case mailsend.ProviderGmail:
		clientEmail := os.Getenv("GMAIL_CLIENT_EMAIL")
		privateKey := os.Getenv("GMAIL_PRIVATE_KEY")
		if clientEmail == "" || privateKey == "" {
			return nil, errors.New("GMAIL_CLIENT_EMAIL and GMAIL_PRIVATE_KEY must be set")
		}
		if subject := os.Getenv("GMAIL_SUBJECT"); subject != "" {
			return mailsend.WithGmailDelegated(clientEmail, privateKey, subject), nil
		}
		return mailsend.WithGmail(clientEmail, privateKey), nil

	case mailsend.ProviderGmailUser:
		clientID := os.Getenv("GMAIL_CLIENT_ID")
		clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
		refreshToken := os.Getenv("GMAIL_REFRESH_TOKEN")
		if clientID == "" || clientSecret == "" || refreshToken == "" {
			return nil, errors.New("GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET and GMAIL_REFRESH_TOKEN must be set")
		}
		return mailsend.WithGmailUser(clientID, clientSecret, refreshToken), nil

	case mailsend.ProviderSendGrid:
		apiKey := os.Getenv("SENDGRID_API_KEY")
		from := os.Getenv("SENDGRID_FROM")
		if apiKey == "" || from == "" {
			return nil, errors.New("SENDGRID_API_KEY and SENDGRID_FROM must be set")
		}
		return mailsend.WithSendGrid(apiKey, from), nil

	case mailsend.ProviderWebhook:
		url := os.Getenv("WEBHOOK_URL")
		if url == "" {
			return nil, errors.New("WEBHOOK_URL must be set")
		}
		return mailsend.WithWebhook(url), nil

	case mailsend.ProviderAWSSES:
		region := os.Getenv("AWS_REGION")
		from := os.Getenv("SES_FROM")
		if region == "" || from == "" {
			return nil, errors.New("AWS_REGION and SES_FROM must be set")
		}
		return mailsend.WithAWSSES(region, from), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
