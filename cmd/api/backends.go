package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-otp-auth/internal/application/verification"
	"github.com/go-otp-auth/internal/config"
	"github.com/go-otp-auth/internal/domain"
	"github.com/go-otp-auth/internal/infrastructure/dynamo"
	"github.com/go-otp-auth/internal/infrastructure/logmail"
	"github.com/go-otp-auth/internal/infrastructure/memory"
	mongoinfra "github.com/go-otp-auth/internal/infrastructure/mongo"
	"github.com/go-otp-auth/internal/infrastructure/postmark"
	redisinfra "github.com/go-otp-auth/internal/infrastructure/redis"
	"github.com/go-otp-auth/internal/infrastructure/smtp"
)

// userStore covers what both the flows and login need from the credential store.
type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	LinkGoogle(ctx context.Context, email, sub string) error
}

type backends struct {
	users   userStore
	ledger  verification.LedgerStore
	mailer  verification.Notifier
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends connects the configured store, ledger and mail backends.
// DynamoDB tables are created on first use of either dynamo backend.
func openBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{}
	var dyn *dynamodb.Client
	dynamoClient := func() (*dynamodb.Client, error) {
		if dyn != nil {
			return dyn, nil
		}
		c, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dynamo.Bootstrap(ctx, c, cfg.DynamoTables)
		dyn = c
		return c, nil
	}

	switch cfg.StoreBackend {
	case "dynamo":
		c, err := dynamoClient()
		if err != nil {
			return nil, err
		}
		b.users = dynamo.NewUserRepo(c, cfg.DynamoTables.Users)
	case "mongo":
		conn := mongoinfra.NewConnector(cfg.MongoURL)
		client, err := conn.Client(ctx)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = conn.Close(context.Background()) })
		repo := mongoinfra.NewUserRepo(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			b.close()
			return nil, err
		}
		b.users = repo
	case "memory":
		b.users = memory.NewUserStore()
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.LedgerBackend {
	case "dynamo":
		c, err := dynamoClient()
		if err != nil {
			b.close()
			return nil, err
		}
		b.ledger = dynamo.NewVerificationRepo(c, cfg.DynamoTables.Verifications)
	case "redis":
		client, err := redisinfra.Connect(ctx, cfg.RedisURL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.ledger = redisinfra.NewLedgerStore(client)
	case "memory":
		b.ledger = memory.NewLedgerStore()
	default:
		b.close()
		return nil, fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.LedgerBackend)
	}

	switch cfg.MailBackend {
	case "smtp":
		b.mailer = smtp.NewMailer(cfg)
	case "postmark":
		m, err := postmark.NewMailer(cfg)
		if err != nil {
			b.close()
			return nil, err
		}
		b.mailer = m
	case "log":
		if cfg.IsProduction() {
			logger.Warn("MAIL_BACKEND=log prints verification codes to the log")
		}
		b.mailer = logmail.NewMailer(logger)
	default:
		b.close()
		return nil, fmt.Errorf("unknown MAIL_BACKEND %q", cfg.MailBackend)
	}
	return b, nil
}
