package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ju-nu/ShopwareDunning/config"
	"github.com/ju-nu/ShopwareDunning/internal/broker/kafka"
	"github.com/ju-nu/ShopwareDunning/internal/cache/rediscache"
	"github.com/ju-nu/ShopwareDunning/internal/integrations/mailer"
	"github.com/ju-nu/ShopwareDunning/internal/integrations/mailer/brevo"
	"github.com/ju-nu/ShopwareDunning/internal/integrations/ordersource"
	"github.com/ju-nu/ShopwareDunning/internal/integrations/ordersource/shopware"
	"github.com/ju-nu/ShopwareDunning/internal/models"
	"github.com/ju-nu/ShopwareDunning/internal/services/dunning"
	"github.com/ju-nu/ShopwareDunning/internal/storage/pgjournal"
	"github.com/ju-nu/ShopwareDunning/internal/templates"
)

type workerFactories struct {
	newSource       func(cfg *config.Config) dunning.SourceFactory
	newMailer       func(cfg *config.Config) dunning.MailerFactory
	newProducer     func(cfg *config.Config) dunning.Producer
	newJournal      func(cfg *config.Config) (dunning.Journal, func(), error)
	newRateLimiter  func(cfg *config.Config) dunning.RateLimiter
	newChannelCache func(cfg *config.Config) dunning.ChannelCache
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newSource: func(cfg *config.Config) dunning.SourceFactory {
			return func(t models.Tenant) ordersource.Client {
				return shopware.New(t.BaseURL, t.ClientID, t.ClientSecret)
			}
		},
		newMailer: func(cfg *config.Config) dunning.MailerFactory {
			return func(t models.Tenant) mailer.Client {
				return brevo.New("", t.BrevoAPIKey)
			}
		},
		newProducer: func(cfg *config.Config) dunning.Producer {
			if cfg.Kafka.Host == "" {
				return nil
			}
			topic := cfg.Kafka.NoticeSentTopicName
			if topic == "" {
				topic = "dunning.notice.sent"
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers, topic)
		},
		newJournal: func(cfg *config.Config) (dunning.Journal, func(), error) {
			if cfg.Database.Host == "" {
				return nil, nil, nil
			}
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgjournal.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newRateLimiter: func(cfg *config.Config) dunning.RateLimiter {
			if cfg.Redis.Host == "" {
				return nil
			}
			return rediscache.NewRateLimiter(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
		},
		newChannelCache: func(cfg *config.Config) dunning.ChannelCache {
			if cfg.Redis.Host == "" {
				return nil
			}
			return rediscache.NewChannelCache(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
		},
	}
}

func RunDunningWorker(ctx context.Context, cfg *config.Config, dryRun bool, f workerFactories) error {
	tenants, err := cfg.TenantModels()
	if err != nil {
		return err
	}

	cycleInterval := time.Duration(cfg.Dunning.CycleIntervalSeconds) * time.Second
	if cycleInterval <= 0 {
		cycleInterval = time.Hour
	}
	pageLimit := cfg.Dunning.PageLimit
	if pageLimit <= 0 {
		pageLimit = 50
	}
	orderDelay := time.Duration(cfg.Dunning.OrderDelayMillis) * time.Millisecond
	if orderDelay <= 0 {
		orderDelay = 500 * time.Millisecond
	}
	tenantDelay := time.Duration(cfg.Dunning.TenantDelaySeconds) * time.Second
	if tenantDelay <= 0 {
		tenantDelay = 5 * time.Second
	}
	templateDir := cfg.Dunning.TemplateDir
	if templateDir == "" {
		templateDir = "./templates"
	}
	inspectDir := cfg.Dunning.InspectDir
	if inspectDir == "" {
		inspectDir = "./inspect"
	}

	r := dunning.New(tenants, f.newSource(cfg), f.newMailer(cfg), templates.NewStore(templateDir)).
		WithSettings(cycleInterval, pageLimit, orderDelay, tenantDelay, int64(cfg.Dunning.APIRateLimitPerMinute))

	if p := f.newProducer(cfg); p != nil {
		r.WithProducer(p)
	}
	journal, closeJournal, err := f.newJournal(cfg)
	if err != nil {
		return err
	}
	if closeJournal != nil {
		defer closeJournal()
	}
	if journal != nil {
		r.WithJournal(journal)
	}
	if rl := f.newRateLimiter(cfg); rl != nil {
		r.WithRateLimiter(rl)
	}
	if cc := f.newChannelCache(cfg); cc != nil {
		r.WithChannelCache(cc)
	}

	if dryRun {
		r.WithDryRun(inspectDir)
		r.RunOnce(ctx)
		return nil
	}

	if cfg.Dunning.HTTPAddr != "" {
		go func() {
			err := runWorkerHTTPServer(ctx, workerHTTPOpts{
				httpAddr: cfg.Dunning.HTTPAddr,
				runner:   r,
				cfg:      cfg,
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("ops http server", "error", err.Error())
			}
		}()
	}

	return r.Run(ctx)
}
