package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/audit"
	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
	"github.com/testwebinoue-debug/sept3/internal/infra/dnscheck"
	"github.com/testwebinoue-debug/sept3/internal/infra/tlsroots"
	"github.com/testwebinoue-debug/sept3/internal/notify"
	"github.com/testwebinoue-debug/sept3/internal/server/config"
	"github.com/testwebinoue-debug/sept3/internal/server/httpserver"
	"github.com/testwebinoue-debug/sept3/internal/server/httpserver/handler"
	"github.com/testwebinoue-debug/sept3/internal/storage"
	"github.com/testwebinoue-debug/sept3/internal/storage/redisstore"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/metric"
)

// application holds what run needs to start and stop.
type application struct {
	store   service.SessionStore
	events  *audit.Recorder
	metrics *metric.Registry
	router  http.Handler
	server  *httpserver.Server

	// certs is nil when TLS is off.
	certs *tlsroots.CertReloader
}

// build wires every component from cfg. On error, whatever was opened is
// closed again.
func build(ctx context.Context, cfg *config.ContactConfig, log *slog.Logger) (_ *application, err error) {
	reg := metric.NewRegistry()

	badgerCfg := storage.DefaultBadgerConfig(cfg.Storage.Badger.Dir)
	if cfg.Storage.Badger.GCInterval != "" {
		badgerCfg.GCInterval = cfg.Storage.Badger.GCInterval
	}
	badgerCfg.SyncWrites = cfg.Storage.Badger.SyncWrites

	sealer, err := cfg.Storage.SealCipher()
	if err != nil {
		return nil, fmt.Errorf("storage cipher: %w", err)
	}

	store, err := storage.Open(ctx, storage.Config{
		Backend:    cfg.Storage.Backend,
		SessionTTL: cfg.Server.Session.IdleTTL,
		Badger:     badgerCfg,
		Cipher:     sealer,
		Redis: redisstore.Config{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
		},
		Metrics: reg.Prometheus(),
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	defer func() {
		if err != nil {
			store.Close()
		}
	}()

	events, err := audit.NewRecorder(audit.Config{
		Dir:          cfg.Log.Dir,
		AuditEnabled: cfg.Log.AuditEnabled,
		UserAgent:    cfg.Log.UserAgent,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("open log files: %w", err)
	}

	pipeline, tokens, err := buildPipeline(cfg, store, events, reg, log)
	if err != nil {
		events.Close()
		return nil, err
	}

	h := handler.New(handler.Config{
		Tokens:   tokens,
		Pipeline: pipeline,
		Sessions: handler.NewSessions(store, handler.SessionConfig{
			CookieName: cfg.Server.Session.CookieName,
			IdleTTL:    cfg.Server.Session.IdleTTL,
		}),
		RetryAfter: cfg.RateLimit.Period,
		Ready:      readiness(store),
		Events:     events,
		Metrics:    reg,
		Logger:     log,
	})

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Handler:           h,
		Metrics:           reg,
		Events:            events,
		Logger:            log,
		TrustProxyHeaders: cfg.Server.HTTP.TrustProxyHeaders,
		CORSOrigins:       cfg.Server.HTTP.CORSOrigins,
		GlobalRPS:         cfg.Server.HTTP.GlobalRPS,
		GlobalBurst:       cfg.Server.HTTP.GlobalBurst,
		IPPolicy: httpserver.IPPolicyConfig{
			Enabled:   cfg.Security.IPRestriction,
			Allowlist: cfg.Security.IPAllowlist,
			Denylist:  cfg.Security.IPDenylist,
			Events:    events,
			Logger:    log,
		},
	})

	srvCfg := httpserver.Config{
		Addr:         cfg.Server.HTTP.Addr,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
	}
	var certs *tlsroots.CertReloader
	if cfg.Server.HTTP.TLSCertFile != "" {
		certs, err = tlsroots.NewCertReloader(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile, log)
		if err != nil {
			events.Close()
			return nil, err
		}
		srvCfg.GetCertificate = certs.GetCertificate
	}

	return &application{
		store:   store,
		events:  events,
		metrics: reg,
		router:  router,
		server:  httpserver.New(srvCfg, router),
		certs:   certs,
	}, nil
}

// buildPipeline wires the defense checks and the mail dispatcher.
func buildPipeline(cfg *config.ContactConfig, store service.SessionStore, events service.EventRecorder, reg *metric.Registry, log *slog.Logger) (*service.Pipeline, *service.TokenIssuer, error) {
	tokens := service.NewTokenIssuer(store, service.TokenConfig{
		CSRFLifetime: cfg.CSRF.TokenLifetime,
		DoubleSubmit: cfg.CSRF.DoubleSubmit,
	})

	limiter := service.NewRateLimiter(store, service.RateLimitConfig{
		Limit:    cfg.RateLimit.Count,
		Period:   cfg.RateLimit.Period,
		Strict:   cfg.RateLimit.StrictMode,
		EmailKey: []byte(cfg.RateLimit.EmailKey),
	})

	var resolver service.DomainResolver
	if cfg.Validation.MXCheck {
		var servers []string
		if cfg.Validation.DNSServer != "" {
			servers = []string{cfg.Validation.DNSServer}
		}
		r, err := dnscheck.New(dnscheck.Config{Servers: servers, Timeout: cfg.Validation.DNSTimeout})
		if err != nil {
			return nil, nil, fmt.Errorf("mail host check: %w", err)
		}
		resolver = r
	}

	validator := service.NewValidator(service.ValidationRules{
		MaxNameLength:     cfg.Validation.MaxNameLength,
		MaxCompanyLength:  cfg.Validation.MaxCompanyLength,
		MaxContentLength:  cfg.Validation.MaxContentLength,
		MinContentLength:  cfg.Validation.MinContentLength,
		MaxEmailLength:    cfg.Validation.MaxEmailLength,
		MaxPhoneLength:    cfg.Validation.MaxPhoneLength,
		MXCheck:           cfg.Validation.MXCheck,
		DisposableDomains: cfg.Spam.DisposableDomains,
		ProhibitedWords:   cfg.Spam.ProhibitedWords,
	}, resolver)

	primary, fallback, err := buildTransports(cfg.Mail, log)
	if err != nil {
		return nil, nil, err
	}

	dispatcher := service.NewDispatcher(service.DispatcherConfig{
		Primary:  primary,
		Fallback: fallback,
		Composer: notify.NewComposer(notify.TemplateConfig{
			AdminAddr:        cfg.Mail.Admin,
			FromAddr:         cfg.Mail.From,
			FromName:         cfg.Mail.FromName,
			ErrorTo:          cfg.Mail.ErrorNotificationTo,
			IncludeUserAgent: cfg.Log.UserAgent,
		}),
		Events:            events,
		ErrorNotification: cfg.Mail.ErrorNotification,
		Observer: func(kind domain.MailKind, transport string, err error) {
			reg.RecordMail(string(kind), transport, err)
		},
	})

	deps := service.PipelineDeps{
		Store:      store,
		Tokens:     tokens,
		Limiter:    limiter,
		Validator:  validator,
		Dispatcher: dispatcher,
		Events:     events,
		Clock:      time.Now,
	}
	if cfg.Recaptcha.SecretKey != "" {
		deps.Verifier = service.NewRecaptchaVerifier(cfg.Recaptcha.SecretKey, cfg.Recaptcha.VerifyURL, cfg.Recaptcha.Timeout)
	} else {
		log.Warn("bot-score check disabled: recaptcha.secret_key is empty")
	}

	pipeline := service.NewPipeline(service.PipelineConfig{
		MaxBodyBytes:   cfg.Server.HTTP.MaxBodyBytes,
		Honeypot:       cfg.Spam.Honeypot,
		TimestampCheck: cfg.Spam.TimestampCheck,
		MinFillTime:    cfg.Spam.MinFillTime,
		MaxFillTime:    cfg.Spam.MaxFillTime,
		BotScore: service.BotScorePolicy{
			Threshold: cfg.Recaptcha.Threshold,
			FailOpen:  cfg.Recaptcha.FailOpen,
		},
	}, deps)

	return pipeline, tokens, nil
}

// buildTransports returns the primary mail transport and the fallback.
// Without a fallback host the fallback is a second transport on the
// primary relay with encoded headers. The log transport has no fallback.
func buildTransports(m config.MailSection, log *slog.Logger) (service.Mailer, service.Mailer, error) {
	if m.Transport == "log" {
		return notify.NewLogTransport(log), nil, nil
	}

	primary, err := smtpTransport("smtp", m.SMTP.Host, m.SMTP.Port, m.SMTP, false)
	if err != nil {
		return nil, nil, err
	}

	name, host, port := "smtp-retry", m.SMTP.Host, m.SMTP.Port
	if m.SMTP.FallbackHost != "" {
		name, host = "smtp-fallback", m.SMTP.FallbackHost
		if m.SMTP.FallbackPort != 0 {
			port = m.SMTP.FallbackPort
		}
	}
	fallback, err := smtpTransport(name, host, port, m.SMTP, true)
	if err != nil {
		return nil, nil, err
	}
	return primary, fallback, nil
}

func smtpTransport(name, host string, port int, c config.SMTPConfig, encode bool) (*notify.SMTPTransport, error) {
	sc := notify.SMTPConfig{
		Name:          name,
		Host:          host,
		Port:          port,
		Username:      c.Username,
		Password:      c.Password,
		Timeout:       c.Timeout,
		EncodeHeaders: encode,
	}
	if c.CAFile != "" {
		tlsCfg, err := tlsroots.ClientConfig(host, c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sc.TLSConfig = tlsCfg
	}
	return notify.NewSMTPTransport(sc)
}

// readiness returns the store's Ping when it has one. The memory store
// is always ready.
func readiness(store service.SessionStore) func(context.Context) error {
	if p, ok := store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping
	}
	return nil
}

var errNoLogDir = errors.New("log.dir is empty")

func pruneLogs(cfg config.LogSection, now time.Time) ([]string, error) {
	if cfg.Dir == "" {
		return nil, errNoLogDir
	}
	removed, err := audit.Prune(cfg.Dir, cfg.RetentionDays, now)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return removed, err
}
