package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/heyvito/goscar"
	"github.com/heyvito/goscar/internal/config"
	"github.com/heyvito/goscar/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

const usage = `usage: goscar [serve] [-config path]
       goscar create-user [-config path] -uin UIN -email EMAIL

create-user reads the password from the first line of stdin.
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(args)
	case "create-user":
		err = createUser(args, os.Stdin, os.Stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "goscar: %s\n", err)
		os.Exit(1)
	}
}

func loadConfig(name string, args []string, extra func(fs *flag.FlagSet)) (*config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	path := fs.String("config", "", "path to a YAML configuration file")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(*path)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableCaller = true
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func openStore(ctx context.Context, logger *zap.Logger, cfg config.StoreConfig) (store.Store, error) {
	if cfg.Driver != config.DriverPostgres {
		return store.NewMemory(), nil
	}
	pg, err := store.OpenPostgres(ctx, logger, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func serve(args []string) error {
	cfg, err := loadConfig("serve", args, nil)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	st, err := openStore(ctx, logger, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	if err = seedUsers(ctx, logger, st, cfg.Store.Seed); err != nil {
		return err
	}

	key, err := cfg.CookieKey()
	if err != nil {
		return err
	}

	opts := goscar.Options{
		AuthAddress:           cfg.Auth.Listen,
		BOSAddress:            cfg.BOS.Listen,
		BOSAdvertiseAddress:   cfg.BOS.Advertise,
		MaxConnections:        cfg.Server.MaxConnections,
		ReadTimeout:           cfg.Server.ReadTimeout,
		AcceptRate:            rate.Limit(cfg.Server.AcceptRate),
		AcceptBurst:           cfg.Server.AcceptBurst,
		ReusePort:             cfg.Server.ReusePort,
		StrictInboundSequence: cfg.Server.StrictInboundSequence,
		SendLoginErrors:       cfg.Server.SendLoginErrors,
		LoginErrorURL:         cfg.Server.LoginErrorURL,
		RequireCookie:         cfg.Server.RequireCookie,
		CookieKey:             key,
		CookieTTL:             cfg.Cookie.TTL,
		Store:                 st,
		StatusAddress:         cfg.Status.Listen,
		LogHandler:            logger,
	}
	if key == nil {
		logger.Warn("No cookie key configured, generating a random one")
	}

	srv, err := goscar.NewServer(&opts)
	if err != nil {
		return err
	}
	srv.Start()

	sigChan := make(chan os.Signal, 3)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutting down", zap.Stringer("signal", sig))
	srv.Shutdown()
	return nil
}

func seedUsers(ctx context.Context, logger *zap.Logger, st store.Store, users []config.SeedUser) error {
	for _, u := range users {
		err := st.Create(ctx, u.UIN, u.Email, u.Password)
		switch {
		case err == nil:
			logger.Info("Seeded user", zap.String("uin", u.UIN))
		case errors.Is(err, store.UserExistsErr), errors.Is(err, store.EmailExistsErr):
			logger.Debug("Seed user already exists", zap.String("uin", u.UIN))
		default:
			return fmt.Errorf("seeding %s: %w", u.UIN, err)
		}
	}
	return nil
}

func createUser(args []string, stdin io.Reader, stdout io.Writer) error {
	var uin, email string
	cfg, err := loadConfig("create-user", args, func(fs *flag.FlagSet) {
		fs.StringVar(&uin, "uin", "", "screen name of the new account")
		fs.StringVar(&email, "email", "", "email address of the new account")
	})
	if err != nil {
		return err
	}
	if cfg.Store.Driver != config.DriverPostgres {
		return fmt.Errorf("create-user requires the %s store driver", config.DriverPostgres)
	}

	password, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	st, err := openStore(ctx, zap.NewNop(), cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	err = st.Create(ctx, uin, email, password)
	switch {
	case errors.Is(err, store.UserExistsErr):
		return fmt.Errorf("a user with UIN %s already exists", uin)
	case errors.Is(err, store.EmailExistsErr):
		return fmt.Errorf("a user with email %s already exists", email)
	case errors.Is(err, store.BadArgumentsErr):
		return fmt.Errorf("-uin, -email and a password are required")
	case err != nil:
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Created user %s\n", uin)
	return nil
}
