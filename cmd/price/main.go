package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"pricehist/internal/config"
	"pricehist/internal/crawler"
	"pricehist/internal/dimension"
	"pricehist/internal/lock"
	"pricehist/internal/logger"
	"pricehist/internal/notify"
	"pricehist/internal/observability"
	"pricehist/internal/repository"
	"pricehist/internal/runner"
)

// go run ./cmd/price -u "https://www.ceneo.pl/12345" -p "Phone X"
// go run ./cmd/price -u URL -p NAME --host smtp.example.com --username bot --password secret -e ops@example.com
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	url, product                    string
	host, username, password, email string
	configPath                      string
}

func parseFlags(args []string, stdout io.Writer) (*options, *flag.FlagSet, error) {
	o := &options{}
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: price [-u|--url] URL [-p|--product] NAME [options]")
		fs.PrintDefaults()
	}

	fs.StringVar(&o.url, "url", "", "url to Ceneo.pl product")
	fs.StringVar(&o.url, "u", "", "shorthand for --url")
	fs.StringVar(&o.product, "product", "", "name of the product")
	fs.StringVar(&o.product, "p", "", "shorthand for --product")
	fs.StringVar(&o.host, "host", "", "SMTP server hostname")
	fs.StringVar(&o.username, "username", "", "SMTP account username")
	fs.StringVar(&o.password, "password", "", "SMTP account password")
	fs.StringVar(&o.email, "email", "", "email address")
	fs.StringVar(&o.email, "e", "", "shorthand for --email")
	fs.StringVar(&o.configPath, "config", "", "optional YAML config file")

	err := fs.Parse(args)
	return o, fs, err
}

func run(args []string, stdout, stderr io.Writer) int {
	o, fs, err := parseFlags(args, stdout)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}
	if o.url == "" || o.product == "" {
		fs.Usage()
		return 0
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	overlay(&cfg.SMTP, o)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}

	log, closeLog, err := logger.Open(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(stderr, "log file:", err)
		return 1
	}
	defer closeLog()

	reporter := &notify.Reporter{Logger: log, Out: stdout}
	if cfg.SMTP.Host != "" {
		reporter.Mailer = notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Email)
	}

	ctx := context.Background()
	metrics := observability.NewMetrics()
	r, cleanup, err := newRunner(cfg, log, metrics, stdout)
	if err != nil {
		reporter.Report(err)
		return 1
	}
	defer cleanup()

	_, err = r.Run(ctx, runner.Request{URL: o.url, Product: o.product})

	if cfg.PushgatewayURL != "" {
		if perr := metrics.Push(ctx, cfg.PushgatewayURL, o.product); perr != nil {
			log.Warn("push metrics", "error", perr)
		}
	}
	if err != nil {
		reporter.Report(err)
		return 1
	}
	return 0
}

// overlay applies the SMTP command line flags over the loaded configuration.
func overlay(smtp *config.SMTPConfig, o *options) {
	if o.host != "" {
		smtp.Host = o.host
	}
	if o.username != "" {
		smtp.Username = o.username
	}
	if o.password != "" {
		smtp.Password = o.password
	}
	if o.email != "" {
		smtp.Email = o.email
	}
}

func newRunner(cfg *config.Config, log *logger.Logger, metrics *observability.Metrics, out io.Writer) (*runner.Runner, func(), error) {
	mode, err := dimension.ParseMatchMode(cfg.ProductMatch)
	if err != nil {
		return nil, nil, err
	}

	r := &runner.Runner{
		Open: func(ctx context.Context) (runner.Store, error) {
			repo, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return nil, err
			}
			return repo, nil
		},
		Fetcher:      crawler.NewClient(cfg.FetchTimeout, cfg.UserAgent),
		Extractor:    crawler.NewParser(),
		Lock:         lock.Noop{},
		Metrics:      metrics,
		Logger:       log,
		Out:          out,
		ProductMatch: mode,
	}

	cleanup := func() {}
	if cfg.RedisURL != "" {
		l, err := lock.NewRedis(cfg.RedisURL, cfg.LockTTL)
		if err != nil {
			return nil, nil, err
		}
		r.Lock = l
		cleanup = func() { l.Close() }
	}
	return r, cleanup, nil
}
