package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/target/todo-platform/config"
	"github.com/target/todo-platform/internal/bootstrap"
	"github.com/target/todo-platform/internal/data"
	"github.com/target/todo-platform/internal/devseed"
	"github.com/target/todo-platform/internal/migrate"
	"github.com/target/todo-platform/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	// needsConfig is false for commands that work without the environment.
	needsConfig bool
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	In     io.Reader
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage(os.Stderr)
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx := &commandContext{Ctx: ctx, Logger: logger, Out: os.Stdout, In: os.Stdin}
	if cmd.needsConfig {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			logger.ErrorContext(ctx, "load config", "error", err)
			stop()
			os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
		}
		cmdCtx.Config = cfg
	}

	if err := cmd.run(cmdCtx, os.Args[2:]); err != nil {
		logger.ErrorContext(ctx, "command failed", "command", cmdName, "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Apply database migrations (or list them with --status)",
			needsConfig: true,
			run:         runMigrate,
		},
		"hash-password": {
			name:        "hash-password",
			description: "Print the bcrypt hash of a password read from stdin or --password",
			run:         runHashPassword,
		},
		"seed-users": {
			name:        "seed-users",
			description: "Create the development admin and user accounts",
			needsConfig: true,
			run:         runSeedUsers,
		},
		"issue-token": {
			name:        "issue-token",
			description: "Issue a bearer token for a username with the configured signing secret",
			needsConfig: true,
			run:         runIssueToken,
		},
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: todoplatform-admin <command> [flags]\n\nAvailable commands:\n")
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, cmds[name].description)
	}
}

type migrateOptions struct {
	Timeout time.Duration
	Status  bool
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for migrations to complete")
	fs.BoolVar(&opts.Status, "status", false, "List migrations and whether they are applied, without applying anything")
	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runMigrate(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	if opts.Status {
		status, err := migrate.Status(ctx, db)
		if err != nil {
			return err
		}
		return printMigrationStatus(cmdCtx.Out, status)
	}

	if err := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); err != nil {
		return err
	}
	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

func printMigrationStatus(w io.Writer, status []migrate.Migration) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED")
	for _, m := range status {
		fmt.Fprintf(tw, "%s\t%t\n", m.Version, m.Applied)
	}
	return tw.Flush()
}

type hashOptions struct {
	Password string
	Cost     int
}

func parseHashFlags(args []string) (hashOptions, error) {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := hashOptions{}
	fs.StringVar(&opts.Password, "password", "", "Password to hash; read from stdin when empty")
	fs.IntVar(&opts.Cost, "cost", 10, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return hashOptions{}, err
	}
	return opts, nil
}

func runHashPassword(cmdCtx *commandContext, args []string) error {
	opts, err := parseHashFlags(args)
	if err != nil {
		return err
	}
	password := opts.Password
	if password == "" {
		password, err = readSecret(cmdCtx.In)
		if err != nil {
			return err
		}
	}
	hash, err := service.HashSecret(password, opts.Cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmdCtx.Out, hash)
	return err
}

func readSecret(r io.Reader) (string, error) {
	if r == nil {
		return "", errors.New("no password given")
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given")
	}
	return line, nil
}

type seedOptions struct {
	Secret      string
	AllowRemote bool
	Migrate     bool
}

func parseSeedFlags(args []string, defaultSecret string) (seedOptions, error) {
	fs := flag.NewFlagSet("seed-users", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := seedOptions{}
	fs.StringVar(&opts.Secret, "secret", defaultSecret, "Password given to new accounts")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false, "Allow seeding a database that is not on localhost")
	fs.BoolVar(&opts.Migrate, "migrate", true, "Apply migrations before seeding")
	if err := fs.Parse(args); err != nil {
		return seedOptions{}, err
	}
	if opts.Secret == "" {
		return seedOptions{}, errors.New("--secret must not be empty")
	}
	return opts, nil
}

func runSeedUsers(cmdCtx *commandContext, args []string) error {
	opts, err := parseSeedFlags(args, cmdCtx.Config.Auth.DemoLogin.Secret)
	if err != nil {
		return err
	}
	if isLikelyRemoteHost(cmdCtx.Config.Postgres.Host) && !opts.AllowRemote {
		return fmt.Errorf(
			"refusing to seed potentially remote database host %q; re-run with --allow-remote if this is intentional",
			cmdCtx.Config.Postgres.Host,
		)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 2*time.Minute)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()
	if opts.Migrate {
		if err := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); err != nil {
			return err
		}
	}

	users := service.NewUserService(service.UserServiceOptions{
		Repo:       data.NewUserRepo(db),
		BcryptCost: cmdCtx.Config.Auth.BcryptCost,
		Logger:     cmdCtx.Logger,
	})
	res, err := devseed.Run(ctx, users, devseed.DefaultAccounts(opts.Secret), cmdCtx.Logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmdCtx.Out, "created %d, existing %d, admin grants %d\n", res.Created, res.Existing, res.Granted)
	return err
}

type tokenOptions struct {
	Username string
	TTL      time.Duration
}

func parseTokenFlags(args []string, defaultTTL time.Duration) (tokenOptions, error) {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := tokenOptions{}
	fs.StringVar(&opts.Username, "username", "", "Subject of the token")
	fs.DurationVar(&opts.TTL, "ttl", defaultTTL, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return tokenOptions{}, err
	}
	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" {
		return tokenOptions{}, errors.New("--username is required")
	}
	if opts.TTL <= 0 {
		return tokenOptions{}, errors.New("--ttl must be greater than zero")
	}
	return opts, nil
}

func runIssueToken(cmdCtx *commandContext, args []string) error {
	tokenCfg := cmdCtx.Config.Token
	opts, err := parseTokenFlags(args, tokenCfg.TTL)
	if err != nil {
		return err
	}
	if tokenCfg.Secret == "" {
		return errors.New("TOKEN_SECRET is not set")
	}
	authority := service.NewTokenAuthority(service.TokenAuthorityOptions{
		Config: service.TokenAuthorityConfig{
			Secret: []byte(tokenCfg.Secret),
			TTL:    opts.TTL,
			Issuer: tokenCfg.Issuer,
		},
		Telemetry: service.Telemetry{Logger: cmdCtx.Logger},
	})
	token, err := authority.Issue(opts.Username)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmdCtx.Out, token)
	return err
}

// isLikelyRemoteHost reports whether host is anything other than a loopback name or address.
func isLikelyRemoteHost(host string) bool {
	host = strings.TrimSpace(host)
	if host == "" || strings.EqualFold(host, "localhost") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}
