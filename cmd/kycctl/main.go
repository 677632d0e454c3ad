package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Git-me-Harish/Video-KYC/cmd/kycctl/admin"
	"github.com/Git-me-Harish/Video-KYC/internal/app"
	"github.com/Git-me-Harish/Video-KYC/internal/auth"
)

func main() {
	var (
		cfg    *app.Config
		logger *slog.Logger
	)
	ctl := &cli.App{
		Name:  "kycctl",
		Usage: "Administer the Video KYC gateway",
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger = app.NewLogger(cfg)
			return nil
		},
		Commands: []*cli.Command{
			migrateCmd(&cfg, &logger),
			usersCmd(&cfg, &logger),
			jobsCmd(&cfg),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := ctl.RunContext(ctx, os.Args); err != nil {
		slog.Default().Error("kycctl failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func migrateCmd(cfg **app.Config, logger **slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations to the credential store",
		Action: func(c *cli.Context) error {
			_, closeStore, err := app.OpenUserStore(c.Context, *cfg, *logger, true)
			if err != nil {
				return err
			}
			closeStore()
			return nil
		},
	}
}

func usersCmd(cfg **app.Config, logger **slog.Logger) *cli.Command {
	var fullName, email string
	return &cli.Command{
		Name:  "users",
		Usage: "Manage user accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a user (password is prompted, or read from stdin when piped)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Full name", Destination: &fullName, Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Login email", Destination: &email, Required: true},
				},
				Action: func(c *cli.Context) error {
					repo, closeStore, err := app.OpenUserStore(c.Context, *cfg, *logger, (*cfg).DBAutoMigrate)
					if err != nil {
						return err
					}
					defer closeStore()
					hasher, err := auth.NewBcryptHasher((*cfg).BcryptCost)
					if err != nil {
						return err
					}
					user, err := admin.AddUser(c.Context, auth.NewService(repo, hasher), fullName, email, admin.StdinPassword(os.Stderr))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created user %s (%s)\n", user.ID, user.Email)
					return nil
				},
			},
		},
	}
}

func jobsCmd(cfg **app.Config) *cli.Command {
	var requestedBy string
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect and trigger queued verification runs",
		Subcommands: []*cli.Command{
			{
				Name:  "enqueue",
				Usage: "Queue a verification run",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "requested-by", Usage: "Label recorded with the task", Destination: &requestedBy},
				},
				Action: func(c *cli.Context) error {
					jobsCLI := admin.NewJobsCLI((*cfg).RedisAddr)
					defer jobsCLI.Close()
					id, err := jobsCLI.Trigger(c.Context, requestedBy)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "queued task %s\n", id)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show default queue statistics",
				Action: func(c *cli.Context) error {
					jobsCLI := admin.NewJobsCLI((*cfg).RedisAddr)
					defer jobsCLI.Close()
					stats, err := jobsCLI.InspectQueue()
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "queue=%s pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
						stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Failed)
					return nil
				},
			},
		},
	}
}
