package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/opsboard/opsboard/internal/app"
	"github.com/opsboard/opsboard/internal/auth"
	"github.com/opsboard/opsboard/internal/platform/db"
	"github.com/opsboard/opsboard/internal/users"
)

// UserCreator provisions accounts.
type UserCreator interface {
	CreateUser(ctx context.Context, in users.CreateInput) (users.User, error)
}

// Options wires the command tree. Zero fields fall back to the real backends.
type Options struct {
	Stdout      io.Writer
	Stderr      io.Writer
	LoadConfig  func() (*app.Config, error)
	Migrate     func(dsn string) error
	MigrateDown func(dsn string, steps int) error
	Users       func(ctx context.Context, cfg *app.Config) (UserCreator, func(), error)
	Jobs        func(cfg *app.Config) (*JobsCLI, error)
}

func (o *Options) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.LoadConfig == nil {
		o.LoadConfig = app.LoadConfig
	}
	if o.Migrate == nil {
		o.Migrate = db.Migrate
	}
	if o.MigrateDown == nil {
		o.MigrateDown = db.MigrateDown
	}
	if o.Users == nil {
		o.Users = func(ctx context.Context, cfg *app.Config) (UserCreator, func(), error) {
			pool, err := db.New(ctx, cfg.PGDSN)
			if err != nil {
				return nil, nil, err
			}
			return users.NewService(users.NewRepository(pool)), pool.Close, nil
		}
	}
	if o.Jobs == nil {
		o.Jobs = func(cfg *app.Config) (*JobsCLI, error) {
			return NewJobsCLI(cfg.RedisAddr)
		}
	}
}

// NewRootCommand builds the opsctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	opts.defaults()
	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operational helpers for the opsboard service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)
	root.AddCommand(migrateCommand(&opts), usersCommand(&opts), jobsCommand(&opts))
	return root
}

func migrateCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Apply or roll back schema migrations"}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			if err := opts.Migrate(cfg.PGDSN); err != nil {
				return err
			}
			fmt.Fprintln(opts.Stdout, "migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			if err := opts.MigrateDown(cfg.PGDSN, steps); err != nil {
				return err
			}
			fmt.Fprintf(opts.Stdout, "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)
	return cmd
}

func usersCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage dashboard accounts"}

	var in users.CreateInput
	var role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("OPSCTL_PASSWORD")
			}
			in.Role = auth.Role(strings.ToLower(strings.TrimSpace(role)))
			if err := validator.New().Struct(in); err != nil {
				return fmt.Errorf("invalid user: %w", err)
			}
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := opts.Users(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}
			user, err := svc.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			return writeJSON(opts.Stdout, user)
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "login email")
	create.Flags().StringVar(&in.Name, "name", "", "display name")
	create.Flags().StringVar(&in.Password, "password", "", "initial password (defaults to $OPSCTL_PASSWORD)")
	create.Flags().StringVar(&role, "role", string(auth.RoleUser), "admin or user")
	_ = create.MarkFlagRequired("email")
	cmd.AddCommand(create)
	return cmd
}

func jobsCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{Use: "jobs", Short: "Inspect and trigger background jobs"}

	var reason string
	trigger := &cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(opts, func(c *JobsCLI) error {
				info, err := c.Trigger(cmd.Context(), args[0], reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
				return nil
			})
		},
	}
	trigger.Flags().StringVar(&reason, "reason", "manual", "reason recorded in the task payload")

	var asJSON bool
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(opts, func(c *JobsCLI) error {
				s, err := c.InspectQueue(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(opts.Stdout, s)
				}
				p := message.NewPrinter(language.English)
				p.Fprintf(opts.Stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d failed=%d processed=%d\n",
					s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Failed, s.Processed)
				return nil
			})
		},
	}
	stats.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	var size int
	scheduled := &cobra.Command{
		Use:   "scheduled",
		Short: "List scheduled tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(opts, func(c *JobsCLI) error {
				tasks, err := c.ListScheduled(cmd.Context(), size)
				if err != nil {
					return err
				}
				for _, t := range tasks {
					fmt.Fprintf(opts.Stdout, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
	scheduled.Flags().IntVar(&size, "size", 10, "page size")

	cmd.AddCommand(trigger, stats, scheduled)
	return cmd
}

func withJobs(opts *Options, fn func(*JobsCLI) error) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	c, err := opts.Jobs(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			fmt.Fprintln(opts.Stderr, "close jobs client:", closeErr)
		}
	}()
	return fn(c)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
