package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fernandezvara/userkit"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Out         io.Writer
}

func newRootCommand() *Command {
	root := &Command{
		Name:        "userkit",
		Description: "userkit - CMS admin users, roles and plugin grants",
		Subcommands: make(map[string]*Command),
		Out:         os.Stdout,
	}

	root.Subcommands["migrate"] = newMigrateCommand(root.Out)
	root.Subcommands["create-first"] = newCreateFirstCommand(root.Out)
	root.Subcommands["grant"] = newGrantCommand(root.Out)
	root.Subcommands["plugins"] = newPluginsCommand(root.Out)

	return root
}

// Execute runs the subcommand named by args[0].
func (c *Command) Execute(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		c.usage()
		return nil
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

func (c *Command) usage() {
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(c.Out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(c.Out, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(c.Out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
}

// env is what every command needs once the configuration is loaded.
type env struct {
	cfg     *userkit.Config
	log     *logrus.Logger
	store   *userkit.PostgresStore
	service *userkit.Service
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.log.WithError(err).Warn("failed to close database")
	}
}

func openEnv(configPath string) (*env, error) {
	cfg, err := userkit.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}

	store, err := userkit.OpenPostgresStore(cfg.DatabaseURL, cfg.Pool)
	if err != nil {
		return nil, err
	}

	opts := append(cfg.Options(), userkit.WithLogger(logger))
	return &env{
		cfg:     cfg,
		log:     logger,
		store:   store,
		service: userkit.NewService(catalog, store, opts...),
	}, nil
}

func newMigrateCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "migrate",
		Description: "Apply database migrations",
	}

	cmd.Run = func(args []string) error {
		fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
		configPath := fs.String("config", "", "Path to configuration file")
		if err := fs.Parse(args); err != nil {
			return err
		}

		e, err := openEnv(*configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		applied, err := e.store.Migrate(context.Background())
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(out, "Database is up to date")
			return nil
		}
		for _, id := range applied {
			fmt.Fprintf(out, "Applied %s\n", id)
		}
		return nil
	}

	return cmd
}

func newCreateFirstCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "create-first",
		Description: "Create an admin user; the first one becomes superuser",
	}

	cmd.Run = func(args []string) error {
		fs := flag.NewFlagSet("create-first", flag.ContinueOnError)
		configPath := fs.String("config", "", "Path to configuration file")
		username := fs.String("username", "", "Username (required)")
		email := fs.String("email", "", "Email address")
		fullName := fs.String("full-name", "", "Full name")
		if err := fs.Parse(args); err != nil {
			return err
		}

		e, err := openEnv(*configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		u := &userkit.User{Username: *username, Email: *email, FullName: *fullName}
		ok, err := e.service.CreateFirst(context.Background(), u)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user is invalid: %s", strings.Join(u.Errors.FullMessages(), ", "))
		}

		superuser, err := e.service.HasRole(context.Background(), u, userkit.RoleSuperuser)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created %s (%s), superuser: %t\n", u, u.ID, superuser)
		return nil
	}

	return cmd
}

func newGrantCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "grant",
		Description: "Replace the plugin grants of a user",
	}

	cmd.Run = func(args []string) error {
		fs := flag.NewFlagSet("grant", flag.ContinueOnError)
		configPath := fs.String("config", "", "Path to configuration file")
		login := fs.String("user", "", "Username or email of the user (required)")
		plugins := fs.String("plugins", "", "Comma separated plugin names")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *login == "" {
			return fmt.Errorf("-user is required")
		}

		e, err := openEnv(*configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := context.Background()
		u, err := e.service.FindForAuthentication(ctx, *login)
		if err != nil {
			return err
		}

		var names []string
		for _, name := range strings.Split(*plugins, ",") {
			names = append(names, strings.TrimSpace(name))
		}

		result, err := e.service.SetPlugins(ctx, u, names)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Granted: %s\n", strings.Join(result.Granted, ", "))
		fmt.Fprintf(out, "Revoked: %s\n", strings.Join(result.Revoked, ", "))
		return nil
	}

	return cmd
}

func newPluginsCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "plugins",
		Description: "List registered plugins, or the active plugins of a user",
	}

	cmd.Run = func(args []string) error {
		fs := flag.NewFlagSet("plugins", flag.ContinueOnError)
		configPath := fs.String("config", "", "Path to configuration file")
		login := fs.String("user", "", "Username or email of the user")
		if err := fs.Parse(args); err != nil {
			return err
		}

		e, err := openEnv(*configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		plugins := e.service.Catalog().Registered()
		if *login != "" {
			ctx := context.Background()
			u, err := e.service.FindForAuthentication(ctx, *login)
			if err != nil {
				return err
			}
			access, err := e.service.Access(ctx, u)
			if err != nil {
				return err
			}
			plugins = access.ActivePlugins()
			fmt.Fprintf(out, "Landing URL: %s\n", access.LandingURL())
		}

		printPlugins(out, plugins)
		return nil
	}

	return cmd
}

func printPlugins(out io.Writer, plugins userkit.Plugins) {
	for _, p := range plugins {
		var flags []string
		if p.HideFromMenu {
			flags = append(flags, "hidden")
		}
		if p.AlwaysAllowed {
			flags = append(flags, "always allowed")
		}
		fmt.Fprintf(out, "  %-25s %-25s %s %s\n", p.Name, p.Title, p.URL, strings.Join(flags, ", "))
	}
}
