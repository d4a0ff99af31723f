package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/console"
	"github.com/starford/raido/internal/filters"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/record"
	"github.com/starford/raido/internal/resources"
	"github.com/starford/raido/internal/session"
	"github.com/starford/raido/internal/transport"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// newConsole builds a ready-to-use console client from config and flags.
func newConsole(cmd *cli.Command) (*console.Console, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	reg := resources.Default()
	if cfg.Resources.Path != "" {
		reg, err = resources.Load(cfg.Resources.Path)
		if err != nil {
			return nil, fmt.Errorf("load resource registry: %w", err)
		}
	}

	sess := session.New()
	sess.OnUnauthorized(func() {
		fmt.Fprintln(os.Stderr, "session expired: run `raido login` again")
	})
	if token := cmd.String("token"); token != "" {
		sess.Set(token, time.Now().Add(24*time.Hour))
	}

	client := transport.New(cfg.API.BaseURL, cfg.API.Timeout, sess, transport.WithLogger(logger))

	return console.New(client, reg, sess, logger,
		console.WithCacheCapacity(cfg.Cache.Capacity),
	), nil
}

func listState(cmd *cli.Command) filters.State {
	return filters.State{
		Search:    cmd.String("search"),
		Status:    cmd.String("status"),
		Payment:   cmd.String("payment"),
		Category:  cmd.String("category"),
		DateRange: cmd.String("range"),
		Page:      int(cmd.Int("page")),
		Limit:     int(cmd.Int("limit")),
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runList(ctx context.Context, cmd *cli.Command) error {
	con, err := newConsole(cmd)
	if err != nil {
		return err
	}
	resource := cmd.Args().First()
	if resource == "" {
		return fmt.Errorf("usage: raido list <resource>")
	}

	st := listState(cmd)
	page, err := con.List(ctx, resource, st)
	if err != nil {
		return err
	}
	if err := printJSON(page); err != nil {
		return err
	}

	interval := cmd.Duration("watch")
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			con.InvalidateResource(resource)
			page, err := con.List(ctx, resource, st)
			if err != nil {
				fmt.Fprintln(os.Stderr, "refresh failed:", err)
				continue
			}
			if err := printJSON(page); err != nil {
				return err
			}
		}
	}
}

func runGet(ctx context.Context, cmd *cli.Command) error {
	con, err := newConsole(cmd)
	if err != nil {
		return err
	}
	resource, id := cmd.Args().Get(0), cmd.Args().Get(1)
	if resource == "" || id == "" {
		return fmt.Errorf("usage: raido get <resource> <id>")
	}
	rec, err := con.Get(ctx, resource, id)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func readPayload(cmd *cli.Command) (record.Record, error) {
	raw := cmd.String("data")
	if raw == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = string(data)
	}
	if raw == "" {
		return nil, nil
	}
	var rec record.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	return rec, nil
}

func runCreate(ctx context.Context, cmd *cli.Command) error {
	con, err := newConsole(cmd)
	if err != nil {
		return err
	}
	resource := cmd.Args().First()
	if resource == "" {
		return fmt.Errorf("usage: raido create <resource> --data '{...}'")
	}
	payload, err := readPayload(cmd)
	if err != nil {
		return err
	}
	rec, err := con.Create(ctx, resource, payload)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func runUpdate(ctx context.Context, cmd *cli.Command) error {
	con, err := newConsole(cmd)
	if err != nil {
		return err
	}
	resource, id := cmd.Args().Get(0), cmd.Args().Get(1)
	if resource == "" || id == "" {
		return fmt.Errorf("usage: raido update <resource> <id> --data '{...}'")
	}
	payload, err := readPayload(cmd)
	if err != nil {
		return err
	}
	rec, err := con.Update(ctx, resource, id, payload)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func runDelete(ctx context.Context, cmd *cli.Command) error {
	con, err := newConsole(cmd)
	if err != nil {
		return err
	}
	resource, id := cmd.Args().Get(0), cmd.Args().Get(1)
	if resource == "" || id == "" {
		return fmt.Errorf("usage: raido delete <resource> <id>")
	}
	if err := con.Delete(ctx, resource, id); err != nil {
		return err
	}
	fmt.Printf("deleted: %s/%s\n", resource, id)
	return nil
}

func runTransition(ctx context.Context, cmd *cli.Command) error {
	con, err := newConsole(cmd)
	if err != nil {
		return err
	}
	resource, id, action := cmd.Args().Get(0), cmd.Args().Get(1), cmd.Args().Get(2)
	if resource == "" || id == "" || action == "" {
		return fmt.Errorf("usage: raido transition <resource> <id> <action>")
	}
	payload, err := readPayload(cmd)
	if err != nil {
		return err
	}
	rec, err := con.Transition(ctx, resource, id, action, payload)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	con, err := newConsole(cmd)
	if err != nil {
		return err
	}
	resource := cmd.Args().First()
	if resource == "" {
		return fmt.Errorf("usage: raido export <resource>")
	}

	body, _, err := con.Export(ctx, resource, cmd.String("format"), listState(cmd))
	if err != nil {
		return err
	}
	defer body.Close()

	out := os.Stdout
	if path := cmd.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func runLogin(ctx context.Context, cmd *cli.Command) error {
	con, err := newConsole(cmd)
	if err != nil {
		return err
	}
	email, password := cmd.String("email"), cmd.String("password")
	if email == "" || password == "" {
		return fmt.Errorf("usage: raido login --email <email> --password <password>")
	}
	if err := con.Login(ctx, email, password); err != nil {
		return err
	}
	fmt.Println("login ok")
	return nil
}

func runStub(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunStub(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("stub run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	con, err := newConsole(cmd)
	if err != nil {
		return err
	}
	return mcpserver.New(con).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
	tokenFlag := &cli.StringFlag{
		Name:    "token",
		Usage:   "Bearer token for the admin API",
		Sources: cli.EnvVars("RAIDO_TOKEN"),
	}
	dataFlag := &cli.StringFlag{
		Name:    "data",
		Aliases: []string{"d"},
		Usage:   "JSON payload ('-' to read from stdin)",
	}
	listFlags := []cli.Flag{
		configFlag, tokenFlag,
		&cli.StringFlag{Name: "search", Usage: "Free-text search filter"},
		&cli.StringFlag{Name: "status", Value: filters.Unset, Usage: "Status filter"},
		&cli.StringFlag{Name: "payment", Value: filters.Unset, Usage: "Payment method filter"},
		&cli.StringFlag{Name: "category", Value: filters.Unset, Usage: "Category filter"},
		&cli.StringFlag{Name: "range", Value: filters.RangeAll, Usage: "Date range preset (today, week, month, quarter, year, all)"},
		&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
		&cli.IntFlag{Name: "limit", Value: filters.DefaultLimit, Usage: "Page size"},
	}

	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Admin console client for the delivery platform: query, mutate and export backend resources",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List records of a resource",
				ArgsUsage: "<resource>",
				Action:    runList,
				Flags: append(listFlags,
					&cli.DurationFlag{Name: "watch", Usage: "Re-fetch and print at this interval (e.g. 5s)"},
				),
			},
			{
				Name:      "get",
				Usage:     "Fetch a single record",
				ArgsUsage: "<resource> <id>",
				Action:    runGet,
				Flags:     []cli.Flag{configFlag, tokenFlag},
			},
			{
				Name:      "create",
				Usage:     "Create a record",
				ArgsUsage: "<resource>",
				Action:    runCreate,
				Flags:     []cli.Flag{configFlag, tokenFlag, dataFlag},
			},
			{
				Name:      "update",
				Usage:     "Update a record",
				ArgsUsage: "<resource> <id>",
				Action:    runUpdate,
				Flags:     []cli.Flag{configFlag, tokenFlag, dataFlag},
			},
			{
				Name:      "delete",
				Usage:     "Delete a record",
				ArgsUsage: "<resource> <id>",
				Action:    runDelete,
				Flags:     []cli.Flag{configFlag, tokenFlag},
			},
			{
				Name:      "transition",
				Usage:     "Apply a state transition (status, verify, reject, toggle)",
				ArgsUsage: "<resource> <id> <action>",
				Action:    runTransition,
				Flags:     []cli.Flag{configFlag, tokenFlag, dataFlag},
			},
			{
				Name:      "export",
				Usage:     "Export filtered records",
				ArgsUsage: "<resource>",
				Action:    runExport,
				Flags: append(listFlags,
					&cli.StringFlag{Name: "format", Value: "csv", Usage: "Export format"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (default stdout)"},
				),
			},
			{
				Name:   "login",
				Usage:  "Authenticate against the admin API",
				Action: runLogin,
				Flags: []cli.Flag{
					configFlag, tokenFlag,
					&cli.StringFlag{Name: "email", Sources: cli.EnvVars("RAIDO_EMAIL")},
					&cli.StringFlag{Name: "password", Sources: cli.EnvVars("RAIDO_PASSWORD")},
				},
			},
			{
				Name:   "stub",
				Usage:  "Run the development stub backend",
				Action: runStub,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the console tools over MCP on stdin/stdout",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag, tokenFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
