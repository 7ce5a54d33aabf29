// Command authzctl inspects the permission catalog, evaluates offline
// authorization checks and triggers permission maintenance jobs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	authzcli "github.com/tenantdesk/tenantdesk/cmd/authzctl/cli"
	"github.com/tenantdesk/tenantdesk/internal/rbac"
)

func main() {
	cmd := &cli.Command{
		Name:  "authzctl",
		Usage: "Permission catalog and authorization tooling",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "catalog",
				Aliases: []string{"c"},
				Usage:   "Catalog YAML file; the embedded catalog is used when empty",
				Sources: cli.EnvVars("RBAC_CATALOG_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "catalog",
				Usage: "Print resources and the permission names they expand to",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "text, json or yaml"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					catalog, err := rbac.LoadCatalogFile(cmd.String("catalog"))
					if err != nil {
						return err
					}
					return authzcli.WriteCatalog(os.Stdout, catalog, cmd.String("format"))
				},
			},
			{
				Name:  "check",
				Usage: "Evaluate an action against a permission list without a database",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "user-id", Value: 1, Usage: "Acting user id"},
					&cli.BoolFlag{Name: "admin", Usage: "Treat the user as administrator"},
					&cli.StringFlag{Name: "resource", Aliases: []string{"r"}, Required: true},
					&cli.StringFlag{Name: "action", Aliases: []string{"a"}, Required: true},
					&cli.StringSliceFlag{Name: "perm", Aliases: []string{"p"}, Usage: "Granted permission; repeatable or comma-separated"},
					&cli.StringFlag{Name: "record", Usage: `Record as JSON, e.g. {"user_id": 1}`},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					catalog, err := rbac.LoadCatalogFile(cmd.String("catalog"))
					if err != nil {
						return err
					}
					_, err = authzcli.Check(os.Stdout, catalog, authzcli.CheckInput{
						UserID:      int64(cmd.Int("user-id")),
						Admin:       cmd.Bool("admin"),
						Resource:    cmd.String("resource"),
						Action:      cmd.String("action"),
						Permissions: cmd.StringSlice("perm"),
						Record:      cmd.String("record"),
					})
					return err
				},
			},
			{
				Name:  "jobs",
				Usage: "Trigger and inspect permission maintenance jobs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "redis", Value: "127.0.0.1:6379", Sources: cli.EnvVars("REDIS_ADDR")},
				},
				Commands: []*cli.Command{
					{
						Name:      "trigger",
						Usage:     "Enqueue rbac:catalog_sync or rbac:cache_invalidate",
						ArgsUsage: "<task-type>",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "user-id", Usage: "Limit cache invalidation to one user"},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							jc := authzcli.NewJobsCLI(cmd.String("redis"))
							defer func() { _ = jc.Close() }()
							info, err := jc.Trigger(ctx, cmd.Args().First(), int64(cmd.Int("user-id")))
							if err != nil {
								return err
							}
							fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
							return nil
						},
					},
					{
						Name:  "stats",
						Usage: "Show default queue depth",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							jc := authzcli.NewJobsCLI(cmd.String("redis"))
							defer func() { _ = jc.Close() }()
							stats, err := jc.InspectQueue(ctx)
							if err != nil {
								return err
							}
							fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
								stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
							return nil
						},
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("authzctl", slog.Any("error", err))
		os.Exit(1)
	}
}
