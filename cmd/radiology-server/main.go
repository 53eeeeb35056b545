package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shorouk/radiology/internal/config"
	"github.com/shorouk/radiology/internal/domain/signature"
	"github.com/shorouk/radiology/internal/domain/user"
	"github.com/shorouk/radiology/internal/platform/db"
	"github.com/shorouk/radiology/internal/platform/hipaa"
	"github.com/shorouk/radiology/migrations"
	"github.com/shorouk/radiology/pkg/formfield"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "radiology-server",
		Short: "Radiology department record system",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// withMigrator loads config, opens a pool and hands fn a migrator on the
// configured schema.
func withMigrator(fn func(ctx context.Context, m *db.Migrator, schema string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, migrations.FS, cfg.DBSchema), cfg.DBSchema)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator, schema string) error {
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator, schema string) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("Migration status for schema: %s\n", schema)
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return withMigrator(func(ctx context.Context, m *db.Migrator, schema string) error {
				count, err := m.Down(ctx, steps)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				fmt.Printf("Rolled back %d migration(s) on schema %s.\n", count, schema)
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(downCmd)

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user, typically the first administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := user.Input{}
			in.Username, _ = cmd.Flags().GetString("username")
			in.Email, _ = cmd.Flags().GetString("email")
			in.FullName, _ = cmd.Flags().GetString("full-name")
			in.Role, _ = cmd.Flags().GetString("role")
			in.Password, _ = cmd.Flags().GetString("password")
			if in.Password == "" {
				in.Password = os.Getenv("RADIOLOGY_USER_PASSWORD")
			}
			in.IsActive = formfield.OptionalFlag{Set: true, Value: true}
			if path, _ := cmd.Flags().GetString("signature-file"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read signature: %w", err)
				}
				in.SignatureData = string(data)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			key, err := cfg.EncryptionKey()
			if err != nil {
				return err
			}
			cipher, err := hipaa.NewFieldCipher(key)
			if err != nil {
				return err
			}
			sigs := signature.NewService(signature.NewRepoPG(pool), cipher)
			svc := user.NewService(user.NewRepoPG(pool), sigs, db.NewTxManager(pool), zerolog.Nop())
			u, err := svc.Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Printf("Created %s %s (%s)\n", strings.ToLower(u.DisplayRole()), u.Username, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("email", "", "Email address")
	createCmd.Flags().String("full-name", "", "Display name")
	createCmd.Flags().String("role", "admin", "admin, nurse or physician")
	createCmd.Flags().String("password", "", "Password (or set RADIOLOGY_USER_PASSWORD)")
	createCmd.Flags().String("signature-file", "", "File holding the signature as an image data URL")

	cmd.AddCommand(createCmd)
	return cmd
}
