package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"grantline/internal/app"
	"grantline/internal/config"
	"grantline/internal/server"
)

const jwtSecretEnv = "GRANTLINE_JWT_SECRET"

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	cmd.AddCommand(configInitCmd())
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var institution string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default grantline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(institution)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&institution, "institution", "Research Office", "institution name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret != "" {
				cfg.Server.JWTSecret = "********"
			}
			if jsonOutput() {
				return printJSON(cfg)
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate grantline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Println("Config valid")
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "API bearer tokens"}
	cmd.AddCommand(tokenSecretCmd())
	cmd.AddCommand(tokenIssueCmd())
	return cmd
}

func tokenSecretCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate the signing secret into the workspace .env",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(viper.GetString("workspace"), ".env")
			env, err := godotenv.Read(path)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
				env = map[string]string{}
			}
			if env[jwtSecretEnv] != "" && !force {
				return fmt.Errorf("%s already set in %s (use --force to rotate)", jwtSecretEnv, path)
			}
			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				return err
			}
			env[jwtSecretEnv] = hex.EncodeToString(buf)
			if err := godotenv.Write(env, path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s to %s\n", jwtSecretEnv, path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing secret")
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := jwtSecret()
			if err != nil {
				return err
			}
			if subject == "" {
				subject = actorID()
			}
			token, err := server.IssueToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(map[string]string{"actor_id": subject, "token": token})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "actor id carried by the token (defaults to --actor-id)")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
	return cmd
}

// jwtSecret prefers the environment (including the workspace .env) over
// grantline.yml.
func jwtSecret() (string, error) {
	if s := viper.GetString("jwt-secret"); s != "" {
		return s, nil
	}
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return "", err
	}
	return cfg.Server.JWTSecret, nil
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var noAuth bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := workspaceOptions()
			opts.Metrics = true
			return withWorkspace(cmd.Context(), opts, func(ctx context.Context, ws *app.Workspace) error {
				if addr == "" {
					addr = ws.Config.Server.Addr
				}
				if basePath == "" {
					basePath = ws.Config.Server.BasePath
				}
				secret, err := jwtSecret()
				if err != nil {
					return err
				}
				if secret == "" && !noAuth {
					return fmt.Errorf("%s is required for bearer auth (run grantline token secret, or pass --no-auth)", jwtSecretEnv)
				}
				if noAuth {
					secret = ""
					ws.Logger.Warn("serving without authentication; actors come from the X-Actor-Id header")
				}
				handler, err := server.New(server.Config{
					Engine:   ws.Engine,
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: secret, Logger: ws.Logger},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				ws.Logger.Info("serving grantline API",
					zap.String("addr", addr),
					zap.String("base_path", basePath),
					zap.Bool("auth", secret != ""))
				fmt.Printf("Serving Grantline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs, metrics at /metrics)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to server.base_path)")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "trust the X-Actor-Id header instead of bearer tokens")
	return cmd
}
