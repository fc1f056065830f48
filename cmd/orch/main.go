package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"orchboard/internal/app"
	"orchboard/internal/config"
	"orchboard/internal/db"
	"orchboard/internal/engine"
	"orchboard/internal/repo"
	"orchboard/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "orch",
	Short: "Orchboard CLI",
	Long: `Orchboard is the operations dashboard for coding-agent runs.
- Projects own tasks; operators queue work as instructions or by promoting suggestions.
- Runs are agent executions against a task. The concurrency ceiling (runs.max_concurrent) is reported, never enforced here.
- Evaluations and tool calls recorded against runs feed the analytics window.
- Event log: every change is appended; view it with 'orch log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if err := app.LoadEnv(workspace); err != nil {
			return err
		}
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ORCHBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (default <workspace>/orchboard.yml)")
	rootCmd.PersistentFlags().String("db", "", "database file (default <workspace>/.orchboard/orchboard.db)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "operator", "actor identifier recorded in the event log")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(runningCmd())
	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(instructCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(evaluationCmd())
	rootCmd.AddCommand(improvementCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(app.Overrides{Addr: addr, BasePath: basePath})
			if err != nil {
				return err
			}
			actx, err := app.Open(cmd.Context(), app.OpenOptions{
				Workspace: viper.GetString("workspace"),
				DBPath:    viper.GetString("db"),
				Config:    cfg,
				Logger:    log.Default(),
			})
			if err != nil {
				return err
			}
			defer actx.Close()
			authCfg := server.AuthConfig{
				APIKey:          cfg.Auth.APIKey,
				JWTSecret:       cfg.Auth.JWTSecret,
				SameOriginHosts: cfg.Auth.SameOriginHosts,
				Logger:          log.Default(),
			}
			if authCfg.APIKey == "" {
				log.Printf("WARNING: no dashboard api key configured (ORCHBOARD_API_KEY); only stored API keys, signed tokens and same-origin requests are admitted")
			}
			handler, err := server.New(server.Config{
				Engine:   actx.Engine,
				BasePath: cfg.Server.BasePath,
				Auth:     authCfg,
				Metrics:  actx.Metrics,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Orchboard API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
				cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default server.base_path)")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect orchboard.yml",
		Long:  "Config is read from orchboard.yml in the workspace; ORCHBOARD_* environment variables and flags override it.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show resolved config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(app.Overrides{})
			if err != nil {
				return err
			}
			shown := *cfg
			shown.Auth.APIKey = redact(shown.Auth.APIKey)
			shown.Auth.JWTSecret = redact(shown.Auth.JWTSecret)
			return printJSONOrTable(shown)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate resolved config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := resolveConfig(app.Overrides{})
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force, generateKey bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default orchboard.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			if generateKey {
				buf := make([]byte, 24)
				if _, err := rand.Read(buf); err != nil {
					return err
				}
				key := hex.EncodeToString(buf)
				envPath := filepath.Join(workspace, ".env")
				if err := setEnvValue(envPath, "ORCHBOARD_API_KEY", key); err != nil {
					return err
				}
				fmt.Println("dashboard key saved to", envPath)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().BoolVar(&generateKey, "generate-key", false, "generate a dashboard key into .env")
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every project, task, suggestion, run and profile change appended in order.",
	}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.RecentEvents(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := newTable("ID", "TS", "Type", "Project", "Entity", "Actor")
				for _, ev := range events {
					tw.AppendRow(row(ev.ID, ev.TS, ev.Type, ev.ProjectID, ev.EntityKind+" "+ev.EntityID, ev.ActorID))
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	return cmd
}

// --- helpers ---

func resolveConfig(ov app.Overrides) (*config.Config, error) {
	if ov.MaxConcurrent == 0 {
		ov.MaxConcurrent = viper.GetInt("max-concurrent")
	}
	if ov.APIKey == "" {
		ov.APIKey = viper.GetString("api-key")
	}
	if ov.JWTSecret == "" {
		ov.JWTSecret = viper.GetString("jwt-secret")
	}
	if len(ov.SameOriginHosts) == 0 {
		ov.SameOriginHosts = splitList(viper.GetString("same-origin-hosts"))
	}
	return app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"), ov)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	cfg, err := resolveConfig(app.Overrides{})
	if err != nil {
		return err
	}
	actx, err := app.Open(ctx, app.OpenOptions{
		Workspace: viper.GetString("workspace"),
		DBPath:    viper.GetString("db"),
		Config:    cfg,
	})
	if err != nil {
		return err
	}
	defer actx.Close()
	return fn(ctx, actx.Engine)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
