// Package main provides the CLI entrypoint for blastrain.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/blastrain/internal/config"
	"github.com/verte-zerg/blastrain/internal/historyui"
	"github.com/verte-zerg/blastrain/internal/logging"
	"github.com/verte-zerg/blastrain/internal/model"
	"github.com/verte-zerg/blastrain/internal/scoreapi"
	"github.com/verte-zerg/blastrain/internal/scoreserver"
	"github.com/verte-zerg/blastrain/internal/session"
	"github.com/verte-zerg/blastrain/internal/simulator"
	"github.com/verte-zerg/blastrain/internal/stats"
	"github.com/verte-zerg/blastrain/internal/store"
	"github.com/verte-zerg/blastrain/internal/tui"
)

const (
	defaultServeAddr = ":8080"
	defaultDelays    = "100,200,300,400"
)

const (
	envServeAddr = "BLASTRAIN_ADDR"
	envServeDB   = "BLASTRAIN_DB"
)

var (
	serviceURL     string
	serviceTimeout time.Duration
	accessCode     string
	sessionTTL     time.Duration
	scoring        string
	seed           int64
	logLevel       string
	logFile        string

	simulateDelays string
	simulateUser   string
	simulateFast   bool

	historyUser  string
	historyPlain bool

	serveAddr string
	serveDB   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "blastrain",
		Short:         "Electronic detonator operator trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTrainerCmd,
	}

	rootCmd.PersistentFlags().StringVar(&serviceURL, "service-url", "", "scoring service base URL")
	rootCmd.PersistentFlags().DurationVar(&serviceTimeout, "service-timeout", scoreapi.DefaultTimeout, "scoring service request timeout")
	rootCmd.PersistentFlags().StringVar(&scoring, "scoring", simulator.ScoringInversions, "scoring of out-of-order sequences (inversions or random)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "seed of the random scorer (0: time based)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&accessCode, "access-code", session.DefaultAccessCode, "access code accepted at login")
	rootCmd.Flags().DurationVar(&sessionTTL, "session-ttl", session.DefaultTTL, "session lifetime")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "log file used while the TUI is running")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

// loadConfig merges the config file into the shared flags and validates the
// result.
func loadConfig(cmd *cobra.Command) (model.Config, config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fileCfg, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "service-url", &serviceURL, fileCfg.Service.URL)
	applyDurationConfig(cmd, "service-timeout", &serviceTimeout, fileCfg.Service.Timeout)
	applyStringConfig(cmd, "scoring", &scoring, fileCfg.Simulator.Scoring)
	applyInt64Config(cmd, "seed", &seed, fileCfg.Simulator.Seed)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "access-code", &accessCode, fileCfg.Session.AccessCode)
	applyDurationConfig(cmd, "session-ttl", &sessionTTL, fileCfg.Session.TTL)

	cfg := model.Config{
		ServiceURL:     strings.TrimSpace(serviceURL),
		ServiceTimeout: serviceTimeout,
		AccessCode:     accessCode,
		SessionTTL:     sessionTTL,
		Scoring:        scoring,
		Seed:           seed,
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, fileCfg, err
	}
	if _, err := logging.ParseLevel(logLevel); err != nil {
		return cfg, fileCfg, fmt.Errorf("--log-level: %w", err)
	}
	return cfg, fileCfg, nil
}

func runTrainerCmd(cmd *cobra.Command, _ []string) error {
	cfg, fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if logFile == "" {
		logFile = config.DefaultLogPath()
	}
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	closer, err := logging.SetupFile(logFile, logLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}()

	scorer, err := simulator.ScorerByName(cfg.Scoring, cfg.Seed)
	if err != nil {
		return err
	}
	opts := tui.Options{
		Gate:    session.NewGate(cfg.AccessCode, cfg.SessionTTL, nil),
		Machine: simulator.NewMachine(scorer),
	}
	if cfg.ServiceURL != "" {
		opts.Service = scoreapi.NewClient(cfg.ServiceURL, cfg.ServiceTimeout)
	} else {
		log.Warn().Msg("no scoring service configured; results will not be saved")
	}

	log.Info().Str("service_url", cfg.ServiceURL).Str("scoring", cfg.Scoring).Msg("starting trainer")
	program := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one fire sequence without the TUI",
		Args:  cobra.NoArgs,
		RunE:  runSimulateCmd,
	}
	cmd.Flags().StringVar(&simulateDelays, "delays", defaultDelays, "comma separated delays of detonators 1-4 in ms")
	cmd.Flags().StringVar(&simulateUser, "user", "", "submit the result for this user")
	cmd.Flags().BoolVar(&simulateFast, "fast", false, "skip the firing pauses")
	return cmd
}

func runSimulateCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.SetupConsole(logLevel); err != nil {
		return err
	}
	delays, err := parseDelays(simulateDelays)
	if err != nil {
		return err
	}
	scorer, err := simulator.ScorerByName(cfg.Scoring, cfg.Seed)
	if err != nil {
		return err
	}

	machine := simulator.NewMachine(scorer)
	state, err := armedState(machine, delays)
	if err != nil {
		return err
	}

	runner := simulator.NewRunner(machine, nil)
	if simulateFast {
		runner = runner.WithIntervals(0, 0)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	state, err = runner.Fire(ctx, state, func(id int, _ simulator.State) {
		_, _ = fmt.Fprintf(out, "Detonator #%d fired\n", id)
	})
	if err != nil {
		return fmt.Errorf("fire sequence interrupted: %w", err)
	}
	if err := printOutcome(out, *state.Outcome); err != nil {
		return err
	}

	user := strings.TrimSpace(simulateUser)
	if user == "" {
		return nil
	}
	if cfg.ServiceURL == "" {
		logErrln("no scoring service configured; result not submitted")
		return nil
	}
	attempt := state.Outcome.Attempt(uuid.NewString(), user, time.Now())
	client := scoreapi.NewClient(cfg.ServiceURL, cfg.ServiceTimeout)
	if err := client.SubmitResult(ctx, attempt); err != nil {
		log.Error().Err(err).Str("attempt_id", attempt.ID).Msg("failed to save result")
		return nil
	}
	log.Info().Str("attempt_id", attempt.ID).Str("username", user).Msg("result saved")
	return nil
}

func armedState(machine *simulator.Machine, delays []int) (simulator.State, error) {
	state := simulator.NewState()
	for i, d := range delays {
		next, err := machine.Apply(state, simulator.SetDelay{ID: i + 1, Value: d})
		if err != nil {
			return state, fmt.Errorf("detonator %d: %w", i+1, err)
		}
		state = next
	}
	return machine.Apply(state, simulator.Arm{})
}

func printOutcome(w io.Writer, out simulator.Outcome) error {
	verdict := "FAILED"
	if out.Passed {
		verdict = "PASSED"
	}
	order := make([]string, len(out.FiredOrder))
	for i, id := range out.FiredOrder {
		order[i] = strconv.Itoa(id)
	}
	_, err := fmt.Fprintf(w, "Fire order: %s\nResult: %d%% %s (max delay %d ms)\n",
		strings.Join(order, " -> "), out.Score, verdict, out.MaxDelay)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func parseDelays(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	if len(parts) != simulator.DetonatorCount {
		return nil, fmt.Errorf("--delays needs %d values, got %d", simulator.DetonatorCount, len(parts))
	}
	delays := make([]int, 0, len(parts))
	for _, part := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid delay %q: %w", part, err)
		}
		if d < simulator.MinDelay || d > simulator.MaxDelay {
			return nil, fmt.Errorf("delay %d must be between %d and %d ms", d, simulator.MinDelay, simulator.MaxDelay)
		}
		delays = append(delays, d)
	}
	return delays, nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show saved results and progress",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyUser, "user", "", "user whose results are shown")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a plain text report instead of the TUI")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.SetupConsole(logLevel); err != nil {
		return err
	}
	user := strings.TrimSpace(historyUser)
	if user == "" {
		return fmt.Errorf("--user is required")
	}
	if cfg.ServiceURL == "" {
		return fmt.Errorf("%w: set --service-url or [service] url", scoreapi.ErrNoService)
	}
	client := scoreapi.NewClient(cfg.ServiceURL, cfg.ServiceTimeout)

	if historyPlain {
		report, err := stats.BuildReport(cmd.Context(), client, user, 3)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		return stats.RenderReport(cmd.OutOrStdout(), report)
	}

	program := tea.NewProgram(historyui.NewModel(client, user), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference scoring service",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultServeAddr, "listen address")
	cmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logErrf("could not load .env file: %v\n", err)
	}
	_, fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.SetupConsole(logLevel); err != nil {
		return err
	}
	if serveDB == "" {
		serveDB = config.DefaultDBPath()
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "db", &serveDB, fileCfg.Server.DB)
	applyEnv(cmd, "addr", &serveAddr, envServeAddr)
	applyEnv(cmd, "db", &serveDB, envServeDB)

	st, err := store.Open(serveDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", serveAddr).Str("db", serveDB).Msg("starting scoring service")
	if err := scoreserver.New(st, nil).ListenAndServe(ctx, serveAddr); err != nil {
		return fmt.Errorf("scoring service failed: %w", err)
	}
	log.Info().Msg("scoring service stopped")
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := writeDefaultConfig(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeDefaultConfig creates the commented template unless path exists.
func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *config.Duration) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = value.Duration
}

// applyEnv lets an environment variable override the config file but not an
// explicit flag.
func applyEnv(cmd *cobra.Command, name string, target *string, key string) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = strings.TrimSpace(value)
}

// flagChanged also looks at inherited flags, which only subcommands have.
func flagChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Changed
	}
	if f := cmd.InheritedFlags().Lookup(name); f != nil {
		return f.Changed
	}
	return false
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# blastrain configuration
# Uncomment a value to enable it. CLI flags override config values.

[session]
# access-code = %q        # Code accepted at login
# ttl = %q                # Session lifetime

[simulator]
# scoring = %q            # inversions or random
# seed = 0                # Seed of the random scorer (0: time based)

[service]
# url = "http://localhost:8080/"   # Scoring service base URL
# timeout = %q            # Request timeout

[server]
# addr = %q               # Listen address of "blastrain serve"
# db = %q

[log]
# level = %q              # debug, info, warn or error
# file = %q
`,
		session.DefaultAccessCode,
		session.DefaultTTL.String(),
		simulator.ScoringInversions,
		scoreapi.DefaultTimeout.String(),
		defaultServeAddr,
		config.DefaultDBPath(),
		logging.DefaultLevel,
		config.DefaultLogPath(),
	)
}

func validateConfig(cfg model.Config) error {
	if strings.TrimSpace(cfg.AccessCode) == "" {
		return fmt.Errorf("--access-code must not be empty")
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("--session-ttl must be > 0")
	}
	if cfg.ServiceTimeout <= 0 {
		return fmt.Errorf("--service-timeout must be > 0")
	}
	if _, err := simulator.ScorerByName(cfg.Scoring, cfg.Seed); err != nil {
		return fmt.Errorf("--scoring: %w", err)
	}
	if cfg.ServiceURL != "" && !strings.HasPrefix(cfg.ServiceURL, "http://") && !strings.HasPrefix(cfg.ServiceURL, "https://") {
		return fmt.Errorf("--service-url must start with http:// or https://")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
