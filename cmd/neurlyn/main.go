// Package main provides the CLI entrypoint for neurlyn.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/verte-zerg/neurlyn/internal/assessment"
	"github.com/verte-zerg/neurlyn/internal/config"
	"github.com/verte-zerg/neurlyn/internal/httpapi"
	"github.com/verte-zerg/neurlyn/internal/model"
	"github.com/verte-zerg/neurlyn/internal/observability"
	"github.com/verte-zerg/neurlyn/internal/questionbank"
	"github.com/verte-zerg/neurlyn/internal/stats"
	"github.com/verte-zerg/neurlyn/internal/statsui"
	"github.com/verte-zerg/neurlyn/internal/store"
	"github.com/verte-zerg/neurlyn/internal/tui"
)

const (
	defaultAddr          = ":8080"
	defaultSweepInterval = 10 * time.Minute
	defaultCacheSize     = 64
	defaultCurveWindow   = 5
	shutdownTimeout      = 10 * time.Second
	plotHeight           = 10
)

var (
	debug bool

	takeTier     string
	takeConcerns []string

	serveAddr string
	serveDB   string

	reportSession     string
	reportStatus      string
	reportSince       string
	reportLast        int
	reportCurveWindow int
	reportPlain       bool

	questionsPool     string
	questionsValidate string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "neurlyn",
		Short:         "Adaptive personality and neurodiversity assessment",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTakeCmd,
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	addTakeFlags(rootCmd)

	takeCmd := &cobra.Command{
		Use:   "take",
		Short: "Take an assessment in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runTakeCmd,
	}
	addTakeFlags(takeCmd)

	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newQuestionsCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addTakeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&takeTier, "tier", "", "assessment tier: quick, standard or deep")
	cmd.Flags().StringSliceVar(&takeConcerns, "concerns", nil, "concerns that pre-seed pathways (adhd, autism, trauma, masking, giftedness)")
}

func runTakeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "tier", &takeTier, fileCfg.Assessment.DefaultTier)
	applyBoolConfig(cmd, "debug", &debug, fileCfg.Server.Debug)

	policy, err := loadPolicy(fileCfg)
	if err != nil {
		return err
	}

	logPath := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logger, err := observability.NewLogger(observability.Options{Debug: debug, OutputPaths: []string{logPath}})
	if err != nil {
		return err
	}
	defer func() {
		// Best-effort flush of the log file.
		_ = logger.Sync()
	}()

	st, err := store.Open(dbPath(fileCfg))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	bank, err := openBank(fileCfg)
	if err != nil {
		return err
	}

	svc := assessment.NewService(st, bank, policy, assessment.WithLogger(logger))
	m := tui.NewModel(svc, assessment.StartInput{Tier: takeTier, Concerns: takeConcerns})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if err := m.Err(); err != nil {
		return err
	}
	if m.Result() != nil {
		logErrf("Session %s saved. View it again with: neurlyn report --session %s\n", m.SessionID(), m.SessionID())
	} else if m.SessionID() != "" {
		logErrf("Session %s left open; it expires after %s of inactivity.\n", m.SessionID(), policy.SessionTTL)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assessment HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&serveDB, "db", "", "database path (default: XDG data dir)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "db", &serveDB, fileCfg.Server.DB)
	applyBoolConfig(cmd, "debug", &debug, fileCfg.Server.Debug)
	if serveDB == "" {
		serveDB = config.DefaultDBPath()
	}

	sweepInterval, err := config.ParseDuration(fileCfg.Server.SweepInterval, defaultSweepInterval, "server.sweep-interval")
	if err != nil {
		return err
	}
	policy, err := loadPolicy(fileCfg)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(observability.Options{Debug: debug})
	if err != nil {
		return err
	}
	defer func() {
		// Best-effort flush; stderr sync fails on some terminals.
		_ = logger.Sync()
	}()

	st, err := store.Open(serveDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("failed to close db", zap.Error(cerr))
		}
	}()

	bank, err := openBank(fileCfg)
	if err != nil {
		return err
	}

	svc := assessment.NewService(st, bank, policy, assessment.WithLogger(logger))
	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           httpapi.NewServer(svc, logger, httpapi.Options{CORSOrigins: fileCfg.Server.CORSOrigins}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", serveAddr), zap.String("db", serveDB))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return assessment.RunSweeper(gctx, st, sweepInterval, policy.SessionTTL, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// reportSource joins the store listing with the service snapshot.
type reportSource struct {
	*store.Store
	*assessment.Service
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show stored sessions and results",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	cmd.Flags().StringVar(&reportSession, "session", "", "session id (default: latest)")
	cmd.Flags().StringVar(&reportStatus, "status", "", "status filter: active or completed")
	cmd.Flags().StringVar(&reportSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&reportLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&reportCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&reportPlain, "plain", false, "print the report instead of opening the browser")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	filter, err := reportFilter()
	if err != nil {
		return err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	policy, err := loadPolicy(fileCfg)
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath(fileCfg))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	bank, err := openBank(fileCfg)
	if err != nil {
		return err
	}
	src := reportSource{Store: st, Service: assessment.NewService(st, bank, policy)}

	out := cmd.OutOrStdout()
	fd := int(os.Stdout.Fd())
	if reportPlain || !term.IsTerminal(fd) {
		report, err := stats.BuildReport(cmd.Context(), src, src, filter, reportSession)
		if err != nil {
			return err
		}
		width := 0
		if w, _, err := term.GetSize(fd); err == nil {
			width = w
		}
		return report.Render(out, stats.RenderOptions{
			Width:       width,
			Height:      plotHeight,
			CurveWindow: reportCurveWindow,
		})
	}

	m := statsui.NewModel(src, filter, reportSession, reportCurveWindow)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run report TUI: %w", err)
	}
	return nil
}

func reportFilter() (model.ListFilter, error) {
	var filter model.ListFilter
	switch status := model.SessionStatus(strings.ToLower(reportStatus)); status {
	case "":
	case model.StatusActive, model.StatusCompleted:
		filter.Status = status
	default:
		return filter, fmt.Errorf("--status must be active or completed")
	}
	if reportSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", reportSince, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if reportLast < 0 {
		return filter, fmt.Errorf("--last must be >= 0")
	}
	filter.Last = reportLast
	if reportCurveWindow < 1 {
		return filter, fmt.Errorf("--curve-window must be > 0")
	}
	return filter, nil
}

func newQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List or validate question banks",
		Args:  cobra.NoArgs,
		RunE:  runQuestionsCmd,
	}
	cmd.Flags().StringVar(&questionsPool, "pool", "", "category or pathway key, e.g. self-awareness or adhd_pathway")
	cmd.Flags().StringVar(&questionsValidate, "validate", "", "validate a YAML question bank and exit")
	return cmd
}

func runQuestionsCmd(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if questionsValidate != "" {
		bank, err := questionbank.LoadFile(questionsValidate)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s: %d questions ok\n", questionsValidate, bank.Len())
		return err
	}

	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	bank, err := loadBank(fileCfg)
	if err != nil {
		return err
	}
	questions := bank.All()
	if questionsPool != "" {
		questions = bank.Pool(questionsPool)
		if len(questions) == 0 {
			return fmt.Errorf("no questions in pool %q", questionsPool)
		}
	}
	_, err = fmt.Fprintln(out, questionTable(questions))
	return err
}

func questionTable(questions []model.Question) string {
	rows := make([][]string, 0, len(questions))
	for _, q := range questions {
		key := q.Category
		if q.Pathway != "" {
			key = string(q.Pathway)
		}
		reverse := ""
		if q.Reverse {
			reverse = "R"
		}
		rows = append(rows, []string{q.ID, key, q.Trait, string(q.Type), reverse, q.Text})
	}
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))).
		Headers("ID", "Pool", "Trait", "Type", "Rev", "Text").
		Rows(rows...).
		String()
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Purge expired sessions once",
		Args:  cobra.NoArgs,
		RunE:  runSweepCmd,
	}
}

func runSweepCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyBoolConfig(cmd, "debug", &debug, fileCfg.Server.Debug)
	policy, err := loadPolicy(fileCfg)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(observability.Options{Debug: debug})
	if err != nil {
		return err
	}
	defer func() {
		// Best-effort flush; stderr sync fails on some terminals.
		_ = logger.Sync()
	}()

	st, err := store.Open(dbPath(fileCfg))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	n, err := assessment.Sweep(cmd.Context(), st, time.Now(), policy.SessionTTL, logger)
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d sessions\n", n)
	return err
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

func loadPolicy(fileCfg config.FileConfig) (model.Policy, error) {
	policy := model.DefaultPolicy()
	if err := fileCfg.ApplyPolicy(&policy); err != nil {
		return model.Policy{}, err
	}
	return policy, nil
}

func dbPath(fileCfg config.FileConfig) string {
	if fileCfg.Server.DB != nil && *fileCfg.Server.DB != "" {
		return *fileCfg.Server.DB
	}
	return config.DefaultDBPath()
}

// loadBank returns the configured question bank, the user bank in the
// config directory when present, or the embedded default.
func loadBank(fileCfg config.FileConfig) (*questionbank.Bank, error) {
	path := ""
	if fileCfg.Assessment.Bank != nil {
		path = *fileCfg.Assessment.Bank
	}
	if path == "" {
		if _, err := os.Stat(config.DefaultBankPath()); err == nil {
			path = config.DefaultBankPath()
		}
	}
	if path == "" {
		return questionbank.Default()
	}
	bank, err := questionbank.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}
	return bank, nil
}

func openBank(fileCfg config.FileConfig) (questionbank.Source, error) {
	bank, err := loadBank(fileCfg)
	if err != nil {
		return nil, err
	}
	size := defaultCacheSize
	if fileCfg.Assessment.CacheSize != nil {
		size = *fileCfg.Assessment.CacheSize
	}
	cache, err := questionbank.NewCache(bank, size)
	if err != nil {
		return nil, fmt.Errorf("invalid assessment.cache-size: %w", err)
	}
	return cache, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	p := model.DefaultPolicy()
	return fmt.Sprintf(`# neurlyn configuration
# Uncomment a value to enable it. CLI flags override config values.

[server]
# addr = %q             # Listen address of the serve command
# db = %q
# sweep-interval = %q   # How often expired sessions are purged
# cors-origins = ["*"]
# debug = false

[assessment]
# default-tier = %q
# quick = %d
# standard = %d
# deep = %d
# batch-size = %d               # Questions served per batch
# interleave-ratio = %d         # Pathway questions are mixed in every N base questions
# shuffle = %t                  # Per-session seeded question order
# session-ttl = %q              # Idle sessions expire after this long
# retention = %q                # Completed sessions are deleted after this long
# bank = "questions.yaml"       # Custom YAML question bank
# cache-size = %d               # Number of cached question pools

[pathways]
# threshold = %.1f              # Intensity (0-100) counted as a pathway signal
# min-count = %d                # Signals needed to activate a pathway

[quality]
# straight-line-run = %d
# min-avg-latency-ms = %.1f
# min-variability = %.2f
# min-responses = %d
`,
		defaultAddr,
		config.DefaultDBPath(),
		defaultSweepInterval.String(),
		p.DefaultTier,
		p.Tiers[model.TierQuick],
		p.Tiers[model.TierStandard],
		p.Tiers[model.TierDeep],
		p.BatchSize,
		p.InterleaveRatio,
		p.Shuffle,
		p.SessionTTL.String(),
		p.Retention.String(),
		defaultCacheSize,
		p.PathwayThreshold,
		p.PathwayMinCount,
		p.StraightLineRun,
		p.MinAvgLatencyMs,
		p.MinVariability,
		p.MinQualityResponses,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
