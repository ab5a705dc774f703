package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"clicklit/cmd/clicklit/ui"
	"clicklit/cmd/clicklit/wizard"
	"clicklit/internal/api"
	"clicklit/internal/config"
	"clicklit/internal/download"
	"clicklit/internal/logging"
	"clicklit/internal/session"
	"clicklit/internal/store"
)

var (
	// Global flags
	verbose   bool
	workspace string
	baseURL   string
	timeout   time.Duration
	ephemeral bool

	// Logger for headless subcommands
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clicklit",
	Short: "ClickLit - CTR-predicted marketing copy evaluation",
	Long: `ClickLit evaluates marketing copy candidates against a target audience.

The interactive wizard walks through four steps: define the target audience,
enter the product and two copy candidates, compare predicted CTRs (including
an AI-suggested third candidate), and generate ad images for the chosen copy.

Run without arguments to start the interactive wizard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip the stderr logger for interactive mode (it has its own UI)
		if cmd.Use == "clicklit" && cmd.CalledAs() == "clicklit" {
			return nil
		}
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard()
	},
}

// predictCmd submits a predict request without the UI.
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict CTRs for two copy candidates using the stored target",
	Long: `Submits the stored target together with a category and two marketing
copy candidates, stores the prediction, and prints the per-candidate CTRs.

Example:
  clicklit predict --category 게임 --text-a "지금 시작하세요" --text-b "오늘만 무료"`,
	RunE: runPredict,
}

// chooseCmd confirms a candidate without the UI.
var chooseCmd = &cobra.Command{
	Use:   "choose [A|B|C]",
	Short: "Confirm a candidate from the stored prediction",
	Long: `Confirms one candidate of the stored prediction through the active
choice policy, reports the pick to the backend, and generates the candidate's
image. A generation failure rolls the choice back.`,
	Args: cobra.ExactArgs(1),
	RunE: runChoose,
}

// imagesCmd generates and saves the 3-image batch.
var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Generate and save ad images for the latest confirmed choice",
	RunE:  runImages,
}

// resetCmd clears all wizard state.
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all stored wizard state",
	RunE:  runReset,
}

// configCmd shows or initializes the config file.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE:  runConfigInit,
}

var (
	flagCategory string
	flagTextA    string
	flagTextB    string
	flagStyle    string
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep wizard state in memory only")

	predictCmd.Flags().StringVar(&flagCategory, "category", "", "product category")
	predictCmd.Flags().StringVar(&flagTextA, "text-a", "", "marketing copy A")
	predictCmd.Flags().StringVar(&flagTextB, "text-b", "", "marketing copy B")
	imagesCmd.Flags().StringVar(&flagStyle, "style", "", "image style modifier")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(predictCmd, chooseCmd, imagesCmd, resetCmd, configCmd)
}

func main() {
	// A .env in the working directory supplies CLICKLIT_* overrides.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs, wired from config.
type app struct {
	cfg     *config.Config
	session *session.Session
	client  *api.Client
	saver   *download.Saver
	choice  session.ChoicePolicy
	style   session.StylePolicy
	closers []func() error
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
	logging.CloseAll()
}

func newApp() (*app, error) {
	if err := logging.Initialize(workspace); err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.Path(workspace))
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.API.Timeout = timeout.String()
	}
	if ephemeral {
		cfg.Storage.Ephemeral = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var kvs session.Store
	if cfg.Storage.Ephemeral {
		kvs = store.NewMemory()
	} else {
		local, err := store.OpenLocal(filepath.Join(workspace, cfg.Storage.DatabasePath))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, local.Close)
		kvs = local
	}
	a.session = session.New(kvs)

	a.client = api.New(cfg.API.BaseURL, cfg.APITimeout()).WithAPIKey(cfg.API.APIKey)
	a.saver = download.NewSaver(filepath.Join(workspace, cfg.Wizard.OutputDir))

	if a.choice, err = session.ChoicePolicyByName(cfg.Wizard.ChoicePolicy); err != nil {
		return nil, err
	}
	if a.style, err = session.StylePolicyByName(cfg.Wizard.StylePolicy); err != nil {
		return nil, err
	}

	logging.Boot("clicklit started (policy=%s/%s, base=%s)", a.choice.Name(), a.style.Name(), cfg.API.BaseURL)
	return a, nil
}

func (a *app) deps() wizard.Deps {
	return wizard.Deps{
		Session:      a.session,
		Client:       a.client,
		Saver:        a.saver,
		ChoicePolicy: a.choice,
		StylePolicy:  a.style,
		Styles:       ui.NewStyles(ui.ThemeByName(a.cfg.Wizard.Theme)),
	}
}

func runWizard() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	p := tea.NewProgram(wizard.New(a.deps()), tea.WithAltScreen())

	// Config edits apply live: the watcher pushes reloaded policies into
	// the running program.
	watcher, werr := config.Watch(config.Path(workspace), func(cfg *config.Config) {
		msg := wizard.ConfigReloadedMsg{
			Styles: ui.NewStyles(ui.ThemeByName(cfg.Wizard.Theme)),
		}
		if cp, err := session.ChoicePolicyByName(cfg.Wizard.ChoicePolicy); err == nil {
			msg.ChoicePolicy = cp
		}
		if sp, err := session.StylePolicyByName(cfg.Wizard.StylePolicy); err == nil {
			msg.StylePolicy = sp
		}
		p.Send(msg)
	})
	if werr == nil {
		defer watcher.Close()
	} else {
		logging.Boot("config watcher unavailable: %v", werr)
	}

	_, err = p.Run()
	return err
}

func runPredict(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	tgt, err := a.session.Target()
	if err != nil {
		return err
	}
	prod := session.Product{
		Target:     tgt,
		Category:   flagCategory,
		MarketingA: flagTextA,
		MarketingB: flagTextB,
	}
	if !prod.Valid() {
		return fmt.Errorf("--category, --text-a and --text-b are all required")
	}
	if err := a.session.SaveProduct(prod); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.APITimeout())
	defer cancel()

	logger.Info("Submitting prediction", zap.String("category", prod.Category))
	pred, err := a.client.Predict(ctx, prod)
	if err != nil {
		return err
	}
	if err := a.session.SavePrediction(*pred); err != nil {
		return err
	}

	printCTR := func(label string, v *float64) {
		if v == nil {
			fmt.Printf("  %s: -\n", label)
			return
		}
		fmt.Printf("  %s: %.2f%%\n", label, *v*100)
	}
	fmt.Printf("Prediction %s:\n", pred.LogID)
	printCTR("A", pred.CTRA)
	printCTR("B", pred.CTRB)
	printCTR("C (AI)", pred.CTRC)
	if winner, ok := pred.HighestAB(); ok {
		fmt.Printf("  Highest A/B: %s\n", winner)
	}
	if pred.AISuggestion != "" {
		fmt.Printf("  AI suggestion: %s\n", pred.AISuggestion)
	}
	return nil
}

func runChoose(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opt := session.Option(strings.ToUpper(args[0]))
	switch opt {
	case session.OptionA, session.OptionB, session.OptionC:
	default:
		return fmt.Errorf("candidate must be A, B or C, got %q", args[0])
	}

	pred, err := a.session.Prediction()
	if err != nil {
		return err
	}
	prod, ok, err := a.session.Product()
	if err != nil {
		return err
	}
	if !ok {
		return session.ErrNoPrediction
	}

	text := pred.TextFor(opt, prod)
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("candidate %s has no copy", opt)
	}
	var ctr float64
	if v := pred.CTRFor(opt); v != nil {
		ctr = *v
	}
	choice := session.Choice{
		Option:  opt,
		Text:    text,
		CTR:     ctr,
		Target:  prod.Target,
		Product: prod,
		Result:  pred,
	}

	if err := a.choice.Begin(a.session, choice); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.APITimeout())
	defer cancel()

	if err := a.client.LogUserChoice(ctx, pred.LogID, text); err != nil {
		logger.Warn("user-choice log failed", zap.Error(err))
	}

	ref, err := a.client.GenerateCandidateImage(ctx, text, prod.Category, prod.Target.AudienceLine())
	if err != nil {
		if rbErr := a.choice.Rollback(a.session, pred.LogID); rbErr != nil {
			logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return fmt.Errorf("image generation failed, choice rolled back: %w", err)
	}
	if err := a.choice.Commit(a.session, choice); err != nil {
		return err
	}

	logger.Info("Choice committed",
		zap.String("option", string(opt)),
		zap.String("log_id", pred.LogID))

	res, err := a.saver.Save(ctx, ref, 0)
	if err != nil {
		return err
	}
	switch res.Method {
	case download.MethodFile:
		fmt.Printf("Choice %s committed; image saved to %s\n", opt, res.Path)
	case download.MethodClipboard:
		fmt.Printf("Choice %s committed; image reference copied to clipboard\n", opt)
	default:
		fmt.Printf("Choice %s committed; image reference: %s\n", opt, res.Ref)
	}
	return nil
}

func runImages(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sel, err := a.session.LatestSelection()
	if err != nil {
		return err
	}
	if err := a.style.Validate(flagStyle); err != nil {
		return err
	}
	prompt := a.style.Compose(sel.MarketingText, flagStyle)

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.APITimeout())
	defer cancel()

	logger.Info("Generating image batch", zap.String("option", string(sel.SelectedOption)))
	refs, err := a.client.GenerateImages(ctx, prompt, 3)
	if err != nil {
		return err
	}

	results, err := a.saver.SaveAll(ctx, refs)
	if err != nil {
		return err
	}
	for _, r := range results {
		switch r.Method {
		case download.MethodFile:
			if r.Path != "" {
				fmt.Println("Saved:", r.Path)
			}
		case download.MethodClipboard:
			fmt.Println("Copied to clipboard:", r.Ref)
		case download.MethodManual:
			fmt.Println("Copy manually:", r.Ref)
		}
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.session.Reset(); err != nil {
		return err
	}
	logger.Info("Wizard state cleared")
	fmt.Println("All wizard state cleared.")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Path(workspace))
	if err != nil {
		return err
	}
	fmt.Printf("config:        %s\n", config.Path(workspace))
	fmt.Printf("base_url:      %s\n", cfg.API.BaseURL)
	fmt.Printf("timeout:       %s\n", cfg.APITimeout())
	fmt.Printf("choice_policy: %s\n", cfg.Wizard.ChoicePolicy)
	fmt.Printf("style_policy:  %s\n", cfg.Wizard.StylePolicy)
	fmt.Printf("output_dir:    %s\n", cfg.Wizard.OutputDir)
	fmt.Printf("theme:         %s\n", cfg.Wizard.Theme)
	fmt.Printf("database:      %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("ephemeral:     %v\n", cfg.Storage.Ephemeral)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.Path(workspace)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Println("Wrote default config to", path)
	return nil
}
