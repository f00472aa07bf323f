package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkgrade/inkgrade/internal/ai"
	"github.com/inkgrade/inkgrade/internal/ai/prompts"
	"github.com/inkgrade/inkgrade/internal/grader"
	"github.com/inkgrade/inkgrade/internal/handler"
	appI18n "github.com/inkgrade/inkgrade/internal/i18n"
	"github.com/inkgrade/inkgrade/internal/model"
	"github.com/inkgrade/inkgrade/internal/service"
	"github.com/inkgrade/inkgrade/internal/store"
	"github.com/inkgrade/inkgrade/internal/upload"
)

func main() {
	// A local .env is the usual home for the AI credential in development.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "inkgrade",
		Short: "AI grading for photographed handwritten exam answers",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `inkgrade --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "inkgrade.db", "SQLite database path")
	f.String("uploads", "uploads", "Directory for uploaded answer images")
	f.String("ai-url", "", "OpenAI-compatible API base URL (empty = api.openai.com)")
	f.String("ai-key", "", "API key for the AI service (or set INKGRADE_AI_KEY)")
	f.String("ai-model", "gpt-4o-mini", "Vision-capable model name")
	f.StringP("strategy", "s", grader.StrategyCombined, "Grading strategy (combined, twostep)")
	f.String("prompt-variant", string(prompts.VariantStandard), "Grading prompt variant (strict, standard, lenient)")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set INKGRADE_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export graded submissions as JSON or XLSX",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "inkgrade.db", "SQLite database path")
	f.StringP("format", "f", "json", "Output format (json, xlsx)")
	f.StringP("output", "o", "-", "Output file path (- for stdout, not valid for xlsx)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INKGRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("inkgrade")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/inkgrade")
	v.AddConfigPath("/etc/inkgrade")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	// A missing credential halts before anything is served.
	apiKey := v.GetString("ai-key")
	if apiKey == "" {
		return fmt.Errorf("AI API key is required: set --ai-key flag or INKGRADE_AI_KEY env var")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("failed to clean expired auth sessions", "error", err)
	}

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	uploads, err := upload.New(v.GetString("uploads"))
	if err != nil {
		return fmt.Errorf("init uploads: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.VariantStandard)
	}

	aiClient, err := ai.New(
		v.GetString("ai-url"),
		apiKey,
		v.GetString("ai-model"),
		prompts.Variant(promptVariant),
	)
	if err != nil {
		return fmt.Errorf("create AI client: %w", err)
	}
	if err := aiClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("AI health check: %w", err)
	}
	slog.Info("AI endpoint OK", "url", v.GetString("ai-url"), "model", v.GetString("ai-model"))

	strategyName := strings.ToLower(strings.TrimSpace(v.GetString("strategy")))
	if !grader.IsValidStrategy(strategyName) {
		return fmt.Errorf("invalid strategy %q: must be %s or %s", strategyName, grader.StrategyCombined, grader.StrategyTwoStep)
	}
	var strategy grader.Strategy
	switch strategyName {
	case grader.StrategyTwoStep:
		strategy = grader.NewTwoStep(aiClient, aiClient)
	default:
		strategy = grader.NewCombined(aiClient)
	}

	grading := service.NewGradingService(db, strategy, uploads, slog.Default())

	appCfg := model.AppConfig{
		Strategy:      strategyName,
		PromptVariant: promptVariant,
		SecureCookies: v.GetBool("secure-cookies"),
	}
	h := handler.New(db, grading, uploads, appCfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("ai-model"),
		"ai_url", v.GetString("ai-url"),
		"strategy", strategyName,
		"prompt_variant", promptVariant,
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := db.ExportAllSubmissions()
	if err != nil {
		return fmt.Errorf("export submissions: %w", err)
	}

	export := model.ResultsExport{
		GeneratedAt: time.Now(),
		Submissions: results,
	}

	outPath := v.GetString("output")
	switch strings.ToLower(v.GetString("format")) {
	case "xlsx":
		if outPath == "" || outPath == "-" {
			return fmt.Errorf("xlsx export requires --output FILE")
		}
		return writeXLSX(export, outPath)
	case "json":
		return writeJSON(export, outPath)
	default:
		return fmt.Errorf("invalid format %q: must be json or xlsx", v.GetString("format"))
	}
}

func writeJSON(export model.ResultsExport, outPath string) error {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

func writeXLSX(export model.ResultsExport, outPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	const subSheet = "Submissions"
	if err := f.SetSheetName("Sheet1", subSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	subHeader := []any{"ID", "Exam", "Student", "Matric", "Department", "Final Score", "Total Points", "Created"}
	if err := f.SetSheetRow(subSheet, "A1", &subHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, sub := range export.Submissions {
		finalScore := any("incomplete")
		if sub.FinalScore != nil {
			finalScore = *sub.FinalScore
		}
		row := []any{
			sub.ID, sub.ExamTitle, sub.StudentName, sub.MatricNo, sub.Department,
			finalScore, sub.TotalPoints, sub.CreatedAt.Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(subSheet, cell, &row); err != nil {
			return fmt.Errorf("write submission row: %w", err)
		}
	}

	const ansSheet = "Answers"
	if _, err := f.NewSheet(ansSheet); err != nil {
		return fmt.Errorf("create answers sheet: %w", err)
	}
	ansHeader := []any{"Submission", "Question", "Points", "Extracted Text", "Awarded Score", "Feedback"}
	if err := f.SetSheetRow(ansSheet, "A1", &ansHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rowNum := 2
	for _, sub := range export.Submissions {
		for _, a := range sub.Answers {
			row := []any{sub.ID, a.QuestionText, a.Points, a.ExtractedText, a.AwardedScore, a.Feedback}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(ansSheet, cell, &row); err != nil {
				return fmt.Errorf("write answer row: %w", err)
			}
			rowNum++
		}
	}

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or INKGRADE_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
