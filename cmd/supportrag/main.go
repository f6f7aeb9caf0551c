package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/config"
	"github.com/xxxsen/supportrag/internal/handler"
	"github.com/xxxsen/supportrag/internal/job"
	"github.com/xxxsen/supportrag/internal/middleware"
	"github.com/xxxsen/supportrag/internal/model"
	"github.com/xxxsen/supportrag/internal/schedule"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "supportrag",
		Short:         "support ticket retrieval backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	load := func() (*config.Config, error) {
		if configPath == "" {
			return nil, fmt.Errorf("--config is required")
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(
			cfg.LogConfig.File,
			cfg.LogConfig.Level,
			int(cfg.LogConfig.FileCount),
			int(cfg.LogConfig.FileSize),
			int(cfg.LogConfig.KeepDays),
			cfg.LogConfig.Console,
		)
		logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
		return cfg, nil
	}

	rootCmd.AddCommand(
		newRunCmd(load),
		newMigrateCmd(load),
		newIngestManualCmd(load),
		newIngestTicketCmd(load),
		newRetrieveCmd(load),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

type loader func() (*config.Config, error)

func newRunCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the http server and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(ctx, a)
		},
	}
}

func newMigrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			conn, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			logutil.GetLogger(cmd.Context()).Info("migrations applied")
			return nil
		},
	}
}

func newIngestManualCmd(load loader) *cobra.Command {
	var in model.ManualInput
	var file string
	cmd := &cobra.Command{
		Use:   "ingest-manual",
		Short: "ingest a local manual file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read manual: %w", err)
			}
			in.Data = data
			if in.URL == "" {
				in.URL = filepath.Base(file)
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			report, err := a.ingest.IngestManual(cmd.Context(), &in)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "manual file (pdf, md, html)")
	cmd.Flags().StringVar(&in.URL, "url", "", "source url stored with the chunks, defaults to the file name")
	cmd.Flags().StringVar(&in.Format, "format", "", "document format, guessed from the name when empty")
	cmd.Flags().StringVar(&in.DeviceType, "device-type", "", "device type the manual belongs to")
	cmd.Flags().BoolVar(&in.DeviceModelUsed, "device-model-used", false, "manual was found through the exact device model")
	cmd.Flags().StringVar(&in.ContentType, "content-type", "", "content type published with the manual")
	cmd.Flags().StringSliceVar(&in.Categories, "category", nil, "category names published with the manual")
	cmd.Flags().BoolVar(&in.Force, "force", false, "skip the relevance check")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("device-type")
	return cmd
}

func newIngestTicketCmd(load loader) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ingest-ticket",
		Short: "summarize and store solved tickets from a json file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			tickets, err := readTickets(file)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			logger := logutil.GetLogger(cmd.Context())
			failed := 0
			for _, t := range tickets {
				if _, err := a.ingest.AddTicket(cmd.Context(), t); err != nil {
					failed++
					logger.Error("ticket not added", zap.String("ticket_id", t.TicketID), zap.Error(err))
				}
			}
			logger.Info("tickets processed", zap.Int("total", len(tickets)), zap.Int("failed", failed))
			if failed > 0 {
				return fmt.Errorf("%d of %d tickets failed", failed, len(tickets))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "json file with one ticket object or a list of them")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readTickets(file string) ([]*model.TicketInput, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read tickets: %w", err)
	}
	var list []*model.TicketInput
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single model.TicketInput
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("decode tickets: %w", err)
	}
	return []*model.TicketInput{&single}, nil
}

func newRetrieveCmd(load loader) *cobra.Command {
	var query, deviceType string
	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "run a hybrid search against both corpora",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			result, err := a.retrieval.Retrieve(cmd.Context(), query, deviceType)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "search text")
	cmd.Flags().StringVar(&deviceType, "device-type", "", "device type to filter manuals by")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("device-type")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runServer(ctx context.Context, a *app) error {
	cfg := a.cfg
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logger := logutil.GetLogger(ctx)

	scheduler := schedule.NewCronScheduler(schedule.WithJobTimeout(30 * time.Minute))
	var startupJobs []string
	if a.cacheRepo != nil {
		cleanup := job.NewEmbeddingCacheCleanupJob(a.cacheRepo, cfg.Jobs.EmbedCacheMaxAgeDays)
		if err := scheduler.AddJob(cleanup, cfg.Jobs.EmbedCacheCleanupSpec); err != nil {
			return fmt.Errorf("schedule %s: %w", cleanup.Name(), err)
		}
		startupJobs = append(startupJobs, cleanup.Name())
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	go func() {
		for _, name := range startupJobs {
			if err := scheduler.Trigger(name); err != nil {
				logger.Warn("startup job not run", zap.String("job", name), zap.Error(err))
			}
		}
	}()

	deps := handler.RouterDeps{
		Retrieval: handler.NewRetrievalHandler(a.retrieval),
		Tickets:   handler.NewTicketHandler(a.ingest, a.assist),
		Manuals:   handler.NewManualHandler(a.ingest, cfg.HTTP.MaxUploadSizeBytes),
		RateLimit: time.Duration(cfg.HTTP.RateLimitMillis) * time.Millisecond,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.HTTP.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logger.Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}
