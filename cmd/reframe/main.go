package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/reframe/internal/handler"
	"github.com/xxxsen/reframe/internal/job"
	"github.com/xxxsen/reframe/internal/middleware"
	"github.com/xxxsen/reframe/internal/pkg/secret"
	"github.com/xxxsen/reframe/internal/schedule"
	"github.com/xxxsen/reframe/internal/service"
	"github.com/xxxsen/reframe/internal/textclf"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "reframe",
		Short:        "cognitive distortion classifier with feedback retraining",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "run the prediction server",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(configPath)
				if err != nil {
					return err
				}
				defer a.Close()
				return runServer(a)
			},
		},
		newTrainCmd(&configPath),
		newTuneCmd(&configPath),
		&cobra.Command{
			Use:   "versions",
			Short: "list recorded model versions",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(configPath)
				if err != nil {
					return err
				}
				defer a.Close()
				return printVersions(cmd, a)
			},
		},
		newPromoteCmd(&configPath),
		newAugmentCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func newTrainCmd(configPath *string) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "retrain the model once with pending feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.retrain.Run(cmd.Context(), notes)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version %d recorded: train=%d test=%d accuracy=%.4f consumed=%d\n",
				res.Version.VersionNumber, res.TrainSize, res.TestSize, res.Accuracy, res.Consumed)
			fmt.Fprintln(out, res.Report.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "notes stored with the version")
	return cmd
}

func newTuneCmd(configPath *string) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search hyper-parameters with k-fold cross validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.retrain.Tune(cmd.Context(), textclf.DefaultGrid())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tMACRO_F1\tMAX_FEATURES\tNGRAM\tC\tERROR")
			for i, c := range res.Candidates {
				if top > 0 && i >= top {
					break
				}
				fmt.Fprintf(w, "%d\t%.4f\t%d\t(%d,%d)\t%g\t%s\n", i+1, c.MacroF1,
					c.Params.Vectorizer.MaxFeatures, c.Params.Vectorizer.NgramMin, c.Params.Vectorizer.NgramMax,
					c.Params.Classifier.C, c.Err)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of candidates to print, 0 for all")
	return cmd
}

func newPromoteCmd(configPath *string) *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "make a recorded version the live artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if version <= 0 {
				return fmt.Errorf("--version is required")
			}
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			v, err := a.retrain.Promote(cmd.Context(), version)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (%s) promoted to %s\n", v.VersionNumber, v.ArtifactKey, a.cfg.Model.ArtifactKey)
			return nil
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "version number to promote")
	return cmd
}

func newAugmentCmd(configPath *string) *cobra.Command {
	var (
		outPath  string
		perLabel int
	)
	cmd := &cobra.Command{
		Use:   "augment",
		Short: "generate synthetic training examples with the configured llm",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			generator, err := newGenerator(cfg.AI)
			if err != nil {
				return err
			}
			file, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer file.Close()
			augment := service.NewAugmentService(generator, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
			n, err := augment.WriteCSV(cmd.Context(), file, perLabel)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows written to %s\n", n, outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output csv path")
	cmd.Flags().IntVar(&perLabel, "per-label", 20, "examples per distortion")
	return cmd
}

func printVersions(cmd *cobra.Command, a *app) error {
	versions, err := a.registry.List(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSAMPLES\tACCURACY\tCREATED\tARTIFACT\tNOTES")
	for _, v := range versions {
		fmt.Fprintf(w, "%d\t%d\t%.4f\t%s\t%s\t%s\n", v.VersionNumber, v.TrainingSampleCount, v.Accuracy,
			time.Unix(v.CreatedAt, 0).Format(time.RFC3339), v.ArtifactKey, v.Notes)
	}
	return w.Flush()
}

func runServer(a *app) error {
	cfg := a.cfg
	logger := logutil.GetLogger(context.Background())
	logger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("artifact_store", a.store.Type()),
		zap.String("artifact_key", cfg.Model.ArtifactKey),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.classifier.Load(ctx); err != nil {
		logger.Warn("serving without a model until a retrain or reload succeeds", zap.Error(err))
	}
	if cfg.Model.ReloadAfterRetrain {
		a.retrain.SetReloader(a.classifier)
	}

	if cfg.Training.Cron != "" {
		scheduler := schedule.NewCronScheduler()
		retrainJob := job.NewRetrainJob(a.retrain)
		if err := scheduler.AddJob(retrainJob, cfg.Training.Cron); err != nil {
			return fmt.Errorf("schedule retrain: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
		logger.Info("retrain scheduled", zap.Time("next", scheduler.Next(retrainJob.Name())))
	}

	deps := handler.RouterDeps{
		Predict:   handler.NewPredictHandler(a.classifier),
		Feedback:  handler.NewFeedbackHandler(a.feedback),
		Versions:  handler.NewVersionHandler(a.registry),
		Model:     handler.NewModelHandler(a.classifier),
		APIKey:    secret.NewVerifier(cfg.Feedback.APIKey, cfg.Feedback.APIKeyHash),
		RateLimit: time.Duration(cfg.RateLimitMS) * time.Millisecond,
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
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
