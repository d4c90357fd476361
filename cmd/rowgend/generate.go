package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corvid-labs/rowgen/internal/generation"
	"github.com/corvid-labs/rowgen/internal/hardware"
	"github.com/corvid-labs/rowgen/internal/llm/llamacpp"
	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/store"
)

func generateCmd() *cobra.Command {
	var datasetID, modelID, rows int64
	var gpuLayers uint32

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate rows for a dataset against the configured store, printing progress to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rows <= 0 {
				return fmt.Errorf("--rows must be positive")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log := zap.NewNop()

			var st interface {
				model.Store
				model.ModelRegistry
				Close() error
			}
			switch cfg.Store.Driver {
			case "", "sqlite":
				st, err = store.NewSQLiteStore(cfg.Store.DSN, cfg.Store.ModelsDir)
			case "postgres":
				st, err = store.NewPostgresStore(cfg.Store.DSN, cfg.Store.ModelsDir)
			default:
				err = fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
			}
			if err != nil {
				return err
			}
			defer st.Close()

			loadModel := func(path string, layers uint32) (generation.ModelHandle, error) {
				if layers == 0 {
					layers = hardware.DetectOptimalGPULayers(log)
				}
				return llamacpp.Load(path, layers)
			}

			mgr := generation.New(st, st, loadModel, log)

			done := make(chan model.StatusEvent, 1)
			sink := model.ProgressSinkFunc{
				OnProgress: func(e model.ProgressEvent) {
					fmt.Printf("row %d/%d (id=%d)\n", e.Completed, e.Target, e.Row.ID)
				},
				OnStatus: func(e model.StatusEvent) {
					switch e.Status {
					case "completed", "cancelled", "failed":
						done <- e
					}
				},
			}

			genID, err := mgr.Start(context.Background(), datasetID, modelID, rows, gpuLayers, cfg.InferenceConfig(), sink)
			if err != nil {
				return err
			}
			fmt.Printf("generation %s started\n", genID)

			final := <-done
			fmt.Printf("generation %s %s\n", genID, final.Status)
			if final.Status == "failed" {
				return fmt.Errorf("%s", final.Message)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&datasetID, "dataset", 0, "dataset id (required)")
	cmd.Flags().Int64Var(&modelID, "model", 0, "model id (required)")
	cmd.Flags().Int64Var(&rows, "rows", 0, "number of rows to generate (required)")
	cmd.Flags().Uint32Var(&gpuLayers, "gpu-layers", 0, "GPU layer budget override (0 = auto-detect)")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("rows")

	return cmd
}
