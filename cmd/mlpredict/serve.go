package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mlpredict/internal/httpapi"
	mlruntime "mlpredict/internal/runtime"
)

func newServeCmd(o *options) *cobra.Command {
	var (
		addr       string
		timeout    int64
		modelsRoot string
		dataRoot   string
		outRoot    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("addr") {
				o.cfg.Addr = addr
			}
			if flags.Changed("predict-timeout") {
				o.cfg.PredictTimeoutSeconds = timeout
			}
			if flags.Changed("models-root") {
				o.cfg.ModelsRoot = modelsRoot
			}
			if flags.Changed("data-root") {
				o.cfg.DataRoot = dataRoot
			}
			if flags.Changed("output-root") {
				o.cfg.OutputRoot = outRoot
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			o.cfg = o.cfg.ServeRoots(wd)
			rt, err := o.newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			roots := mlruntime.Roots{Models: o.cfg.ModelsRoot, Data: o.cfg.DataRoot, Output: o.cfg.OutputRoot}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			httpapi.SetLogger(o.log)
			httpapi.SetBaseContext(ctx)
			httpapi.SetMaxBodyBytes(o.cfg.MaxBodyBytes)
			httpapi.SetPredictTimeoutSeconds(o.cfg.PredictTimeoutSeconds)
			httpapi.SetCORSOptions(o.cfg.CORS.Enabled, o.cfg.CORS.Origins, o.cfg.CORS.Methods, o.cfg.CORS.Headers)

			srv := &http.Server{
				Addr:              o.cfg.Addr,
				Handler:           httpapi.NewMux(mlruntime.NewService(rt, roots)),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				o.log.Info().Str("addr", o.cfg.Addr).Str("models_root", roots.Models).Str("data_root", roots.Data).Str("output_root", roots.Output).Msg("mlpredict listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				o.log.Error().Err(err).Msg("graceful shutdown")
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default :8080)")
	cmd.Flags().StringVar(&modelsRoot, "models-root", "", "Directory model_dir must resolve inside (default: working directory)")
	cmd.Flags().StringVar(&dataRoot, "data-root", "", "Directory input_path must resolve inside (default: working directory)")
	cmd.Flags().StringVar(&outRoot, "output-root", "", "Directory output files must resolve inside (default: the data root)")
	cmd.Flags().Int64Var(&timeout, "predict-timeout", 0, "Seconds allowed per prediction request (0 = unbounded)")
	return cmd
}
