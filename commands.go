package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yekaditya11/Acma-Insights/internal/api"
	"github.com/yekaditya11/Acma-Insights/internal/metrics"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(cfg *AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.NewRouter(api.NewHandler(a.workflow, a.semantics), cfg.Server.CORSOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logx.Info().Str("addr", srv.Addr).Str("version", version).Msg("HTTP server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logx.Info().Msg("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newAskCmd(cfg *AppConfig) *cobra.Command {
	var (
		threadID string
		stream   bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run one question through the workflow and print the answer bundle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			in, err := queryInput(ctx, a.semantics, strings.TrimSpace(threadID), strings.Join(args, " "))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if !stream {
				bundle, err := a.workflow.Run(ctx, in)
				if err != nil {
					return err
				}
				return enc.Encode(bundle)
			}

			s := a.workflow.RunStream(ctx, in)
			for ev := range s.Events() {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return s.Err()
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "thread id to continue (a new one is generated when empty)")
	cmd.Flags().BoolVar(&stream, "stream", false, "print node updates as they complete")
	return cmd
}

func newIntrospectCmd(cfg *AppConfig) *cobra.Command {
	var ddlOnly bool

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Print the DDL and column semantics handed to the workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			p, err := newSemanticsProvider(ctx, cfg)
			if err != nil {
				return err
			}
			snap, err := p.Snapshot(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ddlOnly {
				_, err = fmt.Fprintln(out, snap.DDL)
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().BoolVar(&ddlOnly, "ddl", false, "print only the CREATE TABLE statement")
	return cmd
}
