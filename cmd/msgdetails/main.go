package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go-message-details/internal/config"
	"go-message-details/internal/httpapi"
	"go-message-details/internal/mock"
	"go-message-details/internal/observability"
	"go-message-details/pkg/models"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "msgdetails",
		Short: "Mock email message details for UI and API stubbing",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				observability.InitLogger(logLevel)
			}
		},
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(newShowCmd(), newServeCmd())
	return root
}

func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <message-id>",
		Short: "Print mock details for a message id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeDetails(cmd.OutOrStdout(), mock.BuildMessageDetails(args[0]), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, yaml or headers")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve mock details over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if addr == "" {
				addr = cfg.HTTP.Addr
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", ln.Addr())

			server := httpapi.NewServer(mock.NewBuilder(), observability.NewInMemoryMetrics())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Serve(ln)
			})
			g.Go(func() error {
				<-gctx.Done()
				err := server.Shutdown()
				// Serve may not have taken the listener yet.
				ln.Close()
				return err
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func writeDetails(w io.Writer, details models.MessageDetails, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(details)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(details); err != nil {
			return err
		}
		return enc.Close()
	case "headers":
		block, err := details.HeaderBlock()
		if err != nil {
			return err
		}
		_, err = w.Write(block)
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
