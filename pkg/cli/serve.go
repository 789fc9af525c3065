package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/devpilot/pkg/service/mcp"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	var (
		cfg       config
		transport string
		addr      string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "transport",
			Usage:       "MCP transport (stdio or http; http also serves JSON status endpoints)",
			Value:       "stdio",
			Sources:     cli.EnvVars("DEVPILOT_MCP_TRANSPORT"),
			Destination: &transport,
		},
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address of the http transport",
			Value:       "127.0.0.1:8765",
			Sources:     cli.EnvVars("DEVPILOT_MCP_ADDR"),
			Destination: &addr,
		},
	}

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve assistant tools over the Model Context Protocol",
		Flags: flagsOf(flags, globalFlags(&cfg), llmFlags(&cfg), workflowFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}
			inference, err := cfg.newInference(ctx)
			if err != nil {
				return err
			}
			// stdout belongs to the protocol, so notifications are only logged
			sess, err := cfg.newSession(ctx, sessionInput{inference: inference})
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			server := mcp.NewServer(sess, c.Root().Version)

			switch transport {
			case "stdio":
				logging.From(ctx).Info("serving MCP over stdio")
				return server.Run(ctx, &mcpsdk.StdioTransport{})
			case "http":
				return serveHTTP(ctx, addr, server.Router())
			default:
				return goerr.New("unsupported transport",
					goerr.V("transport", transport),
					goerr.V("supported", []string{"stdio", "http"}))
			}
		},
	}
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logging.From(ctx).Info("serving MCP over http", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return goerr.Wrap(err, "MCP http server failed", goerr.V("addr", addr))
		}
		return nil
	})
	// egCtx is also done when ListenAndServe fails, so this never outlives the server
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.From(ctx).Warn("failed to shut down MCP server", "error", err)
		}
		return nil
	})

	return eg.Wait()
}
