package cli

import (
	"context"
	"fmt"
	"net"

	"github.com/ashureev/yieldchat/internal/predictor"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

func newServeModelCommand(e *env) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-model",
		Short: "Serve the model bundle over gRPC for PREDICTOR_ADDR clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := predictor.LoadBundle(e.cfg.ModelPath)
			if err != nil {
				return err
			}
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			e.logger.Info("Serving model", "address", lis.Addr().String(), "name", bundle.Name, "version", bundle.Version)
			return serveModel(cmd.Context(), lis, bundle.LinearModel())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":50051", "listen address")
	return cmd
}

// serveModel serves p on lis until ctx is done.
func serveModel(ctx context.Context, lis net.Listener, p predictor.Predictor) error {
	srv := grpc.NewServer()
	healthSrv := predictor.RegisterServer(srv, p)

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(lis) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		healthSrv.Shutdown()
		srv.GracefulStop()
		return nil
	}
}
