package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	apperrors "github.com/burakmert236/goodswipe-rewards/common/errors"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"google.golang.org/grpc"
)

// LoggingInterceptor logs every unary call and converts AppErrors to gRPC statuses.
func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Error("gRPC call failed",
				"method", info.FullMethod,
				"duration", time.Since(start),
				"error", err,
			)
			return resp, apperrors.ToGRPCError(err)
		}

		log.Debug("gRPC call", "method", info.FullMethod, "duration", time.Since(start))
		return resp, nil
	}
}

// WaitForGracefulShutdown blocks until ctx is done or SIGINT/SIGTERM arrives.
func WaitForGracefulShutdown(ctx context.Context, log *logger.Logger) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("Shutting down...")
}
