package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"

	apperrors "github.com/louisbranch/greeting.space/internal/platform/errors"
)

// UnaryDomainStatus converts domain errors returned by unary handlers into
// gRPC statuses with errdetails. Unknown errors are masked behind
// codes.Internal so internals never leak to callers.
func UnaryDomainStatus() gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return resp, apperrors.HandleError(err)
		}
		return resp, nil
	}
}
