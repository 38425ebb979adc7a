package solver

import (
	"context"
	"errors"
	"fmt"

	"barrier-router/internal/models"
)

// Gateway is the external network analysis service. Every call blocks until
// the service answers or ctx is done.
type Gateway interface {
	LoadDefaultRouteParameters(ctx context.Context) (*models.RouteParameters, error)
	SolveRoute(ctx context.Context, req *models.RouteRequest) (*models.RouteResult, error)
	LoadDefaultServiceAreaParameters(ctx context.Context) (*models.ServiceAreaParameters, error)
	SolveServiceArea(ctx context.Context, req *models.ServiceAreaRequest) (*models.ServiceAreaResult, error)
}

// ErrSolveFailed is returned when the routing service rejects or cannot
// complete an operation
type ErrSolveFailed struct {
	Operation string
	Reason    string
}

func (e *ErrSolveFailed) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Reason)
}

// ErrOutOfCoverage marks a facility the routing service cannot reach
var ErrOutOfCoverage = errors.New("facility is outside the routing service coverage")
