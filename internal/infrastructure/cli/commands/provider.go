package commands

import (
	"context"
	"fmt"

	"github.com/doeshing/agentguard/internal/app"
)

// ContainerFunc builds (or returns the already built) container. Commands
// call it from RunE so persistent flags are parsed first.
type ContainerFunc func(ctx context.Context) (*app.Container, error)

// ExitError asks main to exit with Code. Err, when set, is printed first.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
