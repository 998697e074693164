package application

import "context"

// UseCase is the shape every command and query entry point follows. The
// order and payment packages assert their use cases against it.
type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}
