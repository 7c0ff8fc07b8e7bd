package engine

import (
	"context"
	"fmt"
	"io"
)

// preparer is implemented by engines that need local setup before use.
type preparer interface {
	Prepare(ctx context.Context, w io.Writer) error
}

// EnsureReady runs provider-specific readiness checks. For Ollama, missing
// models are pulled with progress written to w. For Azure, a missing
// deployment is reported on w but is not an error: calls fail with
// azure.ErrNotConfigured when they are made.
func EnsureReady(ctx context.Context, e Engine, w io.Writer) error {
	if p, ok := e.(preparer); ok {
		return p.Prepare(ctx, w)
	}
	if a, ok := e.(*AzureEngine); ok {
		embedding, chat := a.Configured()
		if !embedding {
			fmt.Fprintln(w, "warning: embedding deployment is not configured")
		}
		if !chat {
			fmt.Fprintln(w, "warning: chat deployment is not configured")
		}
	}
	return nil
}
