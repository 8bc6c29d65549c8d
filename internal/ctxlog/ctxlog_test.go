package ctxlog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/specialistvlad/calocluster/internal/ctxlog"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := ctxlog.WithLogger(context.Background(), logger)
	require.Same(t, logger, ctxlog.FromContext(ctx))

	ctx = ctxlog.With(ctx, "group", "model")
	ctxlog.FromContext(ctx).Info("selected")
	require.Contains(t, buf.String(), "group=model")

	require.Same(t, slog.Default(), ctxlog.FromContext(context.Background()))
}
