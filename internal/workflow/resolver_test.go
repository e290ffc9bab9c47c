package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mautops/review-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverFirstMatchInDirectoryOrder(t *testing.T) {
	dir := newStubDirectory().
		set("CS", workflow.StageFirstReviewer, "", "R1", "R3").
		set("CS", workflow.StageSecondReviewer, "R2", "R4")
	r := workflow.NewResolver(dir)
	ctx := context.Background()

	first, err := r.ResolveFirstReviewer(ctx, "CS")
	require.NoError(t, err)
	assert.Equal(t, "R1", first)

	second, err := r.ResolveSecondReviewer(ctx, "CS")
	require.NoError(t, err)
	assert.Equal(t, "R2", second)
}

func TestResolverNoCandidates(t *testing.T) {
	dir := newStubDirectory().set("CS", workflow.StageFirstReviewer, " ")
	r := workflow.NewResolver(dir)
	ctx := context.Background()

	_, err := r.ResolveFirstReviewer(ctx, "CS")
	assert.True(t, errors.Is(err, workflow.ErrNoReviewerAvailable))

	_, err = r.ResolveSecondReviewer(ctx, "CS")
	assert.True(t, errors.Is(err, workflow.ErrNoReviewerAvailable))

	_, err = r.ResolveFirstReviewer(ctx, "")
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))
}

func TestResolverStrictSecondReviewer(t *testing.T) {
	dir := newStubDirectory().
		set("CS", workflow.StageFirstReviewer, "R1", "R3").
		set("CS", workflow.StageSecondReviewer, "R2", "R4").
		set("EE", workflow.StageSecondReviewer, "E2")
	r := workflow.NewResolver(dir, workflow.WithStrictSecondReviewer(true))
	ctx := context.Background()

	// 严格模式只约束二级审批人
	first, err := r.ResolveFirstReviewer(ctx, "CS")
	require.NoError(t, err)
	assert.Equal(t, "R1", first)

	_, err = r.ResolveSecondReviewer(ctx, "CS")
	assert.True(t, errors.Is(err, workflow.ErrAmbiguousReviewer))

	second, err := r.ResolveSecondReviewer(ctx, "EE")
	require.NoError(t, err)
	assert.Equal(t, "E2", second)
}

func TestResolverDirectoryError(t *testing.T) {
	dir := newStubDirectory()
	dir.err = errors.New("timeout")
	r := workflow.NewResolver(dir)

	_, err := r.ResolveFirstReviewer(context.Background(), "CS")
	require.Error(t, err)
	assert.ErrorIs(t, err, dir.err)
	assert.Empty(t, workflow.CodeOf(err))
}
