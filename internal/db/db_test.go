package db

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pynay/LetterChain/internal/pipeline"
)

func TestRunStatus(t *testing.T) {
	assert.Equal(t, RunStatusFailed, RunStatus(nil, errors.New("boom")))
	assert.Equal(t, RunStatusFailed, RunStatus(nil, nil))
	assert.Equal(t, RunStatusBestEffort, RunStatus(&pipeline.Result{BestEffort: true}, nil))
	assert.Equal(t, RunStatusAccepted, RunStatus(&pipeline.Result{}, nil))
}

func TestErrorMessage(t *testing.T) {
	assert.Nil(t, errorMessage(nil))

	msg := errorMessage(errors.New("step failed"))
	require.NotNil(t, msg)
	assert.Equal(t, "step failed", *msg)

	long := errorMessage(errors.New(strings.Repeat("é", MaxErrorMessageLen)))
	require.NotNil(t, long)
	assert.LessOrEqual(t, len(*long), MaxErrorMessageLen)
	assert.True(t, strings.HasSuffix(*long, "é"), "no split rune")
}

func TestDigest(t *testing.T) {
	assert.Empty(t, digest(""))
	assert.Len(t, digest("resume"), 64)
	assert.Equal(t, digest("resume"), digest("resume"))
}
