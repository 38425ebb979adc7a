package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barrier-router/internal/config"
)

func TestAppOptionsUseWindowConfig(t *testing.T) {
	app := &App{window: config.WindowConfig{Title: "Barrier Router (staging)", Width: 1024, Height: 700, MinWidth: 640, MinHeight: 480}}

	opts := appOptions(app)

	assert.Equal(t, "Barrier Router (staging)", opts.Title)
	assert.Equal(t, 1024, opts.Width)
	assert.Equal(t, 700, opts.Height)
	assert.Equal(t, 640, opts.MinWidth)
	assert.Equal(t, 480, opts.MinHeight)
	require.NotNil(t, opts.Mac)
	assert.Equal(t, "Barrier Router (staging)", opts.Mac.About.Title)
	require.NotNil(t, opts.Linux)
	assert.Equal(t, "Barrier Router (staging)", opts.Linux.ProgramName)
	assert.NotNil(t, opts.OnStartup)
	assert.NotNil(t, opts.OnShutdown)
}
