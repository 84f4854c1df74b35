package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/arcollect/internal/app"
	_ "github.com/odyssey-erp/arcollect/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}

func TestPingOrNil(t *testing.T) {
	assert.Nil(t, pingOrNil(false, nil))
	called := false
	ping := pingOrNil(true, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, ping(context.Background()))
	assert.True(t, called)
}
