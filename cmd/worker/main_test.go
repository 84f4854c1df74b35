package main

import (
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
