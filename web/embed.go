// Package web holds the embedded page templates and static assets.
package web

import "embed"

// Templates embeds layouts, partials and pages.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds the stylesheet and the live-reload script.
//
//go:embed static/**/*
var Static embed.FS
