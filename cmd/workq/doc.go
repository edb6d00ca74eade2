// Package main hosts the workq CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the queue protocol (put, claim, ack,
// abandon, sweep, gc), queue inspection, daemon control over the IPC socket,
// and configuration scaffolding. It centralizes configuration resolution and
// socket discovery so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: queue semantics live in internal/queue, and new
// functionality should be added there first and surfaced through dedicated
// commands or flags here.
package main
