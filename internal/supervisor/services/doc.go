// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

// Package services adapts Elmer's components to suture.Service.
//
// Each wrapper translates a component's own lifecycle (ListenAndServe, a
// reconnecting Run loop, a one-shot load, a ticker loop) into a
// context-aware Serve whose return value tells the supervisor whether to
// restart, give up, or tear the tree down.
package services
