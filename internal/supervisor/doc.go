// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

/*
Package supervisor runs Elmer's long-lived services under a suture v4 tree.

The tree is split into three layers so that a failure in one cannot starve
the others:

	RootSupervisor ("elmerbot")
	├── DataSupervisor ("data-layer")
	│   ├── review warm-up (runs once)
	│   ├── exchange-rate cache sweeper
	│   └── feed state GC
	├── BotSupervisor ("bot-layer")
	│   ├── GatewayService
	│   └── feed poller
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A rejected bot token terminates the whole tree; every other failure is
restarted with suture's decaying backoff.

Supervisor events are logged through sutureslog, so the slog logger passed
to NewSupervisorTree should be the zerolog-backed one from
logging.NewSlogLogger:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddBotService(services.NewGatewayService(gateway))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
