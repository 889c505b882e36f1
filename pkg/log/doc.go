/*
Package log provides structured logging for Mona using zerolog.

The log package wraps zerolog to give every core subsystem (bus, handler,
track, socket, file, tcpclient) a component logger without each one
constructing its own sink or juggling level configuration.

# Architecture

	┌─────────────── LOGGING ───────────────┐
	│  Init(Config) → package Logger         │
	│       │                                │
	│       ▼                                │
	│  WithComponent("iosocket")             │
	│  WithTrack(3)                          │
	│  WithSubject(subjectID)                │
	└─────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	l := log.WithComponent("iosocket")
	l.Debug().Int("track", 3).Msg("armed writable")

# See also

  - https://github.com/rs/zerolog
*/
package log
