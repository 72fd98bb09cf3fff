// Package logging hands out per-module slog loggers whose levels can be
// changed while the daemon runs.
//
// Call Initialize once after options are loaded:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"transition": "debug", "http": "warn"},
//	})
//
// Then take a logger per package; every record carries module=<name>:
//
//	logger := logging.GetLogger("tunnel")
//	logger.Info("Tunnel configured", "endpoint", host)
//
// Loggers obtained before Initialize start at info with a text handler and
// are rebuilt by Initialize. SetLevels only moves levels, so it is what the
// config watcher calls when the [logging] table of config.toml changes.
//
// Records fan out to stdout (text or json), to journald when the socket is
// present (SYSLOG_IDENTIFIER=lampnode, attributes as upper-case fields), and
// to a bounded History served by GET /api/logs:
//
//	journalctl -t lampnode MODULE=transition
//	curl 'http://lamp/api/logs?module=tunnel&limit=20'
package logging
