// Package mqtt mirrors the lamp onto an MQTT broker.
//
// Topics, relative to the configured prefix:
//
//	<prefix>/status        online/offline, retained; offline is the last will
//	<prefix>/color         current color as 6 lowercase hex digits, retained
//	<prefix>/color/set     commands, same format and validation as POST /update
//	<prefix>/connectivity  offline, connecting, healthy or halted, retained
//
// Commands go through the same color state as the HTTP command server, so a
// color set over MQTT supersedes a running transition exactly like one set
// over HTTP.
package mqtt
