// Package tlsroots builds client TLS configurations for meshboot's
// outgoing connections (the OTLP trace collector).
//
// A configuration trusts the system roots plus an optional CA bundle and
// can present a client certificate for mutual TLS.
package tlsroots
