/*
Package tcpclient implements a TCP connection state machine on top of
package socket: idle, connecting, connected, disconnected. Transitions
are driven entirely by Socket events, never polled.

A stream assembler holds a residual byte range left over from the
previous onReceived delivery; when new bytes arrive it hands the
concatenation to the application's OnData callback, which reports how
many bytes it consumed, and keeps the remainder as the new residual.

An optional TLS adapter installs itself as the underlying Socket's
decoder: ciphertext read off the wire is fed to a background
crypto/tls.Conn, and whatever plaintext that connection produces is
delivered through the same onReceived path the stream assembler
consumes, so the assembler and application code never see TLS framing.
*/
package tcpclient
