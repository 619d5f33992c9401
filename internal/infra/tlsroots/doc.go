// Package tlsroots builds the trust store used to reach the remote
// session server: the system roots plus optional private CA files.
package tlsroots
