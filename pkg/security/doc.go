// Package security provides SSRF protection for outbound HTTP calls made by
// node executors.
//
// All network access is denied by default (zero trust); the HTTP node
// executor must explicitly opt in via config.AllowHTTP, and even then
// SSRFProtection blocks private IPs, loopback, link-local, and cloud
// metadata endpoints unless the caller's Config allow-lists them.
package security
