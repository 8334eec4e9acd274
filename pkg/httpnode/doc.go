// Package httpnode provides the outbound HTTP surface the HTTP executor
// depends on: SSRF validation and a registry of named, pre-configured
// clients (auth, headers, timeouts) that nodes can reference by UID instead
// of repeating configuration inline.
//
// A node's "url" either goes through the default client — built once per
// HTTP executor and shared across runs, with the engine's zero-trust SSRF
// policy applied to the request URL and to every redirect — or through a
// named client pulled from the Registry, which carries its own auth and
// header policy. A named client checks every redirect URL against SSRF
// rules; the initial request URL sent through it is not validated.
package httpnode
