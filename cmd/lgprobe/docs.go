package main

// General API documentation for swaggo. The served document lives in
// internal/apidocs.
//
// @title           lgprobe API
// @version         1.0
// @description     Concurrent bandwidth probes against looking-glass speed test payloads.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
