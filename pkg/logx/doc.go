// Package logx provides a small zerolog-based logging facade with
// runtime-swappable sinks (console, file, event bus).
package logx
