// Package logger wraps zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and an optional rotating file sink,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Services accept a context and extract the logger from it, so a worker
// goroutine logs with the same name and fields as the command that started it.
package logger
