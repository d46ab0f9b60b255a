// Package logx configures tellmewhen's structured logging.
//
// Logger is a thin value type over zerolog. The console sink is
// human-readable with millisecond timestamps and a short caller; the file
// sink, and the console with JSON set, write one JSON object per line.
package logx
