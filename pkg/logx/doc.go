// Package logx provides structured logging for shiftd.
//
// It wraps zerolog behind a small Logger value that stays live across
// runtime reconfiguration (Service.Apply), so components can hold a Logger
// for their whole lifetime while sinks and levels change underneath.
package logx
