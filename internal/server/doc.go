// Package server exposes an Engine over HTTP and pushes changes to browsers
// over WebSocket.
//
// Routes:
//
//	GET    /api/timers                          list rows
//	POST   /api/timers                          create {studentName, examName, durationMinutes}
//	DELETE /api/timers                          clear all
//	POST   /api/timers/{id}/start               start or resume
//	POST   /api/timers/{id}/pause               pause
//	DELETE /api/timers/{id}                     delete
//	POST   /api/timers/{id}/alarms/{kind}/ack   acknowledge a fired alarm
//	GET    /api/ws                              snapshot and cue stream
//
// Every WebSocket message is {"type": ..., "payload": ...}. A snapshot
// message carries the full row list and is sent on connect and after every
// change; a cue message carries one engine.Cue.
package server
