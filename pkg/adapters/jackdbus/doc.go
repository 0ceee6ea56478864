// Package jackdbus talks to a JACK server through the jackdbus relay
// (org.jackaudio.service on the session bus).
//
// Port and connection changes arrive as JackPatchbay signals and are
// replayed onto a ports.EventSink with full "client:port" names.
package jackdbus
