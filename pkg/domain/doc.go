/*
Package domain contains the core models of the patch keeper.

It defines the live port and connection graph mirrored from the audio backend,
the desired connection set persisted across sessions, and the hooks and errors
shared by the runtime and its adapters. This package is kept pure and free of
external dependencies like I/O or persistence.

# Key Entities

  - Port: a named, directional, typed endpoint (output or input, audio or MIDI).
  - Connection: a directed pair of full port names.
  - ConnectionSet: an ordered, duplicate-free sequence of connections.
  - Graph: the live registries of ports and connections, mutated only by backend events.
*/
package domain
