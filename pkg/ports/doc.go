/*
Package ports defines the driven ports (interfaces) of the patch keeper.

These interfaces decouple the reconciliation core from the audio backend, the
persistence layer, the session manager and the timer facility, allowing each
to be swapped per transport or replaced in tests.

# Key Interfaces

  - Backend: enumerates the live graph, delivers its callbacks and accepts
    fire-and-forget connect/disconnect requests.
  - PatchStore: loads and saves the desired connection set.
  - SessionReporter: receives dirty notifications and open/save acknowledgements.
  - Scheduler: restartable single-shot timers keyed by token.
*/
package ports
