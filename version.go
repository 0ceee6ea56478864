package jackpatch

// Version is the release version, set at build time with
// -ldflags "-X github.com/aretw0/jackpatch.Version=...".
var Version = "dev"
