// Package platform implements the per-platform probe/download collaborators.
//
// Each Platform answers two questions for one target: is it live right now,
// and can a continuous part be recorded to disk. Two implementations ship:
// an HLS recorder that probes the manifest over HTTP and records through
// ffmpeg, and a yt-dlp backed recorder that probes via --dump-json and
// records through the same binary. The Registry maps a target's platform tag
// to an implementation and surfaces unsupported tags as fatal errors.
//
// Probe and download failures are classified with the services sentinel
// errors so the supervisor can distinguish fatal conditions (bad target
// configuration, unsupported platform) from retryable ones.
package platform
