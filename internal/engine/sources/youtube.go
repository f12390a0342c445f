package sources

// YouTube access is split across files by responsibility:
//   youtube_innertube.go:  Innertube API types, constants and the ANDROID /player call
//   youtube_transcript.go: YouTube provider: watch page scrape, track choice, timedtext parsing
//   youtube_channel.go:    Data API v3 channel listing with per-video statistics
