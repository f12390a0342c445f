package reviewserver

import (
	"context"

	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/anatolykoptev/go_review/internal/engine/reviews"
	"github.com/anatolykoptev/go_review/internal/engine/transcript"
	"github.com/anatolykoptev/go_review/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerMediaTranscript(server *mcp.Server, svc *reviews.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "media_transcript",
		Description: "Get the transcript of a YouTube video, Spotify episode or direct audio/HLS URL. Tries captions first, then downloads the audio (direct, then HLS re-encode) and runs a local whisper model. Returns the raw and punctuated text, the stage that produced it and every attempt made.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.MediaInput) (*mcp.CallToolResult, *transcript.Transcript, error) {
		t, err := toolutil.Call(ctx, "media_transcript", func(ctx context.Context) (transcript.Transcript, error) {
			return svc.Transcribe(ctx, input.URL, input.Language)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &t, nil
	})
}

func registerVideoAnalyze(server *mcp.Server, svc *reviews.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_analyze",
		Description: "Full analysis of a perfume review video: transcript, title, Spanish summary, word frequencies, per-perfume verdicts (positiva/negativa/neutra) and 0-10 ratings for fragancia, duracion, diseno, calidad and precio. Ratings are saved to the database the first time a video is analyzed.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.MediaInput) (*mcp.CallToolResult, *reviews.Outcome, error) {
		out, err := toolutil.Call(ctx, "video_analyze", func(ctx context.Context) (reviews.Outcome, error) {
			return svc.Process(ctx, input.URL, input.Language)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &out, nil
	})
}

func registerChannelAnalyze(server *mcp.Server, svc *reviews.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "channel_analyze",
		Description: "List a YouTube channel's newest uploads with views, likes and comment counts, then fully analyze the newest video (same output as video_analyze). Requires YOUTUBE_API_KEY.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.ChannelInput) (*mcp.CallToolResult, *reviews.ChannelResult, error) {
		res, err := toolutil.Call(ctx, "channel_analyze", func(ctx context.Context) (reviews.ChannelResult, error) {
			return svc.AnalyzeChannel(ctx, input)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &res, nil
	})
}

func registerPodcastAnalyze(server *mcp.Server, svc *reviews.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "podcast_analyze",
		Description: "Look up a Spotify podcast show, list its newest episodes and analyze the first episode that has an audio preview. Requires SPOTIFY_API_TOKEN.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.PodcastInput) (*mcp.CallToolResult, *reviews.PodcastResult, error) {
		res, err := toolutil.Call(ctx, "podcast_analyze", func(ctx context.Context) (reviews.PodcastResult, error) {
			return svc.AnalyzePodcast(ctx, input)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &res, nil
	})
}
