package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/anatolykoptev/go_review/internal/engine/reviews"
	"github.com/anatolykoptev/go_review/internal/engine/sources"
	"github.com/anatolykoptev/go_review/internal/engine/transcript"
	"github.com/anatolykoptev/go_review/internal/toolutil"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc     *reviews.Service
	version string
}

// videoRequest accepts both the legacy video_url field and url.
type videoRequest struct {
	VideoURL string `json:"video_url"`
	URL      string `json:"url"`
	Language string `json:"language"`
}

func (r videoRequest) target() string {
	if s := strings.TrimSpace(r.VideoURL); s != "" {
		return s
	}
	return strings.TrimSpace(r.URL)
}

// bindVideo decodes a videoRequest and rejects a missing URL.
func bindVideo(c *gin.Context) (videoRequest, bool) {
	var req videoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return req, false
	}
	if req.target() == "" {
		respondBadRequest(c, fmt.Errorf("video_url is required"))
		return req, false
	}
	return req, true
}

// run executes fn as a tracked operation bound to the request context.
func run[T any](c *gin.Context, op string, fn func(ctx context.Context) (T, error)) (T, bool) {
	out, err := toolutil.Call(c.Request.Context(), op, fn)
	if err != nil {
		respondError(c, err)
		return out, false
	}
	return out, true
}

// GET /
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "go_review API", "version": h.version})
}

// GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "metrics": engine.GetMetrics()})
}

// POST /api/transcript
func (h *Handler) Transcript(c *gin.Context) {
	req, ok := bindVideo(c)
	if !ok {
		return
	}
	t, ok := run(c, "api_transcript", func(ctx context.Context) (transcript.Transcript, error) {
		return h.svc.Transcribe(ctx, req.target(), req.Language)
	})
	if ok {
		c.JSON(http.StatusOK, t)
	}
}

// POST /api/process
// Full processing of one video: transcript, summary, word counts, perfume analysis.
func (h *Handler) Process(c *gin.Context) {
	req, ok := bindVideo(c)
	if !ok {
		return
	}
	out, ok := run(c, "api_process", func(ctx context.Context) (reviews.Outcome, error) {
		return h.svc.Process(ctx, req.target(), req.Language)
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
	}
}

// channelVideo is a listed upload; the newest one also carries its analysis.
type channelVideo struct {
	sources.ChannelVideo
	Summary   string  `json:"summary,omitempty"`
	Wordcount [][]any `json:"wordcount,omitempty"` // [word, count] pairs
	Stored    *bool   `json:"stored,omitempty"`
}

// POST /api/analyze
// Channel listing with statistics; videos[0] is the newest upload, analyzed.
func (h *Handler) Analyze(c *gin.Context) {
	var in engine.ChannelInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}
	res, ok := run(c, "api_analyze_channel", func(ctx context.Context) (reviews.ChannelResult, error) {
		return h.svc.AnalyzeChannel(ctx, in)
	})
	if !ok {
		return
	}
	videos := make([]channelVideo, len(res.Channel.Videos))
	for i, v := range res.Channel.Videos {
		videos[i] = channelVideo{ChannelVideo: v}
	}
	if res.Latest != nil && len(videos) > 0 {
		latest := &videos[0]
		latest.Summary = res.Latest.Summary
		latest.Wordcount = make([][]any, len(res.Latest.WordFreqs))
		for i, f := range res.Latest.WordFreqs {
			latest.Wordcount[i] = []any{f.Word, f.Count}
		}
		latest.Stored = &res.Latest.Stored
	}
	c.JSON(http.StatusOK, gin.H{
		"channel_title": res.Channel.Title,
		"description":   res.Channel.Description,
		"videos":        videos,
		"warnings":      res.Warnings,
	})
}

// POST /api/analyze-perfumes
func (h *Handler) AnalyzePerfumes(c *gin.Context) {
	req, ok := bindVideo(c)
	if !ok {
		return
	}
	list, ok := run(c, "api_analyze_perfumes", func(ctx context.Context) ([]engine.PerfumeReview, error) {
		return h.svc.Reviews(ctx, req.target(), req.Language)
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "analysis": list})
	}
}

// POST /api/parameters
func (h *Handler) Parameters(c *gin.Context) {
	var in engine.ParametersInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}
	res, ok := run(c, "api_parameters", func(ctx context.Context) (reviews.ParametersResult, error) {
		return h.svc.Parameters(ctx, in)
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"video_id": res.VideoID,
			"perfumes": res.Perfumes,
			"message":  res.Message,
		})
	}
}

// POST /api/ask_question
func (h *Handler) AskQuestion(c *gin.Context) {
	var in engine.QuestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}
	res, ok := run(c, "api_ask_question", func(ctx context.Context) (reviews.AskResult, error) {
		return h.svc.Ask(ctx, in)
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"video_id":      res.VideoID,
			"question":      res.Question,
			"answer":        res.Answer.Answer,
			"prompt_system": res.PromptSystem,
			"prompt_user":   res.PromptUser,
		})
	}
}

// POST /api/define
func (h *Handler) Define(c *gin.Context) {
	var in engine.DefineInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}
	def, ok := run(c, "api_define", func(ctx context.Context) (engine.Definition, error) {
		return h.svc.Define(ctx, in.Term)
	})
	if ok {
		c.JSON(http.StatusOK, def)
	}
}

// POST /api/feedback
func (h *Handler) Feedback(c *gin.Context) {
	var in engine.FeedbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}
	id, ok := run(c, "api_feedback", func(ctx context.Context) (int64, error) {
		return h.svc.SaveFeedback(ctx, in)
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{"id": id, "message": "Feedback guardado exitosamente."})
	}
}

// GET /api/perfumes/:video_id
func (h *Handler) ListPerfumes(c *gin.Context) {
	videoID := c.Param("video_id")
	recs, ok := run(c, "api_list_perfumes", func(ctx context.Context) ([]reviews.PerfumeRecord, error) {
		return h.svc.ListPerfumes(ctx, videoID)
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{"video_id": videoID, "perfumes": recs, "total": len(recs)})
	}
}

// DELETE /api/perfumes/:id
func (h *Handler) DeletePerfume(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, fmt.Errorf("invalid perfume id %q", c.Param("id")))
		return
	}
	if _, ok := run(c, "api_delete_perfume", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.svc.DeletePerfume(ctx, id)
	}); ok {
		c.Status(http.StatusNoContent)
	}
}

// POST /api/podcast
func (h *Handler) Podcast(c *gin.Context) {
	var in engine.PodcastInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}
	res, ok := run(c, "api_podcast", func(ctx context.Context) (reviews.PodcastResult, error) {
		return h.svc.AnalyzePodcast(ctx, in)
	})
	if ok {
		c.JSON(http.StatusOK, res)
	}
}
