// Package reviewserver exposes the review service as MCP tools.
package reviewserver

import (
	"github.com/anatolykoptev/go_review/internal/engine/reviews"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers every review tool on the given MCP server.
func RegisterTools(server *mcp.Server, svc *reviews.Service) {
	registerMediaTranscript(server, svc)
	registerVideoAnalyze(server, svc)
	registerChannelAnalyze(server, svc)
	registerPodcastAnalyze(server, svc)

	registerPerfumeParameters(server, svc)
	registerPerfumeReviews(server, svc)
	registerVideoQuestion(server, svc)
	registerPerfumeDefine(server, svc)

	registerFeedbackSave(server, svc)
	registerPerfumeList(server, svc)
	registerPerfumeDelete(server, svc)
}
