package reviewserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/anatolykoptev/go_review/internal/engine/reviews"
	"github.com/anatolykoptev/go_review/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerFeedbackSave(server *mcp.Server, svc *reviews.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "feedback_save",
		Description: "Record whether a generated summary, definition, answer or rating was useful. Stored with the prompt that produced it.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.FeedbackInput) (*mcp.CallToolResult, *MessageOutput, error) {
		id, err := toolutil.Call(ctx, "feedback_save", func(ctx context.Context) (int64, error) {
			return svc.SaveFeedback(ctx, input)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &MessageOutput{ID: id, Message: "feedback saved"}, nil
	})
}

func registerPerfumeList(server *mcp.Server, svc *reviews.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "perfume_list",
		Description: "List the perfume ratings stored for a video id, oldest first.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.PerfumeListInput) (*mcp.CallToolResult, *PerfumeListOutput, error) {
		recs, err := toolutil.Call(ctx, "perfume_list", func(ctx context.Context) ([]reviews.PerfumeRecord, error) {
			return svc.ListPerfumes(ctx, input.VideoID)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &PerfumeListOutput{VideoID: input.VideoID, Perfumes: recs, Total: len(recs)}, nil
	})
}

func registerPerfumeDelete(server *mcp.Server, svc *reviews.Service) {
	destructive := true
	mcp.AddTool(server, &mcp.Tool{
		Name:        "perfume_delete",
		Description: "Delete one stored perfume rating by id. Get ids from perfume_list.",
		Annotations: &mcp.ToolAnnotations{DestructiveHint: &destructive},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input PerfumeDeleteInput) (*mcp.CallToolResult, *MessageOutput, error) {
		if input.ID <= 0 {
			return nil, nil, errors.New("id is required")
		}
		_, err := toolutil.Call(ctx, "perfume_delete", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, svc.DeletePerfume(ctx, input.ID)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &MessageOutput{ID: input.ID, Message: fmt.Sprintf("perfume %d deleted", input.ID)}, nil
	})
}
