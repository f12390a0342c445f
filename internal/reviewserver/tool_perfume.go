package reviewserver

import (
	"context"

	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/anatolykoptev/go_review/internal/engine/reviews"
	"github.com/anatolykoptev/go_review/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerPerfumeParameters(server *mcp.Server, svc *reviews.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "perfume_parameters",
		Description: "Rate every perfume mentioned in a video (or in a given transcription) on fragancia, duracion, diseno, calidad and precio, 0-10. Axes the reviewer never mentions are null.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.ParametersInput) (*mcp.CallToolResult, *reviews.ParametersResult, error) {
		res, err := toolutil.Call(ctx, "perfume_parameters", func(ctx context.Context) (reviews.ParametersResult, error) {
			return svc.Parameters(ctx, input)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &res, nil
	})
}

func registerPerfumeReviews(server *mcp.Server, svc *reviews.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "perfume_reviews",
		Description: "Extract brand, name, description, verdict (positiva/negativa/neutra) and reason for every perfume reviewed in a video.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.MediaInput) (*mcp.CallToolResult, *ReviewsOutput, error) {
		list, err := toolutil.Call(ctx, "perfume_reviews", func(ctx context.Context) ([]engine.PerfumeReview, error) {
			return svc.Reviews(ctx, input.URL, input.Language)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &ReviewsOutput{VideoURL: input.URL, Perfumes: list}, nil
	})
}

func registerVideoQuestion(server *mcp.Server, svc *reviews.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_question",
		Description: "Answer a question about a video using only its transcript. Returns the answer and the prompts used.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.QuestionInput) (*mcp.CallToolResult, *reviews.AskResult, error) {
		res, err := toolutil.Call(ctx, "video_question", func(ctx context.Context) (reviews.AskResult, error) {
			return svc.Ask(ctx, input)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &res, nil
	})
}

func registerPerfumeDefine(server *mcp.Server, svc *reviews.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "perfume_define",
		Description: "Short professional Spanish definition of a perfumery term (e.g. 'notas de salida', 'almizcle', 'eau de parfum').",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.DefineInput) (*mcp.CallToolResult, *engine.Definition, error) {
		def, err := toolutil.Call(ctx, "perfume_define", func(ctx context.Context) (engine.Definition, error) {
			return svc.Define(ctx, input.Term)
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &def, nil
	})
}
