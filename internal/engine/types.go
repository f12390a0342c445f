package engine

// --- Tool inputs ---

type MediaInput struct {
	URL      string `json:"url" jsonschema:"YouTube, Spotify episode or direct audio/HLS URL"`
	Language string `json:"language,omitempty" jsonschema:"Spoken language code (default: es)"`
}

type ParametersInput struct {
	URL           string `json:"video_url,omitempty" jsonschema:"URL of the video to analyze"`
	Transcription string `json:"transcription,omitempty" jsonschema:"Transcript text; used instead of video_url when given"`
	Language      string `json:"language,omitempty" jsonschema:"Spoken language code (default: es)"`
}

type QuestionInput struct {
	URL      string `json:"video_url" jsonschema:"URL of the video"`
	Question string `json:"question" jsonschema:"Question about the video content"`
	Language string `json:"language,omitempty" jsonschema:"Spoken language code (default: es)"`
}

type DefineInput struct {
	Term string `json:"term" jsonschema:"Perfumery term to define"`
}

type FeedbackInput struct {
	Type    string `json:"type" jsonschema:"What the feedback is about: summary, definition, answer, parameters"`
	Result  bool   `json:"result" jsonschema:"true if the output was useful"`
	Content string `json:"content" jsonschema:"The rated content"`
	Prompt  string `json:"prompt,omitempty" jsonschema:"Prompt that produced the content"`
}

type PerfumeListInput struct {
	VideoID string `json:"video_id" jsonschema:"Media identifier (YouTube video id)"`
}

type ChannelInput struct {
	URL      string `json:"url" jsonschema:"YouTube channel URL (/channel/UC..., /@handle or /user/name) or @handle"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Recent videos to list (default: 10, max: 50)"`
	Language string `json:"language,omitempty" jsonschema:"Spoken language code (default: es)"`
}

type PodcastInput struct {
	URL      string `json:"url" jsonschema:"Spotify show URL (https://open.spotify.com/show/...)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Episodes to list (default: 5, max: 50)"`
	Language string `json:"language,omitempty" jsonschema:"Spoken language code (default: es)"`
}

// --- LLM outputs ---

// PerfumeParameter is a perfume with 0-10 ratings; nil means not mentioned.
type PerfumeParameter struct {
	PerfumeName string `json:"perfume_name"`
	Brand       string `json:"brand,omitempty"`
	Fragancia   *int   `json:"fragancia"`
	Duracion    *int   `json:"duracion"`
	Diseno      *int   `json:"diseno"`
	Calidad     *int   `json:"calidad"`
	Precio      *int   `json:"precio"`
}

// PerfumeReview is the reviewer's verdict on one perfume.
type PerfumeReview struct {
	Brand       string `json:"brand"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Rating      string `json:"rating"` // positiva, negativa, neutra
	Reason      string `json:"reason,omitempty"`
}

// Definition is a term definition plus the prompts that produced it.
type Definition struct {
	Term         string `json:"term"`
	Definition   string `json:"definition"`
	PromptSystem string `json:"prompt_system"`
	PromptUser   string `json:"prompt_user"`
}

// Answer is a transcript-grounded answer plus the prompts that produced it.
type Answer struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	PromptSystem string `json:"prompt_system"`
	PromptUser   string `json:"prompt_user"`
}
