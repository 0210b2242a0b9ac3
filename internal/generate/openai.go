package generate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/DeclanJeon/autostory-sub001/internal/pipeline"
	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

// Persona is a writing voice the generator can adopt.
type Persona struct {
	Name  string
	Voice string
}

// Template is a named prompt skeleton; "{{topic}}" is replaced with the
// job's theme.
type Template struct {
	Name   string
	Prompt string
}

type Options struct {
	Model   string
	APIKey  string
	BaseURL string

	Personas  []Persona
	Templates []Template

	// OutDir receives the generated draft files.
	OutDir string
}

// OpenAI implements pipeline.StyleSelector and pipeline.ContentGenerator
// using the official openai-go SDK (chat completions).
type OpenAI struct {
	model string
	opts  []option.RequestOption

	personas  []Persona
	templates []Template
	outDir    string

	rng *rand.Rand
	log logx.Logger
}

func NewOpenAI(cfg Options, rng *rand.Rand, log logx.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("generator model is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		model:     cfg.Model,
		opts:      opts,
		personas:  cfg.Personas,
		templates: cfg.Templates,
		outDir:    cfg.OutDir,
		rng:       rng,
		log:       log,
	}, nil
}

// SelectStyle picks a persona/prompt pairing: template-based when templates
// are configured, automatic otherwise.
func (o *OpenAI) SelectStyle(ctx context.Context, req pipeline.StyleRequest) (pipeline.Style, error) {
	_ = ctx
	style := pipeline.Style{Automatic: true}

	if len(o.personas) > 0 {
		p := o.personas[o.intn(len(o.personas))]
		style.Persona = p.Name
	}
	if len(o.templates) > 0 {
		t := o.templates[o.intn(len(o.templates))]
		style.Prompt = strings.ReplaceAll(t.Prompt, "{{topic}}", req.Theme)
		style.Automatic = false
	} else {
		style.Prompt = "Write an engaging blog post about: " + req.Theme
	}
	return style, nil
}

// Generate asks the model for a markdown draft and writes it to OutDir.
func (o *OpenAI) Generate(ctx context.Context, req pipeline.GenerateRequest) (pipeline.Draft, error) {
	client := openai.NewClient(o.opts...)

	system := "You are a professional blog writer. Output Markdown only, no extra commentary. " +
		"Start with a single H1 line used as the post title."
	if req.Style.Persona != "" {
		if v := o.personaVoice(req.Style.Persona); v != "" {
			system += " Voice: " + v
		}
	}

	var sb strings.Builder
	sb.WriteString(req.Style.Prompt)
	if len(req.Materials) > 0 {
		sb.WriteString("\n\nSource materials:\n")
		for _, m := range req.Materials {
			sb.WriteString("- ")
			sb.WriteString(m.Title)
			if m.Snippet != "" {
				sb.WriteString(": ")
				sb.WriteString(m.Snippet)
			}
			if m.Link != "" {
				sb.WriteString(" (")
				sb.WriteString(m.Link)
				sb.WriteString(")")
			}
			sb.WriteString("\n")
		}
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(sb.String()),
		},
	})
	if err != nil {
		return pipeline.Draft{}, err
	}
	if len(resp.Choices) == 0 {
		return pipeline.Draft{}, errors.New("openai: empty choices")
	}
	md := resp.Choices[0].Message.Content

	title, body := pipeline.SplitTitle(md)
	if title == "" {
		title = req.Theme
		body = md
	}

	draft := pipeline.Draft{
		Title:    title,
		Markdown: body,
		Images:   imageRefs(body),
	}

	if o.outDir != "" {
		path, err := o.writeDraft(title, md)
		if err != nil {
			o.log.Warn("draft file write failed", logx.Err(err))
		} else {
			draft.FilePath = path
		}
	}
	return draft, nil
}

func (o *OpenAI) personaVoice(name string) string {
	for _, p := range o.personas {
		if p.Name == name {
			return p.Voice
		}
	}
	return ""
}

func (o *OpenAI) writeDraft(title, md string) (string, error) {
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.md", time.Now().Format("20060102-150405"), Slugify(title))
	path := filepath.Join(o.outDir, name)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (o *OpenAI) intn(n int) int {
	if n <= 1 {
		return 0
	}
	if o.rng != nil {
		return o.rng.Intn(n)
	}
	return 0
}
