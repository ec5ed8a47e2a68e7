package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/quota"
	"github.com/felixgeelhaar/lulu/internal/usage"
)

// Tutor is the tutoring service exposed as tools
type Tutor interface {
	ValidateCode(ctx context.Context, req domain.CodeValidationRequest) (domain.CodeValidationResult, error)
	GenerateQuestions(ctx context.Context, req domain.QuestionRequest) (domain.QuestionSet, error)
	Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error)
	ExplainConcept(ctx context.Context, req domain.ConceptRequest) (domain.ConceptExplanation, error)
}

// UsageSource reports usage statistics
type UsageSource interface {
	StatsToday() usage.DailyStats
	StatsMonth() usage.MonthStats
}

// QuotaSource reports the limiter windows
type QuotaSource interface {
	Stats(now time.Time) quota.Stats
}

// Server wraps the MCP server with the tutoring tools
type Server struct {
	mcpServer *server.Server
	tutor     Tutor
	usage     UsageSource
	quota     QuotaSource
}

// Config contains configuration for the MCP server
type Config struct {
	Tutor   Tutor
	Usage   UsageSource
	Quota   QuotaSource
	Version string
}

// NewServer creates a new MCP server
func NewServer(cfg Config) *Server {
	s := &Server{
		tutor: cfg.Tutor,
		usage: cfg.Usage,
		quota: cfg.Quota,
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "lulu",
		Version: cfg.Version,
	}, server.WithInstructions(`
Lulu is the AI tutor of a programming course. Every tool call spends the
shared model quota unless the answer is cached.

Available tools:
- lulu_validate_code: Judge a code submission against an exercise
- lulu_generate_questions: Generate multiple-choice questions for a subtopic
- lulu_chat: Ask the tutor a question with optional course context
- lulu_explain: Get a beginner-friendly explanation of a concept
- lulu_usage: Show model usage and remaining quota

Learner-facing text is in Spanish.
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("lulu_validate_code").
		Description("Validate a code submission for an exercise and return a verdict with educational feedback.").
		Handler(s.handleValidate)

	s.mcpServer.Tool("lulu_generate_questions").
		Description("Generate and store multiple-choice questions for a subtopic.").
		Handler(s.handleQuestions)

	s.mcpServer.Tool("lulu_chat").
		Description("Ask the tutor a question. Optional topic, subtopic and exercise focus the answer.").
		Handler(s.handleChat)

	s.mcpServer.Tool("lulu_explain").
		Description("Explain a programming concept for a beginner.").
		Handler(s.handleExplain)

	s.mcpServer.Tool("lulu_usage").
		Description("Show today's and this month's model usage and the remaining quota.").
		Handler(s.handleUsage)
}

// Input/Output types for tools

type ValidateInput struct {
	Code       string `json:"code" jsonschema:"description=Submitted source code"`
	ExerciseID int64  `json:"exercise_id" jsonschema:"description=Exercise ID"`
	Language   string `json:"language" jsonschema:"description=Programming language, e.g. python"`
	Statement  string `json:"statement,omitempty" jsonschema:"description=Exercise statement"`
	TestCases  string `json:"test_cases,omitempty" jsonschema:"description=Test cases as a JSON array"`
	UserID     int64  `json:"user_id,omitempty" jsonschema:"description=Learner ID used for attribution"`
}

type QuestionsInput struct {
	SubtopicID int64  `json:"subtopic_id" jsonschema:"description=Subtopic ID"`
	Count      int    `json:"count,omitempty" jsonschema:"description=Number of questions (1-20, default 5)"`
	Difficulty string `json:"difficulty,omitempty" jsonschema:"description=Difficulty,enum=basica,enum=intermedia,enum=avanzada"`
}

type ChatTurn struct {
	Role    string `json:"role" jsonschema:"enum=user,enum=assistant"`
	Content string `json:"content"`
}

type ChatInput struct {
	Message    string     `json:"message" jsonschema:"description=Learner message"`
	History    []ChatTurn `json:"history,omitempty" jsonschema:"description=Previous turns, oldest first"`
	Topic      string     `json:"topic,omitempty" jsonschema:"description=Current topic"`
	Subtopic   string     `json:"subtopic,omitempty" jsonschema:"description=Current subtopic"`
	ExerciseID int64      `json:"exercise_id,omitempty" jsonschema:"description=Current exercise ID"`
}

type ExplainInput struct {
	Concept  string `json:"concept" jsonschema:"description=Concept to explain"`
	Topic    string `json:"topic,omitempty"`
	Subtopic string `json:"subtopic,omitempty"`
}

type UsageInput struct{}

type UsageOutput struct {
	Today   usage.DailyStats `json:"today"`
	Month   usage.MonthStats `json:"month"`
	Quota   quota.Stats      `json:"quota"`
	Summary string           `json:"summary"`
}

func (s *Server) handleValidate(ctx context.Context, input ValidateInput) (domain.CodeValidationResult, error) {
	req := domain.CodeValidationRequest{
		Code:       input.Code,
		ExerciseID: input.ExerciseID,
		Language:   input.Language,
		Statement:  input.Statement,
		UserID:     input.UserID,
	}
	if input.TestCases != "" {
		if !json.Valid([]byte(input.TestCases)) {
			return domain.CodeValidationResult{}, fmt.Errorf("%w: test_cases is not valid JSON", domain.ErrInvalidInput)
		}
		req.TestCases = json.RawMessage(input.TestCases)
	}

	res, err := s.tutor.ValidateCode(ctx, req)
	if err != nil {
		return domain.CodeValidationResult{}, fmt.Errorf("validate code: %w", err)
	}
	return res, nil
}

func (s *Server) handleQuestions(ctx context.Context, input QuestionsInput) (domain.QuestionSet, error) {
	set, err := s.tutor.GenerateQuestions(ctx, domain.QuestionRequest{
		SubtopicID: input.SubtopicID,
		Count:      input.Count,
		Difficulty: domain.Difficulty(input.Difficulty),
	})
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("generate questions: %w", err)
	}
	return set, nil
}

func (s *Server) handleChat(ctx context.Context, input ChatInput) (domain.ChatResponse, error) {
	req := domain.ChatRequest{Message: input.Message}
	for _, turn := range input.History {
		req.History = append(req.History, domain.ChatMessage{Role: domain.ChatRole(turn.Role), Content: turn.Content})
	}
	if input.Topic != "" || input.Subtopic != "" || input.ExerciseID != 0 {
		req.Context = &domain.ChatContext{Topic: input.Topic, Subtopic: input.Subtopic, ExerciseID: input.ExerciseID}
	}

	resp, err := s.tutor.Chat(ctx, req)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("chat: %w", err)
	}
	return resp, nil
}

func (s *Server) handleExplain(ctx context.Context, input ExplainInput) (domain.ConceptExplanation, error) {
	exp, err := s.tutor.ExplainConcept(ctx, domain.ConceptRequest{
		Concept:  input.Concept,
		Topic:    input.Topic,
		Subtopic: input.Subtopic,
	})
	if err != nil {
		return domain.ConceptExplanation{}, fmt.Errorf("explain concept: %w", err)
	}
	return exp, nil
}

func (s *Server) handleUsage(ctx context.Context, _ UsageInput) (UsageOutput, error) {
	if s.usage == nil || s.quota == nil {
		return UsageOutput{}, fmt.Errorf("usage statistics are not available")
	}
	out := UsageOutput{
		Today: s.usage.StatsToday(),
		Month: s.usage.StatsMonth(),
		Quota: s.quota.Stats(time.Now()),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Today: %d model calls, %d from cache. ", out.Today.RealRequests, out.Today.CacheRequests)
	fmt.Fprintf(&b, "Quota: %d/%d per minute, %d/%d per day (%.1f%%).",
		out.Quota.RequestsLastMinute, out.Quota.RPMLimit,
		out.Quota.RequestsToday, out.Quota.DailyLimit, out.Quota.DailyUsagePercent)
	out.Summary = b.String()
	return out, nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
