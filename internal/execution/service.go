// Package execution runs notebook cells: JavaScript in-process, everything
// else on a remote Piston-compatible service.
package execution

import (
	"context"
	"fmt"

	"github.com/isdelr/notebook-be/internal/common"
	"github.com/isdelr/notebook-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Request is a single cell execution.
type Request struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
}

// Result is the captured output of an execution, keyed by canonical language.
type Result struct {
	Language models.Language `json:"language"`
	Stdout   string          `json:"stdout"`
	Stderr   string          `json:"stderr"`
}

// ServiceProvider defines the interface for executing code.
type ServiceProvider interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Service dispatches executions by language.
type Service struct {
	piston   *PistonClient
	runtimes *RuntimeCache
	js       *JSEvaluator
}

// NewService creates a new execution Service.
func NewService(piston *PistonClient, runtimes *RuntimeCache, js *JSEvaluator) *Service {
	return &Service{piston: piston, runtimes: runtimes, js: js}
}

// Execute runs req and returns its output.
func (s *Service) Execute(ctx context.Context, req Request) (Result, error) {
	if req.Language == "" || req.Code == "" {
		return Result{}, fmt.Errorf("%w: missing language or code", common.ErrValidation)
	}
	lang, ok := models.ParseLanguage(req.Language)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", common.ErrUnsupportedLanguage, req.Language)
	}

	if lang == models.LanguageJavaScript {
		stdout, stderr := s.js.Run(ctx, req.Code, req.Stdin)
		return Result{Language: lang, Stdout: stdout, Stderr: stderr}, nil
	}

	version, err := s.runtimes.Version(ctx, string(lang))
	if err != nil {
		return Result{}, err
	}

	out, err := s.piston.Execute(ctx, string(lang), version, req.Code, req.Stdin)
	if err != nil {
		return Result{}, err
	}
	log.Debug().Str("language", string(lang)).Str("version", version).Msg("Executed cell remotely")

	stderr := out.Run.Stderr
	if out.Compile.Failed() && out.Compile.Stderr != "" {
		stderr = out.Compile.Stderr + stderr
	}
	return Result{Language: lang, Stdout: out.Run.Stdout, Stderr: stderr}, nil
}
