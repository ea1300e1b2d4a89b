package subcontent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/llm"
	"github.com/jonathan/job-pipeline/internal/prompts"
	"github.com/jonathan/job-pipeline/internal/store"
)

const promptFile = "subcontent.json"

// sectionTier picks a model tier per section: short structural sections use
// the lite tier, prose sections the standard one.
func sectionTier(section string) llm.ModelTier {
	switch section {
	case "contacts", "skills", "awards", "education":
		return llm.TierLite
	}
	return llm.TierStandard
}

// ClientFactory builds an LLM client for one invocation. Tests substitute a
// local implementation.
type ClientFactory func(ctx context.Context, apiKey string) (llm.Client, error)

// DefaultClientFactory returns the configured Gemini client.
func DefaultClientFactory(ctx context.Context, apiKey string) (llm.Client, error) {
	return llm.NewClient(ctx, llm.DefaultConfig(), apiKey)
}

// LLMEvent produces one section by rewriting the candidate's default content
// against the job posting with an LLM.
type LLMEvent struct {
	Section   string
	Store     *store.Store
	NewClient ClientFactory
}

func (e *LLMEvent) Name() string {
	return EventName(e.Section, ModeLLM)
}

// SelfTest verifies the section's prompt exists in the embedded prompt file.
func (e *LLMEvent) SelfTest(ctx context.Context) error {
	if _, err := prompts.Get(promptFile, "base"); err != nil {
		return err
	}
	_, err := prompts.Get(promptFile, e.Section)
	return err
}

func (e *LLMEvent) Execute(ctx context.Context, rec *store.Record, ec *events.Context) events.Result {
	target := artifacts.SubcontentFile(e.Section)

	reference, result := e.readReference(ec)
	if result != nil {
		return *result
	}
	posting, err := os.ReadFile(rec.Path(artifacts.JobText))
	if err != nil {
		return events.Failure(events.KindValidation,
			"job posting text %s missing; create the job with a posting first", artifacts.JobText)
	}

	if ec.TestMode {
		// Deterministic local output keeps test-mode runs network-free.
		stub := fmt.Sprintf("# %s\n\ngenerated offline for %s at %s\n",
			e.Section, rec.Identity.Title, rec.Identity.Company)
		if err := e.Store.WriteArtifact(rec, target, []byte(stub)); err != nil {
			return events.Failure(events.KindFatalIO, "writing %s: %v", target, err)
		}
		return events.Success(fmt.Sprintf("generated %s (test mode)", e.Section), target)
	}

	if ec.APIKey == "" {
		return events.Failure(events.KindValidation, "no API key configured for llm-mode section %s", e.Section)
	}

	base, err := prompts.Get(promptFile, "base")
	if err != nil {
		return events.Failure(events.KindInternal, "loading base prompt: %v", err)
	}
	sectionPrompt, err := prompts.Get(promptFile, e.Section)
	if err != nil {
		return events.Failure(events.KindInternal, "loading %s prompt: %v", e.Section, err)
	}
	prompt := prompts.Format(base, map[string]string{
		"Posting":   string(posting),
		"Reference": reference,
		"Section":   sectionPrompt,
	})

	factory := e.NewClient
	if factory == nil {
		factory = DefaultClientFactory
	}
	client, err := factory(ctx, ec.APIKey)
	if err != nil {
		return events.Failure(events.KindExternalService, "creating LLM client: %v", err)
	}
	defer client.Close()

	content, err := client.GenerateContent(ctx, prompt, sectionTier(e.Section))
	if err != nil {
		return events.Failure(events.KindExternalService, "generating %s: %v", e.Section, err)
	}
	if err := e.Store.WriteArtifact(rec, target, []byte(content)); err != nil {
		return events.Failure(events.KindFatalIO, "writing %s: %v", target, err)
	}
	return events.Success(fmt.Sprintf("generated %s via %s", e.Section, llm.ProviderGemini), target)
}

func (e *LLMEvent) readReference(ec *events.Context) (string, *events.Result) {
	if ec.ResumeRef == "" {
		res := events.Failure(events.KindValidation, "no default-resume reference directory configured")
		return "", &res
	}
	source := filepath.Join(ec.ResumeRef, referenceFile(e.Section))
	data, err := os.ReadFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			res := events.Failure(events.KindValidation,
				"reference file %s missing for section %s", source, e.Section)
			return "", &res
		}
		res := events.Failure(events.KindFatalIO, "reading reference %s: %v", source, err)
		return "", &res
	}
	return string(data), nil
}
