package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cyberlab/internal/classify"
	"github.com/ppiankov/cyberlab/internal/config"
	"github.com/ppiankov/cyberlab/internal/model"
)

// Run classifies every case with env. Cases are independent; an invalid
// category or mode fails that case rather than the run.
func Run(s *Scenario, env classify.Env) *RunResult {
	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		cat := c.Category
		if cat == "" {
			cat = s.Category
		}
		mode := c.Mode
		if mode == "" {
			mode = s.Mode
		}

		cr := CaseResult{
			Index:    i + 1,
			Category: cat,
			Mode:     mode,
			Input:    caseInput(c),
			Expected: describe(c.Expect),
		}

		res, err := classifyCase(cat, mode, c, env)
		if err != nil {
			cr.Actual = "error"
			cr.Message = err.Error()
		} else {
			cr.Actual = string(res.Kind) + "/" + string(res.Severity)
			cr.Message = res.Message
			cr.Passed = matches(c.Expect, res)
		}

		if cr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

func classifyCase(cat, mode string, c Case, env classify.Env) (model.Result, error) {
	category, err := model.ParseCategory(cat)
	if err != nil {
		return model.Result{}, err
	}
	sub := model.Submission{
		Category:    category,
		Mode:        model.Mode(mode),
		Input:       c.Input,
		Credentials: c.Credentials,
	}
	if c.File != nil {
		sub.File = &model.FileInfo{Name: c.File.Name, Size: c.File.Size, MIME: c.File.MIME}
	}
	return classify.Classify(sub, env)
}

func matches(e Expectation, res model.Result) bool {
	if !strings.EqualFold(e.Kind, string(res.Kind)) {
		return false
	}
	if e.Severity != "" && !strings.EqualFold(e.Severity, string(res.Severity)) {
		return false
	}
	if e.Contains != "" && !strings.Contains(res.Message, e.Contains) {
		return false
	}
	return true
}

func describe(e Expectation) string {
	s := strings.ToLower(e.Kind)
	if e.Severity != "" {
		s += "/" + strings.ToLower(e.Severity)
	}
	return s
}

func caseInput(c Case) string {
	if c.File != nil {
		return c.File.Name
	}
	return c.Input
}

// Parse decodes a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadAndRun loads a scenario YAML file and the service config, and runs.
func LoadAndRun(path, configPath string) (*RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	result := Run(s, cfg.Env())
	result.File = path
	return result, nil
}
