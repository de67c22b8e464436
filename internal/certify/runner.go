package certify

import (
	"github.com/ppiankov/cyberlab/internal/classify"
	"github.com/ppiankov/cyberlab/internal/scenario"
)

// CategoryResult holds pass/fail results for one category.
type CategoryResult struct {
	Name   string                `json:"name"`
	Total  int                   `json:"total"`
	Passed int                   `json:"passed"`
	Failed int                   `json:"failed"`
	Cases  []scenario.CaseResult `json:"cases"`
}

// CertResult holds the full certification outcome.
type CertResult struct {
	Suite      string           `json:"suite"`
	Version    string           `json:"version"`
	ConfigHash string           `json:"config_hash,omitempty"`
	Total      int              `json:"total"`
	Passed     int              `json:"passed"`
	Failed     int              `json:"failed"`
	Categories []CategoryResult `json:"categories"`
}

// Run classifies every case of the suite with env.
func Run(suite *Suite, env classify.Env) *CertResult {
	result := &CertResult{
		Suite:   suite.Name,
		Version: suite.Version,
	}

	for _, cat := range suite.Categories {
		rr := scenario.Run(&scenario.Scenario{Name: cat.Name, Cases: cat.Cases}, env)
		cr := CategoryResult{
			Name:   cat.Name,
			Total:  rr.Total,
			Passed: rr.Passed,
			Failed: rr.Failed,
			Cases:  rr.Cases,
		}
		result.Total += cr.Total
		result.Passed += cr.Passed
		result.Failed += cr.Failed
		result.Categories = append(result.Categories, cr)
	}

	return result
}
