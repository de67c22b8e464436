package scenario

// CaseFile describes the selected file for upload lab cases.
type CaseFile struct {
	Name string `yaml:"name"`
	Size int64  `yaml:"size,omitempty"`
	MIME string `yaml:"mime,omitempty"`
}

// Expectation is what a case must classify as. Empty fields are not checked.
type Expectation struct {
	Kind     string `yaml:"kind"`
	Severity string `yaml:"severity,omitempty"`
	// Contains must appear in the result message.
	Contains string `yaml:"contains,omitempty"`
}

// Case is one submission within a scenario.
type Case struct {
	Category    string      `yaml:"category"`
	Mode        string      `yaml:"mode,omitempty"`
	Input       string      `yaml:"input,omitempty"`
	Credentials bool        `yaml:"credentials,omitempty"`
	File        *CaseFile   `yaml:"file,omitempty"`
	Expect      Expectation `yaml:"expect"`
}

// Scenario is a named collection of lab test cases. Category and Mode set
// defaults for cases that omit them.
type Scenario struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category,omitempty"`
	Mode     string `yaml:"mode,omitempty"`
	Cases    []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Category string `json:"category"`
	Mode     string `json:"mode"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Message  string `json:"message"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
