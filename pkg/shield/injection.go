package shield

import (
	"log/slog"
	"regexp"
)

// InjectionAction is the outcome of a prompt injection scan.
type InjectionAction string

const (
	InjectionBlock InjectionAction = "block"
	InjectionWarn  InjectionAction = "warn"
	InjectionPass  InjectionAction = "pass"
)

// InjectionRule pairs a compiled pattern with a risk weight in [0, 1].
type InjectionRule struct {
	Name    string
	Pattern *regexp.Regexp
	Weight  float64
}

// ScanResult reports the outcome of an injection scan. MatchedRules holds
// rule names only, never the matched text.
type ScanResult struct {
	Suspicious   bool
	RiskScore    float64
	MatchedRules []string
	Action       InjectionAction
}

// defaultInjectionRules covers the common override, role reassignment,
// extraction, jailbreak, delimiter, and encoding evasion patterns. Compiled
// once at package load.
var defaultInjectionRules = []InjectionRule{
	{
		Name:    "ignore_instructions",
		Pattern: regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions|prompts|rules|context)`),
		Weight:  0.95,
	},
	{
		Name:    "role_override",
		Pattern: regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the|my)\s+\w+|act\s+as\s+(a|an|the|if)\s+\w+|pretend\s+(you\s+are|to\s+be)\s+`),
		Weight:  0.7,
	},
	{
		Name:    "system_prompt_leak",
		Pattern: regexp.MustCompile(`(?i)(reveal|show|print|display|repeat|output|tell\s+me|what\s+is|what\s+are)\s+(me\s+)?(your|the)\s+(system\s*)?(prompt|instructions|rules|context|message)`),
		Weight:  0.9,
	},
	{
		Name:    "jailbreak",
		Pattern: regexp.MustCompile(`(?i)\bDAN\b|do\s+anything\s+now|jailbreak|bypass\s+(filter|safety|restriction)`),
		Weight:  0.95,
	},
	{
		Name:    "delimiter_injection",
		Pattern: regexp.MustCompile(`(?i)<\|?(system|assistant|im_start|im_end)\|?>|\[INST\]|\[/INST\]|###\s*(system|assistant|instruction)`),
		Weight:  0.85,
	},
	{
		Name:    "encoding_evasion",
		Pattern: regexp.MustCompile(`(?i)base64\s*(decode|encode)|rot13|translate\s+from\s+(hex|binary|morse|base64)`),
		Weight:  0.8,
	},
	{
		Name:    "forget_instructions",
		Pattern: regexp.MustCompile(`(?i)(forget|disregard|dismiss|override|reset)\s+(everything|all|your|the|any)\s+(previous|prior|above|earlier|original)?\s*(instructions|rules|context|prompts)?`),
		Weight:  0.9,
	},
	{
		Name:    "new_instructions",
		Pattern: regexp.MustCompile(`(?i)(new|updated|real|actual|true)\s+(instructions|rules|prompt|task)\s*(:|are|follow)`),
		Weight:  0.85,
	},
}

// InjectionDetector scans user text for prompt injection attempts using
// weighted regex rules. Created once at startup and reused per request.
type InjectionDetector struct {
	blockThreshold float64
	warnThreshold  float64
	rules          []InjectionRule
	logger         *slog.Logger
}

// NewInjectionDetector creates a detector with the default rule set.
// Thresholds map the combined risk score to an action: score >= block
// blocks, score >= warn warns, otherwise the scan passes.
func NewInjectionDetector(blockThreshold, warnThreshold float64, logger *slog.Logger) *InjectionDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &InjectionDetector{
		blockThreshold: blockThreshold,
		warnThreshold:  warnThreshold,
		rules:          defaultInjectionRules,
		logger:         logger.With("component", "shield.injection"),
	}
}

// Scan runs all rules against text and combines matching weights into a
// single risk score using the complement product 1 - prod(1 - w). A single
// 0.95 match scores 0.95; two weak matches compound without ever exceeding
// 1.0. Empty text passes.
func (d *InjectionDetector) Scan(text string) ScanResult {
	if text == "" {
		return ScanResult{Action: InjectionPass}
	}

	var names []string
	combined := 1.0
	for _, r := range d.rules {
		if r.Pattern.MatchString(text) {
			names = append(names, r.Name)
			combined *= 1 - r.Weight
		}
	}
	if len(names) == 0 {
		return ScanResult{Action: InjectionPass}
	}

	score := 1 - combined
	action := InjectionPass
	switch {
	case score >= d.blockThreshold:
		action = InjectionBlock
	case score >= d.warnThreshold:
		action = InjectionWarn
	}

	d.logger.Warn("prompt injection patterns matched",
		"risk_score", score,
		"action", string(action),
		"rules", names)

	return ScanResult{
		Suspicious:   true,
		RiskScore:    score,
		MatchedRules: names,
		Action:       action,
	}
}
