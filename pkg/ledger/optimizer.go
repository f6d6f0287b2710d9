package ledger

import (
	"strings"
)

// Analysis is the advisory result of a prompt optimization scan. It never
// gates anything; callers decide what to do with the recommendations.
type Analysis struct {
	// ShouldOptimize indicates that at least one heuristic fired.
	ShouldOptimize bool

	// Recommendations are human-readable suggestions, one per heuristic.
	Recommendations []string

	// EstimatedSavings is a rough token count the recommendations could
	// save, proportional to the flagged excess.
	EstimatedSavings int
}

// Optimization heuristic thresholds.
const (
	// verbosityThreshold is the prompt length in characters above which
	// splitting is suggested.
	verbosityThreshold = 2000

	// repeatChunkSize and repeatChunkCount flag a prompt when any chunk of
	// this size appears at least this many times.
	repeatChunkSize  = 32
	repeatChunkCount = 3

	// repeatLineMinLen and repeatLineCount flag repeated whole lines.
	repeatLineMinLen = 20
	repeatLineCount  = 3

	// exampleLimit is how many "Example:" blocks a prompt may carry before
	// trimming is suggested; tokensPerExample prices the excess.
	exampleLimit     = 3
	tokensPerExample = 50
)

// Analyze scans a prompt with cheap lexical heuristics and suggests ways
// to spend fewer tokens on it. No heuristic firing means an empty result
// with ShouldOptimize false.
func Analyze(prompt string) Analysis {
	var a Analysis

	if len(prompt) > verbosityThreshold {
		a.Recommendations = append(a.Recommendations,
			"Prompt is very long; consider breaking it into smaller, focused prompts")
		a.EstimatedSavings += (len(prompt) - verbosityThreshold) / charsPerTokenDefault
	}

	if savings, repetitive := repeatedContent(prompt); repetitive {
		a.Recommendations = append(a.Recommendations,
			"Remove repetitive content; similar text appears multiple times")
		a.EstimatedSavings += savings
	}

	if examples := strings.Count(prompt, "Example:"); examples > exampleLimit {
		a.Recommendations = append(a.Recommendations,
			"Reduce the number of examples; keep only the most representative ones")
		a.EstimatedSavings += (examples - exampleLimit) * tokensPerExample
	}

	if redundantRole(prompt) {
		a.Recommendations = append(a.Recommendations,
			"Remove redundant role definitions; the role is stated more than once")
		a.EstimatedSavings += 10
	}

	a.ShouldOptimize = len(a.Recommendations) > 0
	return a
}

// repeatedContent reports whether the prompt repeats itself, either as a
// fixed-size chunk occurring repeatedly or as duplicated whole lines, and
// estimates the tokens the duplicates cost.
func repeatedContent(prompt string) (savings int, repetitive bool) {
	// Non-overlapping chunks keep the scan linear in prompt size. Aligned
	// repeats are enough here; the line check below catches the rest.
	chunks := make(map[string]int, len(prompt)/repeatChunkSize+1)
	for start := 0; start+repeatChunkSize <= len(prompt); start += repeatChunkSize {
		chunk := prompt[start : start+repeatChunkSize]
		chunks[chunk]++
		if chunks[chunk] >= repeatChunkCount {
			return (chunks[chunk] - 1) * repeatChunkSize / charsPerTokenDefault, true
		}
	}

	seen := make(map[string]int)
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < repeatLineMinLen {
			continue
		}
		seen[line]++
		if seen[line] >= repeatLineCount {
			return (seen[line] - 1) * len(line) / charsPerTokenDefault, true
		}
	}

	return 0, false
}

// redundantRole reports whether the prompt defines the assistant's role
// more than once with common phrasings.
func redundantRole(prompt string) bool {
	lower := strings.ToLower(prompt)
	return strings.Contains(lower, "you are a") && strings.Contains(lower, "your role is")
}
