// Package ai defines the contract of the AI grading and hint collaborators and
// the parsing of their free-text grading output.
package ai

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

// ErrBackend reports that the AI endpoint was unreachable, timed out, returned
// a non-success status or an unparseable body.
var ErrBackend = errors.New("ai backend error")

// GradeRequest is the input of a subjective grading call.
type GradeRequest struct {
	Question        string  `json:"question"`
	Answer          string  `json:"answer"`
	ReferenceAnswer string  `json:"reference_answer"`
	MaxScore        float64 `json:"max_score"`
}

// GradeResult is the AI's verdict.
type GradeResult struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// Grader scores a free-text answer against a reference answer.
type Grader interface {
	Grade(ctx context.Context, req GradeRequest) (GradeResult, error)
}

// Advisor answers a student's question in free text.
type Advisor interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Backend is a collaborator offering both grading and hints.
type Backend interface {
	Grader
	Advisor
}

var (
	scoreTokens   = []string{"score", "分数"}
	commentTokens = []string{"comment", "评语"}
)

// ParseGrade extracts a score and comment from LLM output of the form
//
//	Score: 3.5
//	Comment: ...
//
// A line is classified by the label before its first colon; the value is
// whatever follows that colon. A missing, malformed or non-finite score
// yields 0.
func ParseGrade(content string) GradeResult {
	var res GradeResult
	for _, line := range strings.Split(content, "\n") {
		label, value, hasColon := splitLabel(line)
		label = strings.ToLower(label)
		switch {
		case containsAny(label, scoreTokens):
			score, err := strconv.ParseFloat(strings.Trim(value, " \t\r*"), 64)
			if !hasColon || err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
				score = 0
			}
			res.Score = score
		case containsAny(label, commentTokens):
			if hasColon {
				res.Comment = strings.TrimSpace(value)
			}
		}
	}
	return res
}

// Clamp bounds a score to [0, max]. NaN becomes 0.
func Clamp(score, max float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if max > 0 && score > max {
		return max
	}
	return score
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func splitLabel(line string) (label, value string, ok bool) {
	i := strings.IndexAny(line, ":：")
	if i < 0 {
		return line, "", false
	}
	label, rest := line[:i], line[i:]
	if strings.HasPrefix(rest, "：") {
		return label, rest[len("："):], true
	}
	return label, rest[1:], true
}

// Limited throttles calls to a Backend.
type Limited struct {
	next    Backend
	limiter *rate.Limiter
}

// RateLimited wraps b so that calls wait on limiter. A nil limiter disables throttling.
func RateLimited(b Backend, limiter *rate.Limiter) Backend {
	if limiter == nil {
		return b
	}
	return &Limited{next: b, limiter: limiter}
}

// Grade implements Grader.
func (l *Limited) Grade(ctx context.Context, req GradeRequest) (GradeResult, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return GradeResult{}, errors.Join(ErrBackend, err)
	}
	return l.next.Grade(ctx, req)
}

// Ask implements Advisor.
func (l *Limited) Ask(ctx context.Context, question string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", errors.Join(ErrBackend, err)
	}
	return l.next.Ask(ctx, question)
}
