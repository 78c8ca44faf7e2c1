package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// KeywordScore maps an evaluation keyword to a score.
type KeywordScore struct {
	Keyword string
	Score   int
}

// Scorer turns a free-text evaluation comment into a numeric score.
type Scorer interface {
	Score(comment string) decimal.Decimal
}

// NewScorer returns the scorer selected by the policy.
func NewScorer(p Policy) Scorer {
	if p.Scorer == ScorerRatio {
		keywords := p.Keywords
		if len(keywords) == 0 {
			keywords = RatioKeywords()
		}
		return &RatioScorer{Keywords: keywords}
	}
	keywords := p.Keywords
	if len(keywords) == 0 {
		keywords = DefaultKeywords()
	}
	return &KeywordScorer{Keywords: keywords}
}

// =============================================================================
// KEYWORD SCORER (canonical)
// =============================================================================

// KeywordScorer lower-cases the comment and returns the score of the first
// keyword, in table order, that occurs in it. Without a match the score is
// DefaultKeywordScore.
type KeywordScorer struct {
	Keywords []KeywordScore
}

const DefaultKeywordScore = 3

func (s *KeywordScorer) Score(comment string) decimal.Decimal {
	text := strings.ToLower(comment)
	for _, k := range s.Keywords {
		if strings.Contains(text, k.Keyword) {
			return decimal.NewFromInt(int64(k.Score))
		}
	}
	return decimal.NewFromInt(DefaultKeywordScore)
}

// =============================================================================
// RATIO SCORER
// =============================================================================

// RatioScorer divides the number of positive keywords (score >= 4) found in
// the comment by the number of negative ones (score < 4), rounded to one
// decimal. With no negative hit the score is RatioCeiling.
type RatioScorer struct {
	Keywords []KeywordScore
}

const positiveKeywordScore = 4

var RatioCeiling = decimal.NewFromInt(10)

func (s *RatioScorer) Score(comment string) decimal.Decimal {
	text := strings.ToLower(comment)
	var positive, negative int64
	for _, k := range s.Keywords {
		if !strings.Contains(text, k.Keyword) {
			continue
		}
		if k.Score >= positiveKeywordScore {
			positive++
		} else {
			negative++
		}
	}
	if negative == 0 {
		return RatioCeiling
	}
	return decimal.NewFromInt(positive).DivRound(decimal.NewFromInt(negative), 1)
}

// =============================================================================
// EVALUATION STAGE
// =============================================================================

// ScoreEvaluations parses "id#comment" lines and assigns a score to every
// known employee that has one. Employees without a line keep no evaluation.
// Repeated lines for an identity: the last one wins.
func ScoreEvaluations(roster *Roster, src io.Reader, scorer Scorer, ledger *Ledger, log logrus.FieldLogger) (FeedStats, error) {
	var stats FeedStats
	for _, e := range roster.Employees() {
		e.Evaluation = decimal.NullDecimal{}
	}

	err := scanLines(src, SourceEvaluation, func(no int, text string) {
		stats.Lines++
		rawID, comment, found := strings.Cut(text, "#")
		if !found {
			recordMalformed(ledger, log, &RecordError{Source: SourceEvaluation, Line: no, Reason: "missing '#' delimiter"})
			stats.Malformed++
			return
		}
		id, ok := ParseEmployeeID(strings.TrimSpace(rawID))
		if !ok {
			recordMalformed(ledger, log, &RecordError{Source: SourceEvaluation, Line: no, Reason: fmt.Sprintf("invalid employee ID %q", strings.TrimSpace(rawID))})
			stats.Malformed++
			return
		}
		emp, ok := roster.Get(id)
		if !ok {
			ledger.RecordEvaluation(id, no)
			warnIdentity(log, &IdentityError{Source: SourceEvaluation, EmployeeID: id, Line: no})
			stats.Unknown++
			return
		}
		emp.Evaluation = decimal.NewNullDecimal(scorer.Score(comment))
		stats.Accepted++
	}, stats.rejectLine(ledger, log))
	return stats, err
}
