package service

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// Standing is a score's position within its cohort.
type Standing struct {
	Percentile int `json:"percentile"`
	Rank       int `json:"rank"`
	Total      int `json:"total"`
}

// PercentileRank places target among scores. Percentile is the rounded share of
// strictly lower scores; rank is one plus the number of strictly higher scores,
// so tied scores share a rank.
func PercentileRank(target int, scores []int) Standing {
	st := Standing{Rank: 1, Total: len(scores)}
	if len(scores) == 0 {
		return st
	}
	below := 0
	for _, sc := range scores {
		switch {
		case sc < target:
			below++
		case sc > target:
			st.Rank++
		}
	}
	st.Percentile = percentHalfUp(below, len(scores))
	return st
}

func scoresOf(sessions []model.Session) []int {
	scores := make([]int, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		if s.Status.CountsForAnalytics() && s.IsGraded() {
			scores = append(scores, *s.Score)
		}
	}
	return scores
}

// QuestionStat describes how a cohort fared on one question.
type QuestionStat struct {
	QuestionID         uuid.UUID `json:"question_id"`
	Presented          int       `json:"presented"`
	Answered           int       `json:"answered"`
	Correct            int       `json:"correct"`
	PercentCorrect     *int      `json:"percent_correct"`
	MeanLatencySeconds *float64  `json:"mean_latency_seconds"`
}

// QuestionDifficulty aggregates per-question correctness and answer latency over
// completed and timed-out sessions. Latency is answered_at minus session start.
func QuestionDifficulty(sessions []model.Session) []QuestionStat {
	type acc struct {
		stat    QuestionStat
		latency time.Duration
		timed   int
	}
	byQuestion := make(map[uuid.UUID]*acc)
	var order []uuid.UUID

	for i := range sessions {
		s := &sessions[i]
		if !s.Status.CountsForAnalytics() {
			continue
		}
		for _, qid := range s.QuestionIDs {
			a, ok := byQuestion[qid]
			if !ok {
				a = &acc{stat: QuestionStat{QuestionID: qid}}
				byQuestion[qid] = a
				order = append(order, qid)
			}
			a.stat.Presented++

			ans := s.Answers[qid]
			if !ans.Answered() {
				continue
			}
			a.stat.Answered++
			if ans.Correct != nil && *ans.Correct {
				a.stat.Correct++
			}
			if ans.AnsweredAt != nil {
				a.latency += ans.AnsweredAt.Sub(s.CreatedAt)
				a.timed++
			}
		}
	}

	stats := make([]QuestionStat, 0, len(order))
	for _, qid := range order {
		a := byQuestion[qid]
		if a.stat.Answered > 0 {
			pc := percentHalfUp(a.stat.Correct, a.stat.Answered)
			a.stat.PercentCorrect = &pc
		}
		if a.timed > 0 {
			mean := (a.latency / time.Duration(a.timed)).Seconds()
			a.stat.MeanLatencySeconds = &mean
		}
		stats = append(stats, a.stat)
	}
	return stats
}

// HeatmapBucket counts the "left" events that happened while one question was on screen.
type HeatmapBucket struct {
	Position   int       `json:"position"`
	QuestionID uuid.UUID `json:"question_id"`
	Violations int       `json:"violations"`
}

// Heatmap is the per-position distribution of a session's violations.
type Heatmap struct {
	SessionID       uuid.UUID       `json:"session_id"`
	TotalViolations int             `json:"total_violations"`
	BeforeFirstView int             `json:"before_first_view"`
	Degraded        bool            `json:"degraded"`
	Buckets         []HeatmapBucket `json:"buckets,omitempty"`
}

// ViolationHeatmap attributes each "left" event to the question most recently
// viewed strictly before it. An event sharing its instant with a view is
// charged to the previously viewed question, or to BeforeFirstView when that
// view was the first. Without view telemetry only the session total is
// reported.
func ViolationHeatmap(s *model.Session) Heatmap {
	hm := Heatmap{SessionID: s.ID, TotalViolations: s.ViolationCount()}

	type view struct {
		pos int
		at  time.Time
	}
	var views []view
	for pos, qid := range s.QuestionIDs {
		if at, ok := s.QuestionViews[qid]; ok {
			views = append(views, view{pos: pos, at: at})
		}
	}
	if len(views) == 0 {
		hm.Degraded = true
		return hm
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].at.Before(views[j].at) })

	hm.Buckets = make([]HeatmapBucket, len(s.QuestionIDs))
	for pos, qid := range s.QuestionIDs {
		hm.Buckets[pos] = HeatmapBucket{Position: pos, QuestionID: qid}
	}

	for _, v := range s.Violations {
		if v.Kind != model.ViolationLeft {
			continue
		}
		// Last view strictly before the event.
		i := sort.Search(len(views), func(i int) bool { return !views[i].at.Before(v.At) }) - 1
		if i < 0 {
			hm.BeforeFirstView++
			continue
		}
		hm.Buckets[views[i].pos].Violations++
	}
	return hm
}

// Summary is the cohort overview of one assessment.
type Summary struct {
	Attempts         int      `json:"attempts"`
	InProgress       int      `json:"in_progress"`
	Completed        int      `json:"completed"`
	TimedOut         int      `json:"timed_out"`
	Abandoned        int      `json:"abandoned"`
	Graded           int      `json:"graded"`
	Passed           int      `json:"passed"`
	PassRate         *float64 `json:"pass_rate"`
	MeanScore        *float64 `json:"mean_score"`
	MedianScore      *float64 `json:"median_score"`
	HighestScore     *int     `json:"highest_score"`
	LowestScore      *int     `json:"lowest_score"`
	FlaggedForReview int      `json:"flagged_for_review"`
}

// Summarize counts sessions by status and computes score statistics over
// completed and timed-out sessions. A non-positive reviewThreshold uses
// the default.
func Summarize(sessions []model.Session, reviewThreshold int) Summary {
	var sum Summary
	var scores []int

	for i := range sessions {
		s := &sessions[i]
		sum.Attempts++
		switch s.Status {
		case model.SessionStatusInProgress:
			sum.InProgress++
		case model.SessionStatusCompleted:
			sum.Completed++
		case model.SessionStatusTimedOut:
			sum.TimedOut++
		case model.SessionStatusAbandoned:
			sum.Abandoned++
		}
		if s.FlaggedForReview(reviewThreshold) {
			sum.FlaggedForReview++
		}
		if !s.Status.CountsForAnalytics() || s.Score == nil {
			continue
		}
		scores = append(scores, *s.Score)
		if s.Passed != nil && *s.Passed {
			sum.Passed++
		}
	}

	sum.Graded = len(scores)
	if len(scores) == 0 {
		return sum
	}

	sort.Ints(scores)
	total := 0
	for _, sc := range scores {
		total += sc
	}
	mean := float64(total) / float64(len(scores))
	median := float64(scores[len(scores)/2])
	if len(scores)%2 == 0 {
		median = float64(scores[len(scores)/2-1]+scores[len(scores)/2]) / 2
	}
	passRate := 100 * float64(sum.Passed) / float64(len(scores))
	lowest, highest := scores[0], scores[len(scores)-1]

	sum.MeanScore, sum.MedianScore, sum.PassRate = &mean, &median, &passRate
	sum.LowestScore, sum.HighestScore = &lowest, &highest
	return sum
}
