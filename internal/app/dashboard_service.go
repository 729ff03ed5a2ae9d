package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"edumind-service/internal/domain"
	"edumind-service/internal/logging"
)

const (
	recentQuizLimit     = 3
	recentActivityLimit = 5
	logTailLines        = 10
	logTailBytes        = 64 * 1024
	chatRequestMarker   = "Received a request to /chat"
)

var logTimestampRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)

// DashboardService derives study statistics from stored quizzes and the
// chat request log.
type DashboardService struct {
	store    QuizStore
	logFiles []string
	log      *logging.Logger
	clock    func() time.Time
}

// NewDashboardService scans logFiles for chat sessions in RecentActivity.
func NewDashboardService(store QuizStore, logFiles []string, log *logging.Logger) *DashboardService {
	if log == nil {
		log = logging.Nop()
	}
	return &DashboardService{store: store, logFiles: logFiles, log: log, clock: time.Now}
}

func (s *DashboardService) Stats(ctx context.Context) (domain.DashboardStats, error) {
	quizzes, err := s.store.List(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	if len(quizzes) == 0 {
		s.log.Info("no quizzes found")
		return domain.DashboardStats{}, nil
	}

	var (
		totalQuestions int
		scores         []float64
		timestamps     []time.Time
	)
	lastWeek := s.clock().AddDate(0, 0, -7)
	var (
		lastWeekSessions  int
		lastWeekQuestions int
		lastWeekScores    []float64
	)
	for _, stored := range quizzes {
		rec := stored.Record
		totalQuestions += len(rec.Questions)
		for _, q := range rec.Questions {
			if q.Score != nil {
				scores = append(scores, float64(*q.Score))
			}
		}
		created, ok := rec.CreatedAt()
		if !ok {
			s.log.Warn("quiz has no valid timestamp", "quiz_id", rec.ID)
			continue
		}
		timestamps = append(timestamps, created)
		if created.Before(lastWeek) {
			lastWeekSessions++
			lastWeekQuestions += len(rec.Questions)
			for _, q := range rec.Questions {
				score := 0.0
				if q.Score != nil {
					score = float64(*q.Score)
				}
				lastWeekScores = append(lastWeekScores, score)
			}
		}
	}

	averageScore := mean(scores) * 100
	lastWeekAverage := mean(lastWeekScores) * 100

	stats := domain.DashboardStats{
		TotalStudySessions: len(quizzes),
		QuizzesCompleted:   totalQuestions,
		AverageScore:       round2(averageScore),
		StudyStreak:        studyStreak(timestamps),
		Trends: domain.Trends{
			Sessions: round2(trend(float64(len(quizzes)), float64(lastWeekSessions))),
			Quizzes:  round2(trend(float64(totalQuestions), float64(lastWeekQuestions))),
			Score:    round2(trend(averageScore, lastWeekAverage)),
		},
	}
	s.log.Info("dashboard stats", "sessions", stats.TotalStudySessions, "questions", stats.QuizzesCompleted, "average", stats.AverageScore)
	return stats, nil
}

// RecentActivity lists the latest quizzes followed by chat sessions found
// near the end of the log files.
func (s *DashboardService) RecentActivity(ctx context.Context) ([]domain.Activity, error) {
	quizzes, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quizzes, func(i, j int) bool {
		return quizzes[i].ModifiedAt.After(quizzes[j].ModifiedAt)
	})
	if len(quizzes) > recentQuizLimit {
		quizzes = quizzes[:recentQuizLimit]
	}

	now := s.clock()
	activities := make([]domain.Activity, 0, recentActivityLimit)
	for _, stored := range quizzes {
		rec := stored.Record
		created, ok := rec.CreatedAt()
		if !ok {
			s.log.Warn("skipping quiz without timestamp in activity", "quiz_id", rec.ID)
			continue
		}
		pct := 0.0
		if rec.Percentage != nil {
			pct = *rec.Percentage
		}
		activities = append(activities, domain.Activity{
			ID:          len(activities) + 1,
			Type:        "quiz",
			Title:       "Quiz Completed",
			Description: fmt.Sprintf("%s - Score: %.0f%%", created.Format("2006-01-02"), pct),
			Time:        TimeAgo(now, created),
			Icon:        "Brain",
			QuizID:      rec.ID,
			Score:       &pct,
		})
	}

	for _, path := range s.logFiles {
		lines, err := tailLines(path, logTailLines)
		if err != nil {
			if !os.IsNotExist(err) {
				s.log.Warn("cannot read log for activity", "path", path, "error", err)
			}
			continue
		}
		for _, line := range lines {
			m := logTimestampRe.FindStringSubmatch(line)
			if m == nil || !strings.Contains(line, chatRequestMarker) {
				continue
			}
			at, err := time.ParseInLocation(logging.TimeLayout, m[1], time.Local)
			if err != nil {
				continue
			}
			activities = append(activities, domain.Activity{
				ID:          len(activities) + 1,
				Type:        "chat",
				Title:       "AI Chat Session",
				Description: "User interaction",
				Time:        TimeAgo(now, at),
				Icon:        "MessageSquare",
			})
		}
	}

	if len(activities) > recentActivityLimit {
		activities = activities[:recentActivityLimit]
	}
	return activities, nil
}

// TimeAgo renders the coarsest whole unit between then and now.
func TimeAgo(now, then time.Time) string {
	d := now.Sub(then)
	if d < 0 {
		d = 0
	}
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%d hours ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d minutes ago", int(d/time.Minute))
	}
}

// studyStreak is the longest run of sorted quiz times whose neighbours are
// one whole day apart. Any quiz counts as a streak of one.
func studyStreak(timestamps []time.Time) int {
	if len(timestamps) == 0 {
		return 0
	}
	sorted := append([]time.Time(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	best, current := 1, 1
	for i := 1; i < len(sorted); i++ {
		if int(sorted[i].Sub(sorted[i-1])/(24*time.Hour)) == 1 {
			current++
		} else {
			current = 1
		}
		if current > best {
			best = current
		}
	}
	return best
}

// trend is the percentage change from past to now; with no past value it
// is now*100.
func trend(now, past float64) float64 {
	if past != 0 {
		return (now - past) / past * 100
	}
	if now > 0 {
		return now * 100
	}
	return 0
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// tailLines returns up to n trailing lines of the file at path.
func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	offset := info.Size() - logTailBytes
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if offset > 0 && len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
