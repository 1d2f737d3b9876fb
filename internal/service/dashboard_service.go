package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/repository"
)

const dashboardListSize = 5

// DashboardService grading statistics
type DashboardService interface {
	Get(ctx context.Context, teacherID string) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	stats  *statsCache
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService creates a DashboardService
func NewDashboardService(repo *repository.Repository, stats *statsCache, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, stats: stats, logger: logger, now: time.Now}
}

func (s *dashboardService) Get(ctx context.Context, teacherID string) (*dto.DashboardResponse, error) {
	cached, gen, ok := s.stats.get(ctx, teacherID)
	if ok {
		return cached, nil
	}

	subjects, err := s.repo.Subject.ListWithStudents(ctx, teacherID)
	if err != nil {
		s.logger.Error("failed to load dashboard data", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, err
	}

	resp := buildDashboard(subjects, s.now())
	s.stats.set(ctx, teacherID, gen, resp)
	return resp, nil
}

// buildDashboard derives every statistic from the subjects, their students
// and grades. Only students with an NR count towards averages, the
// distribution and the pass rate.
func buildDashboard(subjects []model.Subject, now time.Time) *dto.DashboardResponse {
	resp := &dto.DashboardResponse{
		SubjectCount:    len(subjects),
		SubjectAverages: make([]dto.SubjectAverage, 0, len(subjects)),
		TopStudents:     []dto.StudentScoreResponse{},
		NeedsAttention:  []dto.StudentScoreResponse{},
		GeneratedAt:     now.Format(time.RFC3339),
	}

	names := make(map[string]struct{})
	var (
		all    []float64
		scored []dto.StudentScoreResponse
		passed int
	)

	for i := range subjects {
		subject := &subjects[i]
		var subjectScores []float64

		for j := range subject.Students {
			st := &subject.Students[j]
			names[st.Name] = struct{}{}

			if isUngraded(st.Grade) {
				resp.UngradedCount++
			}
			if st.Grade == nil || st.Grade.FinalScore == nil {
				continue
			}

			nr := *st.Grade.FinalScore
			subjectScores = append(subjectScores, nr)
			all = append(all, nr)
			if grading.Passed(nr) {
				passed++
			}
			countLetter(&resp.Distribution, grading.Letter(nr))
			scored = append(scored, dto.StudentScoreResponse{
				StudentID:   st.StudentID,
				Name:        st.Name,
				SubjectID:   subject.SubjectID,
				SubjectName: subject.Name,
				FinalScore:  nr,
			})
		}

		resp.SubjectAverages = append(resp.SubjectAverages, dto.SubjectAverage{
			SubjectID:    subject.SubjectID,
			Name:         subject.Name,
			Semester:     subject.Semester,
			StudentCount: len(subject.Students),
			Average:      mean(subjectScores, 1),
		})
	}

	resp.StudentCount = len(names)
	resp.AverageScore = mean(all, 1)
	if len(all) > 0 {
		resp.PassPercentage = int(math.Round(float64(passed) / float64(len(all)) * 100))
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].FinalScore > scored[j].FinalScore })
	resp.TopStudents = append(resp.TopStudents, head(scored, dashboardListSize)...)

	var low []dto.StudentScoreResponse
	for _, sc := range scored {
		if sc.FinalScore > 0 && sc.FinalScore < grading.PassingScore {
			low = append(low, sc)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].FinalScore < low[j].FinalScore })
	resp.NeedsAttention = append(resp.NeedsAttention, head(low, dashboardListSize)...)

	return resp
}

// isUngraded no NR and neither of the first two summative scores
func isUngraded(g *model.Grade) bool {
	return g == nil || (g.FinalScore == nil && g.LM1Sum == nil && g.LM2Sum == nil)
}

func countLetter(d *dto.GradeDistribution, letter string) {
	switch letter {
	case "A":
		d.A++
	case "B":
		d.B++
	case "C":
		d.C++
	case "D":
		d.D++
	default:
		d.E++
	}
}

func mean(values []float64, places int) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := grading.Round(sum/float64(len(values)), places)
	return &m
}

func head(list []dto.StudentScoreResponse, n int) []dto.StudentScoreResponse {
	if len(list) > n {
		return list[:n]
	}
	return list
}
