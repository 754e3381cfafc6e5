package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/billlzzz10/unicornxos/internal/domain"
)

// Goals and daily quest targets
const (
	CharacterGoal = 50000
	PlotGoal      = 10
	TaskGoal      = 20

	// RecentNotes is how many recently edited notes are shown
	RecentNotes = 3

	QuestCharacters = 1000
	QuestPomodoros  = 4
	QuestTasks      = 3
)

// Stat is one progress ring
type Stat struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Goal  int    `json:"goal"`
}

// Quest is one daily target
type Quest struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Value  int    `json:"value"`
	Target int    `json:"target"`
	Done   bool   `json:"done"`
}

// Summary is what the dashboard shows
type Summary struct {
	Stats       []Stat        `json:"stats"`
	Quests      []Quest       `json:"quests"`
	RecentNotes []domain.Note `json:"recentNotes"`
}

// Source provides the counts the dashboard is built from
type Source interface {
	TotalCharacters(ctx context.Context) (int, error)
	CharactersUpdatedSince(ctx context.Context, since time.Time) (int, error)
	CompletedTasks(ctx context.Context) (int, error)
	CompletedTasksSince(ctx context.Context, since time.Time) (int, error)
	CompletedPlotPoints(ctx context.Context) (int, error)
	ListNotes(ctx context.Context, f domain.NoteFilter) ([]domain.Note, error)
}

// Pomodoros reports today's finished work sessions
type Pomodoros interface {
	Today(ctx context.Context) int
}

// Build computes the summary as of now. "Today" starts at local midnight.
func Build(ctx context.Context, src Source, pomos Pomodoros, now time.Time) (Summary, error) {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	totalChars, err := src.TotalCharacters(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: %w", err)
	}
	doneTasks, err := src.CompletedTasks(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: %w", err)
	}
	charsToday, err := src.CharactersUpdatedSince(ctx, midnight)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: %w", err)
	}
	tasksToday, err := src.CompletedTasksSince(ctx, midnight)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: %w", err)
	}
	donePlots, err := src.CompletedPlotPoints(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: %w", err)
	}
	recent, err := src.ListNotes(ctx, domain.NoteFilter{Limit: RecentNotes})
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: %w", err)
	}

	return Summary{
		Stats: []Stat{
			{Label: "Characters", Value: totalChars, Goal: CharacterGoal},
			{Label: "Plots", Value: donePlots, Goal: PlotGoal},
			{Label: "Tasks", Value: doneTasks, Goal: TaskGoal},
		},
		Quests: []Quest{
			quest("quest1", "Write 1000 characters", charsToday, QuestCharacters),
			quest("quest2", "Finish 4 pomodoros", pomos.Today(ctx), QuestPomodoros),
			quest("quest3", "Complete 3 tasks", tasksToday, QuestTasks),
		},
		RecentNotes: recent,
	}, nil
}

func quest(id, title string, value, target int) Quest {
	return Quest{ID: id, Title: title, Value: value, Target: target, Done: value >= target}
}
