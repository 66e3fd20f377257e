package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticlePagesAndTotalSteps(t *testing.T) {
	tests := []struct {
		topics     int
		wantPages  int
		fixedSteps int
		wantTotal  int
	}{
		{topics: 0, wantPages: 0, fixedSteps: 4, wantTotal: 4},
		{topics: 1, wantPages: 1, fixedSteps: 4, wantTotal: 5},
		{topics: 2, wantPages: 1, fixedSteps: 4, wantTotal: 5},
		{topics: 3, wantPages: 2, fixedSteps: 4, wantTotal: 6},
		{topics: 7, wantPages: 4, fixedSteps: 4, wantTotal: 8},
		{topics: 8, wantPages: 4, fixedSteps: 4, wantTotal: 8},
		{topics: 3, wantPages: 2, fixedSteps: 5, wantTotal: 7},
		{topics: 8, wantPages: 4, fixedSteps: 5, wantTotal: 9},
	}

	for _, tt := range tests {
		f := New(Config{FixedSteps: tt.fixedSteps})
		f.SetTopicCount(tt.topics)
		assert.Equal(t, tt.wantPages, f.ArticlePages(), "topics=%d", tt.topics)
		assert.Equal(t, tt.wantTotal, f.TotalSteps(), "topics=%d fixed=%d", tt.topics, tt.fixedSteps)
	}
}

func TestForwardWalkIsMonotonic(t *testing.T) {
	f := New(Config{})
	f.SetTopicCount(5) // 3 article pages

	prev := 0
	for i := 0; i < 10 && f.Stage() != StageConfirmation; i++ {
		step := f.StepNumber()
		require.GreaterOrEqual(t, step, prev)
		require.LessOrEqual(t, step, f.TotalSteps())
		prev = step
		f.Next()
	}
	assert.Equal(t, StageConfirmation, f.Stage())
	assert.Equal(t, f.TotalSteps(), f.StepNumber())
}

func TestBackFromSignupReturnsToLastArticlePage(t *testing.T) {
	f := New(Config{})
	f.SetTopicCount(5) // 3 pages

	f.Next() // language
	f.Next() // topics
	f.Next() // articles page 0
	f.Next() // page 1
	f.Next() // page 2
	require.Equal(t, StageArticles, f.Stage())
	require.Equal(t, 2, f.PageIndex())

	f.Next() // signup
	require.Equal(t, StageSignup, f.Stage())

	f.Back()
	assert.Equal(t, StageArticles, f.Stage())
	assert.Equal(t, 2, f.PageIndex(), "back from signup lands on the last page, not page 0")
}

func TestBackThenForwardYieldsSameStepNumber(t *testing.T) {
	f := New(Config{})
	f.SetTopicCount(4) // 2 pages

	f.Next() // language
	f.Next() // topics
	f.Next() // articles page 0
	f.Next() // page 1
	was := f.StepNumber()

	f.Back()
	f.Next()
	assert.Equal(t, was, f.StepNumber())
	assert.Equal(t, 1, f.PageIndex())
}

func TestBackFromFirstArticlePageReturnsToTopics(t *testing.T) {
	f := New(Config{})
	f.SetTopicCount(2)

	f.Next() // language
	f.Next() // topics
	f.Next() // articles page 0
	require.Equal(t, StageArticles, f.Stage())

	f.Back()
	assert.Equal(t, StageTopics, f.Stage())
}

func TestShrinkingSelectionClampsPageIndex(t *testing.T) {
	f := New(Config{})
	f.SetTopicCount(6) // 3 pages

	f.Next() // language
	f.Next() // topics
	f.Next() // articles page 0
	f.Next() // page 1
	f.Next() // page 2

	f.SetTopicCount(3) // now 2 pages; page 2 no longer exists
	assert.Equal(t, StageArticles, f.Stage())
	assert.Equal(t, 1, f.PageIndex())

	f.SetTopicCount(0) // no pages left at all
	assert.Equal(t, StageTopics, f.Stage())
	assert.Equal(t, 0, f.PageIndex())
}

func TestEmptySelectionSkipsArticleStage(t *testing.T) {
	f := New(Config{})

	f.Next() // language
	f.Next() // topics
	f.Next()
	assert.Equal(t, StageSignup, f.Stage())

	f.Back()
	assert.Equal(t, StageTopics, f.Stage())
}

func TestProgressBounds(t *testing.T) {
	f := New(Config{})
	f.SetTopicCount(8)

	seen := make([]int, 0, 10)
	for i := 0; i < 12; i++ {
		p := f.Progress()
		require.GreaterOrEqual(t, p, 0)
		require.LessOrEqual(t, p, 100)
		seen = append(seen, p)
		if f.Stage() == StageConfirmation {
			break
		}
		f.Next()
	}
	assert.Equal(t, 100, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
}

func TestResetClearsEverything(t *testing.T) {
	f := New(Config{})
	f.SetTopicCount(5)
	for f.Stage() != StageConfirmation {
		f.Next()
	}

	f.Reset()
	assert.Equal(t, StageEntry, f.Stage())
	assert.Equal(t, 0, f.PageIndex())
	assert.Equal(t, 0, f.TopicCount())
	assert.Equal(t, 1, f.StepNumber())
}

func TestStepNumberAtClampsPageIndex(t *testing.T) {
	f := New(Config{})
	f.SetTopicCount(4) // 2 pages

	assert.Equal(t, 5, f.StepNumberAt(StageArticles, 99), "overflowing index clamps to last page")
	assert.Equal(t, 4, f.StepNumberAt(StageArticles, -3), "negative index clamps to first page")
}
