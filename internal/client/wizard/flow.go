// Package wizard implements the subscription wizard step-flow controller as a
// pure in-memory state machine. The number of steps is not fixed: topics are
// paginated two per article page, so the step count follows the selection.
// None of the operations here can fail; out-of-range inputs are clamped.
package wizard

// Stage is a named phase of the wizard.
type Stage int

const (
	StageEntry Stage = iota
	StageLanguage
	StageTopics
	StageArticles
	StageSignup
	StageConfirmation
)

func (s Stage) String() string {
	switch s {
	case StageEntry:
		return "entry"
	case StageLanguage:
		return "language"
	case StageTopics:
		return "topics"
	case StageArticles:
		return "articles"
	case StageSignup:
		return "signup"
	case StageConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// TopicsPerPage is how many selected topics share one article-quota page.
const TopicsPerPage = 2

// DefaultFixedSteps counts the non-paginated stages in the classic layout
// (entry, language and topics share the prefix; signup and confirmation
// share the terminal step number). A five-step variant, where confirmation
// gets its own number, is selected through Config.
const DefaultFixedSteps = 4

// Config selects the fixed-step variant. FixedSteps is the number of
// non-article steps contributing to the total; 4 and 5 are the supported
// layouts.
type Config struct {
	FixedSteps int
}

// Flow is the wizard state value: current stage, article page index, and the
// size of the current topic selection. The zero value is not ready for use;
// construct with New.
type Flow struct {
	cfg        Config
	stage      Stage
	pageIndex  int
	topicCount int
}

// New returns a Flow positioned on the entry stage.
func New(cfg Config) *Flow {
	if cfg.FixedSteps != 4 && cfg.FixedSteps != 5 {
		cfg.FixedSteps = DefaultFixedSteps
	}
	return &Flow{cfg: cfg}
}

func (f *Flow) Stage() Stage    { return f.stage }
func (f *Flow) PageIndex() int  { return f.pageIndex }
func (f *Flow) TopicCount() int { return f.topicCount }

// ArticlePages is ceil(topicCount / TopicsPerPage).
func (f *Flow) ArticlePages() int {
	return (f.topicCount + TopicsPerPage - 1) / TopicsPerPage
}

// TotalSteps is the fixed step count plus one step per article page.
func (f *Flow) TotalSteps() int {
	return f.cfg.FixedSteps + f.ArticlePages()
}

// StepNumber maps the current (stage, pageIndex) to a monotonic step number.
// Revisiting an earlier stage with the same page index yields the same
// number, so the progress bar never jumps backwards and forwards
// inconsistently during back-then-forward navigation.
func (f *Flow) StepNumber() int {
	return f.StepNumberAt(f.stage, f.pageIndex)
}

// StepNumberAt is the pure mapping behind StepNumber. The page index is
// clamped into the valid range before use.
func (f *Flow) StepNumberAt(stage Stage, pageIndex int) int {
	pages := f.ArticlePages()
	switch stage {
	case StageEntry:
		return 1
	case StageLanguage:
		return 2
	case StageTopics:
		return 3
	case StageArticles:
		return 4 + clamp(pageIndex, 0, maxPageIndex(pages))
	case StageSignup:
		return 4 + pages
	case StageConfirmation:
		return f.TotalSteps()
	default:
		return 1
	}
}

// Progress is round(100 * step / totalSteps), clamped to [0, 100].
func (f *Flow) Progress() int {
	total := f.TotalSteps()
	if total <= 0 {
		return 0
	}
	pct := (100*f.StepNumber() + total/2) / total
	return clamp(pct, 0, 100)
}

// SetTopicCount records a change to the selected-topic set and keeps the
// page index valid. If the current article page no longer exists the flow
// moves to the last valid page, or back to the topics stage when no pages
// remain at all.
func (f *Flow) SetTopicCount(n int) {
	if n < 0 {
		n = 0
	}
	f.topicCount = n

	pages := f.ArticlePages()
	if f.stage == StageArticles && pages == 0 {
		f.stage = StageTopics
		f.pageIndex = 0
		return
	}
	f.pageIndex = clamp(f.pageIndex, 0, maxPageIndex(pages))
}

// Next advances the flow one step forward. On the last article page it
// proceeds to signup; with an empty selection the article stage is skipped
// entirely. Next on the terminal stage is a no-op.
func (f *Flow) Next() {
	switch f.stage {
	case StageEntry:
		f.stage = StageLanguage
	case StageLanguage:
		f.stage = StageTopics
	case StageTopics:
		if f.ArticlePages() == 0 {
			f.stage = StageSignup
			return
		}
		f.stage = StageArticles
		f.pageIndex = 0
	case StageArticles:
		if f.pageIndex < f.ArticlePages()-1 {
			f.pageIndex++
			return
		}
		f.stage = StageSignup
	case StageSignup:
		f.stage = StageConfirmation
	case StageConfirmation:
		// terminal
	}
}

// Back moves the flow one step backwards. From signup it returns to the
// last article page, not page zero, so stepping back after a long selection
// does not lose the user's place. Back on the entry stage is a no-op.
func (f *Flow) Back() {
	switch f.stage {
	case StageEntry:
		// initial
	case StageLanguage:
		f.stage = StageEntry
	case StageTopics:
		f.stage = StageLanguage
	case StageArticles:
		if f.pageIndex > 0 {
			f.pageIndex--
			return
		}
		f.stage = StageTopics
	case StageSignup:
		pages := f.ArticlePages()
		if pages == 0 {
			f.stage = StageTopics
			return
		}
		f.stage = StageArticles
		f.pageIndex = pages - 1
	case StageConfirmation:
		f.stage = StageSignup
	}
}

// Reset returns the flow to the entry stage and forgets the selection. The
// "edit preferences" action on the terminal stage uses this: a full state
// reset, not a partial rollback.
func (f *Flow) Reset() {
	f.stage = StageEntry
	f.pageIndex = 0
	f.topicCount = 0
}

func maxPageIndex(pages int) int {
	if pages <= 0 {
		return 0
	}
	return pages - 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
