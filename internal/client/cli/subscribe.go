package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/personewsap/personews/internal/client/models"
	"github.com/personewsap/personews/internal/client/wizard"
	"github.com/personewsap/personews/internal/common"
)

// subscribeState accumulates the wizard's answers while the user moves back
// and forth between steps. Nothing here is durable until the signup step
// stages the draft.
type subscribeState struct {
	language string
	topics   []string       // selected keys in catalogue order
	counts   map[string]int // per-topic article quota
	user     models.UserProfile
	password string
	confirm  string
}

// Subscribe drives the subscription wizard. Typing "b" on any prompt goes
// back one step; the flow controller decides what the previous step is.
func (a *App) Subscribe(ctx context.Context) error {
	flow := wizard.New(wizard.Config{FixedSteps: a.config.FixedWizardSteps})
	state := &subscribeState{counts: make(map[string]int)}

	for {
		a.printStepHeader(flow)

		var back bool
		var err error
		switch flow.Stage() {
		case wizard.StageEntry:
			back, err = a.stepEntry()
		case wizard.StageLanguage:
			back, err = a.stepLanguage(state)
		case wizard.StageTopics:
			back, err = a.stepTopics(state, flow)
		case wizard.StageArticles:
			back, err = a.stepArticles(state, flow)
		case wizard.StageSignup:
			back, err = a.stepSignup(ctx, state)
		case wizard.StageConfirmation:
			return a.stepConfirmation(ctx)
		}
		if err != nil {
			switch {
			case errors.Is(err, errAbort):
				fmt.Fprintln(a.out, "Subscription cancelled.")
				return nil
			case errors.Is(err, errRetryStep):
				continue
			}
			return err
		}
		if back {
			flow.Back()
		} else {
			flow.Next()
		}
	}
}

var (
	errAbort = errors.New("aborted")

	// errRetryStep keeps the wizard on the current step, used after a
	// validation failure so the user can correct the input.
	errRetryStep = errors.New("retry step")
)

func (a *App) printStepHeader(flow *wizard.Flow) {
	fmt.Fprintf(a.out, "\n-- Step %d of %d (%d%%) · %s --\n",
		flow.StepNumber(), flow.TotalSteps(), flow.Progress(), flow.Stage())
}

// prompt reads a line and interprets the navigation tokens: "b" goes back,
// "q" abandons the wizard.
func (a *App) prompt(label string) (string, bool, error) {
	s, err := GetSimpleText(a.reader, label, a.out)
	if err != nil {
		return "", false, err
	}
	switch strings.ToLower(s) {
	case "b":
		return "", true, nil
	case "q":
		return "", false, errAbort
	}
	return s, false, nil
}

func (a *App) stepEntry() (bool, error) {
	fmt.Fprintf(a.out, "Welcome to %s, your personalised newsletter.\n", common.BrandName)
	_, back, err := a.prompt("Press Enter to begin (q to quit)")
	return back, err
}

func (a *App) stepLanguage(state *subscribeState) (bool, error) {
	for {
		s, back, err := a.prompt("Language for your articles (fr/en)")
		if back || err != nil {
			return back, err
		}
		if s == "" {
			s = common.DefaultLanguage
		}
		if s == "fr" || s == "en" {
			state.language = s
			return false, nil
		}
		fmt.Fprintln(a.out, "Please answer fr or en.")
	}
}

func (a *App) stepTopics(state *subscribeState, flow *wizard.Flow) (bool, error) {
	fmt.Fprintln(a.out, "Topics:")
	for i, key := range models.TopicKeys {
		marker := " "
		if state.counts[key] > 0 {
			marker = "*"
		}
		fmt.Fprintf(a.out, "  %d. [%s] %s\n", i+1, marker, models.TopicLabel(key, state.language))
	}

	s, back, err := a.prompt("Topic numbers, comma-separated (empty for none)")
	if back || err != nil {
		return back, err
	}

	var selected []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 || n > len(models.TopicKeys) {
			fmt.Fprintf(a.out, "Ignoring %q.\n", tok)
			continue
		}
		key := models.TopicKeys[n-1]
		if state.counts[key] == 0 {
			state.counts[key] = models.MinArticlesCount
		}
		selected = append(selected, key)
	}

	// Deselect everything not named this time around.
	named := make(map[string]bool, len(selected))
	for _, key := range selected {
		named[key] = true
	}
	state.topics = state.topics[:0]
	for _, key := range models.TopicKeys {
		if named[key] {
			state.topics = append(state.topics, key)
		} else {
			delete(state.counts, key)
		}
	}

	flow.SetTopicCount(len(state.topics))
	return false, nil
}

// stepArticles asks the per-topic article quota for the topics on the
// current page (two per page).
func (a *App) stepArticles(state *subscribeState, flow *wizard.Flow) (bool, error) {
	start := flow.PageIndex() * wizard.TopicsPerPage
	end := start + wizard.TopicsPerPage
	if end > len(state.topics) {
		end = len(state.topics)
	}

	for _, key := range state.topics[start:end] {
		label := models.TopicLabel(key, state.language)
		for {
			s, back, err := a.prompt(fmt.Sprintf("Articles per issue for %s (%d-%d)",
				label, models.MinArticlesCount, models.MaxArticlesCount))
			if back || err != nil {
				return back, err
			}
			if s == "" {
				break // keep current quota
			}
			n, convErr := strconv.Atoi(s)
			if convErr != nil {
				fmt.Fprintln(a.out, "Please enter a number.")
				continue
			}
			state.counts[key] = models.ClampArticlesCount(n)
			break
		}
	}
	return false, nil
}

func (a *App) stepSignup(ctx context.Context, state *subscribeState) (bool, error) {
	fields := []struct {
		label string
		dst   *string
	}{
		{"First name", &state.user.FirstName},
		{"Last name", &state.user.LastName},
		{"Email", &state.user.Email},
		{"Phone in international form, e.g. +33612345678 (optional)", &state.user.Phone},
	}
	for _, f := range fields {
		s, back, err := a.prompt(f.label)
		if back || err != nil {
			return back, err
		}
		if s != "" || f.dst == &state.user.Phone {
			*f.dst = s
		}
	}

	if state.user.Phone != "" {
		ok, err := GetYesNo(a.reader, "Receive WhatsApp updates on this number?", false, a.out)
		if err != nil {
			return false, err
		}
		state.user.WhatsappOptIn = ok
	}

	ok, err := GetYesNo(a.reader, "Receive the newsletter by email? (required)", true, a.out)
	if err != nil {
		return false, err
	}
	state.user.EmailOptIn = ok

	pw, err := GetPassword(a.out, "Choose a password")
	if err != nil {
		return false, err
	}
	confirm, err := GetPassword(a.out, "Confirm password")
	if err != nil {
		return false, err
	}
	state.password, state.confirm = string(pw), string(confirm)

	_, err = a.registration.Stage(ctx, state.pending(), state.password, state.confirm)
	if err != nil {
		var fieldErrs models.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			fmt.Fprintln(a.out, fieldErrs.Error())
			return false, errRetryStep
		case errors.Is(err, common.ErrDuplicateEmail):
			fmt.Fprintln(a.out, "This email is already registered. Use 'login' to sign in instead.")
			return false, errAbort
		default:
			return false, err
		}
	}

	// Try to finish right away; a fresh identity normally still needs email
	// verification, which surfaces as unauthorized.
	if err := a.registration.SignIn(ctx, state.user.Email, state.password); err == nil {
		if _, err := a.registration.Complete(ctx); err == nil {
			fmt.Fprintln(a.out, "Subscription complete, welcome aboard!")
			return false, nil
		}
	}

	fmt.Fprintln(a.out, "Check your inbox and follow the verification link, then type 'verify'.")
	return false, nil
}

func (a *App) stepConfirmation(ctx context.Context) error {
	if ok, err := a.registration.HasStagedDraft(ctx); err == nil && !ok {
		fmt.Fprintln(a.out, "You are all set.")
		return nil
	}
	fmt.Fprintln(a.out, "Waiting for email verification. Type 'verify' after following the link.")
	return nil
}

func (s *subscribeState) pending() models.PendingRegistration {
	topics := make([]models.TopicPreference, 0, len(s.topics))
	for _, key := range s.topics {
		topics = append(topics, models.TopicPreference{TopicKey: key, ArticlesCount: s.counts[key]})
	}
	return models.PendingRegistration{
		Language: s.language,
		User:     s.user,
		Topics:   topics,
	}
}

// Verify completes a staged registration once the email link was followed.
func (a *App) Verify(ctx context.Context) error {
	email, _, err := a.prompt("Email")
	if err != nil {
		return err
	}
	pw, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	if err := a.registration.SignIn(ctx, email, string(pw)); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			fmt.Fprintln(a.out, "Sign-in failed. If you have not followed the verification link yet, do that first.")
			return nil
		}
		return err
	}

	rec, err := a.registration.Complete(ctx)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrDraftNotFound):
			fmt.Fprintln(a.out, "No pending subscription on this device. Use 'account' to review your settings.")
			return nil
		case errors.Is(err, common.ErrIdentityMismatch):
			fmt.Fprintln(a.out, "You are signed in with a different email than the one you subscribed with.")
			return nil
		}
		return err
	}

	fmt.Fprintf(a.out, "Subscription complete. See you in the next issue, %s!\n", rec.FirstName)
	return nil
}

// Resend re-sends the verification email for the staged registration.
func (a *App) Resend(ctx context.Context) error {
	if err := a.registration.ResendVerification(ctx); err != nil {
		if errors.Is(err, common.ErrDraftNotFound) {
			fmt.Fprintln(a.out, "No pending subscription on this device.")
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out, "Verification email sent.")
	return nil
}
