package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/personewsap/personews/internal/client/models"
	"github.com/personewsap/personews/internal/common"
)

// Login opens a session for an existing subscriber.
func (a *App) Login(ctx context.Context) error {
	email, _, err := a.prompt("Email")
	if err != nil {
		return err
	}
	pw, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	if err := a.account.SignIn(ctx, email, string(pw)); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			fmt.Fprintln(a.out, "Sign-in failed, check your email and password.")
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out, "Signed in.")
	return nil
}

// ShowAccount prints the subscriber's current settings.
func (a *App) ShowAccount(ctx context.Context) error {
	view, err := a.account.Load(ctx)
	if err != nil {
		return a.explainLoad(err)
	}

	rec := view.Account
	fmt.Fprintf(a.out, "%s %s <%s>\n", rec.FirstName, rec.LastName, rec.Email)
	fmt.Fprintf(a.out, "Language: %s\n", rec.Language)
	if rec.Phone != "" {
		fmt.Fprintf(a.out, "Phone: %s (WhatsApp: %v)\n", rec.Phone, rec.WhatsappOptIn)
	}
	fmt.Fprintf(a.out, "Email delivery: %v\n", rec.EmailOptIn)
	if len(view.Topics) == 0 {
		fmt.Fprintln(a.out, "No topics selected.")
		return nil
	}
	fmt.Fprintln(a.out, "Topics:")
	for _, p := range view.Topics {
		fmt.Fprintf(a.out, "  %s: %d article(s) per issue\n", models.TopicLabel(p.TopicKey, rec.Language), p.ArticlesCount)
	}
	return nil
}

// EditAccount walks through the profile fields and topic rows, keeping the
// current value when the user presses Enter.
func (a *App) EditAccount(ctx context.Context) error {
	view, err := a.account.Load(ctx)
	if err != nil {
		return a.explainLoad(err)
	}

	profile := view.Account.UserProfile()
	language := view.Account.Language

	if s, err := a.editField("First name", profile.FirstName); err != nil {
		return err
	} else if s != "" {
		profile.FirstName = s
	}
	if s, err := a.editField("Last name", profile.LastName); err != nil {
		return err
	} else if s != "" {
		profile.LastName = s
	}
	if s, err := a.editField("Language (fr/en)", language); err != nil {
		return err
	} else if s == "fr" || s == "en" {
		language = s
	}
	if s, err := a.editField("Phone (- to remove)", profile.Phone); err != nil {
		return err
	} else if s == "-" {
		profile.Phone = ""
		profile.WhatsappOptIn = false
	} else if s != "" {
		profile.Phone = s
	}
	if profile.Phone != "" {
		ok, err := GetYesNo(a.reader, "Receive WhatsApp updates?", profile.WhatsappOptIn, a.out)
		if err != nil {
			return err
		}
		profile.WhatsappOptIn = ok
	}

	topics, err := a.editTopics(view.Topics, language)
	if err != nil {
		return err
	}

	if err := a.account.Save(ctx, profile, language, topics); err != nil {
		var fields models.FieldErrors
		if errors.As(err, &fields) {
			fmt.Fprintln(a.out, fields.Error())
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out, "Saved.")
	return nil
}

func (a *App) editField(label, current string) (string, error) {
	s, err := GetSimpleText(a.reader, fmt.Sprintf("%s [%s]", label, current), a.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// editTopics shows the catalogue with current quotas and asks for a new
// selection. Empty input keeps the current rows.
func (a *App) editTopics(current []models.TopicPreference, language string) ([]models.TopicPreference, error) {
	counts := make(map[string]int, len(current))
	for _, p := range current {
		counts[p.TopicKey] = p.ArticlesCount
	}

	fmt.Fprintln(a.out, "Topics:")
	for i, key := range models.TopicKeys {
		quota := "off"
		if n, ok := counts[key]; ok {
			quota = strconv.Itoa(n)
		}
		fmt.Fprintf(a.out, "  %d. %s [%s]\n", i+1, models.TopicLabel(key, language), quota)
	}

	s, err := GetSimpleText(a.reader, "New topic numbers, comma-separated (empty to keep, 'none' to clear)", a.out)
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return current, nil
	}
	if strings.EqualFold(s, "none") {
		return nil, nil
	}

	var topics []models.TopicPreference
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 || n > len(models.TopicKeys) {
			fmt.Fprintf(a.out, "Ignoring %q.\n", tok)
			continue
		}
		key := models.TopicKeys[n-1]
		quota := counts[key]
		if quota == 0 {
			quota = models.MinArticlesCount
		}
		m, err := GetInt(a.reader, fmt.Sprintf("Articles per issue for %s (%d-%d)",
			models.TopicLabel(key, language), models.MinArticlesCount, models.MaxArticlesCount), a.out)
		if err == nil {
			quota = models.ClampArticlesCount(m)
		}
		topics = append(topics, models.TopicPreference{TopicKey: key, ArticlesCount: quota})
	}
	return topics, nil
}

// ChangePassword updates the signed-in identity's password.
func (a *App) ChangePassword(ctx context.Context) error {
	pw, err := GetPassword(a.out, "New password")
	if err != nil {
		return err
	}
	confirm, err := GetPassword(a.out, "Confirm password")
	if err != nil {
		return err
	}
	if err := a.account.ChangePassword(ctx, string(pw), string(confirm)); err != nil {
		var fields models.FieldErrors
		if errors.As(err, &fields) {
			fmt.Fprintln(a.out, fields.Error())
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out, "Password updated.")
	return nil
}

// Feedback asks for a verdict on the last issue and records it. Works with
// or without a session: signed-in users skip the email prompt.
func (a *App) Feedback(ctx context.Context) error {
	var fb models.Feedback
	if view, err := a.account.Load(ctx); err == nil {
		fb.Email = view.Account.Email
	}
	if fb.Email == "" {
		s, err := GetSimpleText(a.reader, "Your email", a.out)
		if err != nil {
			return err
		}
		fb.Email = s
	}

	for {
		s, err := GetSimpleText(a.reader, fmt.Sprintf("How was the issue? (%s/%s/%s)",
			models.RatingGood, models.RatingAverage, models.RatingBad), a.out)
		if err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case models.RatingGood, models.RatingAverage, models.RatingBad:
			fb.Rating = strings.ToLower(strings.TrimSpace(s))
		default:
			fmt.Fprintf(a.out, "Please answer %s, %s or %s.\n",
				models.RatingGood, models.RatingAverage, models.RatingBad)
			continue
		}
		break
	}

	if s, err := GetSimpleText(a.reader, "Anything to add? (optional)", a.out); err != nil {
		return err
	} else {
		fb.Message = s
	}

	if s, err := GetSimpleText(a.reader, "Issue date YYYY-MM-DD (optional)", a.out); err != nil {
		return err
	} else if s = strings.TrimSpace(s); s != "" {
		day, err := time.Parse("2006-01-02", s)
		if err != nil {
			fmt.Fprintf(a.out, "Ignoring %q, not a date.\n", s)
		} else {
			fb.IssueDate = day
		}
	}

	if err := a.account.SubmitFeedback(ctx, fb); err != nil {
		var fields models.FieldErrors
		if errors.As(err, &fields) {
			fmt.Fprintln(a.out, fields.Error())
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out, "Thanks for your feedback!")
	return nil
}

// Unsubscribe turns off delivery after an explicit confirmation.
func (a *App) Unsubscribe(ctx context.Context) error {
	ok, err := GetYesNo(a.reader, "Stop the newsletter and remove your topic selection?", false, a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Nothing changed.")
		return nil
	}
	if err := a.account.Unsubscribe(ctx); err != nil {
		return a.explainLoad(err)
	}
	fmt.Fprintln(a.out, "You are unsubscribed. Your profile is kept if you ever want to come back.")
	return nil
}

func (a *App) explainLoad(err error) error {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		fmt.Fprintln(a.out, "Please 'login' first.")
		return nil
	case errors.Is(err, common.ErrNotFound):
		fmt.Fprintln(a.out, "No subscription found for this account.")
		return nil
	}
	return err
}
