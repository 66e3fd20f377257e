package dispatch

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/personewsap/personews/internal/client/models"
	"github.com/personewsap/personews/internal/common"
)

const (
	brandBlue      = "#054EAB"
	unsubscribeURL = "https://personewsap.com/account"
	logoURL        = "https://personewsap.com/logo-white.png"
)

// Subject formats the digest subject line for the given day.
func Subject(now time.Time) string {
	return fmt.Sprintf("%s · %s", common.BrandName, now.UTC().Format("2006-01-02"))
}

// BuildText renders the plain-text digest body.
func BuildText(language string, selected []Article) string {
	header, intro, thanks := "Hello,", "Here is your newsletter for today.", "Thanks!"
	if language == "fr" {
		header, intro, thanks = "Bonjour,", "Voici votre newsletter du jour.", "Merci !"
	}

	var b strings.Builder
	b.WriteString(header + "\n\n" + intro + "\n\n")
	for _, a := range selected {
		b.WriteString(a.Title + "\n")
		b.WriteString(a.Content + "\n")
		if len(a.Sources) > 0 {
			b.WriteString("Sources:\n")
			for _, s := range a.Sources {
				b.WriteString("- " + s + "\n")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(thanks)
	return b.String()
}

var boldRe = regexp.MustCompile(`\*\*(.+?)\*\*`)

// renderBold escapes the text and converts **bold** markers to <strong>.
func renderBold(text string) string {
	return boldRe.ReplaceAllString(html.EscapeString(text), "<strong>$1</strong>")
}

// BuildHTML renders the branded HTML digest: a menu of the selected titles
// grouped by topic, the article bodies, and an unsubscribe footer.
func BuildHTML(language string, selected []Article) string {
	menuTitle, thanks, unsubscribeLabel := "Today's menu", "Thanks for reading! Have a great day!", "Unsubscribe"
	if language == "fr" {
		menuTitle, thanks, unsubscribeLabel = "Menu du jour", "Merci pour votre lecture! Bonne journée!", "Se désinscrire"
	}

	var menu strings.Builder
	seen := make(map[string]bool)
	for _, a := range selected {
		if seen[a.Topic] {
			continue
		}
		seen[a.Topic] = true
		label := models.TopicLabel(a.Topic, language)
		menu.WriteString(fmt.Sprintf("<div style='margin-bottom:6px;'><strong>%s</strong></div>", html.EscapeString(label)))
		for _, item := range selected {
			if item.Topic == a.Topic {
				menu.WriteString(fmt.Sprintf("<div style='margin-left:12px;'>&bull; %s</div>", html.EscapeString(item.Title)))
			}
		}
	}

	var blocks strings.Builder
	for i, a := range selected {
		var sources strings.Builder
		for _, s := range a.Sources {
			url := html.EscapeString(s)
			sources.WriteString(fmt.Sprintf("<div><a href='%s' style='color:#1f3e7a;'>%s</a></div>", url, url))
		}
		content := strings.ReplaceAll(renderBold(a.Content), "\n", "<br/>")
		blocks.WriteString(fmt.Sprintf(`
            <div style="margin-bottom:24px;">
              <div style="font-weight:700;margin-bottom:6px;">Article %d: %s</div>
              <div style="line-height:1.6;">%s</div>
              <div style="margin-top:8px;font-size:12px;color:#1f3e7a;">Sources :</div>
              <div style="font-size:12px;line-height:1.5;">%s</div>
            </div>
            `, i+1, html.EscapeString(a.Title), content, sources.String()))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#0b1a3a;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="background:%s;padding:24px 0;font-family:Helvetica,Arial,sans-serif;">
    <tr>
      <td align="center">
        <table align="center" width="520" cellpadding="0" cellspacing="0" style="width:520px;max-width:520px;margin:0 auto 20px;">
          <tr>
            <td align="center">
              <table cellpadding="0" cellspacing="0" style="margin:0 auto;">
                <tr>
                  <td style="padding-right:12px;">
                    <img src="%s" alt="%s" width="48" height="48" style="display:block;" />
                  </td>
                  <td style="font-size:28px;font-weight:800;color:#ffffff;letter-spacing:0.2px;font-family:Georgia,'Times New Roman',serif;">
                    %s
                  </td>
                </tr>
              </table>
            </td>
          </tr>
        </table>
        <table align="center" width="520" cellpadding="0" cellspacing="0" style="width:520px;max-width:520px;background:#ffffff;border-radius:4px;padding:24px;margin:0 auto;">
          <tr>
            <td>
              <div style="text-align:center;font-weight:700;margin-bottom:12px;font-family:Georgia,'Times New Roman',serif;font-size:16px;">%s</div>
              <div style="text-align:left;font-size:14px;line-height:1.5;">%s</div>
              <div style="border-bottom:2px solid %s;margin:24px 0;"></div>
              %s
              <div style="border-bottom:2px solid %s;margin:24px 0;"></div>
              <div style="text-align:center;font-weight:700;font-family:Georgia,'Times New Roman',serif;">%s</div>
              <div style="text-align:center;margin-top:12px;font-size:12px;">
                <a href="%s" style="color:#1f3e7a;text-decoration:underline;">%s</a>
              </div>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`, brandBlue, logoURL, common.BrandName, common.BrandName, menuTitle,
		menu.String(), brandBlue, blocks.String(), brandBlue, thanks,
		unsubscribeURL, unsubscribeLabel)
}
