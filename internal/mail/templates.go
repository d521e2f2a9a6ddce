package mail

import (
	"fmt"
	"html"
)

// Render оборачивает текст уведомления в простой HTML шаблон со ссылкой на фронтенд.
func Render(title, body, link string) string {
	out := fmt.Sprintf("<h2>%s</h2><p>%s</p>", html.EscapeString(title), html.EscapeString(body))
	if link != "" {
		out += fmt.Sprintf(`<p><a href="%s">Открыть SkillSwap</a></p>`, html.EscapeString(link))
	}
	return out
}
