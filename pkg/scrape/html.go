// Извлечение контента из распарсенного HTML дерева.

package scrape

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// blockTags — элементы, после которых текст продолжается с новой строки.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"article": true, "section": true, "blockquote": true, "pre": true,
}

// skipTags — элементы, содержимое которых не является видимым текстом.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"head": true, "template": true, "iframe": true, "svg": true,
}

// ExtractTitle возвращает содержимое первого тега <title>.
func ExtractTitle(doc *html.Node) string {
	var title string

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	return title
}

// ExtractText возвращает видимый текст страницы.
//
// Скрипты, стили и прочий невидимый контент пропускаются, блочные
// элементы разделяются переводами строк, пробелы схлопываются.
func ExtractText(doc *html.Node) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
					sb.WriteString(" ")
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] && sb.Len() > 0 {
			if !strings.HasSuffix(sb.String(), "\n") {
				sb.WriteString("\n")
			}
		}
	}
	walk(doc)

	return collapseBlankLines(sb.String())
}

// ExtractLinks возвращает абсолютные href всех ссылок страницы.
// Относительные URL разрешаются против base; якоря и javascript: отбрасываются.
func ExtractLinks(doc *html.Node, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSpace(attr.Val)
				if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
					break
				}
				parsed, err := url.Parse(href)
				if err != nil {
					break
				}
				if base != nil {
					parsed = base.ResolveReference(parsed)
				}
				abs := parsed.String()
				if !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links
}

// TruncateText обрезает строку до maxBytes, не разрезая UTF-8 символы.
func TruncateText(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	// Отступаем назад если разрез попал в середину символа
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// collapseBlankLines убирает повторяющиеся пустые строки и хвостовые пробелы.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
